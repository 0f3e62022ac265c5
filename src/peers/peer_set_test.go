package peers

import (
	"testing"
)

func TestFaultTolerance(t *testing.T) {
	cases := []struct {
		n      int
		f      int
		quorum int
	}{
		{1, 0, 1},
		{2, 0, 1},
		{3, 0, 1},
		{4, 1, 3},
		{6, 1, 3},
		{7, 2, 5},
		{10, 3, 7},
		{100, 33, 67},
	}

	for _, c := range cases {
		ps := NewPeerSetOfSize(c.n)
		if f := ps.FaultTolerance(); f != c.f {
			t.Errorf("n=%d: f should be %d, not %d", c.n, c.f, f)
		}
		if q := ps.SuperMajority(); q != c.quorum {
			t.Errorf("n=%d: quorum should be %d, not %d", c.n, c.quorum, q)
		}
	}
}

func TestLeaderRotation(t *testing.T) {
	ps := NewPeerSetOfSize(4)

	expected := []int{0, 1, 2, 3, 0, 1, 2, 3}
	for epoch, want := range expected {
		if got := ps.Leader(epoch); got != want {
			t.Fatalf("epoch %d: leader should be %d, not %d", epoch, want, got)
		}
	}
}

func TestNewPeerSetRejectsGaps(t *testing.T) {
	_, err := NewPeerSet([]*Peer{NewPeer(0, ""), NewPeer(2, "")})
	if err == nil {
		t.Fatal("ids with gaps should be rejected")
	}

	ps, err := NewPeerSet([]*Peer{NewPeer(1, "bob"), NewPeer(0, "alice")})
	if err != nil {
		t.Fatal(err)
	}
	if ps.Peers[0].Moniker != "alice" || !ps.Has(1) || ps.Has(2) {
		t.Fatalf("unexpected peer-set %v", ps.Peers)
	}
}

func TestExcludePeer(t *testing.T) {
	ps := NewPeerSetOfSize(3)
	index, others := ExcludePeer(ps.Peers, 1)
	if index != 1 || len(others) != 2 || others[1].ID != 2 {
		t.Fatalf("unexpected exclusion result %d %v", index, others)
	}
}
