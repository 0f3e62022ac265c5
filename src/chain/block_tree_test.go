package chain

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/streamlet/src/common"
)

func TestBlockTreeAdd(t *testing.T) {
	tree := NewBlockTree()
	genesis := tree.Genesis()

	if tree.Len() != 0 {
		t.Fatalf("new tree should only contain genesis, got %d blocks", tree.Len())
	}

	b1 := NewBlock(1, genesis.Hash, []string{"a"}, 1, time.Unix(0, 1))
	b2 := NewBlock(2, b1.Hash, []string{"b"}, 2, time.Unix(0, 2))
	fork := NewBlock(3, b1.Hash, []string{"c"}, 3, time.Unix(0, 3))

	for _, b := range []*Block{b1, b2, fork} {
		added, err := tree.Add(b)
		if err != nil {
			t.Fatal(err)
		}
		if !added {
			t.Fatalf("%v should have been added", b)
		}
	}

	added, err := tree.Add(b2)
	if err != nil || added {
		t.Fatalf("re-adding a block should be a no-op, got added=%v err=%v", added, err)
	}

	if l := tree.Length(b2.Hash); l != 2 {
		t.Fatalf("b2 length should be 2, not %d", l)
	}
	if l := tree.Length(fork.Hash); l != 2 {
		t.Fatalf("fork length should be 2, not %d", l)
	}
	if l := tree.Length("0XNOPE"); l != -1 {
		t.Fatalf("unknown block length should be -1, not %d", l)
	}

	children := tree.Children(b1.Hash)
	if len(children) != 2 {
		t.Fatalf("b1 should have 2 children, not %d", len(children))
	}

	path := tree.Path(b2.Hash)
	if len(path) != 2 || path[0].Hash != b1.Hash || path[1].Hash != b2.Hash {
		t.Fatalf("unexpected path %v", path)
	}

	parent, ok := tree.Parent(b2)
	if !ok || parent.Hash != b1.Hash {
		t.Fatal("b2's parent should be b1")
	}
	if _, ok := tree.Parent(genesis); ok {
		t.Fatal("genesis has no parent")
	}

	if hs := tree.EpochBlocks(3); len(hs) != 1 || hs[0] != fork.Hash {
		t.Fatalf("unexpected epoch 3 blocks %v", hs)
	}
}

func TestBlockTreeUnknownParent(t *testing.T) {
	tree := NewBlockTree()

	orphan := NewBlock(1, "0XBADPARENT", nil, 1, time.Unix(0, 1))

	added, err := tree.Add(orphan)
	if added {
		t.Fatal("orphan should not be added")
	}
	if !common.IsReject(err, common.UnknownParent) {
		t.Fatalf("expected UnknownParent, got %v", err)
	}
	if tree.Has(orphan.Hash) {
		t.Fatal("orphan should not be in the tree")
	}
}
