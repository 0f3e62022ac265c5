package peers

import (
	"fmt"
	"sort"
)

// PeerSet is a set of Peers forming a consensus network
type PeerSet struct {
	Peers []*Peer
	ByID  map[int]*Peer

	// computed once, the set never changes
	faultTolerance int
	superMajority  int
}

/* Constructors */

// NewPeerSet creates a new PeerSet from a list of Peers. Peers are sorted by
// id. It is an error for the ids not to be exactly 0..n-1.
func NewPeerSet(peers []*Peer) (*PeerSet, error) {
	sorted := make([]*Peer, len(peers))
	copy(sorted, peers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	peerSet := &PeerSet{
		Peers: sorted,
		ByID:  make(map[int]*Peer),
	}

	for i, peer := range sorted {
		if peer.ID != i {
			return nil, fmt.Errorf("peer ids must be 0..%d, found %d at position %d", len(sorted)-1, peer.ID, i)
		}
		peerSet.ByID[peer.ID] = peer
	}

	if len(sorted) > 0 {
		peerSet.faultTolerance = (len(sorted) - 1) / 3
	}
	peerSet.superMajority = 2*peerSet.faultTolerance + 1

	return peerSet, nil
}

// NewPeerSetOfSize creates a PeerSet of n peers with ids 0..n-1 and default
// monikers.
func NewPeerSetOfSize(n int) *PeerSet {
	peers := make([]*Peer, n)
	for i := 0; i < n; i++ {
		peers[i] = NewPeer(i, "")
	}
	peerSet, _ := NewPeerSet(peers)
	return peerSet
}

/* Utilities */

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}

// Has reports whether id belongs to the PeerSet.
func (peerSet *PeerSet) Has(id int) bool {
	_, ok := peerSet.ByID[id]
	return ok
}

// FaultTolerance returns f = floor((n-1)/3), the number of Byzantine peers the
// network tolerates.
func (peerSet *PeerSet) FaultTolerance() int {
	return peerSet.faultTolerance
}

// SuperMajority returns the quorum 2f+1.
func (peerSet *PeerSet) SuperMajority() int {
	return peerSet.superMajority
}

// Leader returns the id of the round-robin leader of an epoch.
func (peerSet *PeerSet) Leader(epoch int) int {
	if peerSet.Len() == 0 {
		return -1
	}
	return epoch % peerSet.Len()
}
