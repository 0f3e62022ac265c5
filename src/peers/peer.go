package peers

import "fmt"

// Peer is a participant of the network.
type Peer struct {
	ID      int
	Moniker string
}

// NewPeer ...
func NewPeer(id int, moniker string) *Peer {
	if moniker == "" {
		moniker = fmt.Sprintf("node%d", id)
	}
	return &Peer{
		ID:      id,
		Moniker: moniker,
	}
}

// String ...
func (p *Peer) String() string {
	return fmt.Sprintf("%s(%d)", p.Moniker, p.ID)
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, id int) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID != id {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
