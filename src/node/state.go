package node

// Phase captures how far a node went with an epoch: Idle, Received, Voted,
// Notarized, or Finalized. A node goes through these phases independently
// for every epoch, and phases only ever move forward.
type Phase uint32

const (
	// Idle means the node has not seen a proposal for the epoch.
	Idle Phase = iota
	// Received means the node stored a proposal for the epoch, or proposed
	// one itself.
	Received
	// Voted means the node voted for a proposal of the epoch.
	Voted
	// Notarized means a block of the epoch reached quorum at this node.
	Notarized
	// Finalized means a block of the epoch entered the finalized sequence.
	Finalized
)

// String ...
func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Received:
		return "Received"
	case Voted:
		return "Voted"
	case Notarized:
		return "Notarized"
	case Finalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

type phases map[int]Phase

// advance moves an epoch to p unless it is already further along.
func (ps phases) advance(epoch int, p Phase) {
	if ps[epoch] < p {
		ps[epoch] = p
	}
}
