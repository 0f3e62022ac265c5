package net

import (
	"fmt"

	"github.com/mosaicnetworks/streamlet/src/chain"
)

// Network provides an interface for delivery channels, to allow the
// orchestrator to move messages between nodes.
type Network interface {
	// BroadcastProposal queues a proposal sent during epoch for every node but
	// the sender.
	BroadcastProposal(epoch int, proposal *chain.Proposal)

	// BroadcastVote queues a vote sent during epoch for every node but the
	// voter.
	BroadcastVote(epoch int, vote *chain.Vote)

	// DeliverProposals and DeliverVotes return, in sending order, the messages
	// that are due for node id at epoch, and remove them from its mailbox.
	DeliverProposals(epoch int, id int) []*chain.Proposal
	DeliverVotes(epoch int, id int) []*chain.Vote

	// Stats returns the message counters.
	Stats() Stats
}

// Options tune the reliability of an InmemNetwork.
type Options struct {
	// DropRate is the probability in [0, 1] that a copy of a message is lost.
	DropRate float64

	// MaxDelay is the maximum number of epochs a copy of a message can be
	// held back.
	MaxDelay int

	// Seed initialises the random source used for drops and delays.
	Seed int64
}

// Validate ...
func (o Options) Validate() error {
	if o.DropRate < 0 || o.DropRate > 1 {
		return fmt.Errorf("drop rate %v outside [0, 1]", o.DropRate)
	}
	if o.MaxDelay < 0 {
		return fmt.Errorf("negative max delay %d", o.MaxDelay)
	}
	return nil
}

// Stats counts message copies, one per recipient.
type Stats struct {
	Sent      int
	Dropped   int
	Delayed   int
	Delivered int
	Pending   int
}

// String ...
func (s Stats) String() string {
	return fmt.Sprintf("sent=%d dropped=%d delayed=%d delivered=%d pending=%d",
		s.Sent, s.Dropped, s.Delayed, s.Delivered, s.Pending)
}

type envelope struct {
	deliverAt int
	proposal  *chain.Proposal
	vote      *chain.Vote
}
