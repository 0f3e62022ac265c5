package net

import (
	"math/rand"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/peers"
	"github.com/sirupsen/logrus"
)

type mailbox struct {
	proposals deque.Deque
	votes     deque.Deque
}

// InmemNetwork implements the Network interface, to allow nodes to exchange
// messages in-memory, with optional loss and delay.
type InmemNetwork struct {
	sync.Mutex

	peers     []*peers.Peer
	mailboxes map[int]*mailbox
	opts      Options
	rng       *rand.Rand
	stats     Stats
	logger    *logrus.Entry
}

// NewInmemNetwork creates a network connecting the given peers.
func NewInmemNetwork(participants []*peers.Peer, opts Options, logger *logrus.Entry) *InmemNetwork {
	mailboxes := make(map[int]*mailbox, len(participants))
	for _, p := range participants {
		mailboxes[p.ID] = &mailbox{}
	}

	return &InmemNetwork{
		peers:     participants,
		mailboxes: mailboxes,
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		logger:    logger,
	}
}

// BroadcastProposal implements the Network interface.
func (n *InmemNetwork) BroadcastProposal(epoch int, proposal *chain.Proposal) {
	n.Lock()
	defer n.Unlock()

	_, recipients := peers.ExcludePeer(n.peers, proposal.Claimed)
	for _, p := range recipients {
		n.enqueue(epoch, &n.mailboxes[p.ID].proposals, envelope{proposal: proposal}, p.ID)
	}
}

// BroadcastVote implements the Network interface.
func (n *InmemNetwork) BroadcastVote(epoch int, vote *chain.Vote) {
	n.Lock()
	defer n.Unlock()

	_, recipients := peers.ExcludePeer(n.peers, vote.VoterID)
	for _, p := range recipients {
		n.enqueue(epoch, &n.mailboxes[p.ID].votes, envelope{vote: vote}, p.ID)
	}
}

func (n *InmemNetwork) enqueue(epoch int, queue *deque.Deque, env envelope, to int) {
	n.stats.Sent++

	if n.opts.DropRate > 0 && n.rng.Float64() < n.opts.DropRate {
		n.stats.Dropped++
		n.logger.WithFields(logrus.Fields{
			"epoch": epoch,
			"to":    to,
		}).Debug("Dropped message")
		return
	}

	env.deliverAt = epoch
	if n.opts.MaxDelay > 0 {
		if delay := n.rng.Intn(n.opts.MaxDelay + 1); delay > 0 {
			env.deliverAt += delay
			n.stats.Delayed++
		}
	}

	queue.PushBack(env)
	n.stats.Pending++
}

// DeliverProposals implements the Network interface.
func (n *InmemNetwork) DeliverProposals(epoch int, id int) []*chain.Proposal {
	n.Lock()
	defer n.Unlock()

	box, ok := n.mailboxes[id]
	if !ok {
		return nil
	}

	res := []*chain.Proposal{}
	for _, env := range n.due(epoch, &box.proposals) {
		res = append(res, env.proposal)
	}
	return res
}

// DeliverVotes implements the Network interface.
func (n *InmemNetwork) DeliverVotes(epoch int, id int) []*chain.Vote {
	n.Lock()
	defer n.Unlock()

	box, ok := n.mailboxes[id]
	if !ok {
		return nil
	}

	res := []*chain.Vote{}
	for _, env := range n.due(epoch, &box.votes) {
		res = append(res, env.vote)
	}
	return res
}

// due pops the envelopes whose delivery epoch has come and keeps the others in
// their original order.
func (n *InmemNetwork) due(epoch int, queue *deque.Deque) []envelope {
	res := []envelope{}

	for i, l := 0, queue.Len(); i < l; i++ {
		v, _ := queue.PopFront()
		env := v.(envelope)
		if env.deliverAt <= epoch {
			res = append(res, env)
			continue
		}
		queue.PushBack(env)
	}

	n.stats.Delivered += len(res)
	n.stats.Pending -= len(res)

	return res
}

// Stats implements the Network interface.
func (n *InmemNetwork) Stats() Stats {
	n.Lock()
	defer n.Unlock()

	return n.stats
}
