package byzantine

import (
	"fmt"
	"strings"

	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/crypto"
	"github.com/mosaicnetworks/streamlet/src/node"
)

// Behavior is the strategy a participant follows when it proposes and votes.
type Behavior uint32

const (
	// Honest follows the protocol.
	Honest Behavior = iota
	// Silent never proposes and never publishes its votes. It still receives
	// and stores proposals.
	Silent
	// Equivocator publishes every vote together with a conflicting vote for a
	// fabricated block of the same epoch.
	Equivocator
	// Fabricator sends corrupted proposals when it leads an epoch: a parent
	// that resolves nowhere on even epochs, a proposer id different from the
	// sender on odd epochs. It votes honestly.
	Fabricator
)

var behaviors = []string{
	"honest",
	"silent",
	"equivocator",
	"fabricator",
}

// String ...
func (b Behavior) String() string {
	if int(b) < len(behaviors) {
		return behaviors[b]
	}
	return "unknown"
}

// ParseBehavior ...
func ParseBehavior(s string) (Behavior, error) {
	for i, name := range behaviors {
		if strings.EqualFold(s, name) {
			return Behavior(i), nil
		}
	}
	return Honest, fmt.Errorf("unknown behavior %q", s)
}

// IsByzantine is true for every behavior but Honest.
func (b Behavior) IsByzantine() bool {
	return b != Honest
}

// Propose returns the proposals that n sends to the network as the leader of
// epoch. The returned slice is empty when the behavior withholds its
// proposal.
func (b Behavior) Propose(n *node.Node, epoch int, transactions []string) ([]*chain.Proposal, error) {
	switch b {
	case Silent:
		return nil, nil
	case Fabricator:
		block, err := n.Propose(epoch, transactions)
		if err != nil {
			return nil, err
		}
		return []*chain.Proposal{fabricate(n.ID(), block)}, nil
	default:
		block, err := n.Propose(epoch, transactions)
		if err != nil {
			return nil, err
		}
		return []*chain.Proposal{chain.NewProposal(block, n.ID())}, nil
	}
}

// Publish returns the votes that n sends to the network out of the votes it
// actually cast.
func (b Behavior) Publish(n *node.Node, votes []*chain.Vote) []*chain.Vote {
	switch b {
	case Silent:
		return nil
	case Equivocator:
		res := make([]*chain.Vote, 0, 2*len(votes))
		for _, v := range votes {
			res = append(res, v, chain.NewVote(n.ID(), v.Epoch, siblingHash(v)))
		}
		return res
	default:
		return votes
	}
}

// fabricate corrupts a genuine block. The result is well formed, so it is only
// caught by the parent and proposer checks of the receivers.
func fabricate(id int, genuine *chain.Block) *chain.Proposal {
	epoch := genuine.Epoch()

	if epoch%2 == 0 {
		parent := common.EncodeToString(crypto.Digestf("fabricated-parent-%d-%d", id, epoch))
		block := chain.NewBlock(epoch, parent, genuine.Transactions(), id, genuine.Timestamp())
		return chain.NewProposal(block, id)
	}

	block := chain.NewBlock(epoch, genuine.ParentHash(), genuine.Transactions(), id+1, genuine.Timestamp())
	return chain.NewProposal(block, id)
}

// siblingHash is the hash of a block that was never proposed, used as the
// target of a conflicting vote.
func siblingHash(v *chain.Vote) string {
	return common.EncodeToString(crypto.Digestf("sibling-%d-%d-%s", v.VoterID, v.Epoch, v.BlockHash))
}

// Assign returns the behavior of every node of an n-node network. Ids that
// appear in none of the lists are Honest.
func Assign(n int, silent, equivocators, fabricators []int) ([]Behavior, error) {
	res := make([]Behavior, n)

	assign := func(ids []int, b Behavior) error {
		for _, id := range ids {
			if id < 0 || id >= n {
				return fmt.Errorf("%s id %d outside network of size %d", b, id, n)
			}
			if res[id] != Honest {
				return fmt.Errorf("node %d is both %s and %s", id, res[id], b)
			}
			res[id] = b
		}
		return nil
	}

	if err := assign(silent, Silent); err != nil {
		return nil, err
	}
	if err := assign(equivocators, Equivocator); err != nil {
		return nil, err
	}
	if err := assign(fabricators, Fabricator); err != nil {
		return nil, err
	}

	return res, nil
}

// Count returns the number of non-honest behaviors.
func Count(behaviors []Behavior) int {
	c := 0
	for _, b := range behaviors {
		if b.IsByzantine() {
			c++
		}
	}
	return c
}
