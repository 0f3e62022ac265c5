package node

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/peers"
	"github.com/sirupsen/logrus"
)

// Node is the Streamlet state machine of a single participant. It owns its
// block tree, vote ledger, notarized set and finalized sequence; other
// participants only reach it through ReceiveProposal and ReceiveVote(s).
type Node struct {
	id     int
	conf   *Config
	peers  *peers.PeerSet
	logger *logrus.Entry

	mu sync.Mutex

	tree   *chain.BlockTree
	ledger *chain.VoteLedger

	// notarized is the set of hashes that reached quorum. chained caches the
	// notarized blocks whose every ancestor is notarized too; both only grow.
	notarized map[string]struct{}
	chained   map[string]struct{}

	// finalized is the append-only committed sequence, genesis excluded.
	finalized    []*chain.Block
	finalizedSet map[string]struct{}

	phases   phases
	votedFor map[int]string // epoch => hash this node voted for

	// outbox holds the votes cast by this node that have not been collected
	// by Outbox yet.
	outbox []*chain.Vote

	// conflicts records finalizable hashes that do not extend the finalized
	// sequence. They can only appear when more than f peers misbehave.
	conflicts map[string]struct{}

	latestEpoch           int
	proposed              int
	votesCast             int
	rejectedProposals     int
	rejectedVotes         int
	proposerEquivocations int
}

// NewNode creates the node with the given id. The genesis block is created
// and notarized straight away.
func NewNode(id int, conf *Config) (*Node, error) {
	if conf.PeerSet == nil || conf.PeerSet.Len() < 1 {
		return nil, fmt.Errorf("node %d: empty peer-set", id)
	}
	if !conf.PeerSet.Has(id) {
		return nil, fmt.Errorf("node %d: not in peer-set of size %d", id, conf.PeerSet.Len())
	}

	tree := chain.NewBlockTree()
	genesis := tree.Genesis().Hash

	node := &Node{
		id:           id,
		conf:         conf,
		peers:        conf.PeerSet,
		logger:       conf.Logger.WithField("node", id),
		tree:         tree,
		ledger:       chain.NewVoteLedger(),
		notarized:    map[string]struct{}{genesis: {}},
		chained:      map[string]struct{}{genesis: {}},
		finalizedSet: make(map[string]struct{}),
		phases:       make(phases),
		votedFor:     make(map[int]string),
		conflicts:    make(map[string]struct{}),
	}

	return node, nil
}

// ID ...
func (n *Node) ID() int {
	return n.id
}

// Quorum returns 2f+1.
func (n *Node) Quorum() int {
	return n.peers.SuperMajority()
}

// FaultTolerance returns f.
func (n *Node) FaultTolerance() int {
	return n.peers.FaultTolerance()
}

/*******************************************************************************
Proposals
*******************************************************************************/

// Propose builds a block for epoch on top of the tip selected by the
// chain-selection rule, processes it exactly like a proposal received from
// the network, and returns it for distribution. It only succeeds when this
// node is the leader of the epoch.
func (n *Node) Propose(epoch int, transactions []string) (*chain.Block, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	tip := n.tip()
	block := chain.NewBlock(epoch, tip.Hash, transactions, n.id, n.conf.Clock())

	if err := n.receiveProposal(block, n.id); err != nil {
		return nil, err
	}

	n.proposed++

	n.logger.WithFields(logrus.Fields{
		"epoch":  epoch,
		"hash":   common.ShortHex(block.Hash),
		"parent": common.ShortHex(tip.Hash),
		"txs":    len(transactions),
	}).Debug("Propose")

	return block, nil
}

// ReceiveProposal validates a block claimed to come from claimedProposerID.
// A nil error means the block was accepted and stored. The first proposal of
// an epoch that extends a longest notarized chain also gets this node's vote,
// which is placed in the outbox. Later proposals for an epoch this node
// already voted in are stored but never voted for.
func (n *Node) ReceiveProposal(block *chain.Block, claimedProposerID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.receiveProposal(block, claimedProposerID)
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"claimed": claimedProposerID,
			"block":   block,
			"err":     err,
		}).Warn("Rejected proposal")
	}
	return err
}

func (n *Node) receiveProposal(block *chain.Block, claimedProposerID int) error {
	if err := n.validate(block, claimedProposerID); err != nil {
		n.rejectedProposals++
		return err
	}

	if n.tree.Has(block.Hash) {
		return nil
	}

	epoch := block.Epoch()

	for _, h := range n.tree.EpochBlocks(epoch) {
		if h != block.Hash {
			n.proposerEquivocations++
			n.logger.WithFields(logrus.Fields{
				"epoch":    epoch,
				"proposer": block.ProposerID(),
				"known":    common.ShortHex(h),
				"new":      common.ShortHex(block.Hash),
			}).Warn("Conflicting proposals for the same epoch")
			break
		}
	}

	added, err := n.tree.Add(block)
	if err != nil {
		n.rejectedProposals++
		return err
	}
	if !added {
		return nil
	}

	if epoch > n.latestEpoch {
		n.latestEpoch = epoch
	}
	n.phases.advance(epoch, Received)

	n.vote(block)

	// Votes may have arrived before the block did.
	if n.evaluate(epoch, block.Hash) {
		n.checkFinalization()
	}

	return nil
}

func (n *Node) validate(block *chain.Block, claimedProposerID int) error {
	if !block.IsWellFormed() {
		hash := ""
		if block != nil {
			hash = block.Hash
		}
		return common.NewRejectErr("Proposal", common.MalformedBlock, hash)
	}

	if claimedProposerID != block.ProposerID() {
		return common.NewRejectErr("Proposal", common.ProposerMismatch,
			fmt.Sprintf("claimed %d, block %d", claimedProposerID, block.ProposerID()))
	}

	if leader := n.peers.Leader(block.Epoch()); leader != block.ProposerID() {
		return common.NewRejectErr("Proposal", common.NotLeader,
			fmt.Sprintf("epoch %d leader %d, proposer %d", block.Epoch(), leader, block.ProposerID()))
	}

	parent, ok := n.tree.Get(block.ParentHash())
	if !ok {
		return common.NewRejectErr("Proposal", common.UnknownParent, block.ParentHash())
	}

	if parent.Epoch() >= block.Epoch() {
		return common.NewRejectErr("Proposal", common.NonIncreasingEpoch,
			fmt.Sprintf("parent %d, block %d", parent.Epoch(), block.Epoch()))
	}

	return nil
}

// vote casts this node's vote for block if it is the first vote of the epoch
// and the block extends a longest notarized chain known to this node.
func (n *Node) vote(block *chain.Block) {
	epoch := block.Epoch()

	if voted, ok := n.votedFor[epoch]; ok {
		n.logger.WithFields(logrus.Fields{
			"epoch":    epoch,
			"voted":    common.ShortHex(voted),
			"proposal": common.ShortHex(block.Hash),
		}).Debug("Already voted in epoch")
		return
	}

	parent := block.ParentHash()
	if !n.isChained(parent) || n.tree.Length(parent) < n.tree.Length(n.tip().Hash) {
		n.logger.WithFields(logrus.Fields{
			"epoch":  epoch,
			"hash":   common.ShortHex(block.Hash),
			"parent": common.ShortHex(parent),
		}).Debug("Proposal does not extend a longest notarized chain")
		return
	}

	v := chain.NewVote(n.id, epoch, block.Hash)
	if err := n.ledger.Add(v); err != nil {
		n.logger.WithError(err).Error("Recording own vote")
		return
	}

	n.votedFor[epoch] = block.Hash
	n.outbox = append(n.outbox, v)
	n.votesCast++
	n.phases.advance(epoch, Voted)
}

// Outbox returns the votes cast by this node since the previous call.
func (n *Node) Outbox() []*chain.Vote {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := n.outbox
	n.outbox = nil
	return res
}

/*******************************************************************************
Votes
*******************************************************************************/

// ReceiveVote records a single vote and runs the quorum and finalization
// checks. It is ReceiveVotes with a batch of one.
func (n *Node) ReceiveVote(v *chain.Vote) error {
	return n.ReceiveVotes([]*chain.Vote{v})[0]
}

// ReceiveVotes records a batch of votes, then checks quorum for every
// (epoch, hash) the batch touched, then runs the finalization check once.
// Recording the whole batch first means that an equivocation contained in the
// batch is detected before any tally it would have inflated is evaluated.
// The returned slice holds one entry per vote; a nil entry means the vote was
// counted.
func (n *Node) ReceiveVotes(votes []*chain.Vote) []error {
	n.mu.Lock()
	defer n.mu.Unlock()

	errs := make([]error, len(votes))

	type target struct {
		epoch int
		hash  string
	}
	touched := []target{}
	seen := make(map[target]struct{})

	for i, v := range votes {
		if err := n.checkVote(v); err != nil {
			errs[i] = err
			n.rejectedVotes++
			continue
		}

		if err := n.ledger.Add(v); err != nil {
			errs[i] = err
			n.rejectedVotes++
			if common.IsEquivocation(err) {
				n.logger.WithFields(logrus.Fields{
					"voter": v.VoterID,
					"epoch": v.Epoch,
					"hash":  common.ShortHex(v.BlockHash),
				}).Warn("Equivocation detected")
			}
			continue
		}

		if v.Epoch > n.latestEpoch {
			n.latestEpoch = v.Epoch
		}

		t := target{v.Epoch, v.BlockHash}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			touched = append(touched, t)
		}
	}

	for _, t := range touched {
		n.evaluate(t.epoch, t.hash)
	}

	n.checkFinalization()

	return errs
}

func (n *Node) checkVote(v *chain.Vote) error {
	key := fmt.Sprintf("%d-%d", v.Epoch, v.VoterID)
	if !n.peers.Has(v.VoterID) {
		return common.NewRejectErr("Vote", common.UnknownVoter, key)
	}
	if v.Epoch < 0 {
		return common.NewRejectErr("Vote", common.EpochMismatch, key)
	}
	if b, ok := n.tree.Get(v.BlockHash); ok && b.Epoch() != v.Epoch {
		return common.NewRejectErr("Vote", common.EpochMismatch, key)
	}
	return nil
}

// evaluate notarizes hash if it is known and its tally reached quorum.
func (n *Node) evaluate(epoch int, hash string) bool {
	if _, ok := n.notarized[hash]; ok {
		return false
	}
	block, ok := n.tree.Get(hash)
	if !ok || block.Epoch() != epoch {
		return false
	}

	tally := n.ledger.Tally(epoch, hash)
	if tally < n.Quorum() {
		return false
	}

	n.notarized[hash] = struct{}{}
	n.phases.advance(epoch, Notarized)

	n.logger.WithFields(logrus.Fields{
		"epoch":  epoch,
		"hash":   common.ShortHex(hash),
		"tally":  tally,
		"quorum": n.Quorum(),
	}).Debug("Notarized")

	return true
}

/*******************************************************************************
Chain selection
*******************************************************************************/

// isChained reports whether hash and all its ancestors are notarized.
func (n *Node) isChained(hash string) bool {
	if _, ok := n.chained[hash]; ok {
		return true
	}
	if _, ok := n.notarized[hash]; !ok {
		return false
	}
	b, ok := n.tree.Get(hash)
	if !ok || !n.isChained(b.ParentHash()) {
		return false
	}
	n.chained[hash] = struct{}{}
	return true
}

// better reports whether a is preferred over b: longer chain, then higher
// epoch, then lower proposer id, then smaller hash.
func (n *Node) better(a, b *chain.Block) bool {
	la, lb := n.tree.Length(a.Hash), n.tree.Length(b.Hash)
	if la != lb {
		return la > lb
	}
	if a.Epoch() != b.Epoch() {
		return a.Epoch() > b.Epoch()
	}
	if a.ProposerID() != b.ProposerID() {
		return a.ProposerID() < b.ProposerID()
	}
	return a.Hash < b.Hash
}

func (n *Node) tip() *chain.Block {
	best := n.tree.Genesis()
	for hash := range n.notarized {
		if !n.isChained(hash) {
			continue
		}
		b, _ := n.tree.Get(hash)
		if n.better(b, best) {
			best = b
		}
	}
	return best
}

// Tip returns the end of the preferred notarized chain. Nodes with the same
// notarized set always return the same tip.
func (n *Node) Tip() *chain.Block {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.tip()
}

/*******************************************************************************
Finalization
*******************************************************************************/

// CheckFinalization applies the finalization rule and returns the number of
// blocks appended to the finalized sequence. Calling it again without new
// votes never changes the sequence.
func (n *Node) CheckFinalization() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.checkFinalization()
}

func (n *Node) checkFinalization() int {
	var candidate *chain.Block
	var path []*chain.Block

	for hash := range n.notarized {
		if !n.isChained(hash) {
			continue
		}
		b, _ := n.tree.Get(hash)
		c := n.finalizable(b)
		if c == nil {
			continue
		}
		if _, ok := n.finalizedSet[c.Hash]; ok {
			continue
		}
		p := n.tree.Path(c.Hash)
		if !n.extendsFinalized(p) {
			n.reportConflict(c)
			continue
		}
		if candidate == nil || n.better(c, candidate) {
			candidate, path = c, p
		}
	}

	if candidate == nil || len(path) <= len(n.finalized) {
		return 0
	}

	appended := 0
	for _, b := range path[len(n.finalized):] {
		n.finalized = append(n.finalized, b)
		n.finalizedSet[b.Hash] = struct{}{}
		n.phases.advance(b.Epoch(), Finalized)
		appended++
	}

	if appended > 0 {
		n.logger.WithFields(logrus.Fields{
			"rule":      n.conf.Finality,
			"appended":  appended,
			"finalized": len(n.finalized),
			"head":      common.ShortHex(candidate.Hash),
			"epoch":     candidate.Epoch(),
		}).Debug("Finalized")
	}

	return appended
}

// finalizable returns the block that b allows to finalize under the configured
// rule, or nil. b is the newest block of the pattern and is notarized along
// with all its ancestors.
func (n *Node) finalizable(b *chain.Block) *chain.Block {
	parent, ok := n.tree.Parent(b)
	if !ok || parent.IsGenesis() {
		return nil
	}

	if n.conf.Finality == TwoChain {
		return parent
	}

	grandParent, ok := n.tree.Parent(parent)
	if !ok || grandParent.IsGenesis() {
		return nil
	}
	if parent.Epoch()+1 != b.Epoch() || grandParent.Epoch()+1 != parent.Epoch() {
		return nil
	}
	return grandParent
}

// extendsFinalized reports whether path agrees with the finalized sequence on
// their common length.
func (n *Node) extendsFinalized(path []*chain.Block) bool {
	for i, b := range n.finalized {
		if i >= len(path) {
			break
		}
		if path[i].Hash != b.Hash {
			return false
		}
	}
	return true
}

func (n *Node) reportConflict(candidate *chain.Block) {
	if _, ok := n.conflicts[candidate.Hash]; ok {
		return
	}
	n.conflicts[candidate.Hash] = struct{}{}

	head := "none"
	if len(n.finalized) > 0 {
		head = common.ShortHex(n.finalized[len(n.finalized)-1].Hash)
	}

	n.logger.WithFields(logrus.Fields{
		"candidate":      common.ShortHex(candidate.Hash),
		"epoch":          candidate.Epoch(),
		"finalized_head": head,
		"f":              n.FaultTolerance(),
	}).Error("Finalizable chain conflicts with finalized sequence")
}

/*******************************************************************************
Accessors
*******************************************************************************/

// Finalized returns a copy of the finalized sequence.
func (n *Node) Finalized() []*chain.Block {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := make([]*chain.Block, len(n.finalized))
	copy(res, n.finalized)
	return res
}

// FinalizedHashes returns the hashes of the finalized sequence, in order.
func (n *Node) FinalizedHashes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := make([]string, len(n.finalized))
	for i, b := range n.finalized {
		res[i] = b.Hash
	}
	return res
}

// IsFinalized ...
func (n *Node) IsFinalized(hash string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.finalizedSet[hash]
	return ok
}

// IsNotarized ...
func (n *Node) IsNotarized(hash string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.notarized[hash]
	return ok
}

// GetBlock returns a block of this node's tree.
func (n *Node) GetBlock(hash string) (*chain.Block, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.tree.Get(hash)
}

// EpochBlocks returns the blocks this node stored for an epoch.
func (n *Node) EpochBlocks(epoch int) []*chain.Block {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := []*chain.Block{}
	for _, h := range n.tree.EpochBlocks(epoch) {
		b, _ := n.tree.Get(h)
		res = append(res, b)
	}
	return res
}

// Tally returns the number of counted votes for hash in epoch.
func (n *Node) Tally(epoch int, hash string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.ledger.Tally(epoch, hash)
}

// Phase returns how far this node went with an epoch.
func (n *Node) Phase(epoch int) Phase {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.phases[epoch]
}

// Evidence returns the equivocations this node detected.
func (n *Node) Evidence() []chain.Evidence {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.ledger.Evidence()
}

// GetStats returns a snapshot of the node's counters.
func (n *Node) GetStats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()

	return Stats{
		NodeID:                n.id,
		Proposed:              n.proposed,
		TotalBlocks:           n.tree.Len(),
		NotarizedBlocks:       len(n.notarized) - 1,
		FinalizedBlocks:       len(n.finalized),
		LatestEpoch:           n.latestEpoch,
		VotesCast:             n.votesCast,
		RejectedProposals:     n.rejectedProposals,
		RejectedVotes:         n.rejectedVotes,
		Equivocations:         len(n.ledger.Evidence()),
		ProposerEquivocations: n.proposerEquivocations,
		SafetyViolations:      len(n.conflicts),
	}
}

// String ...
func (n *Node) String() string {
	return "node" + strconv.Itoa(n.id)
}
