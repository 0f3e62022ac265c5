package node

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/common"
)

func initNodes(t *testing.T, n int, finality FinalityRule) []*Node {
	conf := TestConfig(t, n)
	conf.Finality = finality

	nodes := make([]*Node, n)
	for i := 0; i < n; i++ {
		node, err := NewNode(i, conf)
		if err != nil {
			t.Fatal(err)
		}
		nodes[i] = node
	}
	return nodes
}

func voteFor(voter int, b *chain.Block) *chain.Vote {
	return chain.NewVote(voter, b.Epoch(), b.Hash)
}

// runEpoch plays one synchronous, all-honest epoch and returns the proposed
// block.
func runEpoch(t *testing.T, nodes []*Node, epoch int) *chain.Block {
	leader := nodes[epoch%len(nodes)]

	block, err := leader.Propose(epoch, []string{fmt.Sprintf("tx_%d", epoch)})
	if err != nil {
		t.Fatalf("epoch %d: %v", epoch, err)
	}

	for _, n := range nodes {
		if n == leader {
			continue
		}
		if err := n.ReceiveProposal(block, leader.ID()); err != nil {
			t.Fatalf("epoch %d, node %d: %v", epoch, n.ID(), err)
		}
	}

	votes := []*chain.Vote{}
	for _, n := range nodes {
		votes = append(votes, n.Outbox()...)
	}

	for _, n := range nodes {
		others := []*chain.Vote{}
		for _, v := range votes {
			if v.VoterID != n.ID() {
				others = append(others, v)
			}
		}
		for i, err := range n.ReceiveVotes(others) {
			if err != nil {
				t.Fatalf("epoch %d, node %d, vote %v: %v", epoch, n.ID(), others[i], err)
			}
		}
	}

	return block
}

func TestNewNode(t *testing.T) {
	conf := TestConfig(t, 4)

	if _, err := NewNode(4, conf); err == nil {
		t.Fatal("id 4 is outside a peer-set of size 4")
	}

	node, err := NewNode(0, conf)
	if err != nil {
		t.Fatal(err)
	}

	if node.Quorum() != 3 || node.FaultTolerance() != 1 {
		t.Fatalf("n=4 should give f=1 and quorum=3, got f=%d quorum=%d",
			node.FaultTolerance(), node.Quorum())
	}

	tip := node.Tip()
	if !tip.IsGenesis() {
		t.Fatalf("initial tip should be genesis, got %v", tip)
	}
	if !node.IsNotarized(tip.Hash) {
		t.Fatal("genesis should be notarized")
	}
	if len(node.Finalized()) != 0 {
		t.Fatal("finalized sequence should start empty")
	}
}

func TestProposalValidation(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]
	genesis := node.Tip().Hash
	ts := time.Unix(0, 1)

	tampered := chain.NewBlock(1, genesis, []string{"a"}, 1, ts)
	tampered.Hash = "0XDEADBEEF"

	cases := []struct {
		name    string
		block   *chain.Block
		claimed int
		reject  common.RejectType
	}{
		{"malformed", tampered, 1, common.MalformedBlock},
		{"proposer mismatch", chain.NewBlock(1, genesis, nil, 1, ts), 2, common.ProposerMismatch},
		{"not leader", chain.NewBlock(1, genesis, nil, 2, ts), 2, common.NotLeader},
		{"unknown parent", chain.NewBlock(1, "0XABCDEF", nil, 1, ts), 1, common.UnknownParent},
		{"non increasing epoch", chain.NewBlock(0, genesis, nil, 0, ts), 0, common.NonIncreasingEpoch},
	}

	for i, c := range cases {
		err := node.ReceiveProposal(c.block, c.claimed)
		if !common.IsReject(err, c.reject) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.reject, err)
		}
		if r := node.GetStats().RejectedProposals; r != i+1 {
			t.Fatalf("%s: RejectedProposals should be %d, not %d", c.name, i+1, r)
		}
	}

	if len(node.Outbox()) != 0 {
		t.Fatal("rejected proposals should not produce votes")
	}
	if node.GetStats().TotalBlocks != 0 {
		t.Fatal("rejected proposals should not be stored")
	}
}

func TestProposeNotLeader(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)

	_, err := nodes[0].Propose(1, nil)
	if !common.IsReject(err, common.NotLeader) {
		t.Fatalf("node 0 is not the leader of epoch 1, got %v", err)
	}
}

func TestHonestEpochs(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)

	blocks := []*chain.Block{}
	for e := 1; e <= 3; e++ {
		blocks = append(blocks, runEpoch(t, nodes, e))
	}

	for _, n := range nodes {
		stats := n.GetStats()
		if stats.NotarizedBlocks != 3 {
			t.Fatalf("node %d should have 3 notarized blocks, not %d", n.ID(), stats.NotarizedBlocks)
		}
		if stats.FinalizedBlocks != 1 {
			t.Fatalf("node %d should have 1 finalized block, not %d", n.ID(), stats.FinalizedBlocks)
		}
		if n.Finalized()[0].Hash != blocks[0].Hash {
			t.Fatalf("node %d should have finalized the epoch 1 block", n.ID())
		}
		if n.Tip().Hash != blocks[2].Hash {
			t.Fatalf("node %d tip should be the epoch 3 block", n.ID())
		}
		if p := n.Phase(1); p != Finalized {
			t.Fatalf("node %d epoch 1 should be Finalized, not %v", n.ID(), p)
		}
		if p := n.Phase(3); p != Notarized {
			t.Fatalf("node %d epoch 3 should be Notarized, not %v", n.ID(), p)
		}
	}

	blocks = append(blocks, runEpoch(t, nodes, 4))

	expected := []string{blocks[0].Hash, blocks[1].Hash}
	for _, n := range nodes {
		if diff := cmp.Diff(expected, n.FinalizedHashes()); diff != "" {
			t.Fatalf("node %d finalized sequence mismatch (-want +got):\n%s", n.ID(), diff)
		}
	}
}

func TestFinalizationIdempotent(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	for e := 1; e <= 5; e++ {
		runEpoch(t, nodes, e)
	}

	before := nodes[2].FinalizedHashes()
	if len(before) != 3 {
		t.Fatalf("5 epochs should finalize 3 blocks, not %d", len(before))
	}

	if appended := nodes[2].CheckFinalization(); appended != 0 {
		t.Fatalf("repeated check should append nothing, appended %d", appended)
	}
	if diff := cmp.Diff(before, nodes[2].FinalizedHashes()); diff != "" {
		t.Fatalf("finalized sequence changed (-before +after):\n%s", diff)
	}
}

func TestNonConsecutiveEpochs(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)

	b1 := runEpoch(t, nodes, 1)
	b2 := runEpoch(t, nodes, 2)
	// epoch 3 produces nothing
	b4 := runEpoch(t, nodes, 4)
	runEpoch(t, nodes, 5)

	if f := nodes[0].Finalized(); len(f) != 0 {
		t.Fatalf("a gap in epochs should prevent finalization, got %d blocks", len(f))
	}

	runEpoch(t, nodes, 6)

	expected := []string{b1.Hash, b2.Hash, b4.Hash}
	for _, n := range nodes {
		if diff := cmp.Diff(expected, n.FinalizedHashes()); diff != "" {
			t.Fatalf("node %d finalized sequence mismatch (-want +got):\n%s", n.ID(), diff)
		}
	}
}

func TestTwoChain(t *testing.T) {
	nodes := initNodes(t, 4, TwoChain)

	b1 := runEpoch(t, nodes, 1)
	if len(nodes[0].Finalized()) != 0 {
		t.Fatal("a single notarized block should not finalize anything")
	}

	runEpoch(t, nodes, 2)
	if diff := cmp.Diff([]string{b1.Hash}, nodes[0].FinalizedHashes()); diff != "" {
		t.Fatalf("two-chain should finalize the parent (-want +got):\n%s", diff)
	}
}

func TestVoteOncePerEpoch(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]
	genesis := node.Tip().Hash

	first := chain.NewBlock(1, genesis, []string{"a"}, 1, time.Unix(0, 1))
	second := chain.NewBlock(1, genesis, []string{"b"}, 1, time.Unix(0, 2))

	if err := node.ReceiveProposal(first, 1); err != nil {
		t.Fatal(err)
	}
	if err := node.ReceiveProposal(second, 1); err != nil {
		t.Fatal(err)
	}
	// replay is a no-op
	if err := node.ReceiveProposal(second, 1); err != nil {
		t.Fatal(err)
	}

	votes := node.Outbox()
	if len(votes) != 1 || votes[0].BlockHash != first.Hash {
		t.Fatalf("node should vote for the first proposal only, got %v", votes)
	}

	stats := node.GetStats()
	if stats.TotalBlocks != 2 {
		t.Fatalf("both proposals should be stored, got %d", stats.TotalBlocks)
	}
	if stats.ProposerEquivocations != 1 {
		t.Fatalf("ProposerEquivocations should be 1, not %d", stats.ProposerEquivocations)
	}
	if stats.VotesCast != 1 {
		t.Fatalf("VotesCast should be 1, not %d", stats.VotesCast)
	}
	if len(node.EpochBlocks(1)) != 2 {
		t.Fatal("both blocks should be listed for epoch 1")
	}
}

func TestEquivocatorExcludedFromBatch(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[2]
	genesis := node.Tip().Hash

	blockA := chain.NewBlock(1, genesis, []string{"a"}, 1, time.Unix(0, 1))
	fakeB := "0XFABRICATED"

	if err := node.ReceiveProposal(blockA, 1); err != nil {
		t.Fatal(err)
	}
	node.Outbox()

	// node 2 voted for A, node 3 votes for A and B in the same batch.
	errs := node.ReceiveVotes([]*chain.Vote{
		voteFor(1, blockA),
		voteFor(3, blockA),
		chain.NewVote(3, 1, fakeB),
	})
	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("honest and first votes should be recorded, got %v", errs)
	}
	if !common.IsEquivocation(errs[2]) {
		t.Fatalf("second vote of node 3 should be an equivocation, got %v", errs[2])
	}

	if node.IsNotarized(blockA.Hash) {
		t.Fatal("A should not be notarized with 2 counted votes")
	}
	if tally := node.Tally(1, blockA.Hash); tally != 2 {
		t.Fatalf("tally should exclude the equivocator, got %d", tally)
	}

	if err := node.ReceiveVote(voteFor(0, blockA)); err != nil {
		t.Fatal(err)
	}
	if !node.IsNotarized(blockA.Hash) {
		t.Fatal("A should be notarized by honest nodes 0, 1 and 2")
	}

	evidence := node.Evidence()
	if len(evidence) != 1 || evidence[0].VoterID != 3 || evidence[0].Epoch != 1 {
		t.Fatalf("unexpected evidence %v", evidence)
	}
	if eq := node.GetStats().Equivocations; eq != 1 {
		t.Fatalf("Equivocations should be 1, not %d", eq)
	}
}

func TestVotesBeforeBlock(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]
	genesis := node.Tip().Hash

	block := chain.NewBlock(1, genesis, []string{"a"}, 1, time.Unix(0, 1))

	for i, err := range node.ReceiveVotes([]*chain.Vote{
		voteFor(1, block),
		voteFor(2, block),
		voteFor(3, block),
	}) {
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}

	if node.IsNotarized(block.Hash) {
		t.Fatal("an unknown block cannot be notarized")
	}

	if err := node.ReceiveProposal(block, 1); err != nil {
		t.Fatal(err)
	}
	if !node.IsNotarized(block.Hash) {
		t.Fatal("pending votes should notarize the block once it arrives")
	}
}

func TestRejectedVotes(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]
	b1 := runEpoch(t, nodes, 1)

	cases := []struct {
		name   string
		vote   *chain.Vote
		reject common.RejectType
	}{
		{"unknown voter", chain.NewVote(9, 1, b1.Hash), common.UnknownVoter},
		{"epoch mismatch", chain.NewVote(1, 2, b1.Hash), common.EpochMismatch},
		{"duplicate", voteFor(1, b1), common.DuplicateVote},
	}

	for _, c := range cases {
		err := node.ReceiveVote(c.vote)
		if !common.IsReject(err, c.reject) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.reject, err)
		}
	}

	if r := node.GetStats().RejectedVotes; r != len(cases) {
		t.Fatalf("RejectedVotes should be %d, not %d", len(cases), r)
	}
}

func TestNoVoteForShorterChain(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]

	b1 := runEpoch(t, nodes, 1)
	runEpoch(t, nodes, 2)

	stale := chain.NewBlock(3, b1.Hash, []string{"stale"}, 3, time.Unix(0, 3))
	if err := node.ReceiveProposal(stale, 3); err != nil {
		t.Fatal(err)
	}

	if votes := node.Outbox(); len(votes) != 0 {
		t.Fatalf("node should not vote for a block extending a shorter chain, got %v", votes)
	}
	if p := node.Phase(3); p != Received {
		t.Fatalf("epoch 3 should be Received, not %v", p)
	}
}

func TestTipSelection(t *testing.T) {
	nodes := initNodes(t, 4, ThreeChain)
	node := nodes[0]
	genesis := node.Tip().Hash

	blockA := chain.NewBlock(1, genesis, []string{"a"}, 1, time.Unix(0, 1))
	blockB := chain.NewBlock(2, genesis, []string{"b"}, 2, time.Unix(0, 2))

	for _, b := range []*chain.Block{blockA, blockB} {
		if err := node.ReceiveProposal(b, b.ProposerID()); err != nil {
			t.Fatal(err)
		}
		node.ReceiveVotes([]*chain.Vote{voteFor(1, b), voteFor(2, b), voteFor(3, b)})
	}

	if !node.IsNotarized(blockA.Hash) || !node.IsNotarized(blockB.Hash) {
		t.Fatal("both forks should be notarized")
	}
	if tip := node.Tip(); tip.Hash != blockB.Hash {
		t.Fatalf("equal lengths should prefer the higher epoch, got %v", tip)
	}

	blockC := chain.NewBlock(3, blockA.Hash, []string{"c"}, 3, time.Unix(0, 3))
	if err := node.ReceiveProposal(blockC, 3); err != nil {
		t.Fatal(err)
	}
	node.ReceiveVotes([]*chain.Vote{voteFor(1, blockC), voteFor(3, blockC)})

	if tip := node.Tip(); tip.Hash != blockC.Hash {
		t.Fatalf("longest chain should win, got %v", tip)
	}

	// another node with the same notarized set picks the same tip
	other := nodes[1]
	for _, b := range []*chain.Block{blockB, blockA, blockC} {
		if err := other.ReceiveProposal(b, b.ProposerID()); err != nil {
			t.Fatal(err)
		}
		other.ReceiveVotes([]*chain.Vote{voteFor(0, b), voteFor(2, b), voteFor(3, b)})
	}
	if tip := other.Tip(); tip.Hash != blockC.Hash {
		t.Fatalf("tip should not depend on arrival order, got %v", tip)
	}
}

func TestConflictingFinalization(t *testing.T) {
	nodes := initNodes(t, 4, TwoChain)
	node := nodes[0]
	genesis := node.Tip().Hash

	notarize := func(b *chain.Block) {
		if err := node.ReceiveProposal(b, b.ProposerID()); err != nil {
			t.Fatal(err)
		}
		node.Outbox()
		node.ReceiveVotes([]*chain.Vote{voteFor(1, b), voteFor(2, b), voteFor(3, b)})
		if !node.IsNotarized(b.Hash) {
			t.Fatalf("%v should be notarized", b)
		}
	}

	a1 := chain.NewBlock(1, genesis, []string{"a1"}, 1, time.Unix(0, 1))
	a2 := chain.NewBlock(2, a1.Hash, []string{"a2"}, 2, time.Unix(0, 2))
	notarize(a1)
	notarize(a2)

	if diff := cmp.Diff([]string{a1.Hash}, node.FinalizedHashes()); diff != "" {
		t.Fatalf("a1 should be finalized (-want +got):\n%s", diff)
	}

	// A second branch notarized by a byzantine quorum.
	b3 := chain.NewBlock(3, genesis, []string{"b3"}, 3, time.Unix(0, 3))
	b4 := chain.NewBlock(4, b3.Hash, []string{"b4"}, 0, time.Unix(0, 4))
	notarize(b3)
	notarize(b4)

	if diff := cmp.Diff([]string{a1.Hash}, node.FinalizedHashes()); diff != "" {
		t.Fatalf("finalized sequence must not change (-want +got):\n%s", diff)
	}
	if v := node.GetStats().SafetyViolations; v != 1 {
		t.Fatalf("SafetyViolations should be 1, not %d", v)
	}

	node.CheckFinalization()
	if v := node.GetStats().SafetyViolations; v != 1 {
		t.Fatalf("a conflict should be counted once, got %d", v)
	}
}
