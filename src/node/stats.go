package node

import "fmt"

// Stats is a read-only snapshot of a node's counters. Block counts exclude the
// genesis block.
type Stats struct {
	NodeID                int
	Proposed              int
	TotalBlocks           int
	NotarizedBlocks       int
	FinalizedBlocks       int
	LatestEpoch           int
	VotesCast             int
	RejectedProposals     int
	RejectedVotes         int
	Equivocations         int
	ProposerEquivocations int
	SafetyViolations      int
}

// String ...
func (s Stats) String() string {
	return fmt.Sprintf("node %d: blocks=%d notarized=%d finalized=%d latest_epoch=%d",
		s.NodeID, s.TotalBlocks, s.NotarizedBlocks, s.FinalizedBlocks, s.LatestEpoch)
}
