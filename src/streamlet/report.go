package streamlet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/mosaicnetworks/streamlet/src/byzantine"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/net"
	"github.com/mosaicnetworks/streamlet/src/node"
	"github.com/ugorji/go/codec"
)

// EpochTrace records what happened during one epoch. Slices are indexed by
// node id.
type EpochTrace struct {
	Epoch          int
	Leader         int
	LeaderBehavior string
	Proposed       bool
	BlockHash      string
	NotarizedDelta []int
	FinalizedDelta []int
	Rejected       []int
}

// String ...
func (t EpochTrace) String() string {
	block := "none"
	if t.Proposed {
		block = common.ShortHex(t.BlockHash)
	}
	return fmt.Sprintf("epoch %d: leader %d (%s) block %s notarized %v finalized %v",
		t.Epoch, t.Leader, t.LeaderBehavior, block, t.NotarizedDelta, t.FinalizedDelta)
}

// Summary describes the finalized sequence lengths of the honest nodes.
type Summary struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// Summarize computes the Summary of a set of finalized counts. It is the zero
// Summary for an empty set.
func Summarize(finalized []int) Summary {
	if len(finalized) == 0 {
		return Summary{}
	}

	data := make(stats.Float64Data, len(finalized))
	for i, f := range finalized {
		data[i] = float64(f)
	}

	// errors only happen on empty input
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)

	return Summary{
		Mean:   mean,
		Median: median,
		Min:    lo,
		Max:    hi,
	}
}

// RunReport aggregates the state of every node after a run.
type RunReport struct {
	RunID          string
	NetworkSize    int
	FaultTolerance int
	Quorum         int
	ByzantineCount int

	// SafetyGuaranteed is false when more than FaultTolerance nodes are
	// Byzantine. Consistent may still be true.
	SafetyGuaranteed bool

	Finality string
	Epochs   int // last completed epoch

	Behaviors   []string
	Nodes       []node.Stats
	StateHashes []string

	Trace []EpochTrace

	// Consistent is true when the finalized sequences of the honest nodes are
	// pairwise prefixes of each other.
	Consistent bool
	Summary    Summary

	VotesPublished int
	CommitErrors   int
	Network        net.Stats

	// Stopped is true when the run was cancelled before completing every
	// requested epoch.
	Stopped bool
}

// HonestStats returns the stats of the honest nodes.
func (r *RunReport) HonestStats() []node.Stats {
	res := []node.Stats{}
	for i, s := range r.Nodes {
		if r.Behaviors[i] == byzantine.Honest.String() {
			res = append(res, s)
		}
	}
	return res
}

// Marshal returns the JSON encoding of the report.
func (r *RunReport) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.Indent = 2
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// String renders the report for a terminal.
func (r *RunReport) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s\n", r.RunID)
	fmt.Fprintf(&sb, "n=%d f=%d quorum=%d byzantine=%d finality=%s epochs=%d\n",
		r.NetworkSize, r.FaultTolerance, r.Quorum, r.ByzantineCount, r.Finality, r.Epochs)
	if !r.SafetyGuaranteed {
		sb.WriteString("WARNING: more Byzantine nodes than f, safety not guaranteed\n")
	}
	if r.Stopped {
		sb.WriteString("Run stopped before completion\n")
	}

	sb.WriteString("\nEpochs\n")
	for _, t := range r.Trace {
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}

	sb.WriteString("\nNodes\n")
	for i, s := range r.Nodes {
		fmt.Fprintf(&sb, "%-12s %s proposed=%d votes=%d rejected=%d/%d equivocations=%d violations=%d state=%s\n",
			r.Behaviors[i],
			s,
			s.Proposed,
			s.VotesCast,
			s.RejectedProposals,
			s.RejectedVotes,
			s.Equivocations,
			s.SafetyViolations,
			common.ShortHex(r.StateHashes[i]))
	}

	fmt.Fprintf(&sb, "\nHonest finalized: mean=%.2f median=%.2f min=%.0f max=%.0f\n",
		r.Summary.Mean, r.Summary.Median, r.Summary.Min, r.Summary.Max)
	fmt.Fprintf(&sb, "Consistent: %v\n", r.Consistent)
	fmt.Fprintf(&sb, "Votes published: %d\n", r.VotesPublished)
	fmt.Fprintf(&sb, "Network: %s\n", r.Network)

	return sb.String()
}
