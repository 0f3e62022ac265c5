package chain

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/streamlet/src/common"
)

// VoteLedger tallies votes by epoch and block hash.
//
// A voter that votes for two different hashes in the same epoch becomes an
// equivocator for that epoch: its votes stay in the ledger as evidence but no
// longer count toward any tally of that epoch.
type VoteLedger struct {
	votes        map[int]map[string]map[int]struct{} // epoch => hash => voters
	choices      map[int]map[int]string              // epoch => voter => first hash
	equivocators map[int]map[int]struct{}            // epoch => voters
	evidence     []Evidence
	count        int
}

// NewVoteLedger ...
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{
		votes:        make(map[int]map[string]map[int]struct{}),
		choices:      make(map[int]map[int]string),
		equivocators: make(map[int]map[int]struct{}),
	}
}

// Add records a vote. It returns a DuplicateVote RejectErr for a replayed vote
// and an Equivocation RejectErr when the voter already voted for another hash
// in the same epoch. In the latter case the vote is still recorded, and the
// voter stops counting toward every tally of the epoch.
func (l *VoteLedger) Add(v *Vote) error {
	key := fmt.Sprintf("%d-%d", v.Epoch, v.VoterID)

	if _, ok := l.votes[v.Epoch][v.BlockHash][v.VoterID]; ok {
		return common.NewRejectErr("VoteLedger", common.DuplicateVote, key)
	}

	if l.votes[v.Epoch] == nil {
		l.votes[v.Epoch] = make(map[string]map[int]struct{})
		l.choices[v.Epoch] = make(map[int]string)
	}
	if l.votes[v.Epoch][v.BlockHash] == nil {
		l.votes[v.Epoch][v.BlockHash] = make(map[int]struct{})
	}
	l.votes[v.Epoch][v.BlockHash][v.VoterID] = struct{}{}
	l.count++

	first, voted := l.choices[v.Epoch][v.VoterID]
	if !voted {
		l.choices[v.Epoch][v.VoterID] = v.BlockHash
		return nil
	}

	if !l.IsEquivocator(v.Epoch, v.VoterID) {
		if l.equivocators[v.Epoch] == nil {
			l.equivocators[v.Epoch] = make(map[int]struct{})
		}
		l.equivocators[v.Epoch][v.VoterID] = struct{}{}
		l.evidence = append(l.evidence, Evidence{
			VoterID: v.VoterID,
			Epoch:   v.Epoch,
			HashA:   first,
			HashB:   v.BlockHash,
		})
	}

	return common.NewRejectErr("VoteLedger", common.Equivocation, key)
}

// Tally returns the number of distinct, non-equivocating voters for a hash in
// an epoch.
func (l *VoteLedger) Tally(epoch int, hash string) int {
	tally := 0
	for voter := range l.votes[epoch][hash] {
		if !l.IsEquivocator(epoch, voter) {
			tally++
		}
	}
	return tally
}

// Voters returns the sorted ids of the non-equivocating voters counted in
// Tally.
func (l *VoteLedger) Voters(epoch int, hash string) []int {
	res := []int{}
	for voter := range l.votes[epoch][hash] {
		if !l.IsEquivocator(epoch, voter) {
			res = append(res, voter)
		}
	}
	sort.Ints(res)
	return res
}

// IsEquivocator ...
func (l *VoteLedger) IsEquivocator(epoch, voter int) bool {
	_, ok := l.equivocators[epoch][voter]
	return ok
}

// Evidence returns a copy of the equivocation evidence gathered so far.
func (l *VoteLedger) Evidence() []Evidence {
	res := make([]Evidence, len(l.evidence))
	copy(res, l.evidence)
	return res
}

// Len returns the number of recorded votes, duplicates excluded.
func (l *VoteLedger) Len() int {
	return l.count
}
