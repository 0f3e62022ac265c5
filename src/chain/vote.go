package chain

import (
	"fmt"

	"github.com/mosaicnetworks/streamlet/src/common"
)

// Vote is a notarization vote. Authenticity is modelled by VoterID alone.
type Vote struct {
	Epoch     int
	BlockHash string
	VoterID   int
}

// NewVote ...
func NewVote(voterID, epoch int, blockHash string) *Vote {
	return &Vote{
		Epoch:     epoch,
		BlockHash: blockHash,
		VoterID:   voterID,
	}
}

// String ...
func (v *Vote) String() string {
	return fmt.Sprintf("Vote{voter: %d, epoch: %d, hash: %s}",
		v.VoterID, v.Epoch, common.ShortHex(v.BlockHash))
}

// Evidence proves that a voter voted for two different blocks in one epoch.
type Evidence struct {
	VoterID int
	Epoch   int
	HashA   string
	HashB   string
}

// String ...
func (e Evidence) String() string {
	return fmt.Sprintf("Equivocation{voter: %d, epoch: %d, %s != %s}",
		e.VoterID, e.Epoch, common.ShortHex(e.HashA), common.ShortHex(e.HashB))
}
