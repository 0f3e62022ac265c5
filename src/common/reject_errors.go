package common

import "fmt"

// RejectType classifies why a node refused a proposal or a vote.
type RejectType uint32

const (
	// MalformedBlock means the block failed its structural checks.
	MalformedBlock RejectType = iota
	// ProposerMismatch means the claimed sender is not the block's proposer.
	ProposerMismatch
	// NotLeader means the proposer is not the round-robin leader of the epoch.
	NotLeader
	// UnknownParent means the parent hash does not resolve in the local tree.
	UnknownParent
	// NonIncreasingEpoch means the block's epoch is not above its parent's.
	NonIncreasingEpoch
	// UnknownVoter means the voter id is outside the peer-set.
	UnknownVoter
	// EpochMismatch means a vote's epoch disagrees with the known block.
	EpochMismatch
	// DuplicateVote means the exact same vote was already recorded.
	DuplicateVote
	// Equivocation means the voter already voted for another hash in the
	// same epoch.
	Equivocation
)

var rejectTypes = []string{
	"Malformed Block",
	"Proposer Mismatch",
	"Not Leader",
	"Unknown Parent",
	"Non Increasing Epoch",
	"Unknown Voter",
	"Epoch Mismatch",
	"Duplicate Vote",
	"Equivocation",
}

// String ...
func (t RejectType) String() string {
	if int(t) < len(rejectTypes) {
		return rejectTypes[t]
	}
	return "Unknown"
}

// RejectErr is returned by the node operations that consume messages from
// other participants. It is never fatal: rejected messages are dropped and
// the protocol carries on.
type RejectErr struct {
	dataType   string
	rejectType RejectType
	key        string
}

// NewRejectErr ...
func NewRejectErr(dataType string, rejectType RejectType, key string) RejectErr {
	return RejectErr{
		dataType:   dataType,
		rejectType: rejectType,
		key:        key,
	}
}

// Type returns the RejectType of the error.
func (e RejectErr) Type() RejectType {
	return e.rejectType
}

// Error implements the error interface.
func (e RejectErr) Error() string {
	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, e.rejectType)
}

// IsReject checks that an error is of type RejectErr and that its type
// matches the provided RejectType.
func IsReject(err error, t RejectType) bool {
	rejectErr, ok := err.(RejectErr)
	return ok && rejectErr.rejectType == t
}

// IsEquivocation is shorthand for IsReject(err, Equivocation).
func IsEquivocation(err error) bool {
	return IsReject(err, Equivocation)
}
