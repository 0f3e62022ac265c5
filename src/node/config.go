package node

import (
	"fmt"
	"testing"
	"time"

	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/peers"
	"github.com/sirupsen/logrus"
)

// FinalityRule selects how a node decides that a block is permanently
// committed.
type FinalityRule uint32

const (
	// ThreeChain finalizes a block once it and its two successors are
	// notarized with strictly consecutive epochs. This is the rule that keeps
	// honest nodes consistent as long as at most f peers misbehave. Only the
	// oldest block of the triple becomes final; the middle one follows once a
	// fourth block with the next consecutive epoch is notarized.
	ThreeChain FinalityRule = iota
	// TwoChain finalizes a block as soon as a notarized child extends it. It
	// is kept for compatibility with the simplified variant of the protocol
	// and is strictly weaker: it does NOT guarantee consistency under f < n/3.
	TwoChain
)

// String ...
func (r FinalityRule) String() string {
	switch r {
	case ThreeChain:
		return "three-chain"
	case TwoChain:
		return "two-chain"
	default:
		return "unknown"
	}
}

// ParseFinalityRule ...
func ParseFinalityRule(s string) (FinalityRule, error) {
	switch s {
	case "three-chain", "":
		return ThreeChain, nil
	case "two-chain":
		return TwoChain, nil
	default:
		return ThreeChain, fmt.Errorf("unknown finality rule %q", s)
	}
}

// Config contains the parameters shared by every node of a network.
type Config struct {
	// PeerSet is the fixed set of participants. Its size determines f and the
	// quorum.
	PeerSet *peers.PeerSet

	// Finality is the finalization rule. Defaults to ThreeChain.
	Finality FinalityRule

	// Clock stamps proposed blocks. Defaults to time.Now.
	Clock func() time.Time

	Logger *logrus.Logger
}

// NewConfig ...
func NewConfig(peerSet *peers.PeerSet,
	finality FinalityRule,
	logger *logrus.Logger) *Config {

	return &Config{
		PeerSet:  peerSet,
		Finality: finality,
		Clock:    time.Now,
		Logger:   logger,
	}
}

// DefaultConfig returns the configuration of an n-node network with the
// three-chain rule.
func DefaultConfig(n int) *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return NewConfig(peers.NewPeerSetOfSize(n), ThreeChain, logger)
}

// TestConfig ...
func TestConfig(t testing.TB, n int) *Config {
	config := DefaultConfig(n)
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	return config
}
