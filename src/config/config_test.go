package config

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/streamlet/src/byzantine"
	"github.com/mosaicnetworks/streamlet/src/node"
	"github.com/sirupsen/logrus"
)

func TestDefaultConfigIsValid(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)

	if err := conf.Validate(); err != nil {
		t.Fatal(err)
	}

	nodeConf, err := conf.NodeConfig()
	if err != nil {
		t.Fatal(err)
	}
	if nodeConf.PeerSet.Len() != DefaultNodes {
		t.Fatalf("peer-set should have %d peers, not %d", DefaultNodes, nodeConf.PeerSet.Len())
	}
	if nodeConf.Finality != node.ThreeChain {
		t.Fatalf("default finality should be three-chain, not %v", nodeConf.Finality)
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 4
	conf.DropRate = 2
	conf.Finality = "one-chain"
	conf.Silent = []int{1, 9}
	conf.Equivocators = []int{1}

	err := conf.Validate()
	if err == nil {
		t.Fatal("configuration should be invalid")
	}

	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("expected a *multierror.Error, got %T", err)
	}

	// drop rate, finality, out of range id, duplicate id
	if len(merr.Errors) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(merr.Errors), merr)
	}
}

func TestValidateNetworkSize(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 0

	if err := conf.Validate(); err == nil {
		t.Fatal("an empty network is invalid")
	}
}

func TestTooManyByzantineIsLegal(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 4
	conf.Silent = []int{0}
	conf.Fabricators = []int{3}

	if err := conf.Validate(); err != nil {
		t.Fatalf("more Byzantine nodes than f should only warn, got %v", err)
	}
	if conf.ByzantineCount() <= conf.FaultTolerance() {
		t.Fatal("test network should exceed f")
	}

	behaviors, err := conf.Behaviors()
	if err != nil {
		t.Fatal(err)
	}
	if behaviors[0] != byzantine.Silent || behaviors[3] != byzantine.Fabricator {
		t.Fatalf("unexpected behaviors %v", behaviors)
	}
}

func TestByzantineCountDistinct(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 7
	conf.Silent = []int{2, 2}
	conf.Equivocators = []int{5}
	conf.Fabricators = []int{5}

	if c := conf.ByzantineCount(); c != 2 {
		t.Fatalf("ByzantineCount should count distinct ids, got %d", c)
	}
	if err := conf.Validate(); err == nil {
		t.Fatal("ids listed twice should be invalid")
	}
}

func TestFaultTolerance(t *testing.T) {
	cases := []struct{ n, f int }{
		{1, 0}, {3, 0}, {4, 1}, {6, 1}, {7, 2}, {10, 3},
	}
	for _, c := range cases {
		conf := NewDefaultConfig()
		conf.Nodes = c.n
		if f := conf.FaultTolerance(); f != c.f {
			t.Fatalf("n=%d: f should be %d, not %d", c.n, c.f, f)
		}
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"bogus": logrus.DebugLevel,
	}
	for s, l := range cases {
		if LogLevel(s) != l {
			t.Fatalf("%s should parse to %v, not %v", s, l, LogLevel(s))
		}
	}
}
