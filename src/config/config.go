package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/streamlet/src/byzantine"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/net"
	"github.com/mosaicnetworks/streamlet/src/node"
	"github.com/mosaicnetworks/streamlet/src/peers"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default configuration values.
const (
	DefaultLogLevel   = "info"
	DefaultNodes      = 4
	DefaultEpochs     = 10
	DefaultTxPerEpoch = 1
	DefaultFinality   = "three-chain"
	DefaultWorkers    = 1
	DefaultDropRate   = 0
	DefaultMaxDelay   = 0
	DefaultSeed       = 1
)

// Config contains all the configuration properties of a simulation.
type Config struct {
	// DataDir is the directory where the command line looks for a
	// configuration file.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// Nodes is the size of the network, n. The network tolerates
	// f = floor((n-1)/3) Byzantine nodes.
	Nodes int `mapstructure:"nodes"`

	// Epochs is the number of epochs to run.
	Epochs int `mapstructure:"epochs"`

	// TxPerEpoch is the number of transactions each leader puts in its block.
	TxPerEpoch int `mapstructure:"txs"`

	// Finality is the finalization rule: "three-chain" (default) or the weaker
	// "two-chain".
	Finality string `mapstructure:"finality"`

	// Workers is the number of goroutines delivering messages to nodes. 1
	// means sequential delivery.
	Workers int `mapstructure:"workers"`

	// DropRate is the probability that a message copy is lost.
	DropRate float64 `mapstructure:"drop"`

	// MaxDelay is the maximum number of epochs a message copy is held back.
	MaxDelay int `mapstructure:"max-delay"`

	// Seed initialises the random source of the network.
	Seed int64 `mapstructure:"seed"`

	// Silent, Equivocators and Fabricators list the ids of the nodes that
	// follow the corresponding Byzantine behavior. Every other node is
	// honest.
	Silent       []int `mapstructure:"silent"`
	Equivocators []int `mapstructure:"equivocators"`
	Fabricators  []int `mapstructure:"fabricators"`

	// ServiceAddr is the address:port of the optional HTTP service. The
	// service is disabled when empty.
	ServiceAddr string `mapstructure:"service-listen"`

	// JSON prints the final report as JSON instead of text.
	JSON bool `mapstructure:"json"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:    DefaultDataDir(),
		LogLevel:   DefaultLogLevel,
		Nodes:      DefaultNodes,
		Epochs:     DefaultEpochs,
		TxPerEpoch: DefaultTxPerEpoch,
		Finality:   DefaultFinality,
		Workers:    DefaultWorkers,
		DropRate:   DefaultDropRate,
		MaxDelay:   DefaultMaxDelay,
		Seed:       DefaultSeed,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Logger returns a formatted logrus Entry, with prefix set to "streamlet".
func (c *Config) Logger() *logrus.Entry {
	return c.BaseLogger().WithField("prefix", "streamlet")
}

// BaseLogger returns the logger behind Logger, creating it on first use.
func (c *Config) BaseLogger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger
}

// SetLogger replaces the logger, typically to attach hooks.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Validate reports every inconsistency of the configuration. A nil error means
// the configuration can be used to build a network.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Nodes < 1 {
		result = multierror.Append(result, fmt.Errorf("network size must be at least 1, got %d", c.Nodes))
	}
	if c.Epochs < 0 {
		result = multierror.Append(result, fmt.Errorf("negative number of epochs %d", c.Epochs))
	}
	if c.TxPerEpoch < 0 {
		result = multierror.Append(result, fmt.Errorf("negative number of transactions per epoch %d", c.TxPerEpoch))
	}
	if c.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("negative number of workers %d", c.Workers))
	}
	if _, err := node.ParseFinalityRule(c.Finality); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.NetOptions().Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	seen := make(map[int]string)
	check := func(ids []int, kind string) {
		for _, id := range ids {
			if id < 0 || id >= c.Nodes {
				result = multierror.Append(result, fmt.Errorf("%s id %d outside network of size %d", kind, id, c.Nodes))
				continue
			}
			if other, ok := seen[id]; ok {
				result = multierror.Append(result, fmt.Errorf("node %d is both %s and %s", id, other, kind))
				continue
			}
			seen[id] = kind
		}
	}
	check(c.Silent, byzantine.Silent.String())
	check(c.Equivocators, byzantine.Equivocator.String())
	check(c.Fabricators, byzantine.Fabricator.String())

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	if f := c.FaultTolerance(); len(seen) > f {
		c.Logger().WithFields(logrus.Fields{
			"byzantine": len(seen),
			"f":         f,
			"n":         c.Nodes,
		}).Warn("More Byzantine nodes than the network tolerates, consistency is not guaranteed")
	}

	return nil
}

// FaultTolerance returns f = floor((n-1)/3).
func (c *Config) FaultTolerance() int {
	if c.Nodes < 1 {
		return 0
	}
	return (c.Nodes - 1) / 3
}

// ByzantineCount returns the number of distinct nodes configured with a
// Byzantine behavior.
func (c *Config) ByzantineCount() int {
	ids := make(map[int]struct{})
	for _, list := range [][]int{c.Silent, c.Equivocators, c.Fabricators} {
		for _, id := range list {
			ids[id] = struct{}{}
		}
	}
	return len(ids)
}

// Behaviors returns the behavior of every node.
func (c *Config) Behaviors() ([]byzantine.Behavior, error) {
	return byzantine.Assign(c.Nodes, c.Silent, c.Equivocators, c.Fabricators)
}

// NodeConfig returns the configuration shared by every node of the network.
func (c *Config) NodeConfig() (*node.Config, error) {
	finality, err := node.ParseFinalityRule(c.Finality)
	if err != nil {
		return nil, err
	}
	return node.NewConfig(peers.NewPeerSetOfSize(c.Nodes), finality, c.BaseLogger()), nil
}

// NetOptions returns the options of the in-memory network.
func (c *Config) NetOptions() net.Options {
	return net.Options{
		DropRate: c.DropRate,
		MaxDelay: c.MaxDelay,
		Seed:     c.Seed,
	}
}

// DefaultDataDir return the default directory name for the configuration file
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Streamlet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Streamlet")
		} else {
			return filepath.Join(home, ".streamlet")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
