package metrics

import (
	"strconv"

	"github.com/mosaicnetworks/streamlet/src/node"
	"github.com/mosaicnetworks/streamlet/src/streamlet"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceStreamlet = "streamlet"
	subsystemNode      = "node"
	subsystemProtocol  = "protocol"
)

const (
	labelNode     = "node"
	labelBehavior = "behavior"
)

// Collector records per-node and per-epoch metrics.
type Collector struct {
	notarized             *prometheus.GaugeVec
	finalized             *prometheus.GaugeVec
	latestEpoch           *prometheus.GaugeVec
	blocks                *prometheus.GaugeVec
	votesCast             *prometheus.GaugeVec
	rejectedProposals     *prometheus.GaugeVec
	rejectedVotes         *prometheus.GaugeVec
	equivocations         *prometheus.GaugeVec
	proposerEquivocations *prometheus.GaugeVec
	safetyViolations      *prometheus.GaugeVec

	epochs    prometheus.Counter
	proposals *prometheus.CounterVec
	silent    *prometheus.CounterVec
	epoch     prometheus.Gauge
}

// NewCollector creates the metrics and registers them with registerer. It
// panics if any of them is already registered.
func NewCollector(registerer prometheus.Registerer) *Collector {
	r := NewRegisterer(registerer, namespaceStreamlet)

	nodeGauge := func(name, help string) *prometheus.GaugeVec {
		return r.RegisterNewGaugeVec(prometheus.GaugeOpts{
			Name:      name,
			Subsystem: subsystemNode,
			Help:      help,
		}, []string{labelNode})
	}

	return &Collector{
		notarized:             nodeGauge("notarized_blocks", "number of blocks the node considers notarized"),
		finalized:             nodeGauge("finalized_blocks", "length of the node's finalized sequence"),
		latestEpoch:           nodeGauge("latest_epoch", "highest epoch of a block accepted by the node"),
		blocks:                nodeGauge("blocks", "number of blocks in the node's tree"),
		votesCast:             nodeGauge("votes_cast", "number of votes cast by the node"),
		rejectedProposals:     nodeGauge("rejected_proposals", "number of proposals rejected by the node"),
		rejectedVotes:         nodeGauge("rejected_votes", "number of votes rejected by the node"),
		equivocations:         nodeGauge("equivocations", "number of voters the node caught equivocating"),
		proposerEquivocations: nodeGauge("proposer_equivocations", "number of epochs with more than one valid proposal"),
		safetyViolations:      nodeGauge("safety_violations", "number of conflicting finalization candidates"),

		epochs: r.RegisterNewCounter(prometheus.CounterOpts{
			Name:      "epochs_total",
			Subsystem: subsystemProtocol,
			Help:      "number of completed epochs",
		}),
		proposals: r.RegisterNewCounterVec(prometheus.CounterOpts{
			Name:      "proposals_total",
			Subsystem: subsystemProtocol,
			Help:      "number of epochs in which the leader proposed, by leader behavior",
		}, []string{labelBehavior}),
		silent: r.RegisterNewCounterVec(prometheus.CounterOpts{
			Name:      "silent_epochs_total",
			Subsystem: subsystemProtocol,
			Help:      "number of epochs without a proposal, by leader behavior",
		}, []string{labelBehavior}),
		epoch: r.RegisterNewGauge(prometheus.GaugeOpts{
			Name:      "epoch",
			Subsystem: subsystemProtocol,
			Help:      "last completed epoch",
		}),
	}
}

// OnEpoch implements streamlet.Observer.
func (c *Collector) OnEpoch(trace streamlet.EpochTrace, stats []node.Stats) {
	c.epochs.Inc()
	c.epoch.Set(float64(trace.Epoch))

	if trace.Proposed {
		c.proposals.WithLabelValues(trace.LeaderBehavior).Inc()
	} else {
		c.silent.WithLabelValues(trace.LeaderBehavior).Inc()
	}

	for _, s := range stats {
		id := strconv.Itoa(s.NodeID)
		c.notarized.WithLabelValues(id).Set(float64(s.NotarizedBlocks))
		c.finalized.WithLabelValues(id).Set(float64(s.FinalizedBlocks))
		c.latestEpoch.WithLabelValues(id).Set(float64(s.LatestEpoch))
		c.blocks.WithLabelValues(id).Set(float64(s.TotalBlocks))
		c.votesCast.WithLabelValues(id).Set(float64(s.VotesCast))
		c.rejectedProposals.WithLabelValues(id).Set(float64(s.RejectedProposals))
		c.rejectedVotes.WithLabelValues(id).Set(float64(s.RejectedVotes))
		c.equivocations.WithLabelValues(id).Set(float64(s.Equivocations))
		c.proposerEquivocations.WithLabelValues(id).Set(float64(s.ProposerEquivocations))
		c.safetyViolations.WithLabelValues(id).Set(float64(s.SafetyViolations))
	}
}
