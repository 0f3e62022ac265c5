package streamlet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/mosaicnetworks/streamlet/src/byzantine"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/config"
	"github.com/mosaicnetworks/streamlet/src/dummy"
	"github.com/mosaicnetworks/streamlet/src/net"
	"github.com/mosaicnetworks/streamlet/src/node"
	"github.com/mosaicnetworks/streamlet/src/proxy"
	"github.com/sirupsen/logrus"
)

// Protocol drives a network of nodes through consecutive epochs.
type Protocol struct {
	conf      *config.Config
	nodeConf  *node.Config
	nodes     []*node.Node
	behaviors []byzantine.Behavior
	network   net.Network
	app       proxy.AppProxy
	pool      *workerpool.WorkerPool
	observers []Observer
	logger    *logrus.Entry

	runID string

	// mu guards everything below, which Report reads while Run may be
	// writing.
	mu             sync.Mutex
	epoch          int // last completed epoch
	trace          []EpochTrace
	committed      []int // per node, number of finalized blocks handed to app
	stateHashes    []string
	votesPublished int
	commitErrors   int
	stopped        bool
}

// NewProtocol builds a network from a validated configuration. behaviors holds
// one behavior per node; nil means the behaviors listed in conf. app provides
// the transactions and receives the finalized blocks; nil means the dummy
// application.
func NewProtocol(conf *config.Config,
	behaviors []byzantine.Behavior,
	app proxy.AppProxy) (*Protocol, error) {

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if behaviors == nil {
		var err error
		behaviors, err = conf.Behaviors()
		if err != nil {
			return nil, err
		}
	}
	if len(behaviors) != conf.Nodes {
		return nil, fmt.Errorf("%d behaviors for %d nodes", len(behaviors), conf.Nodes)
	}

	nodeConf, err := conf.NodeConfig()
	if err != nil {
		return nil, err
	}

	logger := conf.Logger()

	nodes := make([]*node.Node, conf.Nodes)
	for i := range nodes {
		nodes[i], err = node.NewNode(i, nodeConf)
		if err != nil {
			return nil, err
		}
	}

	if app == nil {
		app = dummy.NewInmemDummyClient(logger.WithField("component", "dummy"))
	}

	p := &Protocol{
		conf:        conf,
		nodeConf:    nodeConf,
		nodes:       nodes,
		behaviors:   behaviors,
		network:     net.NewInmemNetwork(nodeConf.PeerSet.Peers, conf.NetOptions(), logger.WithField("component", "net")),
		app:         app,
		logger:      logger,
		runID:       uuid.New().String(),
		committed:   make([]int, conf.Nodes),
		stateHashes: make([]string, conf.Nodes),
	}

	if conf.Workers > 1 {
		p.pool = workerpool.New(conf.Workers)
	}

	if byz := byzantine.Count(behaviors); byz > p.FaultTolerance() {
		logger.WithFields(logrus.Fields{
			"byzantine": byz,
			"f":         p.FaultTolerance(),
		}).Warn("Byzantine nodes exceed fault tolerance, safety is not guaranteed")
	}

	logger.WithFields(logrus.Fields{
		"run_id":   p.runID,
		"n":        conf.Nodes,
		"f":        p.FaultTolerance(),
		"quorum":   p.Quorum(),
		"finality": nodeConf.Finality,
		"workers":  conf.Workers,
	}).Info("New Protocol")

	return p, nil
}

// SetNetwork replaces the delivery channel. It must be called before Run.
func (p *Protocol) SetNetwork(network net.Network) {
	p.network = network
}

// AddObserver registers an Observer called at the end of every epoch.
func (p *Protocol) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// Nodes returns the nodes of the network, indexed by id.
func (p *Protocol) Nodes() []*node.Node {
	return p.nodes
}

// Behaviors returns the behavior of every node.
func (p *Protocol) Behaviors() []byzantine.Behavior {
	return p.behaviors
}

// RunID identifies this protocol instance in logs and reports.
func (p *Protocol) RunID() string {
	return p.runID
}

// FaultTolerance returns f.
func (p *Protocol) FaultTolerance() int {
	return p.nodeConf.PeerSet.FaultTolerance()
}

// Quorum returns 2f+1.
func (p *Protocol) Quorum() int {
	return p.nodeConf.PeerSet.SuperMajority()
}

// Epoch returns the last completed epoch.
func (p *Protocol) Epoch() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.epoch
}

// Run plays numEpochs epochs after the last completed one, with leaders
// putting txPerEpoch transactions in their blocks. The context is checked
// between epochs: on cancellation Run returns the report of the completed
// epochs together with the context error.
func (p *Protocol) Run(ctx context.Context, numEpochs int, txPerEpoch int) (*RunReport, error) {
	for i := 0; i < numEpochs; i++ {
		if err := ctx.Err(); err != nil {
			p.mu.Lock()
			p.stopped = true
			p.mu.Unlock()

			p.logger.WithFields(logrus.Fields{
				"epoch": p.Epoch(),
				"err":   err,
			}).Warn("Run stopped")

			return p.Report(), err
		}

		p.runEpoch(p.Epoch()+1, txPerEpoch)
	}

	return p.Report(), nil
}

// Close releases the worker pool, if any.
func (p *Protocol) Close() {
	if p.pool != nil {
		p.pool.StopWait()
	}
}

func (p *Protocol) runEpoch(epoch int, txPerEpoch int) {
	leader := p.nodeConf.PeerSet.Leader(epoch)
	before := p.stats()

	trace := EpochTrace{
		Epoch:          epoch,
		Leader:         leader,
		LeaderBehavior: p.behaviors[leader].String(),
		Rejected:       make([]int, len(p.nodes)),
	}

	logger := p.logger.WithFields(logrus.Fields{
		"epoch":  epoch,
		"leader": leader,
	})

	// Proposal
	txs := p.app.Transactions(epoch, txPerEpoch)

	proposals, err := p.behaviors[leader].Propose(p.nodes[leader], epoch, txs)
	if err != nil {
		logger.WithError(err).Error("Leader could not propose")
	}
	for _, prop := range proposals {
		p.network.BroadcastProposal(epoch, prop)
	}
	if len(proposals) > 0 {
		trace.Proposed = true
		trace.BlockHash = proposals[0].Block.Hash
	} else {
		p.app.ReturnTransactions(epoch)
	}

	p.forEachNode(func(n *node.Node) {
		for _, prop := range p.network.DeliverProposals(epoch, n.ID()) {
			if err := n.ReceiveProposal(prop.Block, prop.Claimed); err != nil {
				trace.Rejected[n.ID()]++
			}
		}
	})

	// Votes
	published := 0
	for i, n := range p.nodes {
		for _, v := range p.behaviors[i].Publish(n, n.Outbox()) {
			p.network.BroadcastVote(epoch, v)
			published++
		}
	}

	p.forEachNode(func(n *node.Node) {
		n.ReceiveVotes(p.network.DeliverVotes(epoch, n.ID()))
	})

	// Commit
	p.commit(epoch)

	after := p.stats()
	trace.NotarizedDelta = make([]int, len(p.nodes))
	trace.FinalizedDelta = make([]int, len(p.nodes))
	for i := range p.nodes {
		trace.NotarizedDelta[i] = after[i].NotarizedBlocks - before[i].NotarizedBlocks
		trace.FinalizedDelta[i] = after[i].FinalizedBlocks - before[i].FinalizedBlocks
	}

	p.mu.Lock()
	p.epoch = epoch
	p.trace = append(p.trace, trace)
	p.votesPublished += published
	p.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"behavior":  trace.LeaderBehavior,
		"proposed":  trace.Proposed,
		"block":     common.ShortHex(trace.BlockHash),
		"votes":     published,
		"notarized": trace.NotarizedDelta,
		"finalized": trace.FinalizedDelta,
	}).Info("Epoch")

	for _, o := range p.observers {
		o.OnEpoch(trace, after)
	}
}

// forEachNode applies fn to every node, in parallel when a worker pool is
// configured. It returns when fn has returned for every node. fn must only
// touch state owned by the node it is given.
func (p *Protocol) forEachNode(fn func(n *node.Node)) {
	if p.pool == nil {
		for _, n := range p.nodes {
			fn(n)
		}
		return
	}

	var wg sync.WaitGroup
	for _, n := range p.nodes {
		n := n
		wg.Add(1)
		p.pool.Submit(func() {
			defer wg.Done()
			fn(n)
		})
	}
	wg.Wait()
}

// commit hands every newly finalized block to the application, node by node,
// in finalization order.
func (p *Protocol) commit(epoch int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, n := range p.nodes {
		finalized := n.Finalized()
		for _, b := range finalized[p.committed[i]:] {
			resp, err := p.app.CommitBlock(i, b)
			if err != nil {
				p.commitErrors++
				p.logger.WithFields(logrus.Fields{
					"epoch": epoch,
					"node":  i,
					"block": common.ShortHex(b.Hash),
					"err":   err,
				}).Error("CommitBlock")
				continue
			}
			p.stateHashes[i] = common.EncodeToString(resp.StateHash)
		}
		p.committed[i] = len(finalized)
	}
}

func (p *Protocol) stats() []node.Stats {
	res := make([]node.Stats, len(p.nodes))
	for i, n := range p.nodes {
		res[i] = n.GetStats()
	}
	return res
}

// Report builds a report of the epochs completed so far. It is safe to call
// while Run is in progress.
func (p *Protocol) Report() *RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := &RunReport{
		RunID:          p.runID,
		NetworkSize:    len(p.nodes),
		FaultTolerance: p.FaultTolerance(),
		Quorum:         p.Quorum(),
		ByzantineCount: byzantine.Count(p.behaviors),
		Finality:       p.nodeConf.Finality.String(),
		Epochs:         p.epoch,
		Behaviors:      make([]string, len(p.nodes)),
		Nodes:          p.stats(),
		StateHashes:    make([]string, len(p.nodes)),
		Trace:          make([]EpochTrace, len(p.trace)),
		VotesPublished: p.votesPublished,
		CommitErrors:   p.commitErrors,
		Network:        p.network.Stats(),
		Stopped:        p.stopped,
	}
	report.SafetyGuaranteed = report.ByzantineCount <= report.FaultTolerance

	copy(report.StateHashes, p.stateHashes)
	copy(report.Trace, p.trace)

	honest := [][]string{}
	honestFinalized := []int{}
	for i, b := range p.behaviors {
		report.Behaviors[i] = b.String()
		if b.IsByzantine() {
			continue
		}
		honest = append(honest, p.nodes[i].FinalizedHashes())
		honestFinalized = append(honestFinalized, report.Nodes[i].FinalizedBlocks)
	}

	report.Consistent = Consistent(honest)
	report.Summary = Summarize(honestFinalized)

	return report
}

// Consistent reports whether, for every pair of sequences, one is a prefix of
// the other.
func Consistent(sequences [][]string) bool {
	for i := 0; i < len(sequences); i++ {
		for j := i + 1; j < len(sequences); j++ {
			if !isPrefix(sequences[i], sequences[j]) && !isPrefix(sequences[j], sequences[i]) {
				return false
			}
		}
	}
	return true
}

func isPrefix(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
