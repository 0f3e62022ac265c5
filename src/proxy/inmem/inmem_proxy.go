package inmem

import (
	"sort"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/proxy"
	"github.com/sirupsen/logrus"
)

// InmemProxy implements the AppProxy interface natively. Transactions
// submitted through SubmitTx are served first, in submission order; the
// handler fills the rest of each batch.
//
// A submitted transaction leaves the proxy only when a block carrying it is
// committed. Until then it is in flight, attached to the epoch it was handed
// out for, and goes back to the front of the queue when that epoch can no
// longer be committed: its leader proposed nothing, or a later epoch was
// committed first.
type InmemProxy struct {
	handler proxy.ProxyHandler
	logger  *logrus.Entry

	mu       sync.Mutex
	pool     deque.Deque
	inflight map[int][]string
}

// NewInmemProxy instantiates an InmemProxy from a set of handlers.
// If no logger, a new one is created
func NewInmemProxy(handler proxy.ProxyHandler,
	logger *logrus.Entry) *InmemProxy {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &InmemProxy{
		handler:  handler,
		logger:   logger,
		inflight: make(map[int][]string),
	}
}

/*******************************************************************************
* SubmitTx                                                                     *
*******************************************************************************/

// SubmitTx is called by the App to queue a transaction for the next proposal.
func (p *InmemProxy) SubmitTx(tx string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pool.PushBack(tx)
}

// PendingTransactions returns the number of submitted transactions that were
// not committed yet, queued or in flight.
func (p *InmemProxy) PendingTransactions() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.pool.Len()
	for _, batch := range p.inflight {
		res += len(batch)
	}
	return res
}

// requeue puts the in-flight batches of epochs accepted by keep back at the
// front of the queue, oldest epoch first. The caller holds mu.
func (p *InmemProxy) requeue(keep func(epoch int) bool) int {
	epochs := []int{}
	for e := range p.inflight {
		if keep(e) {
			epochs = append(epochs, e)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(epochs)))

	res := 0
	for _, e := range epochs {
		batch := p.inflight[e]
		for i := len(batch) - 1; i >= 0; i-- {
			p.pool.PushFront(batch[i])
		}
		res += len(batch)
		delete(p.inflight, e)
	}
	return res
}

/*******************************************************************************
* Implement AppProxy Interface                                                 *
*******************************************************************************/

// Transactions implements the AppProxy interface.
func (p *InmemProxy) Transactions(epoch int, count int) []string {
	p.mu.Lock()
	txs := make([]string, 0, count)
	for len(txs) < count && p.pool.Len() > 0 {
		v, _ := p.pool.PopFront()
		txs = append(txs, v.(string))
	}
	if len(txs) > 0 {
		p.inflight[epoch] = append(p.inflight[epoch], txs...)
	}
	p.mu.Unlock()

	if missing := count - len(txs); missing > 0 {
		generated := p.handler.TransactionHandler(epoch, missing)
		if len(generated) > missing {
			generated = generated[:missing]
		}
		txs = append(txs, generated...)
	}

	p.logger.WithFields(logrus.Fields{
		"epoch": epoch,
		"txs":   len(txs),
	}).Debug("InmemProxy.Transactions")

	return txs
}

// ReturnTransactions implements the AppProxy interface.
func (p *InmemProxy) ReturnTransactions(epoch int) {
	p.mu.Lock()
	n := p.requeue(func(e int) bool { return e == epoch })
	p.mu.Unlock()

	if n > 0 {
		p.logger.WithFields(logrus.Fields{
			"epoch": epoch,
			"txs":   n,
		}).Debug("InmemProxy.ReturnTransactions")
	}
}

// CommitBlock implements the AppProxy interface by calling the commitHandler.
// The submitted transactions of the block's epoch are settled, and those of
// earlier epochs, which a finalized sequence can no longer include, are
// queued again.
func (p *InmemProxy) CommitBlock(nodeID int, block *chain.Block) (proxy.CommitResponse, error) {
	commitResponse, err := p.handler.CommitHandler(nodeID, block)

	p.mu.Lock()
	delete(p.inflight, block.Epoch())
	p.requeue(func(e int) bool { return e < block.Epoch() })
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"node":       nodeID,
		"epoch":      block.Epoch(),
		"txs":        len(block.Transactions()),
		"state_hash": common.EncodeToString(commitResponse.StateHash),
		"err":        err,
	}).Debug("InmemProxy.CommitBlock")

	return commitResponse, err
}
