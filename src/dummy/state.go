// Package dummy implements a trivial application that feeds numbered
// transactions to leaders and hashes the blocks each node commits.
package dummy

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/streamlet/src/chain"
	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/crypto"
	"github.com/mosaicnetworks/streamlet/src/proxy"
	"github.com/sirupsen/logrus"
)

// State represents the state of our dummy application. It implements the
// ProxyHandler interface for use with an InmemProxy. It generates numbered
// transactions and, for every node, saves the transactions of the blocks that
// node commits. Each node's state hash is computed by cumulatively hashing
// transactions together as they come in, so nodes with the same finalized
// sequence end up with the same hash.
type State struct {
	mu           sync.Mutex
	committedTxs map[int][]string
	stateHashes  map[int][]byte
	generated    int
	logger       *logrus.Entry
}

// NewState creates a new dummy state.
func NewState(logger *logrus.Entry) *State {
	state := &State{
		committedTxs: make(map[int][]string),
		stateHashes:  make(map[int][]byte),
		logger:       logger,
	}

	logger.Debug("Init Dummy State")

	return state
}

// TransactionHandler implements the ProxyHandler interface. Transactions are
// named after the epoch and their position in the block: tx_<epoch>_<i>.
func (a *State) TransactionHandler(epoch int, count int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	txs := make([]string, count)
	for i := range txs {
		txs[i] = fmt.Sprintf("tx_%d_%d", epoch, i)
	}
	a.generated += count

	return txs
}

// CommitHandler implements the ProxyHandler interface. Every node commits its
// finalized blocks in order; the response carries that node's state hash after
// applying the block.
func (a *State) CommitHandler(nodeID int, block *chain.Block) (proxy.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.logger.Logger.Level > logrus.InfoLevel {
		blockBytes, _ := block.Marshal()
		a.logger.WithFields(logrus.Fields{
			"node":  nodeID,
			"block": string(blockBytes),
		}).Debug("CommitBlock")
	}

	a.committedTxs[nodeID] = append(a.committedTxs[nodeID], block.Transactions()...)

	hash := a.stateHashes[nodeID]
	for _, tx := range block.Transactions() {
		hash = crypto.Accumulate(hash, []byte(tx))
	}
	a.stateHashes[nodeID] = hash

	response := proxy.CommitResponse{
		StateHash: hash,
	}

	return response, nil
}

// GetCommittedTransactions returns the transactions committed by a node, in
// order.
func (a *State) GetCommittedTransactions(nodeID int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := make([]string, len(a.committedTxs[nodeID]))
	copy(res, a.committedTxs[nodeID])
	return res
}

// GetStateHash returns the hex encoded state hash of a node. It is empty until
// the node commits a transaction.
func (a *State) GetStateHash(nodeID int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	hash, ok := a.stateHashes[nodeID]
	if !ok || len(hash) == 0 {
		return ""
	}
	return common.EncodeToString(hash)
}

// Generated returns the number of transactions produced so far.
func (a *State) Generated() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.generated
}
