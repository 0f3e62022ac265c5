package proxy

import (
	"github.com/mosaicnetworks/streamlet/src/chain"
)

// ProxyHandler encapsulates callbacks to be called by the InmemProxy. This is
// the true contact surface between the network and the application.
type ProxyHandler interface {
	// TransactionHandler is called when a leader needs transactions and the
	// proxy's pool of submitted transactions does not hold enough of them.
	TransactionHandler(epoch int, count int) []string

	// CommitHandler is called when a node finalizes a block.
	CommitHandler(nodeID int, block *chain.Block) (CommitResponse, error)
}
