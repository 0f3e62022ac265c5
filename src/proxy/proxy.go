package proxy

import (
	"github.com/mosaicnetworks/streamlet/src/chain"
)

// AppProxy is how the orchestrator talks to the application.
type AppProxy interface {
	// Transactions returns at most count transactions for the block proposed
	// in epoch.
	Transactions(epoch int, count int) []string

	// ReturnTransactions is called when the leader of epoch proposed
	// nothing. Transactions handed out for that epoch are not lost.
	ReturnTransactions(epoch int)

	// CommitBlock is called once per node for every block that node
	// finalizes, in order.
	CommitBlock(nodeID int, block *chain.Block) (CommitResponse, error)
}
