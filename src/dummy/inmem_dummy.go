package dummy

import (
	"github.com/mosaicnetworks/streamlet/src/proxy/inmem"
	"github.com/sirupsen/logrus"
)

// InmemDummyClient is an in-memory implementation of the dummy app. It
// implements the AppProxy interface, and can be passed to the protocol
// constructor directly.
type InmemDummyClient struct {
	*inmem.InmemProxy
	state  *State
	logger *logrus.Entry
}

// NewInmemDummyClient instantiates an InmemDummyClient
func NewInmemDummyClient(logger *logrus.Entry) *InmemDummyClient {
	state := NewState(logger)

	proxy := inmem.NewInmemProxy(state, logger)

	client := &InmemDummyClient{
		InmemProxy: proxy,
		state:      state,
		logger:     logger,
	}

	return client
}

// GetCommittedTransactions returns the transactions committed by a node
func (c *InmemDummyClient) GetCommittedTransactions(nodeID int) []string {
	return c.state.GetCommittedTransactions(nodeID)
}

// GetStateHash returns the state hash of a node
func (c *InmemDummyClient) GetStateHash(nodeID int) string {
	return c.state.GetStateHash(nodeID)
}

// Generated returns the number of transactions the dummy app generated
func (c *InmemDummyClient) Generated() int {
	return c.state.Generated()
}
