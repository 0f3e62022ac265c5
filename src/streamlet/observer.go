package streamlet

import "github.com/mosaicnetworks/streamlet/src/node"

// Observer is notified at the end of every epoch with the epoch's trace and
// the stats of every node, indexed by node id. Observers are called from the
// goroutine running the protocol and must not block.
type Observer interface {
	OnEpoch(trace EpochTrace, stats []node.Stats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(trace EpochTrace, stats []node.Stats)

// OnEpoch implements the Observer interface.
func (f ObserverFunc) OnEpoch(trace EpochTrace, stats []node.Stats) {
	f(trace, stats)
}
