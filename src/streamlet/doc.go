// Package streamlet implements the orchestrator of a Streamlet network.
//
// A Protocol owns a set of nodes, the behavior each of them follows, the
// delivery channel between them, and the application they serve. It drives
// the global epoch counter: for every epoch it asks the round-robin leader to
// propose, moves proposals and then votes through the network, commits newly
// finalized blocks to the application, and records what changed. It keeps no
// consensus state of its own and never looks at which behavior a node follows
// to decide what to do with a message.
//
// A run always completes the epochs it was asked for, even if nothing gets
// finalized, and returns a RunReport describing every node.
package streamlet
