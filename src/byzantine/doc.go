// Package byzantine defines the behaviors a participant can follow.
//
// A Behavior is a plain tagged value attached to a node by the orchestrator.
// It decides what the node sends to the network (its proposals when it leads
// an epoch, and the votes it publishes) and nothing else. Behaviors only use
// the public operations of node.Node, so the state machine itself is the same
// for honest and faulty participants. Receivers are never told which behavior
// a peer follows; faults are detected through validation failures and
// equivocation evidence.
package byzantine
