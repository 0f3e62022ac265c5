// Package net implements the delivery channel that carries proposals and votes
// between nodes.
//
// Nodes never talk to each other directly. The orchestrator hands every
// outgoing message to a Network, which queues it in the mailbox of each
// recipient, and later asks the Network for the messages that are due for a
// given node at a given epoch.
//
// Inmem
//
// InmemNetwork keeps one mailbox for proposals and one for votes per node. It
// can model an unreliable network: every copy of a message is dropped with
// probability DropRate, and delayed by up to MaxDelay epochs. The random
// source is seeded from the options so that runs are reproducible. With the
// zero Options the network is synchronous and lossless: every message is
// delivered in the epoch it was sent.
package net
