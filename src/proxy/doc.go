// Package proxy defines AppProxy: the interface between the consensus network
// and an application.
//
// The application plays two roles. It is the source of the opaque
// transactions that leaders embed in their blocks, and it is told about every
// block that a node finalizes, in finalization order. The consensus core
// never interprets transactions.
//
// InmemProxy, in the inmem subpackage, implements AppProxy on top of a
// ProxyHandler, so that an application only has to provide callbacks.
package proxy
