// Package peers defines the participants of a Streamlet network and the
// arithmetic derived from their number.
//
// A peer-set is fixed for the lifetime of a network: participants are
// identified by the integers 0..n-1 and optionaly carry a moniker, which is a
// non-unique user-friendly name. Leadership rotates round-robin over the ids,
// so the leader of epoch e is the peer with id e mod n.
//
// Fault tolerance
//
// A network of n peers tolerates f = floor((n-1)/3) Byzantine peers. A block
// is notarized once it collects votes from 2f+1 distinct peers. Nothing stops
// a network from containing more than f misbehaving peers; in that case the
// safety guarantees of the protocol no longer hold, and the caller is expected
// to surface that rather than refuse to run.
package peers
