// Package chain holds the data structures a Streamlet node reasons about.
//
// Blocks
//
// A Block is an immutable record identified by the SHA256 digest of its
// canonical encoding. It points to the block it extends through ParentHash,
// so a set of blocks forms a tree rooted at the genesis block. The genesis
// block has fixed content, so every node derives the same genesis hash
// without talking to anyone.
//
// BlockTree
//
// Every node keeps its own BlockTree, an arena mapping hashes to blocks. Parent
// links are hashes, not pointers, so two nodes never alias each other's state
// and a tree can be encoded as is.
//
// VoteLedger
//
// The VoteLedger tallies votes by epoch and block hash. It detects voters who
// vote for two different hashes in the same epoch and excludes them from the
// tallies of that epoch, so an equivocating voter never contributes to a
// quorum.
package chain
