// Package node implements the Streamlet state machine of a single participant.
//
// A Node keeps a private block tree, a vote ledger, the set of notarized
// blocks and the finalized sequence. It is purely reactive: the orchestrator
// in the streamlet package hands it proposals and votes, and collects the
// votes it casts through Outbox. Nodes never share state with each other.
//
// Proposals
//
// A proposal is checked in a fixed order: structure, claimed sender, epoch
// leader, parent presence, and epoch monotonicity. An accepted block is stored
// in the tree. The node votes for it only if this is the first vote it casts
// in the epoch and the block extends the tip of a fully notarized chain that
// is at least as long as any other notarized chain the node knows.
//
// Votes
//
// Votes are applied in batches. Every vote of a batch is recorded before any
// quorum is evaluated, so a voter caught equivocating within the batch never
// contributes to a notarization decided by that batch. A block is notarized
// when 2f+1 distinct non-equivocating voters voted for it in its epoch. Votes
// for a block the node does not know yet are kept and counted once the block
// arrives.
//
// Finalization
//
// With the three-chain rule, three notarized blocks with consecutive epochs
// on one chain finalize the oldest of the three together with all its
// ancestors. The two-chain rule finalizes the parent of any notarized block
// and is only safe when every node is honest. The finalized sequence is
// append-only; a candidate that does not extend it is reported as a safety
// violation and ignored.
package node
