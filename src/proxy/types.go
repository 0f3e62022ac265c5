package proxy

// CommitResponse is what the application returns for a committed block.
// StateHash is the hash of the application state after applying the block;
// honest nodes with the same finalized sequence report the same hash.
type CommitResponse struct {
	StateHash []byte
}
