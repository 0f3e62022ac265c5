package chain

// Proposal is a block in transit together with the id of the node that sent
// it. Claimed is what the network attributes the message to; receivers check
// it against Block.ProposerID.
type Proposal struct {
	Block   *Block
	Claimed int
}

// NewProposal ...
func NewProposal(block *Block, claimed int) *Proposal {
	return &Proposal{
		Block:   block,
		Claimed: claimed,
	}
}
