package chain

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mosaicnetworks/streamlet/src/common"
	"github.com/mosaicnetworks/streamlet/src/crypto"
	"github.com/ugorji/go/codec"
)

// GenesisParent is the parent hash carried by the genesis block.
const GenesisParent = "GENESIS"

// GenesisProposer is the proposer id of the genesis block. It is not a valid
// node id.
const GenesisProposer = -1

// BlockBody contains the fields covered by the block hash.
type BlockBody struct {
	Epoch        int
	ParentHash   string
	Transactions []string
	ProposerID   int
	Timestamp    int64 // unix nanoseconds
}

// Marshal returns the canonical JSON encoding of the body.
func (bb *BlockBody) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(bb); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Hash ...
func (bb *BlockBody) Hash() ([]byte, error) {
	hashBytes, err := bb.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

// Block is a proposal for a given epoch. Blocks are never modified after
// creation; nodes share them by value of their hash.
type Block struct {
	Body BlockBody
	Hash string
}

// NewBlock creates a block and computes its hash. If the hash cannot be
// computed, the returned block has an empty Hash and is not well formed.
func NewBlock(epoch int,
	parentHash string,
	transactions []string,
	proposerID int,
	timestamp time.Time) *Block {

	txs := make([]string, len(transactions))
	copy(txs, transactions)

	block := &Block{
		Body: BlockBody{
			Epoch:        epoch,
			ParentHash:   parentHash,
			Transactions: txs,
			ProposerID:   proposerID,
			Timestamp:    timestamp.UnixNano(),
		},
	}

	hash, err := block.Body.Hash()
	if err == nil {
		block.Hash = common.EncodeToString(hash)
	}

	return block
}

// NewGenesisBlock returns the root of every block tree.
func NewGenesisBlock() *Block {
	return NewBlock(0, GenesisParent, []string{"genesis"}, GenesisProposer, time.Unix(0, 0))
}

// Epoch ...
func (b *Block) Epoch() int {
	return b.Body.Epoch
}

// ParentHash ...
func (b *Block) ParentHash() string {
	return b.Body.ParentHash
}

// Transactions ...
func (b *Block) Transactions() []string {
	return b.Body.Transactions
}

// ProposerID ...
func (b *Block) ProposerID() int {
	return b.Body.ProposerID
}

// Timestamp ...
func (b *Block) Timestamp() time.Time {
	return time.Unix(0, b.Body.Timestamp)
}

// IsGenesis reports whether b is the genesis block.
func (b *Block) IsGenesis() bool {
	return b.Body.ParentHash == GenesisParent
}

// IsWellFormed performs the structural checks on a block: non-negative epoch
// and proposer, and a hash that matches the content. Whether the parent exists
// or the proposer was entitled to propose is up to the node.
func (b *Block) IsWellFormed() bool {
	if b == nil || b.Hash == "" {
		return false
	}
	if b.Body.Epoch < 0 || b.Body.ProposerID < 0 {
		return false
	}
	hash, err := b.Body.Hash()
	if err != nil {
		return false
	}
	return common.EncodeToString(hash) == b.Hash
}

// Marshal ...
func (b *Block) Marshal() ([]byte, error) {
	bf := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(bf, jh)

	if err := enc.Encode(b); err != nil {
		return nil, err
	}

	return bf.Bytes(), nil
}

// Unmarshal ...
func (b *Block) Unmarshal(data []byte) error {
	bf := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(bf, jh)

	return dec.Decode(b)
}

// String ...
func (b *Block) String() string {
	return fmt.Sprintf("Block{epoch: %d, proposer: %d, hash: %s, parent: %s, txs: %d}",
		b.Body.Epoch,
		b.Body.ProposerID,
		common.ShortHex(b.Hash),
		common.ShortHex(b.Body.ParentHash),
		len(b.Body.Transactions))
}
