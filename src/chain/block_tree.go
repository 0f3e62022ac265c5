package chain

import (
	"github.com/mosaicnetworks/streamlet/src/common"
)

// BlockTree is a node's private view of every block it has accepted, keyed by
// hash. Parent links are hashes, never pointers.
type BlockTree struct {
	genesis  *Block
	blocks   map[string]*Block   // hash => Block
	children map[string][]string // parent hash => child hashes
	length   map[string]int      // hash => number of blocks from genesis
	byEpoch  map[int][]string    // epoch => hashes
}

// NewBlockTree creates a tree containing only the genesis block.
func NewBlockTree() *BlockTree {
	genesis := NewGenesisBlock()
	return &BlockTree{
		genesis:  genesis,
		blocks:   map[string]*Block{genesis.Hash: genesis},
		children: make(map[string][]string),
		length:   map[string]int{genesis.Hash: 0},
		byEpoch:  map[int][]string{genesis.Epoch(): {genesis.Hash}},
	}
}

// Genesis returns the root of the tree.
func (t *BlockTree) Genesis() *Block {
	return t.genesis
}

// Get returns a block by hash.
func (t *BlockTree) Get(hash string) (*Block, bool) {
	b, ok := t.blocks[hash]
	return b, ok
}

// Has ...
func (t *BlockTree) Has(hash string) bool {
	_, ok := t.blocks[hash]
	return ok
}

// Add inserts a block whose parent is already in the tree. Adding a block
// twice is a no-op and returns false.
func (t *BlockTree) Add(b *Block) (bool, error) {
	if t.Has(b.Hash) {
		return false, nil
	}
	parentLength, ok := t.length[b.ParentHash()]
	if !ok {
		return false, common.NewRejectErr("BlockTree", common.UnknownParent, b.ParentHash())
	}
	t.blocks[b.Hash] = b
	t.children[b.ParentHash()] = append(t.children[b.ParentHash()], b.Hash)
	t.length[b.Hash] = parentLength + 1
	t.byEpoch[b.Epoch()] = append(t.byEpoch[b.Epoch()], b.Hash)
	return true, nil
}

// Length returns the number of blocks between genesis and the given block,
// genesis excluded, or -1 if the block is unknown.
func (t *BlockTree) Length(hash string) int {
	l, ok := t.length[hash]
	if !ok {
		return -1
	}
	return l
}

// Parent returns the parent of a block, if it is known and the block is not
// genesis.
func (t *BlockTree) Parent(b *Block) (*Block, bool) {
	if b.IsGenesis() {
		return nil, false
	}
	return t.Get(b.ParentHash())
}

// Children returns the hashes of the blocks extending hash.
func (t *BlockTree) Children(hash string) []string {
	return t.children[hash]
}

// EpochBlocks returns the hashes of the blocks proposed for an epoch, in the
// order they were added.
func (t *BlockTree) EpochBlocks(epoch int) []string {
	return t.byEpoch[epoch]
}

// Path returns the chain from the block right after genesis up to and
// including hash. Genesis is not part of the path.
func (t *BlockTree) Path(hash string) []*Block {
	b, ok := t.Get(hash)
	if !ok {
		return nil
	}
	path := make([]*Block, t.length[hash])
	for i := len(path) - 1; i >= 0; i-- {
		path[i] = b
		b = t.blocks[b.ParentHash()]
	}
	return path
}

// Len returns the number of blocks in the tree, genesis excluded.
func (t *BlockTree) Len() int {
	return len(t.blocks) - 1
}
