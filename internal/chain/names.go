package chain

import (
	"fmt"

	"github.com/nameforge/nameforge-chain/internal/auction"
	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/internal/trie"
	"github.com/nameforge/nameforge-chain/pkg/block"
	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// connectCovenants replays blk's covenant transitions against the name
// trie rooted at c.state.NameRoot and stages the resulting auction KV and
// trie writes into a fresh batch. It does not commit the batch or mutate
// c.state — the caller compares the returned root against the block
// header before committing, so an invalid block never touches storage.
func (c *Chain) connectCovenants(blk *block.Block) (types.Hash, storage.Batch, error) {
	batcher, ok := c.db.(storage.Batcher)
	if !ok {
		return types.Hash{}, nil, fmt.Errorf("connect covenants: storage backend does not support atomic batches")
	}
	batch := batcher.NewBatch()

	nameTrie := trie.New(c.db, c.state.NameRoot)
	binding := auction.NewTrieBinding(nameTrie)
	view := auction.NewView(c.auctionStore)
	coins := &chainCoinView{set: c.utxos}
	chainView := &chainChainView{blocks: c.blocks}

	for i, transaction := range blk.Transactions {
		if i == 0 {
			continue // Coinbase never carries a covenant.
		}
		if err := auction.ConnectCovenants(transaction, blk.Header.Height, view, coins, chainView, c.nameParams); err != nil {
			return types.Hash{}, nil, fmt.Errorf("connect covenants tx %d: %w", i, err)
		}
	}

	root, err := view.SaveView(batch, binding)
	if err != nil {
		return types.Hash{}, nil, fmt.Errorf("save auction view: %w", err)
	}
	if root != blk.Header.NameRoot {
		return types.Hash{}, nil, fmt.Errorf("%w: computed %x, header has %x", auction.ErrTrieRootMismatch, root, blk.Header.NameRoot)
	}
	if err := binding.Flush(batch); err != nil {
		return types.Hash{}, nil, fmt.Errorf("flush name trie: %w", err)
	}

	return root, batch, nil
}

// disconnectCovenants inverts blk's covenant transitions (reverse
// transaction order) and stages the result into a fresh batch. Returns
// the name trie root the chain had immediately before blk was applied.
func (c *Chain) disconnectCovenants(blk *block.Block) (types.Hash, storage.Batch, error) {
	batcher, ok := c.db.(storage.Batcher)
	if !ok {
		return types.Hash{}, nil, fmt.Errorf("disconnect covenants: storage backend does not support atomic batches")
	}
	batch := batcher.NewBatch()

	nameTrie := trie.New(c.db, c.state.NameRoot)
	binding := auction.NewTrieBinding(nameTrie)
	view := auction.NewView(c.auctionStore)
	coins := &chainCoinView{set: c.utxos}

	for i := len(blk.Transactions) - 1; i >= 0; i-- {
		if i == 0 {
			continue // Coinbase never carries a covenant.
		}
		if err := auction.DisconnectCovenants(blk.Transactions[i], blk.Header.Height, view, coins); err != nil {
			return types.Hash{}, nil, fmt.Errorf("disconnect covenants tx %d: %w", i, err)
		}
	}

	root, err := view.SaveView(batch, binding)
	if err != nil {
		return types.Hash{}, nil, fmt.Errorf("save auction view: %w", err)
	}
	if err := binding.Flush(batch); err != nil {
		return types.Hash{}, nil, fmt.Errorf("flush name trie: %w", err)
	}

	return root, batch, nil
}

// PreviewNameRoot dry-runs covenant connection for a candidate transaction
// set without touching storage, so the miner can populate a new block
// header's NameRoot before sealing it.
func (c *Chain) PreviewNameRoot(txs []*tx.Transaction, height uint64) (types.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nameTrie := trie.New(c.db, c.state.NameRoot)
	binding := auction.NewTrieBinding(nameTrie)
	view := auction.NewView(c.auctionStore)
	coins := &chainCoinView{set: c.utxos}
	chainView := &chainChainView{blocks: c.blocks}

	for i, transaction := range txs {
		if i == 0 {
			continue // Coinbase.
		}
		if err := auction.ConnectCovenants(transaction, height, view, coins, chainView, c.nameParams); err != nil {
			return types.Hash{}, fmt.Errorf("preview name root: %w", err)
		}
	}

	discard := &discardBatch{}
	return view.SaveView(discard, binding)
}

// discardBatch implements storage.Batch without touching a database; used
// by PreviewNameRoot, which only needs the resulting root hash.
type discardBatch struct{}

func (discardBatch) Put(key, value []byte) error { return nil }
func (discardBatch) Delete(key []byte) error     { return nil }
func (discardBatch) Commit() error               { return nil }
