// Package trie implements an authenticated sparse Merkle trie over the
// 256-bit key space name hashes live in. Internal nodes are content
// addressed (keyed by their own hash) in an ordered KV store, the same
// way klingnet-chain content-addresses block and transaction hashes
// elsewhere, so two tries holding the same bindings always produce the
// same root hash regardless of insertion order.
package trie

import (
	"fmt"

	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// Trie is a sparse Merkle trie mapping 32-byte keys to 32-byte values.
// Insert and Remove are buffered in memory; CommitTo stages the nodes
// touched since the last flush into a caller-supplied batch so the trie
// advances atomically alongside whatever else the batch writes.
//
// Trie is not safe for concurrent use.
type Trie struct {
	db    storage.DB // backing store for nodes not already in dirty; nil for a pure in-memory trie
	root  types.Hash
	dirty map[types.Hash][]byte // content hash -> encoded internal node, pending CommitTo
	err   error                 // sticky: set by a failed Insert/Remove, surfaced by CommitTo
}

// New returns a trie rooted at root. Pass EmptyRoot() for a fresh trie.
// db supplies nodes referenced by root that aren't already staged; it may
// be nil only if root is EmptyRoot() (nothing to load).
func New(db storage.DB, root types.Hash) *Trie {
	return &Trie{
		db:    db,
		root:  root,
		dirty: make(map[types.Hash][]byte),
	}
}

// Hash returns the current root hash.
func (t *Trie) Hash() types.Hash {
	return t.root
}

// Insert binds key to value, replacing any existing binding. Failures to
// load an existing node are recorded and surfaced by the next CommitTo
// call, matching the no-error-return shape the auction engine's Trie
// interface requires of Insert/Remove.
func (t *Trie) Insert(key, value types.Hash) {
	if t.err != nil {
		return
	}
	newRoot, err := t.insertAt(0, t.root, key, value)
	if err != nil {
		t.err = err
		return
	}
	t.root = newRoot
}

// Remove unbinds key, pruning any subtree that collapses to empty.
func (t *Trie) Remove(key types.Hash) {
	t.Insert(key, types.Hash{})
}

// CommitTo stages every node created since the last successful CommitTo
// into batch. It does not call batch.Commit(); the caller commits once,
// alongside whatever else the batch carries.
func (t *Trie) CommitTo(batch storage.Batch) error {
	if t.err != nil {
		err := t.err
		t.err = nil
		return fmt.Errorf("trie: pending failure: %w", err)
	}
	for hash, enc := range t.dirty {
		if err := batch.Put(nodeKey(hash), enc); err != nil {
			return fmt.Errorf("trie: stage node %x: %w", hash, err)
		}
	}
	t.dirty = make(map[types.Hash][]byte)
	return nil
}

// insertAt walks the path for key starting at depth with current subtree
// hash cur, replacing the value at the leaf, and returns the new subtree
// hash. It mutates t.dirty with every internal node created along the way.
func (t *Trie) insertAt(depth int, cur types.Hash, key, value types.Hash) (types.Hash, error) {
	if depth == Depth {
		return value, nil
	}

	left, right, err := t.children(depth, cur)
	if err != nil {
		return types.Hash{}, err
	}

	if bitAt(key, depth) == 0 {
		left, err = t.insertAt(depth+1, left, key, value)
	} else {
		right, err = t.insertAt(depth+1, right, key, value)
	}
	if err != nil {
		return types.Hash{}, err
	}

	newHash := combine(left, right)
	if newHash != emptyHash[Depth-depth] {
		t.dirty[newHash] = encodeInternal(left, right)
	}
	return newHash, nil
}

// children returns the left/right subtree hashes of the internal node
// hash at depth, loading it from the dirty set or the backing DB if
// necessary. A node at depth sits Depth-depth levels above the leaves, so
// hash == emptyHash[Depth-depth] short-circuits to two empty children
// without touching the DB.
func (t *Trie) children(depth int, hash types.Hash) (left, right types.Hash, err error) {
	if hash == emptyHash[Depth-depth] {
		return emptyHash[Depth-depth-1], emptyHash[Depth-depth-1], nil
	}

	if enc, ok := t.dirty[hash]; ok {
		left, right, ok := decodeInternal(enc)
		if !ok {
			return types.Hash{}, types.Hash{}, fmt.Errorf("trie: corrupt staged node %x", hash)
		}
		return left, right, nil
	}

	if t.db == nil {
		return types.Hash{}, types.Hash{}, fmt.Errorf("trie: node %x not found (no backing store)", hash)
	}
	enc, err := t.db.Get(nodeKey(hash))
	if err != nil {
		return types.Hash{}, types.Hash{}, fmt.Errorf("trie: load node %x: %w", hash, err)
	}
	left, right, ok := decodeInternal(enc)
	if !ok {
		return types.Hash{}, types.Hash{}, fmt.Errorf("trie: corrupt node %x: length %d", hash, len(enc))
	}
	return left, right, nil
}
