package auction

import (
	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/pkg/crypto"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// Trie is the minimal authenticated-trie contract the auction engine
// drives (§4.7); *trie.Trie from internal/trie implements it.
type Trie interface {
	Insert(key, value types.Hash)
	Remove(key types.Hash)
	Hash() types.Hash
	CommitTo(batch storage.Batch) error
}

// TrieBinding layers the auction engine's commit/uncommit vocabulary over
// a raw Trie: commit hashes the covenant's opaque record data with the
// same content hash klingnet-chain uses everywhere else (BLAKE3), keeping
// name hashing (BLAKE2b, via crypto.NameHash) the one deliberate
// exception rather than spreading a second hash family through the trie
// itself.
type TrieBinding struct {
	trie Trie
}

// NewTrieBinding wraps trie.
func NewTrieBinding(trie Trie) *TrieBinding {
	return &TrieBinding{trie: trie}
}

// Commit binds nameHash to H(data) in the underlying trie.
func (b *TrieBinding) Commit(nameHash types.Hash, data []byte) {
	b.trie.Insert(nameHash, crypto.Hash(data))
}

// Uncommit removes nameHash's binding from the trie.
func (b *TrieBinding) Uncommit(nameHash types.Hash) {
	b.trie.Remove(nameHash)
}

// Root returns the trie's current root hash.
func (b *TrieBinding) Root() types.Hash {
	return b.trie.Hash()
}

// Flush stages every node the trie has created since the last Flush into
// batch. The caller commits batch; Flush does not.
func (b *TrieBinding) Flush(batch storage.Batch) error {
	return b.trie.CommitTo(batch)
}
