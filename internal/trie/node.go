package trie

import (
	"github.com/nameforge/nameforge-chain/pkg/crypto"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// combine computes the parent hash of two child subtree hashes.
func combine(left, right types.Hash) types.Hash {
	return crypto.HashConcat(left, right)
}

// Depth is the key width in bits. Names hash to a 32-byte BLAKE2b-256
// digest, so the trie is a binary tree 256 levels deep, one level per key
// bit, MSB first.
const Depth = 256

// emptyHash[d] is the root of an empty subtree d levels above the leaves.
// emptyHash[0] is the zero hash: an empty leaf, i.e. no binding at that
// key. Each level up is the hash of two empty children, so an entirely
// empty trie's root is emptyHash[Depth].
var emptyHash [Depth + 1]types.Hash

func init() {
	for d := 1; d <= Depth; d++ {
		emptyHash[d] = combine(emptyHash[d-1], emptyHash[d-1])
	}
}

// EmptyRoot is the root hash of a trie with no entries.
func EmptyRoot() types.Hash {
	return emptyHash[Depth]
}

// bitAt returns the bit of h at the given depth (0 = most significant bit
// of h[0]), as 0 or 1.
func bitAt(h types.Hash, depth int) int {
	byteIdx := depth / 8
	bitIdx := 7 - depth%8
	return int((h[byteIdx] >> uint(bitIdx)) & 1)
}

// nodeKey is the storage key an internal node is persisted under: its own
// content hash, namespaced so the trie's nodes never collide with any
// other bucket sharing the same underlying DB.
func nodeKey(hash types.Hash) []byte {
	key := make([]byte, 0, 2+types.HashSize)
	key = append(key, 'n', '/')
	key = append(key, hash[:]...)
	return key
}

// encodeInternal serializes an internal node as its two child hashes.
func encodeInternal(left, right types.Hash) []byte {
	buf := make([]byte, 0, 2*types.HashSize)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return buf
}

// decodeInternal is the inverse of encodeInternal.
func decodeInternal(enc []byte) (left, right types.Hash, ok bool) {
	if len(enc) != 2*types.HashSize {
		return types.Hash{}, types.Hash{}, false
	}
	copy(left[:], enc[:types.HashSize])
	copy(right[:], enc[types.HashSize:])
	return left, right, true
}
