package auction

import (
	"bytes"
	"encoding/binary"

	"github.com/nameforge/nameforge-chain/pkg/types"
)

// Key family prefixes (§4.1). Every family is a single tag byte followed
// by a fixed-width suffix, the same big-endian fixed-width layout
// internal/utxo uses for its own secondary indexes.
const (
	prefixAuction     = 'a' // name_hash -> serialized auction
	prefixReverse     = 'n' // hash‖idx -> name_hash
	prefixBid         = 'b' // name_hash‖hash‖idx -> empty (bid marker)
	prefixReveal      = 'r' // name_hash‖hash‖idx -> bid amount (u64 LE)
	prefixUndo        = 'u' // hash‖idx -> serialized auction undo
	prefixRenewalUndo = 'k' // hash‖idx -> prior renewal height (u32 LE)
)

const outpointSize = types.HashSize + 4

func putOutpoint(buf []byte, op types.Outpoint) {
	copy(buf, op.TxID[:])
	binary.BigEndian.PutUint32(buf[types.HashSize:], op.Index)
}

func outpointAt(buf []byte) types.Outpoint {
	var op types.Outpoint
	copy(op.TxID[:], buf[:types.HashSize])
	op.Index = binary.BigEndian.Uint32(buf[types.HashSize:])
	return op
}

// outpointFromFamilyKey recovers the outpoint suffix shared by every
// family key that embeds one, regardless of what precedes it.
func outpointFromFamilyKey(key []byte) types.Outpoint {
	return outpointAt(key[len(key)-outpointSize:])
}

// outpointKeyLess reports whether a's hash‖idx encoding sorts before b's,
// the tie-break order the winner selector uses: on equal bid amounts the
// later key wins.
func outpointKeyLess(a, b types.Outpoint) bool {
	bufA := make([]byte, outpointSize)
	bufB := make([]byte, outpointSize)
	putOutpoint(bufA, a)
	putOutpoint(bufB, b)
	return bytes.Compare(bufA, bufB) < 0
}

func auctionKey(nameHash types.Hash) []byte {
	key := make([]byte, 1+types.HashSize)
	key[0] = prefixAuction
	copy(key[1:], nameHash[:])
	return key
}

func reverseKey(op types.Outpoint) []byte {
	key := make([]byte, 1+outpointSize)
	key[0] = prefixReverse
	putOutpoint(key[1:], op)
	return key
}

func bidKey(nameHash types.Hash, op types.Outpoint) []byte {
	key := make([]byte, 1+types.HashSize+outpointSize)
	key[0] = prefixBid
	copy(key[1:], nameHash[:])
	putOutpoint(key[1+types.HashSize:], op)
	return key
}

func revealKey(nameHash types.Hash, op types.Outpoint) []byte {
	key := make([]byte, 1+types.HashSize+outpointSize)
	key[0] = prefixReveal
	copy(key[1:], nameHash[:])
	putOutpoint(key[1+types.HashSize:], op)
	return key
}

func revealPrefix(nameHash types.Hash) []byte {
	key := make([]byte, 1+types.HashSize)
	key[0] = prefixReveal
	copy(key[1:], nameHash[:])
	return key
}

func undoKey(op types.Outpoint) []byte {
	key := make([]byte, 1+outpointSize)
	key[0] = prefixUndo
	putOutpoint(key[1:], op)
	return key
}

func renewalUndoKey(op types.Outpoint) []byte {
	key := make([]byte, 1+outpointSize)
	key[0] = prefixRenewalUndo
	putOutpoint(key[1:], op)
	return key
}
