package auction

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// PickWinner range-scans the reveal ("r") family under nameHash's prefix
// in db and returns the outpoint with the highest revealed bid amount
// (§4.4). Ties break on the later key in lexicographic hash‖idx order.
// It returns (nil, nil) if no reveal has ever been recorded for nameHash.
func PickWinner(db storage.DB, nameHash types.Hash) (*types.Outpoint, error) {
	prefix := revealPrefix(nameHash)

	var winnerKey []byte
	var winnerValue uint64
	var found bool

	err := db.ForEach(prefix, func(key, value []byte) error {
		if len(value) != 8 {
			return fmt.Errorf("winner selector: malformed reveal value for key %x", key)
		}
		v := binary.LittleEndian.Uint64(value)
		if !found || v > winnerValue || (v == winnerValue && bytes.Compare(key, winnerKey) > 0) {
			found = true
			winnerValue = v
			winnerKey = append([]byte(nil), key...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("winner selector: scan %x: %w", nameHash, err)
	}
	if !found {
		return nil, nil
	}

	op := outpointFromFamilyKey(winnerKey)
	return &op, nil
}
