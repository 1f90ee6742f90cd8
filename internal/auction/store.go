package auction

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// Store persists auction state across the key families of §4.1, wrapping
// a storage.DB the same way internal/utxo.Store and internal/token wrap
// one for their own record types.
type Store struct {
	db storage.DB
}

// NewStore returns a Store backed by db.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) getAuction(nameHash types.Hash) (*Auction, bool, error) {
	has, err := s.db.Has(auctionKey(nameHash))
	if err != nil {
		return nil, false, fmt.Errorf("auction store: has %x: %w", nameHash, err)
	}
	if !has {
		return nil, false, nil
	}
	data, err := s.db.Get(auctionKey(nameHash))
	if err != nil {
		return nil, false, fmt.Errorf("auction store: get %x: %w", nameHash, err)
	}
	var a Auction
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, fmt.Errorf("auction store: unmarshal %x: %w", nameHash, err)
	}
	return &a, true, nil
}

func (s *Store) getReverse(outpoint types.Outpoint) (types.Hash, bool, error) {
	has, err := s.db.Has(reverseKey(outpoint))
	if err != nil {
		return types.Hash{}, false, fmt.Errorf("auction store: has reverse %s: %w", outpoint, err)
	}
	if !has {
		return types.Hash{}, false, nil
	}
	data, err := s.db.Get(reverseKey(outpoint))
	if err != nil {
		return types.Hash{}, false, fmt.Errorf("auction store: get reverse %s: %w", outpoint, err)
	}
	if len(data) != types.HashSize {
		return types.Hash{}, false, fmt.Errorf("auction store: corrupt reverse index for %s", outpoint)
	}
	var nameHash types.Hash
	copy(nameHash[:], data)
	return nameHash, true, nil
}

func (s *Store) getUndo(outpoint types.Outpoint) ([]byte, bool, error) {
	has, err := s.db.Has(undoKey(outpoint))
	if err != nil {
		return nil, false, fmt.Errorf("auction store: has undo %s: %w", outpoint, err)
	}
	if !has {
		return nil, false, nil
	}
	data, err := s.db.Get(undoKey(outpoint))
	if err != nil {
		return nil, false, fmt.Errorf("auction store: get undo %s: %w", outpoint, err)
	}
	return data, true, nil
}

func (s *Store) getRenewalUndo(outpoint types.Outpoint) (uint32, bool, error) {
	has, err := s.db.Has(renewalUndoKey(outpoint))
	if err != nil {
		return 0, false, fmt.Errorf("auction store: has renewal undo %s: %w", outpoint, err)
	}
	if !has {
		return 0, false, nil
	}
	data, err := s.db.Get(renewalUndoKey(outpoint))
	if err != nil {
		return 0, false, fmt.Errorf("auction store: get renewal undo %s: %w", outpoint, err)
	}
	if len(data) != 4 {
		return 0, false, fmt.Errorf("auction store: corrupt renewal undo for %s", outpoint)
	}
	return binary.LittleEndian.Uint32(data), true, nil
}

// listReveals returns every persisted reveal record for nameHash, keyed
// by outpoint, for the winner selector to overlay in-block ops onto.
func (s *Store) listReveals(nameHash types.Hash) (map[types.Outpoint]uint64, error) {
	reveals := make(map[types.Outpoint]uint64)
	err := s.db.ForEach(revealPrefix(nameHash), func(key, value []byte) error {
		if len(value) != 8 {
			return fmt.Errorf("corrupt reveal record %x", key)
		}
		reveals[outpointFromFamilyKey(key)] = binary.LittleEndian.Uint64(value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("auction store: scan reveals %x: %w", nameHash, err)
	}
	return reveals, nil
}

// PickWinner range-scans the persisted reveal records under nameHash and
// returns the outpoint with the highest bid amount, breaking ties on the
// later key (§4.4).
func (s *Store) PickWinner(nameHash types.Hash) (*types.Outpoint, error) {
	return PickWinner(s.db, nameHash)
}

// ClearAll deletes every key in the six auction key families. Used by
// full-chain UTXO rebuilds, which replay every block's covenants from
// genesis and would otherwise double up bids, reveals, and undo records
// left over from the state being replaced.
func (s *Store) ClearAll() error {
	families := []struct {
		prefix byte
		keyLen int
	}{
		{prefixAuction, 1 + types.HashSize}, {prefixReverse, 1 + outpointSize},
		{prefixBid, 1 + types.HashSize + outpointSize}, {prefixReveal, 1 + types.HashSize + outpointSize},
		{prefixUndo, 1 + outpointSize}, {prefixRenewalUndo, 1 + outpointSize},
	}
	var keys [][]byte
	for _, f := range families {
		if err := s.db.ForEach([]byte{f.prefix}, func(key, _ []byte) error {
			// Other stores sharing the DB ("b/", "u/", the trie's "n/", ...)
			// can start with the same byte; only this family's key length matches.
			if len(key) == f.keyLen {
				keys = append(keys, append([]byte(nil), key...))
			}
			return nil
		}); err != nil {
			return fmt.Errorf("auction store: scan %c for clear: %w", f.prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("auction store: delete %x: %w", key, err)
		}
	}
	return nil
}
