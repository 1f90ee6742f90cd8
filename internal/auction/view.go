package auction

import (
	"encoding/binary"
	"fmt"

	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/pkg/crypto"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// View is a per-block write-back cache of auctions touched by the block
// in progress (§4.3). Every engine lookup goes through a View so that two
// transactions in the same block observe each other's effects before
// anything is durably written.
type View struct {
	store    *Store
	auctions map[types.Hash]*Auction
	reverse  map[types.Outpoint]types.Hash
}

// NewView returns an empty view backed by store for cold lookups.
func NewView(store *Store) *View {
	return &View{
		store:    store,
		auctions: make(map[types.Hash]*Auction),
		reverse:  make(map[types.Outpoint]types.Hash),
	}
}

// EnsureAuction returns the view's cached auction for name, loading it
// from the store on first touch or starting a fresh one at height if
// this is the name's first bid ever.
func (v *View) EnsureAuction(name []byte, height uint64) (*Auction, error) {
	nameHash := crypto.NameHash(name)
	if a, ok := v.auctions[nameHash]; ok {
		return a, nil
	}

	a, found, err := v.store.getAuction(nameHash)
	if err != nil {
		return nil, fmt.Errorf("auction view: load %x: %w", nameHash, err)
	}
	if !found {
		a = newAuction(name, height)
	}
	v.auctions[nameHash] = a
	return a, nil
}

// GetAuction returns the view's cached auction for nameHash, loading it
// from the store if necessary. It returns (nil, nil) if no auction has
// ever been created for that name.
func (v *View) GetAuction(nameHash types.Hash) (*Auction, error) {
	if a, ok := v.auctions[nameHash]; ok {
		return a, nil
	}
	a, found, err := v.store.getAuction(nameHash)
	if err != nil {
		return nil, fmt.Errorf("auction view: load %x: %w", nameHash, err)
	}
	if !found {
		return nil, nil
	}
	v.auctions[nameHash] = a
	return a, nil
}

// GetAuctionFor follows the reverse index to find the auction a given
// outpoint (a bid record, a reveal record, or the current owner) belongs
// to. It returns (nil, nil) if outpoint carries no such index entry.
func (v *View) GetAuctionFor(outpoint types.Outpoint) (*Auction, error) {
	nameHash, ok := v.reverse[outpoint]
	if !ok {
		found, err := false, error(nil)
		nameHash, found, err = v.store.getReverse(outpoint)
		if err != nil {
			return nil, fmt.Errorf("auction view: reverse lookup %s: %w", outpoint, err)
		}
		if !found {
			return nil, nil
		}
		v.reverse[outpoint] = nameHash
	}
	return v.GetAuction(nameHash)
}

func (v *View) cacheReverse(outpoint types.Outpoint, nameHash types.Hash) {
	v.reverse[outpoint] = nameHash
}

func (v *View) forgetReverse(outpoint types.Outpoint) {
	delete(v.reverse, outpoint)
}

// pickWinner returns the auction's highest revealed bid, combining
// persisted reveal records with any reveal ops still pending in this
// block's view so two transactions in the same block agree on the
// winner before saveView ever flushes.
func (v *View) pickWinner(a *Auction) (*types.Outpoint, error) {
	reveals, err := v.store.listReveals(a.NameHash)
	if err != nil {
		return nil, err
	}
	for _, op := range a.Ops {
		switch op.Kind {
		case OpAddReveal:
			reveals[op.Outpoint] = op.Value
		case OpRemoveReveal:
			delete(reveals, op.Outpoint)
		}
	}
	if len(reveals) == 0 {
		return nil, nil
	}

	var winner types.Outpoint
	var winnerValue uint64
	var found bool
	for op, value := range reveals {
		switch {
		case !found:
			winner, winnerValue, found = op, value, true
		case value > winnerValue:
			winner, winnerValue = op, value
		case value == winnerValue && outpointKeyLess(winner, op):
			winner = op
		}
	}
	return &winner, nil
}

// SaveView replays every cached auction's pending ops into batch as KV
// puts/deletes, driving tb's commit/uncommit calls along the way, then
// clears each auction's op log. It returns the trie root after every op
// has been applied.
func (v *View) SaveView(batch storage.Batch, tb *TrieBinding) (types.Hash, error) {
	for nameHash, a := range v.auctions {
		for _, op := range a.Ops {
			if err := v.applyOp(batch, tb, nameHash, a, op); err != nil {
				return types.Hash{}, err
			}
		}
		a.Ops = nil
	}
	return tb.Root(), nil
}

func (v *View) applyOp(batch storage.Batch, tb *TrieBinding, nameHash types.Hash, a *Auction, op Op) error {
	switch op.Kind {
	case OpAddBid:
		if err := batch.Put(bidKey(nameHash, op.Outpoint), []byte{}); err != nil {
			return fmt.Errorf("auction: put bid: %w", err)
		}
		if err := batch.Put(reverseKey(op.Outpoint), nameHash[:]); err != nil {
			return fmt.Errorf("auction: put reverse index: %w", err)
		}
		v.cacheReverse(op.Outpoint, nameHash)
	case OpRemoveBid:
		if err := batch.Delete(bidKey(nameHash, op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete bid: %w", err)
		}
		if err := batch.Delete(reverseKey(op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete reverse index: %w", err)
		}
		v.forgetReverse(op.Outpoint)
	case OpAddReveal:
		val := make([]byte, 8)
		binary.LittleEndian.PutUint64(val, op.Value)
		if err := batch.Put(revealKey(nameHash, op.Outpoint), val); err != nil {
			return fmt.Errorf("auction: put reveal: %w", err)
		}
		if err := batch.Put(reverseKey(op.Outpoint), nameHash[:]); err != nil {
			return fmt.Errorf("auction: put reverse index: %w", err)
		}
		v.cacheReverse(op.Outpoint, nameHash)
	case OpRemoveReveal:
		if err := batch.Delete(revealKey(nameHash, op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete reveal: %w", err)
		}
		if err := batch.Delete(reverseKey(op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete reverse index: %w", err)
		}
		v.forgetReverse(op.Outpoint)
	case OpAddReverse:
		if err := batch.Put(reverseKey(op.Outpoint), nameHash[:]); err != nil {
			return fmt.Errorf("auction: put reverse index: %w", err)
		}
		v.cacheReverse(op.Outpoint, nameHash)
	case OpRemoveReverse:
		if err := batch.Delete(reverseKey(op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete reverse index: %w", err)
		}
		v.forgetReverse(op.Outpoint)
	case OpSetOwner, OpSetNull, OpResetEpoch:
		// Pure in-memory field changes, persisted by the trailing OpSave.
	case OpCommit:
		tb.Commit(nameHash, op.Data)
	case OpUncommit:
		tb.Uncommit(nameHash)
	case OpAddUndo:
		if err := batch.Put(undoKey(op.Outpoint), op.Data); err != nil {
			return fmt.Errorf("auction: put undo: %w", err)
		}
	case OpRemoveUndo:
		if err := batch.Delete(undoKey(op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete undo: %w", err)
		}
	case OpAddRenewal:
		val := make([]byte, 4)
		binary.LittleEndian.PutUint32(val, uint32(op.Value))
		if err := batch.Put(renewalUndoKey(op.Outpoint), val); err != nil {
			return fmt.Errorf("auction: put renewal undo: %w", err)
		}
	case OpRemoveRenewal:
		if err := batch.Delete(renewalUndoKey(op.Outpoint)); err != nil {
			return fmt.Errorf("auction: delete renewal undo: %w", err)
		}
	case OpSave:
		data, err := a.snapshot()
		if err != nil {
			return err
		}
		if err := batch.Put(auctionKey(nameHash), data); err != nil {
			return fmt.Errorf("auction: put auction record: %w", err)
		}
	case OpRemove:
		if err := batch.Delete(auctionKey(nameHash)); err != nil {
			return fmt.Errorf("auction: delete auction record: %w", err)
		}
		delete(v.auctions, nameHash)
	default:
		return fmt.Errorf("auction: unknown op kind %d", op.Kind)
	}
	return nil
}
