package auction

import (
	"encoding/json"
	"fmt"

	"github.com/nameforge/nameforge-chain/pkg/crypto"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// OpKind tags a single mutation appended to an auction's pending op log.
// saveView replays every op into a KV batch (and the name trie) in one
// linear pass, then clears the log (§9 "Op log").
type OpKind int

const (
	OpAddBid OpKind = iota
	OpRemoveBid
	OpAddReveal
	OpRemoveReveal
	OpSetOwner
	OpSetNull
	OpAddReverse
	OpRemoveReverse
	OpCommit
	OpUncommit
	OpAddUndo
	OpRemoveUndo
	OpAddRenewal
	OpRemoveRenewal
	OpResetEpoch
	OpSave
	OpRemove
)

// Op is one pending mutation. Which fields are populated depends on Kind.
type Op struct {
	Kind     OpKind
	Outpoint types.Outpoint
	Value    uint64
	Data     []byte
}

// Auction is the per-name state tracked across the bidding/reveal/closed
// lifecycle (§4.2). It serializes to a single opaque blob under the "a"
// key family; Ops is transient and excluded from that serialization.
type Auction struct {
	NameHash types.Hash      `json:"name_hash"`
	Name     []byte          `json:"name"`
	Owner    *types.Outpoint `json:"owner,omitempty"`
	Height   uint64          `json:"height"`
	Renewal  uint64          `json:"renewal"`
	Bids     uint32          `json:"bids"`

	// Record is the data most recently committed to the name trie by an
	// UPDATE covenant. It rides along in every snapshot so RELEASE undo
	// and reorg disconnects can recommit it byte for byte.
	Record []byte `json:"record,omitempty"`

	Ops []Op `json:"-"`
}

// auctionHeader reads just enough of a serialized Auction (or undo
// snapshot) to recover which name it belongs to, without paying for a
// full unmarshal of Name/Record.
type auctionHeader struct {
	NameHash types.Hash `json:"name_hash"`
}

func peekNameHash(data []byte) (types.Hash, error) {
	var h auctionHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return types.Hash{}, fmt.Errorf("auction: peek name hash: %w", err)
	}
	return h.NameHash, nil
}

// newAuction starts a fresh epoch for name at height.
func newAuction(name []byte, height uint64) *Auction {
	return &Auction{
		NameHash: crypto.NameHash(name),
		Name:     append([]byte(nil), name...),
		Height:   height,
		Renewal:  height,
	}
}

// State reports the auction's phase as a pure function of height and the
// chain's name-auction parameters (§4.2).
func (a *Auction) State(height uint64, params NameParams) Phase {
	if height < a.Height+params.BiddingPeriod {
		return PhaseBidding
	}
	if height < a.Height+params.BiddingPeriod+params.RevealPeriod {
		return PhaseReveal
	}
	return PhaseClosed
}

// snapshot serializes the auction's persistent fields — used both to
// persist the record normally (via save) and to build an undo record
// capturing state just before a mutation (§3).
func (a *Auction) snapshot() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("auction: marshal snapshot: %w", err)
	}
	return data, nil
}

// restoreFrom overwrites a's persistent fields from a serialized
// snapshot, leaving its pending Ops untouched.
func (a *Auction) restoreFrom(data []byte) error {
	var restored Auction
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("auction: unmarshal snapshot: %w", err)
	}
	a.NameHash = restored.NameHash
	a.Name = restored.Name
	a.Owner = restored.Owner
	a.Height = restored.Height
	a.Renewal = restored.Renewal
	a.Bids = restored.Bids
	a.Record = restored.Record
	return nil
}

// addBid records a new sealed bid, incrementing the bid count.
func (a *Auction) addBid(outpoint types.Outpoint) {
	a.Bids++
	a.Ops = append(a.Ops, Op{Kind: OpAddBid, Outpoint: outpoint})
}

// removeBid retires a bid (consumed by a REVEAL or a disconnect),
// decrementing the bid count.
func (a *Auction) removeBid(outpoint types.Outpoint) {
	if a.Bids > 0 {
		a.Bids--
	}
	a.Ops = append(a.Ops, Op{Kind: OpRemoveBid, Outpoint: outpoint})
}

// recordBid replays a bid's KV effects (marker + reverse index) without
// touching the bid count, used by disconnect once restoreFrom has
// already restored Bids from an undo snapshot.
func (a *Auction) recordBid(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpAddBid, Outpoint: outpoint})
}

func (a *Auction) addReveal(outpoint types.Outpoint, value uint64) {
	a.Ops = append(a.Ops, Op{Kind: OpAddReveal, Outpoint: outpoint, Value: value})
}

func (a *Auction) removeReveal(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpRemoveReveal, Outpoint: outpoint})
}

func (a *Auction) addReverseIndex(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpAddReverse, Outpoint: outpoint})
}

func (a *Auction) removeReverseIndex(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpRemoveReverse, Outpoint: outpoint})
}

// setOwner makes outpoint the auction's owner. The previous owner's
// reverse-index entry (if any) is dropped and the new one is added, so a
// later transaction spending either coin can still find this auction.
func (a *Auction) setOwner(outpoint types.Outpoint) {
	if a.Owner != nil && *a.Owner != outpoint {
		a.removeReverseIndex(*a.Owner)
	}
	owner := outpoint
	a.Owner = &owner
	a.Ops = append(a.Ops, Op{Kind: OpSetOwner, Outpoint: outpoint})
	a.addReverseIndex(outpoint)
}

// setNull clears ownership, e.g. on RELEASE or a stale-auction reset.
func (a *Auction) setNull() {
	if a.Owner != nil {
		a.removeReverseIndex(*a.Owner)
	}
	a.Owner = nil
	a.Ops = append(a.Ops, Op{Kind: OpSetNull})
}

// commit stages data for insertion into the name trie under this
// auction's name hash.
func (a *Auction) commit(data []byte) {
	a.Record = data
	a.Ops = append(a.Ops, Op{Kind: OpCommit, Data: data})
}

// uncommit removes this auction's binding from the name trie.
func (a *Auction) uncommit() {
	a.Record = nil
	a.Ops = append(a.Ops, Op{Kind: OpUncommit})
}

// addUndo records a pre-mutation snapshot under outpoint (real or
// synthetic), so a later disconnect can restore it.
func (a *Auction) addUndo(outpoint types.Outpoint, snapshot []byte) {
	a.Ops = append(a.Ops, Op{Kind: OpAddUndo, Outpoint: outpoint, Data: snapshot})
}

func (a *Auction) removeUndo(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpRemoveUndo, Outpoint: outpoint})
}

func (a *Auction) addRenewal(outpoint types.Outpoint, priorRenewal uint64) {
	a.Ops = append(a.Ops, Op{Kind: OpAddRenewal, Outpoint: outpoint, Value: priorRenewal})
}

func (a *Auction) removeRenewal(outpoint types.Outpoint) {
	a.Ops = append(a.Ops, Op{Kind: OpRemoveRenewal, Outpoint: outpoint})
}

// resetEpoch starts a fresh epoch at height, used when a stale auction
// (never renewed within RENEWAL_WINDOW) is reopened by a new BID.
func (a *Auction) resetEpoch(height uint64) {
	a.Height = height
	a.Renewal = height
	a.Bids = 0
	a.Ops = append(a.Ops, Op{Kind: OpResetEpoch, Value: height})
}

// save persists the auction's current field values as a single blob.
func (a *Auction) save() {
	a.Ops = append(a.Ops, Op{Kind: OpSave})
}

// remove deletes the auction record entirely (a fully released, never
// re-bid name with no surviving bids).
func (a *Auction) remove() {
	a.Ops = append(a.Ops, Op{Kind: OpRemove})
}
