package types

import (
	"encoding/hex"
	"encoding/json"
)

// CovenantType identifies the state transition a name-auction output commits to.
type CovenantType uint8

const (
	CovenantNone     CovenantType = 0x00 // Not a name output.
	CovenantBid      CovenantType = 0x01 // Places a sealed bid on a name.
	CovenantReveal   CovenantType = 0x02 // Opens a prior sealed bid.
	CovenantRedeem   CovenantType = 0x03 // Reclaims a losing bid's deposit.
	CovenantUpdate   CovenantType = 0x04 // Commits record data for an owned name.
	CovenantTransfer CovenantType = 0x05 // Transfers ownership of a name.
	CovenantRelease  CovenantType = 0x06 // Returns a name to the pool.
)

// String returns a human-readable name for the covenant type.
func (ct CovenantType) String() string {
	switch ct {
	case CovenantNone:
		return "NONE"
	case CovenantBid:
		return "BID"
	case CovenantReveal:
		return "REVEAL"
	case CovenantRedeem:
		return "REDEEM"
	case CovenantUpdate:
		return "UPDATE"
	case CovenantTransfer:
		return "TRANSFER"
	case CovenantRelease:
		return "RELEASE"
	default:
		return "UNKNOWN"
	}
}

// Covenant annotates a transaction output with a name-auction state
// transition. Items carries covenant-specific payloads:
//
//	BID:      [name]
//	REVEAL:   [nonce]               (the bid value itself comes from the coin)
//	UPDATE:   [record_data] or [record_data, renewal_block_hash]
//	REDEEM, TRANSFER, RELEASE: no items required
type Covenant struct {
	Type  CovenantType `json:"type"`
	Items [][]byte     `json:"items"`
}

// covenantJSON is the JSON representation of a Covenant with hex-encoded items.
type covenantJSON struct {
	Type  CovenantType `json:"type"`
	Items []string     `json:"items"`
}

// MarshalJSON encodes the covenant with hex-encoded items.
func (c Covenant) MarshalJSON() ([]byte, error) {
	j := covenantJSON{Type: c.Type, Items: make([]string, len(c.Items))}
	for i, item := range c.Items {
		j.Items[i] = hex.EncodeToString(item)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a covenant with hex-encoded items.
func (c *Covenant) UnmarshalJSON(data []byte) error {
	var j covenantJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.Type = j.Type
	if j.Items == nil {
		c.Items = nil
		return nil
	}
	c.Items = make([][]byte, len(j.Items))
	for i, s := range j.Items {
		b, err := hex.DecodeString(s)
		if err != nil {
			return err
		}
		c.Items[i] = b
	}
	return nil
}

// Name returns the BID covenant's name payload, or nil if not a BID
// or the item is missing.
func (c Covenant) Name() []byte {
	if c.Type != CovenantBid || len(c.Items) < 1 {
		return nil
	}
	return c.Items[0]
}

// RecordData returns the UPDATE covenant's committed record data, or nil
// if not an UPDATE or the item is missing.
func (c Covenant) RecordData() []byte {
	if c.Type != CovenantUpdate || len(c.Items) < 1 {
		return nil
	}
	return c.Items[0]
}

// RenewalBlockHash returns the UPDATE covenant's optional renewal reference,
// and true if present.
func (c Covenant) RenewalBlockHash() (Hash, bool) {
	if c.Type != CovenantUpdate || len(c.Items) < 2 {
		return Hash{}, false
	}
	var h Hash
	if len(c.Items[1]) != HashSize {
		return Hash{}, false
	}
	copy(h[:], c.Items[1])
	return h, true
}
