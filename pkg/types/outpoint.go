package types

import "fmt"

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// syntheticBit marks an index as belonging to a synthetic outpoint. Real
// transactions never produce 2^31 outputs, so the high bit is free to
// repurpose as a tag distinguishing undo-record keys from real outpoints.
const syntheticBit = uint32(1) << 31

// SyntheticOutpoint builds the synthetic outpoint used to key an undo
// record for output index at txHash: the same txHash with the high bit
// of the index set. It never collides with a real outpoint, since real
// indices never set that bit.
func SyntheticOutpoint(txHash Hash, index uint32) Outpoint {
	return Outpoint{TxID: txHash, Index: index | syntheticBit}
}

// IsSynthetic reports whether the outpoint's index has the synthetic bit
// set.
func (o Outpoint) IsSynthetic() bool {
	return o.Index&syntheticBit != 0
}
