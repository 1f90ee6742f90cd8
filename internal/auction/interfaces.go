package auction

import "github.com/nameforge/nameforge-chain/pkg/types"

// CoinView supplies the prior output (value and covenant) for any
// outpoint the connect/disconnect engines are asked about. It is
// satisfied by an adapter over the chain's UTXO set, the same way
// token.UTXOTokenAdapter wraps one for token lookups.
type CoinView interface {
	GetOutput(op types.Outpoint) (value uint64, covenant types.Covenant, ok bool)
}

// ChainView answers the renewal-validation questions of §4.5 step "UPDATE
// with a renewal item": whether a hash names a known block, at what
// height, and whether that block lies on the main chain.
type ChainView interface {
	GetEntry(hash types.Hash) (height uint64, ok bool)
	IsMainChain(hash types.Hash) bool
}
