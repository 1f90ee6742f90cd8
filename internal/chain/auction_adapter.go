package chain

import (
	"github.com/nameforge/nameforge-chain/internal/auction"
	"github.com/nameforge/nameforge-chain/internal/utxo"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// chainCoinView exposes the chain's live UTXO set as an auction.CoinView,
// the same adapter pattern token.UTXOTokenAdapter uses over utxo.Set.
type chainCoinView struct {
	set utxo.Set
}

func (v *chainCoinView) GetOutput(op types.Outpoint) (uint64, types.Covenant, bool) {
	u, err := v.set.Get(op)
	if err != nil {
		return 0, types.Covenant{}, false
	}
	if u.Covenant == nil {
		return u.Value, types.Covenant{Type: types.CovenantNone}, true
	}
	return u.Value, *u.Covenant, true
}

var _ auction.CoinView = (*chainCoinView)(nil)

// chainChainView exposes the block store's height/main-chain index as an
// auction.ChainView so UPDATE renewal references can be validated.
type chainChainView struct {
	blocks *BlockStore
}

func (v *chainChainView) GetEntry(hash types.Hash) (uint64, bool) {
	blk, err := v.blocks.GetBlock(hash)
	if err != nil {
		return 0, false
	}
	return blk.Header.Height, true
}

func (v *chainChainView) IsMainChain(hash types.Hash) bool {
	blk, err := v.blocks.GetBlock(hash)
	if err != nil {
		return false
	}
	main, err := v.blocks.GetBlockByHeight(blk.Header.Height)
	return err == nil && main.Hash() == hash
}

var _ auction.ChainView = (*chainChainView)(nil)
