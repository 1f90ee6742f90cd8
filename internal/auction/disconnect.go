package auction

import (
	"fmt"

	"github.com/nameforge/nameforge-chain/pkg/crypto"
	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// DisconnectCovenants inverts every covenant transition ConnectCovenants
// applied for transaction (§4.6). Outputs are processed before inputs,
// and each list in reverse index order, so nested epoch resets and
// ownership chains unwind in the exact reverse of the order they were
// built.
func DisconnectCovenants(transaction *tx.Transaction, height uint64, view *View, coins CoinView) error {
	txHash := transaction.Hash()

	for i := len(transaction.Outputs) - 1; i >= 0; i-- {
		if err := disconnectOutput(i, txHash, &transaction.Outputs[i], view); err != nil {
			return err
		}
	}

	for i := len(transaction.Inputs) - 1; i >= 0; i-- {
		var output *tx.Output
		if i < len(transaction.Outputs) {
			output = &transaction.Outputs[i]
		}
		if err := disconnectInput(i, txHash, &transaction.Inputs[i], output, view, coins); err != nil {
			return err
		}
	}

	return nil
}

func disconnectOutput(i int, txHash types.Hash, output *tx.Output, view *View) error {
	if output.Covenant == nil || output.Covenant.Type != types.CovenantBid {
		return nil
	}
	name := output.Covenant.Name()
	if len(name) == 0 {
		return fmt.Errorf("disconnect: %w: BID output missing a name", ErrIllegalTransition)
	}

	nameHash := crypto.NameHash(name)
	a, err := view.GetAuction(nameHash)
	if err != nil {
		return fmt.Errorf("disconnect: load auction %x: %w", nameHash, err)
	}
	if a == nil {
		return fmt.Errorf("%w: auction %x missing on disconnect", ErrDanglingReverseIndex, nameHash)
	}

	outpoint := types.Outpoint{TxID: txHash, Index: uint32(i)}
	a.removeBid(outpoint)

	if a.Bids == 0 {
		synthetic := types.SyntheticOutpoint(txHash, uint32(i))
		snap, found, gerr := view.store.getUndo(synthetic)
		if gerr != nil {
			return fmt.Errorf("disconnect: load undo %s: %w", synthetic, gerr)
		}
		if found {
			if rerr := a.restoreFrom(snap); rerr != nil {
				return fmt.Errorf("disconnect: restore %s: %w", synthetic, rerr)
			}
			a.removeUndo(synthetic)
			if a.Owner != nil {
				a.addReverseIndex(*a.Owner)
			}
			if len(a.Record) > 0 {
				a.commit(a.Record)
			}
		} else {
			a.remove()
			return nil
		}
	}

	a.save()
	return nil
}

func disconnectInput(i int, txHash types.Hash, in *tx.Input, output *tx.Output, view *View, coins CoinView) error {
	prevOutpoint := in.PrevOut
	prevValue, priorCovenant, ok := coins.GetOutput(prevOutpoint)
	if !ok {
		priorCovenant = types.Covenant{Type: types.CovenantNone}
	}
	if priorCovenant.Type == types.CovenantNone {
		return nil
	}

	snap, found, err := view.store.getUndo(prevOutpoint)
	if err != nil {
		return fmt.Errorf("disconnect: load undo %s: %w", prevOutpoint, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUndoRecordMissing, prevOutpoint)
	}
	nameHash, err := peekNameHash(snap)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	a, err := view.GetAuction(nameHash)
	if err != nil {
		return fmt.Errorf("disconnect: load auction %x: %w", nameHash, err)
	}
	if a == nil {
		return fmt.Errorf("%w: auction %x", ErrDanglingReverseIndex, nameHash)
	}

	outpoint := types.Outpoint{TxID: txHash, Index: uint32(i)}
	var outputCovenant types.Covenant
	if output != nil && output.Covenant != nil {
		outputCovenant = *output.Covenant
	}

	if rerr := a.restoreFrom(snap); rerr != nil {
		return fmt.Errorf("disconnect: restore %s: %w", prevOutpoint, rerr)
	}
	a.removeUndo(prevOutpoint)

	switch priorCovenant.Type {
	case types.CovenantBid:
		if outputCovenant.Type != types.CovenantReveal {
			return fmt.Errorf("disconnect: %w: expected REVEAL output", ErrIllegalTransition)
		}
		a.recordBid(prevOutpoint)
		a.removeReveal(outpoint)

	case types.CovenantReveal:
		switch outputCovenant.Type {
		case types.CovenantRedeem:
			a.addReveal(prevOutpoint, prevValue)
		case types.CovenantUpdate:
			a.addReveal(prevOutpoint, prevValue)
			a.removeReverseIndex(outpoint)
			a.uncommit()
		case types.CovenantTransfer:
			a.addReveal(prevOutpoint, prevValue)
			a.removeReverseIndex(outpoint)
		case types.CovenantRelease:
			a.addReveal(prevOutpoint, prevValue)
		default:
			return fmt.Errorf("disconnect: %w: unexpected REVEAL successor %s", ErrIllegalTransition, outputCovenant.Type)
		}

	case types.CovenantUpdate:
		switch outputCovenant.Type {
		case types.CovenantUpdate:
			if _, has := outputCovenant.RenewalBlockHash(); has {
				priorRenewal, rfound, rerr := view.store.getRenewalUndo(prevOutpoint)
				if rerr != nil {
					return fmt.Errorf("disconnect: load renewal undo %s: %w", prevOutpoint, rerr)
				}
				if rfound {
					a.Renewal = uint64(priorRenewal)
					a.removeRenewal(prevOutpoint)
				}
			}
			a.removeReverseIndex(outpoint)
			a.addReverseIndex(prevOutpoint)
			if len(a.Record) > 0 {
				a.commit(a.Record)
			} else {
				a.uncommit()
			}
		case types.CovenantTransfer:
			// No-op at connect; nothing to invert.
		case types.CovenantRelease:
			a.addReverseIndex(prevOutpoint)
			if len(a.Record) > 0 {
				a.commit(a.Record)
			}
		default:
			return fmt.Errorf("disconnect: %w: unexpected UPDATE successor %s", ErrIllegalTransition, outputCovenant.Type)
		}

	case types.CovenantTransfer:
		switch outputCovenant.Type {
		case types.CovenantUpdate:
			a.removeReverseIndex(outpoint)
			a.addReverseIndex(prevOutpoint)
			if len(a.Record) > 0 {
				a.commit(a.Record)
			} else {
				a.uncommit()
			}
		case types.CovenantRelease:
			a.addReverseIndex(prevOutpoint)
			if len(a.Record) > 0 {
				a.commit(a.Record)
			}
		default:
			return fmt.Errorf("disconnect: %w: unexpected TRANSFER successor %s", ErrIllegalTransition, outputCovenant.Type)
		}

	default:
		return fmt.Errorf("disconnect: %w: unexpected prior covenant %s", ErrIllegalTransition, priorCovenant.Type)
	}

	a.save()
	return nil
}
