package auction

import (
	"fmt"

	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// ConnectCovenants applies every covenant transition transaction carries
// (§4.5). Phase A walks inputs paired with the same-index output; Phase B
// walks every BID output. A failure anywhere invalidates the block; none
// of it becomes durable until the caller flushes view.SaveView's batch.
func ConnectCovenants(transaction *tx.Transaction, height uint64, view *View, coins CoinView, chainView ChainView, params NameParams) error {
	txHash := transaction.Hash()

	for i := range transaction.Inputs {
		var output *tx.Output
		if i < len(transaction.Outputs) {
			output = &transaction.Outputs[i]
		}
		if err := connectInput(i, txHash, &transaction.Inputs[i], output, height, view, coins, chainView, params); err != nil {
			return err
		}
	}

	for i := range transaction.Outputs {
		if err := connectOutput(i, txHash, &transaction.Outputs[i], height, view, params); err != nil {
			return err
		}
	}

	return nil
}

// winnerFor returns the auction's current winner: its owner if one has
// already been set this epoch, otherwise the highest revealed bid.
func winnerFor(view *View, a *Auction) (*types.Outpoint, error) {
	if a.Owner != nil {
		return a.Owner, nil
	}
	return view.pickWinner(a)
}

func connectInput(i int, txHash types.Hash, in *tx.Input, output *tx.Output, height uint64, view *View, coins CoinView, chainView ChainView, params NameParams) error {
	prevOutpoint := in.PrevOut
	_, priorCovenant, ok := coins.GetOutput(prevOutpoint)
	if !ok {
		priorCovenant = types.Covenant{Type: types.CovenantNone}
	}
	if priorCovenant.Type == types.CovenantNone {
		return nil
	}

	a, err := view.GetAuctionFor(prevOutpoint)
	if err != nil {
		return fmt.Errorf("connect: lookup auction for %s: %w", prevOutpoint, err)
	}
	if a == nil {
		return fmt.Errorf("%w: no auction indexed for %s", ErrDanglingReverseIndex, prevOutpoint)
	}

	snap, err := a.snapshot()
	if err != nil {
		return err
	}
	a.addUndo(prevOutpoint, snap)

	outpoint := types.Outpoint{TxID: txHash, Index: uint32(i)}
	var outputCovenant types.Covenant
	if output != nil && output.Covenant != nil {
		outputCovenant = *output.Covenant
	}
	phase := a.State(height, params)

	switch priorCovenant.Type {
	case types.CovenantBid:
		if output == nil || outputCovenant.Type != types.CovenantReveal {
			return fmt.Errorf("%w: BID must be spent by REVEAL, got %s", ErrIllegalTransition, outputCovenant.Type)
		}
		if phase > PhaseReveal {
			return fmt.Errorf("%w: REVEAL after the reveal phase ended", ErrWrongPhase)
		}
		a.removeBid(prevOutpoint)
		a.addReveal(outpoint, output.Value)

	case types.CovenantReveal:
		winner, werr := winnerFor(view, a)
		if werr != nil {
			return fmt.Errorf("connect: determine winner: %w", werr)
		}
		switch outputCovenant.Type {
		case types.CovenantRedeem:
			if phase != PhaseClosed {
				return fmt.Errorf("%w: REDEEM outside CLOSED phase", ErrWrongPhase)
			}
			if winner != nil && *winner == prevOutpoint {
				return fmt.Errorf("%w: the winning bid cannot REDEEM", ErrIllegalTransition)
			}
			a.removeReveal(prevOutpoint)
		case types.CovenantUpdate:
			if phase != PhaseClosed {
				return fmt.Errorf("%w: UPDATE outside CLOSED phase", ErrWrongPhase)
			}
			if winner == nil || *winner != prevOutpoint {
				return fmt.Errorf("%w: %s", ErrNotWinner, prevOutpoint)
			}
			a.removeReveal(prevOutpoint)
			a.setOwner(outpoint)
			a.Renewal = height
			a.commit(outputCovenant.RecordData())
		case types.CovenantTransfer:
			if phase != PhaseClosed {
				return fmt.Errorf("%w: TRANSFER outside CLOSED phase", ErrWrongPhase)
			}
			if winner == nil || *winner != prevOutpoint {
				return fmt.Errorf("%w: %s", ErrNotWinner, prevOutpoint)
			}
			a.removeReveal(prevOutpoint)
			a.setOwner(outpoint)
			a.Renewal = height
		case types.CovenantRelease:
			if phase != PhaseClosed {
				return fmt.Errorf("%w: RELEASE outside CLOSED phase", ErrWrongPhase)
			}
			if winner == nil || *winner != prevOutpoint {
				return fmt.Errorf("%w: %s", ErrNotWinner, prevOutpoint)
			}
			a.removeReveal(prevOutpoint)
			a.setNull()
		default:
			return fmt.Errorf("%w: REVEAL must be spent by REDEEM, UPDATE, TRANSFER, or RELEASE, got %s", ErrIllegalTransition, outputCovenant.Type)
		}

	case types.CovenantUpdate:
		if phase != PhaseClosed {
			return fmt.Errorf("%w: covenant spend outside CLOSED phase", ErrWrongPhase)
		}
		if a.Owner == nil || *a.Owner != prevOutpoint {
			return fmt.Errorf("%w: %s", ErrNotOwner, prevOutpoint)
		}
		switch outputCovenant.Type {
		case types.CovenantUpdate:
			a.setOwner(outpoint)
			a.commit(outputCovenant.RecordData())
			if refHash, has := outputCovenant.RenewalBlockHash(); has {
				if verr := validateRenewal(chainView, refHash, height, params); verr != nil {
					return verr
				}
				a.addRenewal(prevOutpoint, a.Renewal)
				a.Renewal = height
			}
		case types.CovenantTransfer:
			// No-op (§9): ownership stays with the spent UPDATE outpoint
			// and the TRANSFER output gets no reverse-index entry, so a
			// later spend of it finds no auction.
		case types.CovenantRelease:
			a.setNull()
			a.uncommit()
		default:
			return fmt.Errorf("%w: UPDATE must be spent by UPDATE, TRANSFER, or RELEASE, got %s", ErrIllegalTransition, outputCovenant.Type)
		}

	case types.CovenantTransfer:
		if phase != PhaseClosed {
			return fmt.Errorf("%w: covenant spend outside CLOSED phase", ErrWrongPhase)
		}
		if a.Owner == nil || *a.Owner != prevOutpoint {
			return fmt.Errorf("%w: %s", ErrNotOwner, prevOutpoint)
		}
		switch outputCovenant.Type {
		case types.CovenantUpdate:
			a.setOwner(outpoint)
			a.commit(outputCovenant.RecordData())
		case types.CovenantRelease:
			a.setNull()
			a.uncommit()
		default:
			return fmt.Errorf("%w: TRANSFER must be spent by UPDATE or RELEASE, got %s", ErrIllegalTransition, outputCovenant.Type)
		}

	default:
		return fmt.Errorf("%w: unexpected prior covenant %s", ErrIllegalTransition, priorCovenant.Type)
	}

	a.save()
	return nil
}

func connectOutput(i int, txHash types.Hash, output *tx.Output, height uint64, view *View, params NameParams) error {
	if output.Covenant == nil || output.Covenant.Type != types.CovenantBid {
		return nil
	}
	name := output.Covenant.Name()
	if len(name) == 0 {
		return fmt.Errorf("%w: BID covenant missing a name", ErrIllegalTransition)
	}
	if len(name) > types.MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", ErrIllegalTransition, types.MaxNameLength)
	}

	a, err := view.EnsureAuction(name, height)
	if err != nil {
		return fmt.Errorf("connect: ensure auction: %w", err)
	}

	if params.MainNetwork {
		start := uint64(a.NameHash[0]%52) * params.RolloutInterval
		if height < start {
			return fmt.Errorf("%w: not biddable until height %d", ErrRolloutNotStarted, start)
		}
	}

	// A freshly created auction has Renewal == height, so this never
	// fires for a name's first-ever BID; it reopens any existing auction
	// (won or not) whose Renewal height is RENEWAL_WINDOW or more blocks old.
	if height >= a.Renewal+params.RenewalWindow {
		snap, serr := a.snapshot()
		if serr != nil {
			return serr
		}
		synthetic := types.SyntheticOutpoint(txHash, uint32(i))
		a.addUndo(synthetic, snap)
		a.setNull()
		a.resetEpoch(height)
		a.uncommit()
	}

	if a.State(height, params) != PhaseBidding {
		return fmt.Errorf("%w: BID outside BIDDING phase", ErrWrongPhase)
	}

	outpoint := types.Outpoint{TxID: txHash, Index: uint32(i)}
	a.addBid(outpoint)
	a.save()
	return nil
}

// validateRenewal enforces §4.5's UPDATE renewal preconditions: the
// referenced block must exist, lie on the main chain, be mature, and be
// within RENEWAL_PERIOD of height.
func validateRenewal(chainView ChainView, refHash types.Hash, height uint64, params NameParams) error {
	refHeight, ok := chainView.GetEntry(refHash)
	if !ok {
		return fmt.Errorf("%w: referenced block not found", ErrBadRenewal)
	}
	if !chainView.IsMainChain(refHash) {
		return fmt.Errorf("%w: referenced block not on main chain", ErrBadRenewal)
	}
	if height < params.CoinbaseMaturity || refHeight > height-params.CoinbaseMaturity {
		return fmt.Errorf("%w: referenced block not mature", ErrBadRenewal)
	}
	if height < params.RenewalPeriod || refHeight < height-params.RenewalPeriod {
		return fmt.Errorf("%w: referenced block too old", ErrBadRenewal)
	}
	return nil
}
