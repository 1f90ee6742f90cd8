package auction

import (
	"errors"
	"testing"

	"github.com/nameforge/nameforge-chain/internal/trie"
	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

func renewalTestParams() NameParams {
	return NameParams{CoinbaseMaturity: 20, RenewalPeriod: 1000}
}

func TestValidateRenewal_UnknownReference_Rejected(t *testing.T) {
	chainView := newMockChainView()
	refHash := types.Hash{0x01}

	err := validateRenewal(chainView, refHash, 2000, renewalTestParams())
	if !errors.Is(err, ErrBadRenewal) {
		t.Errorf("expected ErrBadRenewal, got %v", err)
	}
}

func TestValidateRenewal_OffMainChain_Rejected(t *testing.T) {
	chainView := newMockChainView()
	refHash := types.Hash{0x02}
	chainView.add(refHash, 1980, false)

	err := validateRenewal(chainView, refHash, 2000, renewalTestParams())
	if !errors.Is(err, ErrBadRenewal) {
		t.Errorf("expected ErrBadRenewal, got %v", err)
	}
}

// TestValidateRenewal_MaturityBoundary pins down spec scenario 3: a
// reference exactly COINBASE_MATURITY blocks old succeeds, one block
// short of maturity fails.
func TestValidateRenewal_MaturityBoundary(t *testing.T) {
	params := renewalTestParams()
	height := uint64(2000)

	t.Run("exactly_mature_succeeds", func(t *testing.T) {
		chainView := newMockChainView()
		refHash := types.Hash{0x10}
		refHeight := height - params.CoinbaseMaturity
		chainView.add(refHash, refHeight, true)

		if err := validateRenewal(chainView, refHash, height, params); err != nil {
			t.Errorf("expected success at exactly height-COINBASE_MATURITY, got %v", err)
		}
	})

	t.Run("one_short_of_mature_rejected", func(t *testing.T) {
		chainView := newMockChainView()
		refHash := types.Hash{0x11}
		refHeight := height - params.CoinbaseMaturity + 1
		chainView.add(refHash, refHeight, true)

		err := validateRenewal(chainView, refHash, height, params)
		if !errors.Is(err, ErrBadRenewal) {
			t.Errorf("expected ErrBadRenewal at height-COINBASE_MATURITY+1, got %v", err)
		}
	})
}

// TestValidateRenewal_PeriodBoundary checks the other edge of the
// renewal reference window: exactly RENEWAL_PERIOD old succeeds, one
// block past the window fails as stale.
func TestValidateRenewal_PeriodBoundary(t *testing.T) {
	params := renewalTestParams()
	height := uint64(2000)

	t.Run("exactly_at_period_succeeds", func(t *testing.T) {
		chainView := newMockChainView()
		refHash := types.Hash{0x20}
		refHeight := height - params.RenewalPeriod
		chainView.add(refHash, refHeight, true)

		if err := validateRenewal(chainView, refHash, height, params); err != nil {
			t.Errorf("expected success at exactly height-RENEWAL_PERIOD, got %v", err)
		}
	})

	t.Run("one_past_period_rejected", func(t *testing.T) {
		chainView := newMockChainView()
		refHash := types.Hash{0x21}
		refHeight := height - params.RenewalPeriod - 1
		chainView.add(refHash, refHeight, true)

		err := validateRenewal(chainView, refHash, height, params)
		if !errors.Is(err, ErrBadRenewal) {
			t.Errorf("expected ErrBadRenewal one block past RENEWAL_PERIOD, got %v", err)
		}
	})
}

// TestConnect_UpdateWithRenewal_AdvancesRenewalHeight exercises the
// UPDATE-spent-by-UPDATE-with-renewal-item path end to end: the renewal
// reference must validate against ChainView, the auction's Renewal field
// advances to the spending height, and a renewal-undo record is staged
// under the prior owning outpoint for a later disconnect to restore.
func TestConnect_UpdateWithRenewal_AdvancesRenewalHeight(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("renewing")

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()
	root1, err := env.connect(bidTx, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid: %v", err)
	}
	bidOp := types.Outpoint{TxID: bidTx.Hash(), Index: 0}
	env.coins.put(bidOp, 100, *bidTx.Outputs[0].Covenant)

	revealTx := spendTx(bidOp, revealOutput(90, nil))
	root2, err := env.connect(revealTx, 5, root1, params)
	if err != nil {
		t.Fatalf("connect reveal: %v", err)
	}
	revealOp := types.Outpoint{TxID: revealTx.Hash(), Index: 0}
	env.coins.put(revealOp, 90, *revealTx.Outputs[0].Covenant)

	updateTx := spendTx(revealOp, updateOutput([]byte("v1")))
	root3, err := env.connect(updateTx, 25, root2, params)
	if err != nil {
		t.Fatalf("connect update: %v", err)
	}
	updateOp := types.Outpoint{TxID: updateTx.Hash(), Index: 0}
	env.coins.put(updateOp, 0, *updateTx.Outputs[0].Covenant)

	renewHeight := uint64(2000)
	refHash := types.Hash{0x30}
	env.chain.add(refHash, renewHeight-params.CoinbaseMaturity, true)

	renewTx := spendTx(updateOp, renewalUpdateOutput([]byte("v2"), refHash))
	if _, err := env.connect(renewTx, renewHeight, root3, params); err != nil {
		t.Fatalf("connect renewing update: %v", err)
	}

	a, found, err := env.store.getAuction(a0Hash(name))
	if err != nil {
		t.Fatalf("load auction: %v", err)
	}
	if !found {
		t.Fatal("auction record missing after renewing UPDATE")
	}
	if a.Renewal != renewHeight {
		t.Errorf("renewal height = %d, want %d", a.Renewal, renewHeight)
	}
	if string(a.Record) != "v2" {
		t.Errorf("record = %q, want v2", a.Record)
	}

	renewalUndo, rfound, err := env.store.getRenewalUndo(updateOp)
	if err != nil {
		t.Fatalf("getRenewalUndo: %v", err)
	}
	if !rfound {
		t.Fatal("expected a renewal undo record staged under the spent UPDATE outpoint")
	}
	if uint64(renewalUndo) != 25 {
		t.Errorf("renewal undo = %d, want 25 (the auction's renewal height before this UPDATE)", renewalUndo)
	}
}

// TestConnect_UpdateWithRenewal_StaleReference_Rejected checks that an
// UPDATE carrying a renewal reference outside the validation window
// leaves the whole covenant transition rejected rather than partially
// applied.
func TestConnect_UpdateWithRenewal_StaleReference_Rejected(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("stale-renewal")

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()
	root1, err := env.connect(bidTx, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid: %v", err)
	}
	bidOp := types.Outpoint{TxID: bidTx.Hash(), Index: 0}
	env.coins.put(bidOp, 100, *bidTx.Outputs[0].Covenant)

	revealTx := spendTx(bidOp, revealOutput(90, nil))
	root2, err := env.connect(revealTx, 5, root1, params)
	if err != nil {
		t.Fatalf("connect reveal: %v", err)
	}
	revealOp := types.Outpoint{TxID: revealTx.Hash(), Index: 0}
	env.coins.put(revealOp, 90, *revealTx.Outputs[0].Covenant)

	updateTx := spendTx(revealOp, updateOutput([]byte("v1")))
	root3, err := env.connect(updateTx, 25, root2, params)
	if err != nil {
		t.Fatalf("connect update: %v", err)
	}
	updateOp := types.Outpoint{TxID: updateTx.Hash(), Index: 0}
	env.coins.put(updateOp, 0, *updateTx.Outputs[0].Covenant)

	// refHash is never recorded in the ChainView, so lookups fail.
	unknownRef := types.Hash{0x99}
	renewTx := spendTx(updateOp, renewalUpdateOutput([]byte("v2"), unknownRef))
	if _, err := env.connect(renewTx, 2000, root3, params); !errors.Is(err, ErrBadRenewal) {
		t.Errorf("expected ErrBadRenewal, got %v", err)
	}
}

func renewalUpdateOutput(record []byte, refHash types.Hash) tx.Output {
	return tx.Output{Value: 0, Covenant: &types.Covenant{
		Type:  types.CovenantUpdate,
		Items: [][]byte{record, refHash[:]},
	}}
}
