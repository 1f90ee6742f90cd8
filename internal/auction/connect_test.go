package auction

import (
	"errors"
	"testing"

	"github.com/nameforge/nameforge-chain/internal/trie"
	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

func bidOutput(name []byte, value uint64) tx.Output {
	return tx.Output{Value: value, Covenant: &types.Covenant{Type: types.CovenantBid, Items: [][]byte{name}}}
}

func revealOutput(value uint64, nonce []byte) tx.Output {
	return tx.Output{Value: value, Covenant: &types.Covenant{Type: types.CovenantReveal, Items: [][]byte{nonce}}}
}

func updateOutput(record []byte) tx.Output {
	return tx.Output{Value: 0, Covenant: &types.Covenant{Type: types.CovenantUpdate, Items: [][]byte{record}}}
}

func transferOutput() tx.Output {
	return tx.Output{Covenant: &types.Covenant{Type: types.CovenantTransfer}}
}

func releaseOutput() tx.Output {
	return tx.Output{Covenant: &types.Covenant{Type: types.CovenantRelease}}
}

func spendTx(prevOut types.Outpoint, out tx.Output) *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: prevOut}},
		Outputs: []tx.Output{out},
	}
}

// TestFullAuctionLifecycle walks BID -> REVEAL -> UPDATE through the name
// trie, checking that only the UPDATE step changes the trie root even
// though all three steps mutate auction state.
func TestFullAuctionLifecycle(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("example")

	root0 := trie.EmptyRoot()

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 2000)}}
	root1, err := env.connect(bidTx, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid: %v", err)
	}
	if root1 != root0 {
		t.Error("BID must not touch the name trie")
	}
	bidOp := types.Outpoint{TxID: bidTx.Hash(), Index: 0}
	env.coins.put(bidOp, 2000, *bidTx.Outputs[0].Covenant)

	revealTx := spendTx(bidOp, revealOutput(1500, []byte("nonce")))
	root2, err := env.connect(revealTx, 12, root1, params)
	if err != nil {
		t.Fatalf("connect reveal: %v", err)
	}
	if root2 != root1 {
		t.Error("REVEAL must not touch the name trie")
	}
	revealOp := types.Outpoint{TxID: revealTx.Hash(), Index: 0}
	env.coins.put(revealOp, 1500, *revealTx.Outputs[0].Covenant)

	updateTx := spendTx(revealOp, updateOutput([]byte("record-v1")))
	root3, err := env.connect(updateTx, 25, root2, params)
	if err != nil {
		t.Fatalf("connect update: %v", err)
	}
	if root3 == root2 {
		t.Error("UPDATE must commit a record into the name trie")
	}
	updateOp := types.Outpoint{TxID: updateTx.Hash(), Index: 0}
	env.coins.put(updateOp, 0, *updateTx.Outputs[0].Covenant)

	a, found, err := env.store.getAuction(a0Hash(name))
	if err != nil {
		t.Fatalf("load auction: %v", err)
	}
	if !found {
		t.Fatal("auction record missing after UPDATE")
	}
	if a.Owner == nil || *a.Owner != updateOp {
		t.Errorf("owner = %+v, want %s", a.Owner, updateOp)
	}
	if string(a.Record) != "record-v1" {
		t.Errorf("record = %q, want record-v1", a.Record)
	}

	// Disconnect in reverse order; the trie root must retrace exactly.
	back2, err := env.disconnect(updateTx, 25, root3)
	if err != nil {
		t.Fatalf("disconnect update: %v", err)
	}
	if back2 != root2 {
		t.Errorf("disconnect update root = %x, want %x", back2, root2)
	}

	back1, err := env.disconnect(revealTx, 12, back2)
	if err != nil {
		t.Fatalf("disconnect reveal: %v", err)
	}
	if back1 != root1 {
		t.Errorf("disconnect reveal root = %x, want %x", back1, root1)
	}

	back0, err := env.disconnect(bidTx, 0, back1)
	if err != nil {
		t.Fatalf("disconnect bid: %v", err)
	}
	if back0 != root0 {
		t.Errorf("disconnect bid root = %x, want %x", back0, root0)
	}
}

func a0Hash(name []byte) types.Hash {
	return newAuction(name, 0).NameHash
}

func TestConnect_RevealAfterRevealPhase_Rejected(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("late")

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()
	root1, err := env.connect(bidTx, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid: %v", err)
	}
	bidOp := types.Outpoint{TxID: bidTx.Hash(), Index: 0}
	env.coins.put(bidOp, 100, *bidTx.Outputs[0].Covenant)

	revealTx := spendTx(bidOp, revealOutput(90, nil))
	// Reveal phase ends at height 20 (bidding 10 + reveal 10).
	if _, err := env.connect(revealTx, 25, root1, params); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("expected ErrWrongPhase, got %v", err)
	}
}

func TestConnect_RedeemOnWinningBid_Rejected(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("winner-redeem")

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

	redeemTx := &tx.Transaction{
		Inputs:  []tx.Input{{PrevOut: revealOp}},
		Outputs: []tx.Output{{Covenant: &types.Covenant{Type: types.CovenantRedeem}}},
	}
	if _, err := env.connect(redeemTx, 25, root2, params); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestConnect_RedeemOnLosingBid_Allowed(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("two-bidders")

	bid1 := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()
	root1, err := env.connect(bid1, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid1: %v", err)
	}
	bid1Op := types.Outpoint{TxID: bid1.Hash(), Index: 0}
	env.coins.put(bid1Op, 100, *bid1.Outputs[0].Covenant)

	bid2 := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 200)}}
	root2, err := env.connect(bid2, 1, root1, params)
	if err != nil {
		t.Fatalf("connect bid2: %v", err)
	}
	bid2Op := types.Outpoint{TxID: bid2.Hash(), Index: 0}
	env.coins.put(bid2Op, 200, *bid2.Outputs[0].Covenant)

	reveal1 := spendTx(bid1Op, revealOutput(50, nil)) // loses
	root3, err := env.connect(reveal1, 5, root2, params)
	if err != nil {
		t.Fatalf("connect reveal1: %v", err)
	}
	reveal1Op := types.Outpoint{TxID: reveal1.Hash(), Index: 0}
	env.coins.put(reveal1Op, 50, *reveal1.Outputs[0].Covenant)

	reveal2 := spendTx(bid2Op, revealOutput(150, nil)) // wins
	root4, err := env.connect(reveal2, 6, root3, params)
	if err != nil {
		t.Fatalf("connect reveal2: %v", err)
	}
	reveal2Op := types.Outpoint{TxID: reveal2.Hash(), Index: 0}
	env.coins.put(reveal2Op, 150, *reveal2.Outputs[0].Covenant)

	redeemTx := &tx.Transaction{
		Inputs:  []tx.Input{{PrevOut: reveal1Op}},
		Outputs: []tx.Output{{Covenant: &types.Covenant{Type: types.CovenantRedeem}}},
	}
	if _, err := env.connect(redeemTx, 25, root4, params); err != nil {
		t.Errorf("losing REDEEM should succeed, got %v", err)
	}
}

func TestConnect_UpdateByNonWinner_Rejected(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("not-winner")

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()
	root1, err := env.connect(bidTx, 0, root0, params)
	if err != nil {
		t.Fatalf("connect bid: %v", err)
	}
	bidOp := types.Outpoint{TxID: bidTx.Hash(), Index: 0}
	env.coins.put(bidOp, 100, *bidTx.Outputs[0].Covenant)

	bid2 := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 500)}}
	root2, err := env.connect(bid2, 1, root1, params)
	if err != nil {
		t.Fatalf("connect bid2: %v", err)
	}
	bid2Op := types.Outpoint{TxID: bid2.Hash(), Index: 0}
	env.coins.put(bid2Op, 500, *bid2.Outputs[0].Covenant)

	reveal1 := spendTx(bidOp, revealOutput(50, nil))
	root3, err := env.connect(reveal1, 5, root2, params)
	if err != nil {
		t.Fatalf("connect reveal1: %v", err)
	}
	reveal1Op := types.Outpoint{TxID: reveal1.Hash(), Index: 0}
	env.coins.put(reveal1Op, 50, *reveal1.Outputs[0].Covenant)

	reveal2 := spendTx(bid2Op, revealOutput(400, nil))
	root4, err := env.connect(reveal2, 6, root3, params)
	if err != nil {
		t.Fatalf("connect reveal2: %v", err)
	}
	_ = root4

	badUpdate := spendTx(reveal1Op, updateOutput([]byte("x")))
	if _, err := env.connect(badUpdate, 25, root4, params); !errors.Is(err, ErrNotWinner) {
		t.Errorf("expected ErrNotWinner, got %v", err)
	}
}

func TestConnect_BidRolloutGating(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	params.MainNetwork = true
	params.RolloutInterval = 1000

	name := []byte("gated-name")
	nameHash := newAuction(name, 0).NameHash
	start := uint64(nameHash[0]%52) * params.RolloutInterval

	bidTx := &tx.Transaction{Outputs: []tx.Output{bidOutput(name, 100)}}
	root0 := trie.EmptyRoot()

	if start > 0 {
		if _, err := env.connect(bidTx, start-1, root0, params); !errors.Is(err, ErrRolloutNotStarted) {
			t.Errorf("expected ErrRolloutNotStarted before height %d, got %v", start, err)
		}
	}

	if _, err := env.connect(bidTx, start, root0, params); err != nil {
		t.Errorf("BID at rollout height %d should succeed, got %v", start, err)
	}
}

func TestConnect_TransferThenUpdate(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("transfer-me")

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

	transferTx := spendTx(revealOp, transferOutput())
	root3, err := env.connect(transferTx, 25, root2, params)
	if err != nil {
		t.Fatalf("connect transfer: %v", err)
	}
	if root3 != root2 {
		t.Error("TRANSFER does not commit a record; trie root should be unchanged")
	}
	transferOp := types.Outpoint{TxID: transferTx.Hash(), Index: 0}
	env.coins.put(transferOp, 0, *transferTx.Outputs[0].Covenant)

	updateTx := spendTx(transferOp, updateOutput([]byte("after-transfer")))
	root4, err := env.connect(updateTx, 30, root3, params)
	if err != nil {
		t.Fatalf("connect update after transfer: %v", err)
	}
	if root4 == root3 {
		t.Error("UPDATE after TRANSFER should commit a record")
	}
}

// TestConnect_UpdateToUpdateDoesNotDoubleApply pins down that an
// UPDATE spent by another UPDATE only runs the UPDATE branch: the new
// owner and record reflect exactly one mutation, not an additional
// (harmless but unintended) TRANSFER no-op layered on top.
func TestConnect_UpdateToUpdateDoesNotDoubleApply(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("update-update")

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

	update1 := spendTx(revealOp, updateOutput([]byte("v1")))
	root3, err := env.connect(update1, 25, root2, params)
	if err != nil {
		t.Fatalf("connect update1: %v", err)
	}
	update1Op := types.Outpoint{TxID: update1.Hash(), Index: 0}
	env.coins.put(update1Op, 0, *update1.Outputs[0].Covenant)

	update2 := spendTx(update1Op, updateOutput([]byte("v2")))
	if _, err := env.connect(update2, 26, root3, params); err != nil {
		t.Fatalf("connect update2: %v", err)
	}
	update2Op := types.Outpoint{TxID: update2.Hash(), Index: 0}

	a, found, err := env.store.getAuction(a0Hash(name))
	if err != nil {
		t.Fatalf("load auction: %v", err)
	}
	if !found {
		t.Fatal("auction record missing after UPDATE chain")
	}
	if a.Owner == nil || *a.Owner != update2Op {
		t.Errorf("owner = %+v, want %s (exactly one UPDATE applied)", a.Owner, update2Op)
	}
	if string(a.Record) != "v2" {
		t.Errorf("record = %q, want v2 (not v1 layered with a stray transfer)", a.Record)
	}
}

// TestConnect_UpdateToTransferIsNoop pins down that UPDATE spent by
// TRANSFER leaves ownership exactly where it was: the TRANSFER output
// does not become the owner.
func TestConnect_UpdateToTransferIsNoop(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("update-transfer")

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

	updateTx := spendTx(revealOp, updateOutput([]byte("owned")))
	root3, err := env.connect(updateTx, 25, root2, params)
	if err != nil {
		t.Fatalf("connect update: %v", err)
	}
	updateOp := types.Outpoint{TxID: updateTx.Hash(), Index: 0}
	env.coins.put(updateOp, 0, *updateTx.Outputs[0].Covenant)

	transferTx := spendTx(updateOp, transferOutput())
	if _, err := env.connect(transferTx, 26, root3, params); err != nil {
		t.Fatalf("connect update->transfer: %v", err)
	}

	a, found, err := env.store.getAuction(a0Hash(name))
	if err != nil {
		t.Fatalf("load auction: %v", err)
	}
	if !found {
		t.Fatal("auction record missing after UPDATE->TRANSFER")
	}
	if a.Owner == nil || *a.Owner != updateOp {
		t.Errorf("owner = %+v, want unchanged %s (UPDATE->TRANSFER is a no-op)", a.Owner, updateOp)
	}
}

func TestConnect_ReleaseClearsOwner(t *testing.T) {
	env := newTestEnv()
	params := testParams()
	name := []byte("release-me")

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

	releaseTx := spendTx(revealOp, releaseOutput())
	if _, err := env.connect(releaseTx, 25, root2, params); err != nil {
		t.Fatalf("connect release: %v", err)
	}

	a, found, err := env.store.getAuction(a0Hash(name))
	if err != nil {
		t.Fatalf("load auction: %v", err)
	}
	if !found {
		t.Fatal("auction removed unexpectedly")
	}
	if a.Owner != nil {
		t.Errorf("owner = %+v, want nil after RELEASE", a.Owner)
	}
}
