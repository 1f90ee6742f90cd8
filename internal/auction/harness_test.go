package auction

import (
	"github.com/nameforge/nameforge-chain/config"
	"github.com/nameforge/nameforge-chain/internal/storage"
	"github.com/nameforge/nameforge-chain/internal/trie"
	"github.com/nameforge/nameforge-chain/pkg/tx"
	"github.com/nameforge/nameforge-chain/pkg/types"
)

// mockCoinView is a map-backed CoinView for tests; it never touches a
// real UTXO set, mirroring how token's mockUTXOSet stands in for one.
type mockCoinView struct {
	outputs map[types.Outpoint]mockOutput
}

type mockOutput struct {
	value    uint64
	covenant types.Covenant
}

func newMockCoinView() *mockCoinView {
	return &mockCoinView{outputs: make(map[types.Outpoint]mockOutput)}
}

func (v *mockCoinView) put(op types.Outpoint, value uint64, cov types.Covenant) {
	v.outputs[op] = mockOutput{value: value, covenant: cov}
}

func (v *mockCoinView) GetOutput(op types.Outpoint) (uint64, types.Covenant, bool) {
	o, ok := v.outputs[op]
	if !ok {
		return 0, types.Covenant{}, false
	}
	return o.value, o.covenant, true
}

// mockChainView reports a fixed set of main-chain block entries.
type mockChainView struct {
	entries map[types.Hash]uint64
	main    map[types.Hash]bool
}

func newMockChainView() *mockChainView {
	return &mockChainView{entries: make(map[types.Hash]uint64), main: make(map[types.Hash]bool)}
}

func (v *mockChainView) add(hash types.Hash, height uint64, onMain bool) {
	v.entries[hash] = height
	v.main[hash] = onMain
}

func (v *mockChainView) GetEntry(hash types.Hash) (uint64, bool) {
	h, ok := v.entries[hash]
	return h, ok
}

func (v *mockChainView) IsMainChain(hash types.Hash) bool {
	return v.main[hash]
}

// testParams returns NameParams with small windows so tests can reach
// every phase boundary without enormous heights.
func testParams() NameParams {
	return NameParams{
		RolloutInterval:  0,
		RenewalPeriod:    1000,
		RenewalWindow:    500,
		BiddingPeriod:    10,
		RevealPeriod:     10,
		CoinbaseMaturity: config.CoinbaseMaturity,
		MainNetwork:      false,
	}
}

// testEnv bundles a fresh in-memory store, view, trie binding, and batch
// for a single connect/disconnect call.
type testEnv struct {
	db    *storage.MemoryDB
	store *Store
	coins *mockCoinView
	chain *mockChainView
}

func newTestEnv() *testEnv {
	db := storage.NewMemory()
	return &testEnv{
		db:    db,
		store: NewStore(db),
		coins: newMockCoinView(),
		chain: newMockChainView(),
	}
}

// connect runs ConnectCovenants for transaction against a fresh view
// rooted at root, commits the result, and returns the new root.
func (e *testEnv) connect(transaction *tx.Transaction, height uint64, root types.Hash, params NameParams) (types.Hash, error) {
	view := NewView(e.store)
	nameTrie := trie.New(e.db, root)
	binding := NewTrieBinding(nameTrie)

	if err := ConnectCovenants(transaction, height, view, e.coins, e.chain, params); err != nil {
		return types.Hash{}, err
	}
	return e.save(view, binding)
}

// disconnect runs DisconnectCovenants for transaction and returns the
// resulting root.
func (e *testEnv) disconnect(transaction *tx.Transaction, height uint64, root types.Hash) (types.Hash, error) {
	view := NewView(e.store)
	nameTrie := trie.New(e.db, root)
	binding := NewTrieBinding(nameTrie)

	if err := DisconnectCovenants(transaction, height, view, e.coins); err != nil {
		return types.Hash{}, err
	}
	return e.save(view, binding)
}

func (e *testEnv) save(view *View, binding *TrieBinding) (types.Hash, error) {
	batch := e.db.NewBatch()
	newRoot, err := view.SaveView(batch, binding)
	if err != nil {
		return types.Hash{}, err
	}
	if err := binding.Flush(batch); err != nil {
		return types.Hash{}, err
	}
	if err := batch.Commit(); err != nil {
		return types.Hash{}, err
	}
	return newRoot, nil
}
