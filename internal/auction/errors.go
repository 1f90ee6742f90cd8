package auction

import "errors"

// Consensus failures (§7): any illegal covenant transition, phase
// mismatch, failed renewal precondition, or trie-root disagreement.
// ConnectCovenants/DisconnectCovenants wrap one of these with
// fmt.Errorf("%w: ...", ...) at the point of failure; the chain processor
// rejects the block and never retries.
var (
	ErrIllegalTransition = errors.New("illegal covenant transition")
	ErrWrongPhase        = errors.New("auction not in required phase")
	ErrNotWinner         = errors.New("prevout is not the auction winner")
	ErrNotOwner          = errors.New("prevout is not the auction owner")
	ErrRolloutNotStarted = errors.New("name not yet available for rollout")
	ErrBadRenewal        = errors.New("renewal reference invalid")
	ErrTrieRootMismatch  = errors.New("name trie root does not match header")
)

// Internal faults (§7): invariant violations or I/O failures. These are
// never tested with errors.Is by a validator; they propagate to the
// caller of ProcessBlock as a generic failure, the same way reorg.go's
// undo-record errors propagate today.
var (
	ErrUndoRecordMissing    = errors.New("undo record missing")
	ErrDanglingReverseIndex = errors.New("reverse index points at nonexistent auction")
)
