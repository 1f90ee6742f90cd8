package auction

import "github.com/nameforge/nameforge-chain/config"

// Phase is an auction's position in its bidding/reveal/closed lifecycle.
type Phase int

const (
	PhaseBidding Phase = iota
	PhaseReveal
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseBidding:
		return "BIDDING"
	case PhaseReveal:
		return "REVEAL"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// NameParams carries the chain-wide constants the auction engine consults
// (§6), resolved once from config.ConsensusRules for the network in use.
type NameParams struct {
	RolloutInterval  uint64
	RenewalPeriod    uint64
	RenewalWindow    uint64
	BiddingPeriod    uint64
	RevealPeriod     uint64
	CoinbaseMaturity uint64

	// MainNetwork gates the rollout schedule (§4.5 Phase B step 2):
	// testnets and regtest skip it so names are biddable immediately.
	MainNetwork bool
}

// ParamsFromConsensus builds NameParams from a loaded consensus config.
func ParamsFromConsensus(rules config.ConsensusRules, mainNetwork bool) NameParams {
	return NameParams{
		RolloutInterval:  rules.Name.RolloutInterval,
		RenewalPeriod:    rules.Name.RenewalPeriod,
		RenewalWindow:    rules.Name.RenewalWindow,
		BiddingPeriod:    rules.Name.BiddingPeriod,
		RevealPeriod:     rules.Name.RevealPeriod,
		CoinbaseMaturity: config.CoinbaseMaturity,
		MainNetwork:      mainNetwork,
	}
}
