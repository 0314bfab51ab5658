package domain

// Heuristic flag names. The set is closed: evaluators emit only these.
const (
	FlagFreshWallet       = "FRESH_WALLET"
	FlagLargeBet          = "LARGE_BET"
	FlagLargeBetOffPeak   = "LARGE_BET_OFF_PEAK"
	FlagPrecisionHistory  = "PRECISION_HISTORY"
	FlagMarketSensitivity = "MARKET_SENSITIVITY"
	FlagClusterActivity   = "CLUSTER_ACTIVITY"
)

// HeuristicFlag is one triggered heuristic with its weight and the
// human-readable reason it fired. Ephemeral: produced per evaluation,
// consumed by the aggregator.
type HeuristicFlag struct {
	Name      string
	Weight    float64
	Rationale string
}
