package domain

// Category classifies what a market is about.
type Category string

const (
	CategoryGeopolitics  Category = "GEOPOLITICS"
	CategoryMilitary     Category = "MILITARY"
	CategoryRegimeChange Category = "REGIME_CHANGE"
	CategoryElections    Category = "ELECTIONS"
	CategoryLegal        Category = "LEGAL"
	CategoryOther        Category = "OTHER"
)

// SensitivityTier ranks how consequential a market's real-world outcome is.
// Higher tiers weigh heuristics more strongly.
type SensitivityTier int

const (
	TierNormal   SensitivityTier = 0
	TierElevated SensitivityTier = 1
	TierHigh     SensitivityTier = 2
	TierCritical SensitivityTier = 3
)

// TierForCategory maps a market category to its sensitivity tier.
func TierForCategory(c Category) SensitivityTier {
	switch c {
	case CategoryGeopolitics, CategoryRegimeChange:
		return TierCritical
	case CategoryMilitary:
		return TierHigh
	case CategoryElections, CategoryLegal:
		return TierElevated
	default:
		return TierNormal
	}
}

// MarketContext is a read-only snapshot of per-market metadata.
// Refreshed periodically by the ingestion collaborator; the engine
// never mutates a snapshot after publication.
type MarketContext struct {
	MarketID          string
	Question          string
	Category          Category
	SensitivityTier   SensitivityTier
	LiquidityEstimate float64 // USD
	ConsensusPrice    float64 // current YES price, live reference for tight entries
	Version           int64   // snapshot version, increases on refresh
}
