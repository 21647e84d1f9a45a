package domain

// Corroboration describes how closely independent sources agree on an
// asset's creation time.
type Corroboration string

const (
	CorroborationVeryClose     Corroboration = "very_close"
	CorroborationClose         Corroboration = "close"
	CorroborationSameDay       Corroboration = "same_day"
	CorroborationDifferentDays Corroboration = "different_days"
	CorroborationOnchainOnly   Corroboration = "onchain_only"
	CorroborationDexOnly       Corroboration = "dex_only"
	CorroborationNone          Corroboration = "none"
)

// String returns the string representation of Corroboration.
func (c Corroboration) String() string {
	return string(c)
}

// SourceObservation records the outcome of querying one upstream source
// during a single enrichment. Ephemeral; held only for that enrichment.
type SourceObservation struct {
	SourceName      string
	FirstActivityMs *int64   // normalized to milliseconds, nil if source had none
	LiquidityUsd    *float64 // nil if source does not report liquidity
	VolumeUsd       *float64 // nil if source does not report volume
	OK              bool
	Error           string // empty when OK
	LatencyMs       int64
}

// EnrichedRecord is the final product of one successful enrichment.
// Immutable; handed to the output sink then discarded by the core.
type EnrichedRecord struct {
	AssetID        string
	FirstSeenMs    *int64 // earliest first-activity across sources, nil if none found
	Observations   []SourceObservation
	FreshnessScore int // 0..100
	Corroboration  Corroboration
	AgePenalty     bool
	LiquidityUsd   float64
	VolumeUsd      float64

	// Token metadata resolved from the on-chain metadata account,
	// best-effort only.
	Name   string
	Symbol string
}
