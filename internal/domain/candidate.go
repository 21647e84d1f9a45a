package domain

// EventKind classifies the transaction that triggered a candidate.
type EventKind string

const (
	KindInit         EventKind = "init"
	KindPoolCreation EventKind = "pool_creation"
	KindSwap         EventKind = "swap"
	KindUnknown      EventKind = "unknown"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k EventKind) IsValid() bool {
	switch k {
	case KindInit, KindPoolCreation, KindSwap, KindUnknown:
		return true
	}
	return false
}

// Candidate source tags.
const (
	SourceLogListener      = "log_listener"
	SourceAggregatorPoller = "aggregator_poller"
)

// CandidateEvent represents a raw "possible new asset" observation from an
// ingestor. Immutable; discarded after normalization.
type CandidateEvent struct {
	AssetID          string    // candidate mint address (loosely shaped until normalized)
	TriggerProgram   string    // program ID whose logs produced the event
	TriggerSignature string    // transaction signature
	Kind             EventKind // init | pool_creation | swap | unknown
	ObservedAtMs     int64     // Unix timestamp in milliseconds
	SampleLogLines   []string  // raw log lines that matched
	InstructionTypes []string  // parsed instruction type names, when the ingestor fetched them
	SourceTag        string    // ingestor origin (log_listener, aggregator_poller)
}

// EnrichmentJob is a queued enrichment request. At most one live job per
// AssetID, enforced by the dedupe gate rather than the queue.
type EnrichmentJob struct {
	AssetID      string
	EnqueuedAtMs int64
}
