package normalize

import (
	"github.com/mr-tron/base58"

	"solana-asset-radar/internal/domain"
)

// RejectReason explains why a candidate was dropped.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectMalformed      RejectReason = "malformed_address"
	RejectDenylisted     RejectReason = "denylisted"
	RejectUnknownKind    RejectReason = "unknown_kind"
	RejectKindNotAllowed RejectReason = "kind_not_allowed"
	RejectStaleSwap      RejectReason = "swap_without_fresh_mint"
)

// MintTracker remembers mints whose creation was observed. The
// normalizer records init and pool-creation candidates into it and
// checks it before admitting a swap, so a swap can never vouch for its
// own mint.
type MintTracker interface {
	Add(assetID string)
	Contains(assetID string) bool
}

// Normalizer validates candidate addresses and classifies event kinds.
// It is stateless apart from its rule set and the optional mint
// tracker, and safe for concurrent use.
type Normalizer struct {
	rules RuleSet

	// mints backs the swap anti-false-positive policy; nil disables
	// the check.
	mints MintTracker
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMintTracker installs the creation-observed mint store used by the
// swap admission policy.
func WithMintTracker(t MintTracker) Option {
	return func(n *Normalizer) {
		n.mints = t
	}
}

// NewNormalizer creates a Normalizer with the given rule set.
func NewNormalizer(rules RuleSet, opts ...Option) *Normalizer {
	n := &Normalizer{rules: rules}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize validates the event's asset address and resolves its kind.
// Returns nil and a reason when the candidate must be dropped. The
// operation is idempotent: normalizing an already-normalized event
// yields the same AssetID and Kind.
func (n *Normalizer) Normalize(ev *domain.CandidateEvent) (*domain.CandidateEvent, RejectReason) {
	canonical, ok := CanonicalAddress(ev.AssetID)
	if !ok {
		return nil, RejectMalformed
	}

	if n.rules.denied(canonical) {
		return nil, RejectDenylisted
	}

	// An already-resolved kind survives re-normalization; poller
	// candidates arrive pre-classified and carry no log text.
	kind := ev.Kind
	if !kind.IsValid() || kind == domain.KindUnknown {
		kind = n.rules.classify(ev.SampleLogLines, ev.InstructionTypes)
	}
	if kind == domain.KindUnknown {
		// Unresolved candidates are never enriched.
		return nil, RejectUnknownKind
	}

	if ev.TriggerProgram != "" && !n.rules.allowedKind(ev.TriggerProgram, kind) {
		return nil, RejectKindNotAllowed
	}

	if kind == domain.KindSwap && n.rules.RequireFreshMintForSwap && n.mints != nil {
		if !n.mints.Contains(canonical) {
			return nil, RejectStaleSwap
		}
	}

	// Only creation events mark a mint fresh; swaps never enter the
	// tracker.
	if n.mints != nil && (kind == domain.KindInit || kind == domain.KindPoolCreation) {
		n.mints.Add(canonical)
	}

	out := *ev
	out.AssetID = canonical
	out.Kind = kind
	return &out, RejectNone
}

// CanonicalAddress validates a loosely shaped address string and returns
// its canonical base58 form. A valid Solana address decodes to exactly
// 32 bytes.
func CanonicalAddress(addr string) (string, bool) {
	if len(addr) < 32 || len(addr) > 44 {
		return "", false
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return "", false
	}
	if len(decoded) != 32 {
		return "", false
	}
	return base58.Encode(decoded), true
}
