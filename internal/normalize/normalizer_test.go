package normalize

import (
	"testing"

	"solana-asset-radar/internal/domain"
)

const (
	testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	testSig  = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
)

func initEvent(assetID string) *domain.CandidateEvent {
	return &domain.CandidateEvent{
		AssetID:          assetID,
		TriggerProgram:   PumpFun,
		TriggerSignature: testSig,
		ObservedAtMs:     1700000000000,
		SampleLogLines:   []string{"Program log: Instruction: InitializeMint2"},
		SourceTag:        domain.SourceLogListener,
	}
}

func TestNormalize_ValidInitCandidate(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	out, reason := n.Normalize(initEvent(testMint))
	if reason != RejectNone {
		t.Fatalf("rejected with %q", reason)
	}
	if out.AssetID != testMint {
		t.Errorf("AssetID = %q, want canonical %q", out.AssetID, testMint)
	}
	if out.Kind != domain.KindInit {
		t.Errorf("Kind = %q, want init", out.Kind)
	}
}

func TestNormalize_MalformedAddresses(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	cases := []string{
		"",
		"tooshort",
		"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl",     // invalid base58 alphabet
		"waytoolongwaytoolongwaytoolongwaytoolongwaytoolong", // > 44 chars
		"abc",
	}
	for _, addr := range cases {
		if out, reason := n.Normalize(initEvent(addr)); reason != RejectMalformed {
			t.Errorf("addr %q: reason = %q, want malformed_address (out=%v)", addr, reason, out)
		}
	}
}

func TestNormalize_DenylistAlwaysRejected(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	denied := []string{WrappedSOL, SystemProgram, SPLToken, USDCMint, USDTMint, RaydiumAMMV4, PumpFun}
	sources := []string{domain.SourceLogListener, domain.SourceAggregatorPoller}

	for _, addr := range denied {
		for _, src := range sources {
			ev := initEvent(addr)
			ev.SourceTag = src
			if _, reason := n.Normalize(ev); reason != RejectDenylisted {
				t.Errorf("addr %s from %s: reason = %q, want denylisted", addr, src, reason)
			}
		}
	}
}

func TestNormalize_UnknownKindDropped(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	ev := initEvent(testMint)
	ev.SampleLogLines = []string{"Program log: transfer 5 lamports"}
	if _, reason := n.Normalize(ev); reason != RejectUnknownKind {
		t.Errorf("reason = %q, want unknown_kind", reason)
	}
}

func TestNormalize_InstructionTypeFallback(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	ev := initEvent(testMint)
	ev.SampleLogLines = []string{"Program log: opaque"}
	ev.InstructionTypes = []string{"initializeMint2"}
	out, reason := n.Normalize(ev)
	if reason != RejectNone {
		t.Fatalf("rejected with %q", reason)
	}
	if out.Kind != domain.KindInit {
		t.Errorf("Kind = %q, want init (from instruction types)", out.Kind)
	}
}

func TestNormalize_KindNotAllowedForProgram(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	// Raydium never emits mint initialization.
	ev := initEvent(testMint)
	ev.TriggerProgram = RaydiumAMMV4
	if _, reason := n.Normalize(ev); reason != RejectKindNotAllowed {
		t.Errorf("reason = %q, want kind_not_allowed", reason)
	}
}

type mapTracker struct{ mints map[string]bool }

func newMapTracker() *mapTracker { return &mapTracker{mints: map[string]bool{}} }

func (m *mapTracker) Add(assetID string)           { m.mints[assetID] = true }
func (m *mapTracker) Contains(assetID string) bool { return m.mints[assetID] }

func swapEvent(assetID string) *domain.CandidateEvent {
	ev := initEvent(assetID)
	ev.TriggerProgram = RaydiumAMMV4
	ev.SampleLogLines = []string{"Program log: Instruction: Swap"}
	return ev
}

func TestNormalize_SwapRequiresFreshMint(t *testing.T) {
	tracker := newMapTracker()
	n := NewNormalizer(DefaultRuleSet(), WithMintTracker(tracker))

	if _, reason := n.Normalize(swapEvent(testMint)); reason != RejectStaleSwap {
		t.Errorf("reason = %q, want swap_without_fresh_mint", reason)
	}

	// Observing the mint's creation admits subsequent swaps.
	if _, reason := n.Normalize(initEvent(testMint)); reason != RejectNone {
		t.Fatalf("init rejected: %q", reason)
	}
	out, reason := n.Normalize(swapEvent(testMint))
	if reason != RejectNone {
		t.Fatalf("rejected with %q", reason)
	}
	if out.Kind != domain.KindSwap {
		t.Errorf("Kind = %q, want swap", out.Kind)
	}
}

func TestNormalize_SwapNeverMarksOwnMintFresh(t *testing.T) {
	tracker := newMapTracker()
	n := NewNormalizer(DefaultRuleSet(), WithMintTracker(tracker))

	// Repeated swaps for a mint with no observed creation must all be
	// rejected; the swap itself must not enter the tracker.
	for i := 0; i < 3; i++ {
		if _, reason := n.Normalize(swapEvent(testMint)); reason != RejectStaleSwap {
			t.Fatalf("pass %d: reason = %q, want swap_without_fresh_mint", i, reason)
		}
	}
	if tracker.Contains(testMint) {
		t.Error("swap candidate leaked into the fresh-mint tracker")
	}
}

func TestNormalize_CreationEventsRecordMint(t *testing.T) {
	tracker := newMapTracker()
	n := NewNormalizer(DefaultRuleSet(), WithMintTracker(tracker))

	if _, reason := n.Normalize(initEvent(testMint)); reason != RejectNone {
		t.Fatalf("init rejected: %q", reason)
	}
	if !tracker.Contains(testMint) {
		t.Error("init candidate should be recorded as a fresh mint")
	}
}

func TestNormalize_PoolCreationBeatsSwapMarkers(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	ev := initEvent(testMint)
	ev.TriggerProgram = RaydiumAMMV4
	ev.SampleLogLines = []string{
		"Program log: Instruction: Swap",
		"Program log: initialize2: InitializeInstruction2 init_pc_amount: 1000",
	}
	out, reason := n.Normalize(ev)
	if reason != RejectNone {
		t.Fatalf("rejected with %q", reason)
	}
	if out.Kind != domain.KindPoolCreation {
		t.Errorf("Kind = %q, want pool_creation", out.Kind)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultRuleSet())

	first, reason := n.Normalize(initEvent(testMint))
	if reason != RejectNone {
		t.Fatalf("first pass rejected: %q", reason)
	}

	second, reason := n.Normalize(first)
	if reason != RejectNone {
		t.Fatalf("second pass rejected: %q", reason)
	}
	if second.AssetID != first.AssetID {
		t.Errorf("AssetID changed on re-application: %q -> %q", first.AssetID, second.AssetID)
	}
	if second.Kind != first.Kind {
		t.Errorf("Kind changed on re-application: %q -> %q", first.Kind, second.Kind)
	}
}
