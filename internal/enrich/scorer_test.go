package enrich

import (
	"testing"

	"solana-asset-radar/internal/domain"
)

func TestScore_VeryCloseWithBoosts(t *testing.T) {
	cfg := DefaultScoreConfig()
	base := int64(1_700_000_000_000)

	res := cfg.Score(ScoreInput{
		AggregatorMs: msPtr(base),
		OnchainMs:    msPtr(base + 2*60*1000), // 2 minutes apart
		LiquidityUsd: 5000,
		VolumeUsd:    500,
		AgeMinutes:   10,
	})

	if res.Score != 80 {
		t.Errorf("score = %d, want 80 (60 base + 10 + 10)", res.Score)
	}
	if res.Corroboration != domain.CorroborationVeryClose {
		t.Errorf("corroboration = %q, want very_close", res.Corroboration)
	}
	if res.AgePenalty {
		t.Error("unexpected age penalty")
	}
}

func TestScore_TimestampAgreementTiers(t *testing.T) {
	cfg := DefaultScoreConfig()
	base := int64(1_700_000_000_000)

	cases := []struct {
		name     string
		deltaMs  int64
		score    int
		corrob   domain.Corroboration
	}{
		{"within 5 minutes", 4 * 60 * 1000, 60, domain.CorroborationVeryClose},
		{"within an hour", 45 * 60 * 1000, 45, domain.CorroborationClose},
		{"within a day", 20 * 60 * 60 * 1000, 30, domain.CorroborationSameDay},
		{"beyond a day", 48 * 60 * 60 * 1000, 15, domain.CorroborationDifferentDays},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := cfg.Score(ScoreInput{
				AggregatorMs: msPtr(base),
				OnchainMs:    msPtr(base + tc.deltaMs),
				AgeMinutes:   10,
			})
			if res.Score != tc.score {
				t.Errorf("score = %d, want %d", res.Score, tc.score)
			}
			if res.Corroboration != tc.corrob {
				t.Errorf("corroboration = %q, want %q", res.Corroboration, tc.corrob)
			}
		})
	}
}

func TestScore_DeltaSymmetric(t *testing.T) {
	cfg := DefaultScoreConfig()
	base := int64(1_700_000_000_000)

	a := cfg.Score(ScoreInput{AggregatorMs: msPtr(base), OnchainMs: msPtr(base + 120000)})
	b := cfg.Score(ScoreInput{AggregatorMs: msPtr(base + 120000), OnchainMs: msPtr(base)})
	if a != b {
		t.Errorf("score not symmetric in timestamp order: %+v vs %+v", a, b)
	}
}

func TestScore_OnchainOnly(t *testing.T) {
	cfg := DefaultScoreConfig()

	res := cfg.Score(ScoreInput{
		OnchainMs:  msPtr(1_700_000_000_000),
		AgeMinutes: 10,
	})
	if res.Score != 40 {
		t.Errorf("score = %d, want 40", res.Score)
	}
	if res.Corroboration != domain.CorroborationOnchainOnly {
		t.Errorf("corroboration = %q, want onchain_only", res.Corroboration)
	}
}

func TestScore_DexOnly(t *testing.T) {
	cfg := DefaultScoreConfig()

	res := cfg.Score(ScoreInput{
		AggregatorMs: msPtr(1_700_000_000_000),
		AgeMinutes:   10,
	})
	if res.Score != 30 {
		t.Errorf("score = %d, want 30", res.Score)
	}
	if res.Corroboration != domain.CorroborationDexOnly {
		t.Errorf("corroboration = %q, want dex_only", res.Corroboration)
	}
}

func TestScore_NoTimestamps(t *testing.T) {
	cfg := DefaultScoreConfig()

	res := cfg.Score(ScoreInput{AgeMinutes: 10})
	if res.Score != 10 {
		t.Errorf("score = %d, want 10", res.Score)
	}
	if res.Corroboration != domain.CorroborationNone {
		t.Errorf("corroboration = %q, want none", res.Corroboration)
	}
}

func TestScore_AgePenaltyCaps(t *testing.T) {
	cfg := DefaultScoreConfig()
	base := int64(1_700_000_000_000)

	res := cfg.Score(ScoreInput{
		AggregatorMs: msPtr(base),
		OnchainMs:    msPtr(base + 60000),
		LiquidityUsd: 100000,
		VolumeUsd:    100000,
		AgeMinutes:   20000, // well over a week
	})
	if !res.AgePenalty {
		t.Error("expected age penalty flag")
	}
	if res.Score > 20 {
		t.Errorf("score = %d, want <= 20 under age penalty", res.Score)
	}
}

func TestScore_Pure(t *testing.T) {
	cfg := DefaultScoreConfig()
	in := ScoreInput{
		AggregatorMs: msPtr(1_700_000_000_000),
		OnchainMs:    msPtr(1_700_000_100_000),
		LiquidityUsd: 2000,
		VolumeUsd:    600,
		AgeMinutes:   5,
	}

	first := cfg.Score(in)
	for i := 0; i < 10; i++ {
		if got := cfg.Score(in); got != first {
			t.Fatalf("score not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestScore_ClampedRange(t *testing.T) {
	cfg := ScoreConfig{LiquidityThresholdUsd: 0, VolumeThresholdUsd: 0, MaxAgeMinutes: DefaultMaxAgeMinutes}
	base := int64(1_700_000_000_000)

	// Zero thresholds grant both boosts; the result must stay within range.
	res := cfg.Score(ScoreInput{
		AggregatorMs: msPtr(base),
		OnchainMs:    msPtr(base),
		AgeMinutes:   1,
	})
	if res.Score < 0 || res.Score > 100 {
		t.Errorf("score %d out of [0,100]", res.Score)
	}
}
