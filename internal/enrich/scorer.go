// Package enrich turns admitted candidates into confidence-scored
// records by querying multiple upstream sources and merging the evidence.
package enrich

import (
	"time"

	"solana-asset-radar/internal/domain"
)

// Default scoring thresholds.
const (
	DefaultLiquidityThresholdUsd = 1000.0
	DefaultVolumeThresholdUsd    = 500.0
	DefaultMaxAgeMinutes         = 7 * 24 * 60 // one week
	agePenaltyCap                = 20
)

// ScoreConfig holds the scorer's tunable thresholds.
type ScoreConfig struct {
	LiquidityThresholdUsd float64
	VolumeThresholdUsd    float64
	// MaxAgeMinutes caps the score of assets older than this.
	MaxAgeMinutes float64
}

// DefaultScoreConfig returns the default scoring configuration.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		LiquidityThresholdUsd: DefaultLiquidityThresholdUsd,
		VolumeThresholdUsd:    DefaultVolumeThresholdUsd,
		MaxAgeMinutes:         DefaultMaxAgeMinutes,
	}
}

// ScoreInput is the evidence combined into one score.
type ScoreInput struct {
	AggregatorMs *int64 // pair-creation time reported by the aggregator
	OnchainMs    *int64 // first-activity time from RPC/explorer sources
	LiquidityUsd float64
	VolumeUsd    float64
	AgeMinutes   float64
}

// ScoreResult is the scorer's verdict.
type ScoreResult struct {
	Score         int // 0..100
	Corroboration domain.Corroboration
	AgePenalty    bool
}

// Score combines multi-source evidence into a 0-100 confidence value.
// Pure: same input always yields the same result.
func (c ScoreConfig) Score(in ScoreInput) ScoreResult {
	var res ScoreResult

	switch {
	case in.AggregatorMs != nil && in.OnchainMs != nil:
		delta := time.Duration(abs64(*in.AggregatorMs-*in.OnchainMs)) * time.Millisecond
		switch {
		case delta <= 5*time.Minute:
			res.Score = 60
			res.Corroboration = domain.CorroborationVeryClose
		case delta <= 60*time.Minute:
			res.Score = 45
			res.Corroboration = domain.CorroborationClose
		case delta <= 24*time.Hour:
			res.Score = 30
			res.Corroboration = domain.CorroborationSameDay
		default:
			res.Score = 15
			res.Corroboration = domain.CorroborationDifferentDays
		}
	case in.OnchainMs != nil:
		res.Score = 40
		res.Corroboration = domain.CorroborationOnchainOnly
	case in.AggregatorMs != nil:
		res.Score = 30
		res.Corroboration = domain.CorroborationDexOnly
	default:
		res.Score = 10
		res.Corroboration = domain.CorroborationNone
	}

	if in.LiquidityUsd >= c.LiquidityThresholdUsd {
		res.Score += 10
	}
	if in.VolumeUsd >= c.VolumeThresholdUsd {
		res.Score += 10
	}

	if c.MaxAgeMinutes > 0 && in.AgeMinutes > c.MaxAgeMinutes {
		res.AgePenalty = true
		if res.Score > agePenaltyCap {
			res.Score = agePenaltyCap
		}
	}

	if res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 100 {
		res.Score = 100
	}

	return res
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
