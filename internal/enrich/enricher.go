package enrich

import (
	"context"
	"fmt"
	"time"

	"solana-asset-radar/internal/domain"
)

// Enricher turns an admitted job into an enriched record by resolving
// evidence across sources and scoring it.
type Enricher struct {
	resolver *Resolver
	score    ScoreConfig
	now      func() time.Time
}

// NewEnricher creates an Enricher over the given resolver and scoring
// configuration.
func NewEnricher(resolver *Resolver, score ScoreConfig) *Enricher {
	return &Enricher{
		resolver: resolver,
		score:    score,
		now:      time.Now,
	}
}

// Process resolves and scores one candidate. It fails only when every
// source failed; partial evidence still yields a record.
func (e *Enricher) Process(ctx context.Context, job domain.EnrichmentJob) (*domain.EnrichedRecord, error) {
	res := e.resolver.Resolve(ctx, job.AssetID)

	anyOK := false
	for _, obs := range res.Observations {
		if obs.OK {
			anyOK = true
			break
		}
	}
	if !anyOK {
		return nil, fmt.Errorf("all sources failed for %s", job.AssetID)
	}

	var ageMinutes float64
	if res.FirstActivityMs != nil {
		ageMinutes = float64(e.now().UnixMilli()-*res.FirstActivityMs) / 60_000
		if ageMinutes < 0 {
			ageMinutes = 0
		}
	}

	scored := e.score.Score(ScoreInput{
		OnchainMs:    res.OnchainMs,
		AggregatorMs: res.AggregatorMs,
		LiquidityUsd: res.LiquidityUsd,
		VolumeUsd:    res.VolumeUsd,
		AgeMinutes:   ageMinutes,
	})

	return &domain.EnrichedRecord{
		AssetID:        job.AssetID,
		FirstSeenMs:    res.FirstActivityMs,
		Observations:   res.Observations,
		FreshnessScore: scored.Score,
		Corroboration:  scored.Corroboration,
		AgePenalty:     scored.AgePenalty,
		LiquidityUsd:   res.LiquidityUsd,
		VolumeUsd:      res.VolumeUsd,
		Name:           res.Name,
		Symbol:         res.Symbol,
	}, nil
}
