// Package postgres journals delivered records for later inspection.
// The journal observes the delivery stream; the pipeline itself never
// depends on it.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/sink"
)

// Journal persists enriched records as they are delivered.
type Journal struct {
	pool *Pool
	now  func() time.Time
}

// NewJournal creates a Journal over the pool.
func NewJournal(pool *Pool) *Journal {
	return &Journal{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ sink.Sink = (*Journal)(nil)

// Deliver implements sink.Sink. Write failures are logged and dropped;
// journaling must never stall the pipeline.
func (j *Journal) Deliver(ctx context.Context, rec *domain.EnrichedRecord) {
	if err := j.Insert(ctx, rec); err != nil {
		log.Warn().Err(err).Str("component", "journal").
			Str("asset", rec.AssetID).Msg("record journaling failed")
	}
}

// Insert writes one record. Re-delivery of the same asset at the same
// millisecond is treated as already journaled.
func (j *Journal) Insert(ctx context.Context, rec *domain.EnrichedRecord) error {
	observations, err := json.Marshal(rec.Observations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	query := `
		INSERT INTO enriched_records (
			asset_id, delivered_at, first_seen_ms, freshness_score,
			corroboration, age_penalty, liquidity_usd, volume_usd,
			name, symbol, observations
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = j.pool.Exec(ctx, query,
		rec.AssetID,
		j.now().UnixMilli(),
		rec.FirstSeenMs,
		rec.FreshnessScore,
		string(rec.Corroboration),
		rec.AgePenalty,
		rec.LiquidityUsd,
		rec.VolumeUsd,
		rec.Name,
		rec.Symbol,
		observations,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert enriched record: %w", err)
	}
	return nil
}

// Latest returns the most recent journal entry for an asset.
func (j *Journal) Latest(ctx context.Context, assetID string) (*domain.EnrichedRecord, error) {
	query := `
		SELECT asset_id, first_seen_ms, freshness_score, corroboration,
		       age_penalty, liquidity_usd, volume_usd, name, symbol, observations
		FROM enriched_records
		WHERE asset_id = $1
		ORDER BY delivered_at DESC
		LIMIT 1
	`

	row := j.pool.QueryRow(ctx, query, assetID)

	var rec domain.EnrichedRecord
	var corroboration string
	var observations []byte
	err := row.Scan(
		&rec.AssetID,
		&rec.FirstSeenMs,
		&rec.FreshnessScore,
		&corroboration,
		&rec.AgePenalty,
		&rec.LiquidityUsd,
		&rec.VolumeUsd,
		&rec.Name,
		&rec.Symbol,
		&observations,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest record: %w", err)
	}

	rec.Corroboration = domain.Corroboration(corroboration)
	if err := json.Unmarshal(observations, &rec.Observations); err != nil {
		return nil, fmt.Errorf("unmarshal observations: %w", err)
	}
	return &rec, nil
}

// TopScored returns up to limit records delivered since the given
// millisecond timestamp, highest score first.
func (j *Journal) TopScored(ctx context.Context, sinceMs int64, limit int) ([]*domain.EnrichedRecord, error) {
	query := `
		SELECT asset_id, first_seen_ms, freshness_score, corroboration,
		       age_penalty, liquidity_usd, volume_usd, name, symbol, observations
		FROM enriched_records
		WHERE delivered_at >= $1
		ORDER BY freshness_score DESC, delivered_at DESC
		LIMIT $2
	`

	rows, err := j.pool.Query(ctx, query, sinceMs, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scored: %w", err)
	}
	defer rows.Close()

	var out []*domain.EnrichedRecord
	for rows.Next() {
		var rec domain.EnrichedRecord
		var corroboration string
		var observations []byte
		if err := rows.Scan(
			&rec.AssetID,
			&rec.FirstSeenMs,
			&rec.FreshnessScore,
			&corroboration,
			&rec.AgePenalty,
			&rec.LiquidityUsd,
			&rec.VolumeUsd,
			&rec.Name,
			&rec.Symbol,
			&observations,
		); err != nil {
			return nil, fmt.Errorf("scan enriched record: %w", err)
		}
		rec.Corroboration = domain.Corroboration(corroboration)
		if err := json.Unmarshal(observations, &rec.Observations); err != nil {
			return nil, fmt.Errorf("unmarshal observations: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
