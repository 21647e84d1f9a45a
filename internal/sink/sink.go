// Package sink hands enriched records to downstream consumers. Delivery
// is fire-and-forget: the pipeline never blocks on, retries, or
// persists a consumer failure.
package sink

import (
	"context"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/observability"
)

// Sink receives terminal enriched records.
type Sink interface {
	Deliver(ctx context.Context, rec *domain.EnrichedRecord)
}

// ChannelSink forwards records to a buffered channel, dropping when the
// consumer lags.
type ChannelSink struct {
	ch chan *domain.EnrichedRecord
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan *domain.EnrichedRecord, buffer)}
}

// Records returns the delivery channel.
func (s *ChannelSink) Records() <-chan *domain.EnrichedRecord {
	return s.ch
}

// Deliver pushes the record without blocking.
func (s *ChannelSink) Deliver(ctx context.Context, rec *domain.EnrichedRecord) {
	select {
	case s.ch <- rec:
	default:
		observability.DefaultMetrics.RecordsDropped.Inc()
		log.Warn().Str("component", "sink").Str("asset", rec.AssetID).
			Msg("consumer lagging, record dropped")
	}
}

// LogSink emits each record as one structured log event. Useful as the
// default consumer and for operating without a wired strategy filter.
type LogSink struct{}

// Deliver logs the record.
func (LogSink) Deliver(ctx context.Context, rec *domain.EnrichedRecord) {
	ev := log.Info().
		Str("component", "sink").
		Str("asset", rec.AssetID).
		Int("score", rec.FreshnessScore).
		Str("corroboration", string(rec.Corroboration)).
		Float64("liquidity_usd", rec.LiquidityUsd).
		Float64("volume_usd", rec.VolumeUsd).
		Bool("age_penalty", rec.AgePenalty).
		Int("observations", len(rec.Observations))
	if rec.FirstSeenMs != nil {
		ev = ev.Int64("first_seen_ms", *rec.FirstSeenMs)
	}
	if rec.Symbol != "" {
		ev = ev.Str("symbol", rec.Symbol)
	}
	ev.Msg("enriched record")
}

// MultiSink fans a record out to several sinks in order.
type MultiSink []Sink

// Deliver forwards to every member sink.
func (m MultiSink) Deliver(ctx context.Context, rec *domain.EnrichedRecord) {
	for _, s := range m {
		s.Deliver(ctx, rec)
	}
}
