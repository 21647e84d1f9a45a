package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/observability"
	"solana-asset-radar/internal/sources"
)

// DefaultPollInterval is how often the aggregator feed is polled.
const DefaultPollInterval = 30 * time.Second

// ProfileFeed is the slice of the aggregator client the poller needs.
type ProfileFeed interface {
	LatestProfiles(ctx context.Context) ([]sources.TokenProfile, error)
	Search(ctx context.Context, query string) ([]sources.Pair, error)
}

// Poller periodically pulls the aggregator's latest-profiles feed and
// emits each listed token as a supplementary candidate. Duplicates
// against the log listener are expected; the dedupe gate absorbs them.
type Poller struct {
	feed     ProfileFeed
	interval time.Duration
	queries  []string
	events   chan domain.CandidateEvent

	now func() time.Time
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the polling period.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithSearchQueries additionally polls the pair-search endpoint with
// the given queries each cycle.
func WithSearchQueries(queries []string) PollerOption {
	return func(p *Poller) { p.queries = queries }
}

// NewPoller creates a poller over the given feed.
func NewPoller(feed ProfileFeed, opts ...PollerOption) *Poller {
	p := &Poller{
		feed:     feed,
		interval: DefaultPollInterval,
		events:   make(chan domain.CandidateEvent, 256),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Events returns the candidate stream. Closed when Run returns.
func (p *Poller) Events() <-chan domain.CandidateEvent {
	return p.events
}

// Run polls the feed until ctx is cancelled. The first poll runs
// immediately.
func (p *Poller) Run(ctx context.Context) error {
	defer close(p.events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one cycle. Feed errors are logged and retried next tick.
func (p *Poller) poll(ctx context.Context) {
	observability.DefaultMetrics.PollCycles.Inc()

	profiles, err := p.feed.LatestProfiles(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "poller").Msg("profile feed fetch failed")
	}
	for _, profile := range profiles {
		p.emit(ctx, profile.TokenAddress)
	}

	for _, query := range p.queries {
		pairs, err := p.feed.Search(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("component", "poller").
				Str("query", query).Msg("pair search failed")
			continue
		}
		for _, pair := range pairs {
			p.emit(ctx, pair.BaseToken.Address)
		}
	}
}

func (p *Poller) emit(ctx context.Context, assetID string) {
	if assetID == "" {
		return
	}
	// A token listed on the aggregator necessarily has a pool.
	ev := domain.CandidateEvent{
		AssetID:      assetID,
		Kind:         domain.KindPoolCreation,
		ObservedAtMs: p.now().UnixMilli(),
		SourceTag:    domain.SourceAggregatorPoller,
	}
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
