package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/observability"
	"solana-asset-radar/internal/solana"
	"solana-asset-radar/internal/sources"
)

// Default resolver configuration values.
const (
	DefaultPerSourceTimeout = 10 * time.Second
	DefaultResolveBudget    = 45 * time.Second
	DefaultSignaturePage    = 1000
	DefaultSignaturePages   = 3
)

// Source is one upstream queried during enrichment. Fetch performs the
// queries for a single candidate and returns whatever evidence the
// source holds; nil values mean "source does not know".
type Source interface {
	Name() string
	// Onchain distinguishes chain-derived timestamps from aggregator
	// ones for corroboration scoring.
	Onchain() bool
	Fetch(ctx context.Context, assetID string) (first *int64, liquidityUsd, volumeUsd *float64, err error)
}

// Resolution is the merged outcome of querying all sources for one
// candidate.
type Resolution struct {
	FirstActivityMs *int64 // earliest across all sources
	OnchainMs       *int64 // earliest across on-chain sources
	AggregatorMs    *int64 // earliest across aggregator sources
	LiquidityUsd    float64
	VolumeUsd       float64
	Observations    []domain.SourceObservation
	Name            string
	Symbol          string
}

// Resolver queries sources in fallback order and merges their evidence.
// A failing source contributes an ok=false observation; resolution never
// fails as a whole.
type Resolver struct {
	sources          []Source
	perSourceTimeout time.Duration
	budget           time.Duration

	// metadataRPC, when set, resolves token name/symbol after the
	// timestamp scan. Best effort only.
	metadataRPC solana.RPCClient

	now func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPerSourceTimeout bounds each source attempt.
func WithPerSourceTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.perSourceTimeout = d }
}

// WithBudget bounds the overall wall-clock spent per candidate.
func WithBudget(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.budget = d }
}

// WithMetadataRPC enables token metadata resolution through the given
// RPC client.
func WithMetadataRPC(rpc solana.RPCClient) ResolverOption {
	return func(r *Resolver) { r.metadataRPC = rpc }
}

// NewResolver creates a Resolver over sources, attempted in order.
func NewResolver(srcs []Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		sources:          srcs,
		perSourceTimeout: DefaultPerSourceTimeout,
		budget:           DefaultResolveBudget,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries every source for the candidate within the budget. On
// budget exhaustion it returns whatever observations were collected.
func (r *Resolver) Resolve(ctx context.Context, assetID string) *Resolution {
	ctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	res := &Resolution{}

	for _, src := range r.sources {
		if ctx.Err() != nil {
			log.Debug().Str("component", "resolver").Str("asset", assetID).
				Int("observations", len(res.Observations)).
				Msg("budget exhausted, returning partial evidence")
			break
		}

		obs := r.observe(ctx, src, assetID)
		res.Observations = append(res.Observations, obs)

		if !obs.OK {
			continue
		}

		if obs.FirstActivityMs != nil {
			res.FirstActivityMs = earlier(res.FirstActivityMs, obs.FirstActivityMs)
			if src.Onchain() {
				res.OnchainMs = earlier(res.OnchainMs, obs.FirstActivityMs)
			} else {
				res.AggregatorMs = earlier(res.AggregatorMs, obs.FirstActivityMs)
			}
		}
		if res.LiquidityUsd == 0 && obs.LiquidityUsd != nil {
			res.LiquidityUsd = *obs.LiquidityUsd
		}
		if res.VolumeUsd == 0 && obs.VolumeUsd != nil {
			res.VolumeUsd = *obs.VolumeUsd
		}
	}

	if r.metadataRPC != nil && ctx.Err() == nil {
		if meta, err := solana.FetchTokenMetadata(ctx, r.metadataRPC, assetID); err == nil && meta != nil {
			res.Name = meta.Name
			res.Symbol = meta.Symbol
		}
	}

	return res
}

// observe runs one source under its timeout and wraps the outcome.
func (r *Resolver) observe(ctx context.Context, src Source, assetID string) domain.SourceObservation {
	srcCtx, cancel := context.WithTimeout(ctx, r.perSourceTimeout)
	defer cancel()

	start := r.now()
	first, liquidity, volume, err := src.Fetch(srcCtx, assetID)
	latency := r.now().Sub(start)
	observability.RecordSourceQuery(src.Name(), err == nil, latency.Seconds())

	obs := domain.SourceObservation{
		SourceName: src.Name(),
		LatencyMs:  latency.Milliseconds(),
	}
	if err != nil {
		obs.Error = err.Error()
		return obs
	}

	obs.OK = true
	obs.FirstActivityMs = first
	obs.LiquidityUsd = liquidity
	obs.VolumeUsd = volume
	return obs
}

func earlier(current, candidate *int64) *int64 {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate < *current {
		v := *candidate
		return &v
	}
	return current
}

// NormalizeTimestamp converts an upstream timestamp of unknown unit to
// milliseconds: values above 1e12 are already ms, above 1e9 are seconds,
// smaller positive values are minutes-ago relative to now.
func NormalizeTimestamp(v float64, now time.Time) int64 {
	switch {
	case v <= 0:
		return 0
	case v > 1e12:
		return int64(v)
	case v > 1e9:
		return int64(v) * 1000
	default:
		return now.UnixMilli() - int64(v*60000)
	}
}

// rpcSource scans an RPC provider's signature history for the earliest
// activity of an asset.
type rpcSource struct {
	name     string
	client   solana.RPCClient
	pageSize int
	maxPages int
	now      func() time.Time
}

// NewRPCSource creates an on-chain first-activity source over an RPC
// client. Paging is bounded: an asset with more history than
// pageSize*maxPages signatures is old enough that the truncated oldest
// timestamp still classifies it correctly.
func NewRPCSource(name string, client solana.RPCClient) Source {
	return &rpcSource{
		name:     name,
		client:   client,
		pageSize: DefaultSignaturePage,
		maxPages: DefaultSignaturePages,
		now:      time.Now,
	}
}

func (s *rpcSource) Name() string  { return s.name }
func (s *rpcSource) Onchain() bool { return true }

func (s *rpcSource) Fetch(ctx context.Context, assetID string) (*int64, *float64, *float64, error) {
	var oldest *int64
	before := ""

	for page := 0; page < s.maxPages; page++ {
		opts := &solana.SignaturesOpts{Limit: s.pageSize}
		if before != "" {
			opts.Before = before
		}

		sigs, err := s.client.GetSignaturesForAddress(ctx, assetID, opts)
		if err != nil {
			if oldest != nil {
				// Partial history is still evidence.
				return oldest, nil, nil, nil
			}
			return nil, nil, nil, err
		}
		if len(sigs) == 0 {
			break
		}

		// Newest first: the page's last entry is its oldest.
		for _, sig := range sigs {
			if sig.BlockTime == nil {
				continue
			}
			ms := *sig.BlockTime * 1000
			if oldest == nil || ms < *oldest {
				v := ms
				oldest = &v
			}
		}

		if len(sigs) < s.pageSize {
			break
		}
		before = sigs[len(sigs)-1].Signature
	}

	if oldest == nil {
		return nil, nil, nil, fmt.Errorf("no signatures found for %s", assetID)
	}
	return oldest, nil, nil, nil
}

// explorerSource reads first activity from the block-explorer history API.
type explorerSource struct {
	client *sources.ExplorerClient
	now    func() time.Time
}

// NewExplorerSource creates an on-chain source over the explorer client.
func NewExplorerSource(client *sources.ExplorerClient) Source {
	return &explorerSource{client: client, now: time.Now}
}

func (s *explorerSource) Name() string  { return "explorer" }
func (s *explorerSource) Onchain() bool { return true }

func (s *explorerSource) Fetch(ctx context.Context, assetID string) (*int64, *float64, *float64, error) {
	records, err := s.client.History(ctx, assetID)
	if err != nil {
		return nil, nil, nil, err
	}

	var oldest *int64
	for _, rec := range records {
		ms := NormalizeTimestamp(rec.RawTimestamp, s.now())
		if ms <= 0 {
			continue
		}
		if oldest == nil || ms < *oldest {
			v := ms
			oldest = &v
		}
	}
	if oldest == nil {
		return nil, nil, nil, fmt.Errorf("no timestamped history for %s", assetID)
	}
	return oldest, nil, nil, nil
}

// aggregatorSource reads pair creation time and market metrics from the
// market aggregator.
type aggregatorSource struct {
	client *sources.AggregatorClient
	now    func() time.Time
}

// NewAggregatorSource creates the market-aggregator source.
func NewAggregatorSource(client *sources.AggregatorClient) Source {
	return &aggregatorSource{client: client, now: time.Now}
}

func (s *aggregatorSource) Name() string  { return "aggregator" }
func (s *aggregatorSource) Onchain() bool { return false }

func (s *aggregatorSource) Fetch(ctx context.Context, assetID string) (*int64, *float64, *float64, error) {
	pairs, err := s.client.TokenPairs(ctx, assetID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(pairs) == 0 {
		return nil, nil, nil, fmt.Errorf("no pairs listed for %s", assetID)
	}

	var first *int64
	if created := sources.EarliestCreation(pairs); created > 0 {
		ms := NormalizeTimestamp(float64(created), s.now())
		first = &ms
	}

	var liquidity, volume *float64
	if best := sources.BestPair(pairs); best != nil {
		l := best.Liquidity.Usd
		v := best.Volume.H24
		liquidity = &l
		volume = &v
	}

	return first, liquidity, volume, nil
}
