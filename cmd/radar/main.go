package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"solana-asset-radar/internal/config"
	"solana-asset-radar/internal/dedupe"
	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/enrich"
	"solana-asset-radar/internal/ingest"
	"solana-asset-radar/internal/normalize"
	"solana-asset-radar/internal/observability"
	"solana-asset-radar/internal/sink"
	sinkpg "solana-asset-radar/internal/sink/postgres"
	"solana-asset-radar/internal/solana"
	"solana-asset-radar/internal/sources"
	"solana-asset-radar/internal/upstream"
)

func main() {
	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleSignals(cancel)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	if err := run(ctx, cfg); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("radar exited with error")
	}
	log.Info().Msg("shutdown complete")
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
}

func handleSignals(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	cancel()

	select {
	case <-sigCh:
		log.Warn().Msg("second signal, forcing immediate shutdown")
		os.Exit(1)
	case <-time.After(30 * time.Second):
		log.Warn().Msg("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	guard := upstream.NewGuard(upstream.GuardConfig{
		CooldownBase: cfg.CooldownBase,
		CooldownCap:  cfg.CooldownCap,
	})
	caller := upstream.NewCaller(guard, upstream.CallerConfig{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		JitterMax:   cfg.RetryJitterMax,
		HostRPS:     cfg.HostRPS,
		HostBurst:   cfg.HostBurst,
	})

	primaryRPC := solana.NewHTTPClient(cfg.RPCEndpoint, caller)
	aggregator := sources.NewAggregatorClient(cfg.AggregatorBaseURL, caller)

	resolverSources := []enrich.Source{
		enrich.NewRPCSource("rpc_primary", primaryRPC),
	}
	if cfg.AltRPCEndpoint != "" {
		altRPC := solana.NewHTTPClient(cfg.AltRPCEndpoint, caller)
		resolverSources = append(resolverSources, enrich.NewRPCSource("rpc_alt", altRPC))
	}
	if cfg.ExplorerURLTemplate != "" {
		explorer := sources.NewExplorerClient(cfg.ExplorerURLTemplate, caller)
		resolverSources = append(resolverSources, enrich.NewExplorerSource(explorer))
	}
	resolverSources = append(resolverSources, enrich.NewAggregatorSource(aggregator))

	resolverOpts := []enrich.ResolverOption{
		enrich.WithPerSourceTimeout(cfg.SourceTimeout),
		enrich.WithBudget(cfg.ResolveBudget),
	}
	if cfg.FetchMetadata {
		resolverOpts = append(resolverOpts, enrich.WithMetadataRPC(primaryRPC))
	}
	resolver := enrich.NewResolver(resolverSources, resolverOpts...)

	enricher := enrich.NewEnricher(resolver, enrich.ScoreConfig{
		LiquidityThresholdUsd: cfg.LiquidityThresholdUsd,
		VolumeThresholdUsd:    cfg.VolumeThresholdUsd,
		MaxAgeMinutes:         cfg.MaxAgeMinutes,
	})

	var gate dedupe.Gate
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		gate = dedupe.NewRedisGate(rdb)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using shared dedupe store")
	} else {
		gate = dedupe.NewMemoryGate()
	}

	scheduler := enrich.NewScheduler(gate, enricher.Process,
		enrich.WithWorkers(cfg.MaxConcurrentEnrichments),
		enrich.WithQueueDepth(cfg.QueueDepth),
		enrich.WithDedupeTTL(cfg.DedupeTTL),
	)

	out := sink.MultiSink{sink.LogSink{}}
	if cfg.PostgresDSN != "" {
		pool, err := sinkpg.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := sinkpg.RunMigrations(ctx, pool); err != nil {
			return err
		}
		out = append(out, sinkpg.NewJournal(pool))
		log.Info().Msg("record journal enabled")
	}

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &solana.WSConfig{
		OnReconnect: observability.DefaultMetrics.WSReconnects.Inc,
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	listener := ingest.NewListener(ws, cfg.Programs, ingest.WithTransactionRPC(primaryRPC))
	poller := ingest.NewPoller(aggregator, ingest.WithPollInterval(cfg.PollInterval))

	rules := normalize.DefaultRuleSet()
	rules.RequireFreshMintForSwap = cfg.RequireFreshMint
	normalizer := normalize.NewNormalizer(rules,
		normalize.WithMintTracker(ingest.NewRing(ingest.DefaultRingCapacity)))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(ctx) })
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error {
		observability.DefaultMetrics.TrackUptime(ctx, time.Second)
		return nil
	})
	g.Go(func() error {
		feed(ctx, normalizer, scheduler, listener.Events(), poller.Events())
		return nil
	})
	g.Go(func() error {
		deliver(ctx, out, scheduler.Outcomes())
		return nil
	})

	log.Info().Strs("programs", cfg.Programs).Msg("radar running")
	return g.Wait()
}

// feed normalizes candidates from both ingestors and admits them to the
// scheduler.
func feed(ctx context.Context, normalizer *normalize.Normalizer, scheduler *enrich.Scheduler, listenerCh, pollerCh <-chan domain.CandidateEvent) {
	for listenerCh != nil || pollerCh != nil {
		var ev domain.CandidateEvent
		var ok bool
		select {
		case <-ctx.Done():
			return
		case ev, ok = <-listenerCh:
			if !ok {
				listenerCh = nil
				continue
			}
		case ev, ok = <-pollerCh:
			if !ok {
				pollerCh = nil
				continue
			}
		}

		observability.RecordCandidateSeen(ev.SourceTag)
		normalized, reason := normalizer.Normalize(&ev)
		if normalized == nil {
			observability.RecordRejected(string(reason))
			continue
		}
		observability.RecordNormalized()

		if scheduler.Enqueue(ctx, *normalized) {
			observability.RecordJobAdmitted()
		}
	}
}

// deliver forwards terminal outcomes to the sink and metrics.
func deliver(ctx context.Context, out sink.Sink, outcomes <-chan enrich.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case outcome, ok := <-outcomes:
			if !ok {
				return
			}
			switch {
			case outcome.Skipped:
				observability.RecordJobSkipped(outcome.SkipReason)
			case outcome.Err != nil:
				// Already logged by the scheduler.
			case outcome.Record != nil:
				observability.RecordProduced(outcome.Record.FreshnessScore, time.Now().Unix())
				out.Deliver(ctx, outcome.Record)
				observability.RecordDelivered()
			}
		}
	}
}
