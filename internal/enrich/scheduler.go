package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"solana-asset-radar/internal/dedupe"
	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/observability"
)

// Default scheduler configuration values.
const (
	DefaultWorkers    = 4
	DefaultQueueDepth = 256
	DefaultDedupeTTL  = 15 * time.Minute
)

// Skip reasons reported when a candidate is not queued.
const (
	SkipDedupe    = "dedupe"
	SkipGateError = "gate_error"
	SkipQueueFull = "queue_full"
	SkipShutdown  = "shutdown"
)

// Outcome is the terminal result of one candidate: either an enriched
// record, a skip with a reason, or a processing error.
type Outcome struct {
	AssetID    string
	Skipped    bool
	SkipReason string
	Record     *domain.EnrichedRecord
	Err        error
}

// ProcessFunc enriches a single admitted job.
type ProcessFunc func(ctx context.Context, job domain.EnrichmentJob) (*domain.EnrichedRecord, error)

// Scheduler admits candidates through the dedupe gate, queues them FIFO
// and runs a bounded worker pool over the queue. Each candidate resolves
// to at most one Outcome on the Outcomes channel; an outcome is dropped
// when the consumer falls behind or the scheduler has shut down.
type Scheduler struct {
	gate    dedupe.Gate
	ttl     time.Duration
	process ProcessFunc
	workers int

	queue    chan domain.EnrichmentJob
	outcomes chan Outcome

	// mu orders emit against the outcomes close in Run, so a late
	// Enqueue never sends on a closed channel.
	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// WithQueueDepth sets the pending-job queue capacity.
func WithQueueDepth(n int) SchedulerOption {
	return func(s *Scheduler) { s.queue = make(chan domain.EnrichmentJob, n) }
}

// WithDedupeTTL sets the admission window per asset.
func WithDedupeTTL(ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.ttl = ttl }
}

// NewScheduler creates a Scheduler over the given gate and process
// function.
func NewScheduler(gate dedupe.Gate, process ProcessFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		gate:     gate,
		ttl:      DefaultDedupeTTL,
		process:  process,
		workers:  DefaultWorkers,
		queue:    make(chan domain.EnrichmentJob, DefaultQueueDepth),
		outcomes: make(chan Outcome, DefaultQueueDepth),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcomes returns the channel of terminal results. Closed after Run
// returns.
func (s *Scheduler) Outcomes() <-chan Outcome {
	return s.outcomes
}

// Enqueue admits a candidate and queues it for enrichment. Denied or
// undeliverable candidates are reported as skipped Outcomes without any
// upstream work. Returns true when the candidate was queued.
func (s *Scheduler) Enqueue(ctx context.Context, ev domain.CandidateEvent) bool {
	admitted, err := s.gate.TryAdmit(ctx, ev.AssetID, s.ttl)
	if err != nil {
		// Fail closed: an unreachable gate must not open a dedupe hole.
		log.Warn().Err(err).Str("component", "scheduler").
			Str("asset", ev.AssetID).Msg("dedupe gate error, dropping candidate")
		s.emit(Outcome{AssetID: ev.AssetID, Skipped: true, SkipReason: SkipGateError, Err: err})
		return false
	}
	if !admitted {
		s.emit(Outcome{AssetID: ev.AssetID, Skipped: true, SkipReason: SkipDedupe})
		return false
	}

	job := domain.EnrichmentJob{
		AssetID:      ev.AssetID,
		EnqueuedAtMs: s.now().UnixMilli(),
	}
	select {
	case s.queue <- job:
		observability.DefaultMetrics.QueueDepth.Set(float64(len(s.queue)))
		return true
	default:
		log.Warn().Str("component", "scheduler").Str("asset", ev.AssetID).
			Msg("enrichment queue full, dropping candidate")
		s.emit(Outcome{AssetID: ev.AssetID, Skipped: true, SkipReason: SkipQueueFull})
		return false
	}
}

// Run drives the worker pool until ctx is cancelled, then closes the
// outcomes channel. Jobs still queued at shutdown are reported skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			return s.worker(ctx)
		})
	}
	err := g.Wait()

	s.drain()
	s.mu.Lock()
	s.closed = true
	close(s.outcomes)
	s.mu.Unlock()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *Scheduler) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-s.queue:
			observability.DefaultMetrics.QueueDepth.Set(float64(len(s.queue)))
			s.handle(ctx, job)
		}
	}
}

// handle runs one job. A failed job produces an error Outcome and never
// stops the pool.
func (s *Scheduler) handle(ctx context.Context, job domain.EnrichmentJob) {
	record, err := s.process(ctx, job)
	if err != nil {
		log.Error().Err(err).Str("component", "scheduler").
			Str("asset", job.AssetID).Msg("enrichment failed")
		s.emit(Outcome{AssetID: job.AssetID, Err: err})
		return
	}
	s.emit(Outcome{AssetID: job.AssetID, Record: record})
}

// drain flushes jobs left in the queue at shutdown.
func (s *Scheduler) drain() {
	for {
		select {
		case job := <-s.queue:
			s.emit(Outcome{AssetID: job.AssetID, Skipped: true, SkipReason: SkipShutdown})
		default:
			return
		}
	}
}

func (s *Scheduler) emit(out Outcome) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		log.Debug().Str("component", "scheduler").Str("asset", out.AssetID).
			Msg("scheduler stopped, dropping outcome")
		return
	}
	select {
	case s.outcomes <- out:
	default:
		// Slow consumer: drop rather than block ingestion.
		log.Warn().Str("component", "scheduler").Str("asset", out.AssetID).
			Msg("outcome channel full, dropping result")
	}
}
