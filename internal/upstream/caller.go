package upstream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"solana-asset-radar/internal/observability"
)

// Default caller configuration values.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// ErrHostCooldown is returned without network I/O while a host cools down.
var ErrHostCooldown = errors.New("host in cooldown")

// CallError carries the classification of a failed attempt.
type CallError struct {
	StatusCode int           // HTTP status or 0 for transport errors
	RetryAfter time.Duration // server-provided retry delay, 0 if absent
	Timeout    bool
	Err        error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("upstream call failed with status %d", e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the attempt should be retried:
// timeouts, 5xx and 429 are transient; other 4xx are permanent.
func (e *CallError) Retryable() bool {
	if e.Timeout || e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// CallerConfig configures retry behavior.
type CallerConfig struct {
	// MaxAttempts bounds the number of attempts per call.
	MaxAttempts int
	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration
	// MaxDelay caps exponential backoff growth.
	MaxDelay time.Duration
	// JitterMax is added uniformly at random to each backoff delay.
	JitterMax time.Duration
	// HostRPS optionally bounds outbound request rate per host.
	// Zero disables rate limiting.
	HostRPS float64
	// HostBurst is the rate limiter burst size when HostRPS is set.
	HostBurst int
}

// DefaultCallerConfig returns the default caller configuration.
func DefaultCallerConfig() CallerConfig {
	return CallerConfig{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		MaxDelay:    DefaultMaxDelay,
		JitterMax:   250 * time.Millisecond,
	}
}

// Caller runs network attempts with retry, backoff and cooldown checks.
// One Caller is shared by every client in a pipeline instance so that
// host state is observed consistently.
type Caller struct {
	guard  *Guard
	config CallerConfig

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewCaller creates a Caller reporting outcomes to guard.
func NewCaller(guard *Guard, config CallerConfig) *Caller {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	return &Caller{
		guard:    guard,
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Call runs fn against host, retrying transient failures with exponential
// backoff and jitter. A host in cooldown fails fast with ErrHostCooldown.
// fn must perform exactly one network attempt and classify failures as
// *CallError.
func (c *Caller) Call(ctx context.Context, host string, fn func(ctx context.Context) error) error {
	if c.guard.InCooldown(host) {
		return fmt.Errorf("%w: %s", ErrHostCooldown, host)
	}

	if limiter := c.limiter(host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	delay := c.config.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			observability.RecordRetry(host)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.config.MaxDelay {
				delay = c.config.MaxDelay
			}
		}

		err := fn(ctx)
		if err == nil {
			c.guard.RecordSuccess(host)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		var callErr *CallError
		if !errors.As(err, &callErr) {
			callErr = &CallError{Err: err}
		}

		c.guard.RecordFailure(host, callErr.StatusCode)

		if !callErr.Retryable() {
			return fmt.Errorf("permanent failure for %s: %w", host, err)
		}

		// Honor a server-provided retry delay over our own schedule.
		if callErr.RetryAfter > 0 {
			delay = callErr.RetryAfter
		} else if c.config.JitterMax > 0 {
			delay += time.Duration(rand.Int63n(int64(c.config.JitterMax)))
		}

		// A 429 may have just opened the cooldown; stop burning attempts.
		if callErr.StatusCode == http.StatusTooManyRequests && c.guard.InCooldown(host) {
			return fmt.Errorf("%w: %s", ErrHostCooldown, host)
		}
	}

	log.Warn().
		Str("component", "caller").
		Str("host", host).
		Int("attempts", c.config.MaxAttempts).
		Err(lastErr).
		Msg("host still failing after retries")

	return fmt.Errorf("max attempts exceeded for %s: %w", host, lastErr)
}

func (c *Caller) limiter(host string) *rate.Limiter {
	if c.config.HostRPS <= 0 {
		return nil
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		burst := c.config.HostBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(c.config.HostRPS), burst)
		c.limiters[host] = limiter
	}
	return limiter
}
