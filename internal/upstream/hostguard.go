// Package upstream provides per-host failure tracking and a retrying
// caller shared by every network client in the pipeline.
package upstream

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/observability"
)

// Default guard configuration values.
const (
	DefaultCooldownBase = 2 * time.Second
	DefaultCooldownCap  = 5 * time.Minute
	DefaultJitterMax    = 500 * time.Millisecond
)

// HostState tracks the failure history of one upstream host.
// Never deleted, only reset on success.
type HostState struct {
	Host            string
	FailureCount    int
	CooldownUntilMs int64
}

// GuardConfig configures cooldown growth.
type GuardConfig struct {
	// CooldownBase is the cooldown after the first rate-limit failure.
	CooldownBase time.Duration
	// CooldownCap bounds cooldown growth.
	CooldownCap time.Duration
	// JitterMax is the upper bound of the random jitter added per cooldown.
	JitterMax time.Duration
}

// DefaultGuardConfig returns the default guard configuration.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		CooldownBase: DefaultCooldownBase,
		CooldownCap:  DefaultCooldownCap,
		JitterMax:    DefaultJitterMax,
	}
}

// Guard is a per-host circuit breaker driven by rate-limit responses.
// While a host is in cooldown, callers fail fast instead of attempting
// network I/O. Safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	hosts  map[string]*HostState
	config GuardConfig

	now    func() time.Time
	jitter func(max time.Duration) time.Duration
}

// NewGuard creates a Guard with the given configuration.
func NewGuard(config GuardConfig) *Guard {
	if config.CooldownBase <= 0 {
		config.CooldownBase = DefaultCooldownBase
	}
	if config.CooldownCap <= 0 {
		config.CooldownCap = DefaultCooldownCap
	}
	return &Guard{
		hosts:  make(map[string]*HostState),
		config: config,
		now:    time.Now,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// RecordFailure records a failed call outcome for host and returns the
// cooldown applied, if any. Only rate-limit failures (HTTP 429) grow the
// cooldown; other statuses leave the host state untouched.
func (g *Guard) RecordFailure(host string, statusCode int) time.Duration {
	if statusCode != 429 {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.stateLocked(host)
	state.FailureCount++

	cooldown := g.config.CooldownBase << uint(state.FailureCount-1)
	if cooldown > g.config.CooldownCap || cooldown <= 0 {
		cooldown = g.config.CooldownCap
	}
	cooldown += g.jitter(g.config.JitterMax)

	nowMs := g.now().UnixMilli()
	until := nowMs + cooldown.Milliseconds()
	wasCool := state.CooldownUntilMs > nowMs

	// Cooldown is monotonically non-decreasing while failures continue.
	if until > state.CooldownUntilMs {
		state.CooldownUntilMs = until
	}

	if !wasCool {
		observability.RecordHostCooldown()
		log.Warn().
			Str("component", "hostguard").
			Str("host", host).
			Int("failures", state.FailureCount).
			Dur("cooldown", cooldown).
			Msg("host entering cooldown")
	}

	return cooldown
}

// RecordSuccess clears the failure history for host.
func (g *Guard) RecordSuccess(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.stateLocked(host)
	if state.FailureCount > 0 || state.CooldownUntilMs > 0 {
		state.FailureCount = 0
		state.CooldownUntilMs = 0
	}
}

// InCooldown reports whether host is currently cooling down.
func (g *Guard) InCooldown(host string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.hosts[host]
	if !ok {
		return false
	}
	return g.now().UnixMilli() < state.CooldownUntilMs
}

// State returns a copy of the host's current state.
func (g *Guard) State(host string) HostState {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.hosts[host]
	if !ok {
		return HostState{Host: host}
	}
	return *state
}

func (g *Guard) stateLocked(host string) *HostState {
	state, ok := g.hosts[host]
	if !ok {
		state = &HostState{Host: host}
		g.hosts[host] = state
	}
	return state
}
