package ingest

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/domain"
	"solana-asset-radar/internal/normalize"
	"solana-asset-radar/internal/observability"
	"solana-asset-radar/internal/solana"
)

// base58Token matches a loose base58 run of mint-address length inside
// a log line. Exact validation happens in the normalizer.
var base58Token = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

var systemDenylist = normalize.DefaultDenylist()

// Listener subscribes to program logs over WebSocket and emits one
// candidate per transaction that mentions a plausible mint address.
type Listener struct {
	ws       solana.WSClient
	rpc      solana.RPCClient // optional, for parsed instruction types
	programs []string
	events   chan domain.CandidateEvent

	now func() time.Time
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithTransactionRPC enables fetching the full transaction of each
// notification so the normalizer can classify by instruction types.
func WithTransactionRPC(rpc solana.RPCClient) ListenerOption {
	return func(l *Listener) { l.rpc = rpc }
}

// NewListener creates a listener over the given WebSocket client
// watching the given program IDs.
func NewListener(ws solana.WSClient, programs []string, opts ...ListenerOption) *Listener {
	l := &Listener{
		ws:       ws,
		programs: programs,
		events:   make(chan domain.CandidateEvent, 256),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events returns the candidate stream. Closed when Run returns.
func (l *Listener) Events() <-chan domain.CandidateEvent {
	return l.events
}

// Run subscribes to each program and processes notifications until ctx
// is cancelled. Some providers accept only one address per
// subscription, so programs subscribe separately and merge.
func (l *Listener) Run(ctx context.Context) error {
	merged := make(chan programNotification, 1024)

	for _, program := range l.programs {
		logsCh, err := l.ws.SubscribeLogs(ctx, solana.LogsFilter{
			Mentions: []string{program},
		})
		if err != nil {
			return err
		}
		log.Info().Str("component", "listener").Str("program", program).
			Msg("subscribed to program logs")

		go func(program string, logsCh <-chan solana.LogNotification) {
			for notif := range logsCh {
				select {
				case merged <- programNotification{program: program, notif: notif}:
				case <-ctx.Done():
					return
				}
			}
		}(program, logsCh)
	}

	defer close(l.events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pn := <-merged:
			l.process(ctx, pn.program, pn.notif)
		}
	}
}

type programNotification struct {
	program string
	notif   solana.LogNotification
}

// process turns one notification into at most one candidate event.
func (l *Listener) process(ctx context.Context, program string, notif solana.LogNotification) {
	observability.DefaultMetrics.NotificationsProcessed.Inc()

	// Failed transactions carry no usable asset activity.
	if notif.Err != nil {
		return
	}

	assetID := extractCandidate(notif.Logs, program)
	if assetID == "" {
		return
	}

	ev := domain.CandidateEvent{
		AssetID:          assetID,
		TriggerProgram:   program,
		TriggerSignature: notif.Signature,
		Kind:             domain.KindUnknown,
		ObservedAtMs:     l.now().UnixMilli(),
		SampleLogLines:   sampleLogs(notif.Logs, 10),
		SourceTag:        domain.SourceLogListener,
	}

	if l.rpc != nil {
		if tx, err := l.rpc.GetTransaction(ctx, notif.Signature); err == nil && tx != nil && tx.Message != nil {
			ev.InstructionTypes = tx.Message.InstructionTypes
		} else if err != nil {
			log.Debug().Err(err).Str("component", "listener").
				Str("signature", notif.Signature).Msg("transaction fetch failed, classifying by logs only")
		}
	}

	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}

// extractCandidate picks the first base58 run of mint length that is
// not the subscribed program itself or an obvious system address.
func extractCandidate(logs []string, program string) string {
	for _, line := range logs {
		for _, match := range base58Token.FindAllString(line, -1) {
			if match == program {
				continue
			}
			if _, denied := systemDenylist[match]; denied {
				continue
			}
			return match
		}
	}
	return ""
}

// sampleLogs retains the first n lines for kind classification.
func sampleLogs(logs []string, n int) []string {
	if len(logs) <= n {
		return logs
	}
	out := make([]string, n)
	copy(out, logs[:n])
	return out
}
