// Package normalize validates candidate events and classifies their
// triggering transactions into a canonical kind.
package normalize

import (
	"strings"

	"solana-asset-radar/internal/domain"
)

// Known program IDs monitored by the listeners.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// SPLToken is the SPL token program ID.
	SPLToken = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// System addresses that commonly leak out of indiscriminate log scanning
// and must never be treated as candidate mints.
const (
	WrappedSOL    = "So11111111111111111111111111111111111111112"
	SystemProgram = "11111111111111111111111111111111"
	USDCMint      = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint      = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// kindMarker maps a lowercase log substring to the event kind it signals.
// Order matters: more specific markers are checked first.
type kindMarker struct {
	substr string
	kind   domain.EventKind
}

// RuleSet drives classification and rejection. One table is shared by
// all ingestors; listener variants differ only in data, not code.
type RuleSet struct {
	// ProgramKinds maps a program ID to the kinds its events may produce.
	// Kinds observed outside this table are classified unknown.
	ProgramKinds map[string][]domain.EventKind

	// Denylist holds system addresses that are never valid candidates.
	Denylist map[string]struct{}

	// LogMarkers are scanned against raw log text, in order.
	LogMarkers []kindMarker

	// InstructionMarkers are matched as substrings against parsed
	// instruction type names when log markers are inconclusive.
	InstructionMarkers []kindMarker

	// RequireFreshMintForSwap drops swap-kind candidates whose mint was
	// not recently observed by a listener. An anti-false-positive
	// heuristic, tunable rather than contractual.
	RequireFreshMintForSwap bool
}

// DefaultDenylist returns the system addresses that are never valid
// candidates.
func DefaultDenylist() map[string]struct{} {
	return map[string]struct{}{
		WrappedSOL:    {},
		SystemProgram: {},
		SPLToken:      {},
		RaydiumAMMV4:  {},
		PumpFun:       {},
		USDCMint:      {},
		USDTMint:      {},
	}
}

// DefaultRuleSet returns the rule set for the default program universe.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		ProgramKinds: map[string][]domain.EventKind{
			RaydiumAMMV4: {domain.KindPoolCreation, domain.KindSwap},
			PumpFun:      {domain.KindInit, domain.KindPoolCreation, domain.KindSwap},
			SPLToken:     {domain.KindInit},
		},
		Denylist: DefaultDenylist(),
		LogMarkers: []kindMarker{
			{"initialize mint", domain.KindInit},
			{"initializemint", domain.KindInit},
			{"instruction: create", domain.KindInit},
			{"create pool", domain.KindPoolCreation},
			{"initialize2", domain.KindPoolCreation},
			{"init_pc_amount", domain.KindPoolCreation},
			{"instruction: swap", domain.KindSwap},
			{"swapbaseIn", domain.KindSwap},
			{"swap", domain.KindSwap},
		},
		InstructionMarkers: []kindMarker{
			{"initializemint", domain.KindInit},
			{"create", domain.KindInit},
			{"initialize", domain.KindPoolCreation},
			{"swap", domain.KindSwap},
		},
		RequireFreshMintForSwap: true,
	}
}

// classify derives the event kind from log text, then from parsed
// instruction types, per the rule set tables.
func (r *RuleSet) classify(logLines []string, instructionTypes []string) domain.EventKind {
	// Marker priority wins over line order: a pool-creation transaction
	// usually carries swap-shaped log lines too.
	for _, m := range r.LogMarkers {
		want := strings.ToLower(m.substr)
		for _, line := range logLines {
			if strings.Contains(strings.ToLower(line), want) {
				return m.kind
			}
		}
	}

	for _, m := range r.InstructionMarkers {
		want := strings.ToLower(m.substr)
		for _, instType := range instructionTypes {
			if strings.Contains(strings.ToLower(instType), want) {
				return m.kind
			}
		}
	}

	return domain.KindUnknown
}

// allowedKind reports whether the program may produce the kind.
// Programs absent from the table allow nothing.
func (r *RuleSet) allowedKind(program string, kind domain.EventKind) bool {
	kinds, ok := r.ProgramKinds[program]
	if !ok {
		return false
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// denied reports whether the address is on the system denylist.
func (r *RuleSet) denied(addr string) bool {
	_, ok := r.Denylist[addr]
	return ok
}
