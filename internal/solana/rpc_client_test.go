package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"solana-asset-radar/internal/upstream"
)

func newTestRPC(t *testing.T, handler http.Handler) (*HTTPClient, *upstream.Guard, func()) {
	t.Helper()

	server := httptest.NewServer(handler)
	guard := upstream.NewGuard(upstream.GuardConfig{
		CooldownBase: 1 * time.Minute,
		CooldownCap:  5 * time.Minute,
	})
	caller := upstream.NewCaller(guard, upstream.CallerConfig{
		MaxAttempts: 2,
		RetryDelay:  1 * time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
	client := NewHTTPClient(server.URL, caller)
	return client, guard, server.Close
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	client, _, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":         nil,
					"logMessages": []string{"Program log: Instruction: InitializeMint2"},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []interface{}{
							map[string]interface{}{"pubkey": "addr1"},
							map[string]interface{}{"pubkey": "addr2"},
						},
						"instructions": []interface{}{
							map[string]interface{}{
								"program": "spl-token",
								"parsed":  map[string]interface{}{"type": "initializeMint2"},
							},
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer closeFn()

	tx, err := client.GetTransaction(context.Background(), "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}
	if tx.Slot != 123456 {
		t.Errorf("slot = %d, want 123456", tx.Slot)
	}
	if tx.BlockTime != 1700000000 {
		t.Errorf("blockTime = %d, want 1700000000", tx.BlockTime)
	}
	if len(tx.Message.AccountKeys) != 2 || tx.Message.AccountKeys[0] != "addr1" {
		t.Errorf("unexpected account keys: %v", tx.Message.AccountKeys)
	}
	if len(tx.Message.InstructionTypes) != 1 || tx.Message.InstructionTypes[0] != "initializeMint2" {
		t.Errorf("unexpected instruction types: %v", tx.Message.InstructionTypes)
	}
}

func TestHTTPClient_GetTransactionNotFound(t *testing.T) {
	client, _, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		})
	}))
	defer closeFn()

	tx, err := client.GetTransaction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for missing transaction, got %+v", tx)
	}
}

func TestHTTPClient_AccountKeysStringForm(t *testing.T) {
	client, _, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot": int64(77),
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"plainAddr1", "plainAddr2"},
					},
				},
			},
		})
	}))
	defer closeFn()

	tx, err := client.GetTransaction(context.Background(), "sig")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if len(tx.Message.AccountKeys) != 2 || tx.Message.AccountKeys[1] != "plainAddr2" {
		t.Errorf("unexpected account keys: %v", tx.Message.AccountKeys)
	}
}

func TestHTTPClient_RateLimitOpensCooldown(t *testing.T) {
	client, guard, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer closeFn()

	_, err := client.GetBlockTime(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error from rate-limited endpoint")
	}
	if !guard.InCooldown(client.Host()) {
		t.Error("expected host cooldown after 429")
	}

	// Second call must fail fast without touching the server.
	_, err = client.GetBlockTime(context.Background(), 2)
	if err == nil {
		t.Fatal("expected fail-fast error during cooldown")
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "invalid params"},
		})
	}))
	defer closeFn()

	_, err := client.GetSignaturesForAddress(context.Background(), "badaddr", nil)
	if err == nil {
		t.Fatal("expected RPC error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (RPC errors are permanent)", calls.Load())
	}
}

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	client, _, closeFn := newTestRPC(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected getSignaturesForAddress, got %s", req.Method)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"signature": "sig2", "slot": int64(200), "blockTime": int64(1700000100)},
				{"signature": "sig1", "slot": int64(100), "blockTime": int64(1700000000)},
			},
		})
	}))
	defer closeFn()

	sigs, err := client.GetSignaturesForAddress(context.Background(), "someaddr", &SignaturesOpts{Limit: 2})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("len = %d, want 2", len(sigs))
	}
	if sigs[0].Signature != "sig2" || sigs[1].Signature != "sig1" {
		t.Errorf("unexpected order: %v", sigs)
	}
	if sigs[1].BlockTime == nil || *sigs[1].BlockTime != 1700000000 {
		t.Errorf("unexpected blockTime: %v", sigs[1].BlockTime)
	}
}
