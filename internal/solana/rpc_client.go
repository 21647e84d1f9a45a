package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"solana-asset-radar/internal/upstream"
)

// DefaultTimeout bounds a single RPC attempt.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
// Retries, backoff and host cooldown are handled by the shared caller;
// each attempt here performs exactly one HTTP round trip.
type HTTPClient struct {
	endpoint  string
	host      string
	client    *http.Client
	caller    *upstream.Caller
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a Solana RPC client routing attempts through caller.
func NewHTTPClient(endpoint string, caller *upstream.Caller, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		host:     hostOf(endpoint),
		caller:   caller,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the host key this client reports to the guard.
func (c *HTTPClient) Host() string {
	return c.host
}

// hostOf extracts the host from an endpoint URL, falling back to the raw string.
func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call through the shared caller.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.caller.Call(ctx, c.host, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return &upstream.CallError{Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return &upstream.CallError{Timeout: true, Err: fmt.Errorf("http request: %w", err)}
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return &upstream.CallError{Err: fmt.Errorf("read response: %w", err)}
		}

		if resp.StatusCode != http.StatusOK {
			return &upstream.CallError{
				StatusCode: resp.StatusCode,
				RetryAfter: retryAfterOf(resp),
				Err:        fmt.Errorf("status %d from %s", resp.StatusCode, c.host),
			}
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return &upstream.CallError{Err: fmt.Errorf("unmarshal response: %w", err)}
		}

		if rpcResp.Error != nil {
			// JSON-RPC application errors are permanent for our purposes.
			return &upstream.CallError{StatusCode: http.StatusBadRequest, Err: rpcResp.Error}
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return &upstream.CallError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("unmarshal result: %w", err)}
			}
		}

		return nil
	})
}

// retryAfterOf parses a Retry-After header expressed in seconds.
func retryAfterOf(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// GetTransaction retrieves a parsed transaction by signature.
// Returns nil (no error) when the transaction is not found.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result.Slot == 0 && result.BlockTime == nil {
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}
	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}
	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:         result.Meta.Err,
			LogMessages: result.Meta.LogMessages,
		}
	}
	if result.Transaction != nil && result.Transaction.Message != nil {
		msg := &TransactionMessage{}
		for _, key := range result.Transaction.Message.AccountKeys {
			msg.AccountKeys = append(msg.AccountKeys, key.Pubkey)
		}
		for _, inst := range result.Transaction.Message.Instructions {
			if inst.Parsed.Type != "" {
				msg.InstructionTypes = append(msg.InstructionTypes, inst.Parsed.Type)
			}
		}
		tx.Message = msg
	}

	return tx, nil
}

type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err         interface{} `json:"err"`
	LogMessages []string    `json:"logMessages"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys  []getAccountKey    `json:"accountKeys"`
	Instructions []getRawInstruction `json:"instructions"`
}

// getAccountKey accepts both the jsonParsed object form and the plain
// string form some providers return.
type getAccountKey struct {
	Pubkey string `json:"pubkey"`
}

func (k *getAccountKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &k.Pubkey)
	}
	type alias getAccountKey
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	k.Pubkey = a.Pubkey
	return nil
}

type getRawInstruction struct {
	Program string             `json:"program"`
	Parsed  getParsedInstField `json:"parsed"`
}

// getParsedInstField tolerates "parsed" being either an object with a
// type field or an opaque string.
type getParsedInstField struct {
	Type string `json:"type"`
}

func (p *getParsedInstField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Type)
	}
	type alias getParsedInstField
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		// Non-object, non-string parsed payloads carry no type info.
		return nil
	}
	p.Type = a.Type
	return nil
}

// GetSignaturesForAddress retrieves signatures for an address, newest first.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetBlockTime retrieves the estimated production time of a block.
func (c *HTTPClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	params := []interface{}{slot}
	var result *int64
	if err := c.call(ctx, "getBlockTime", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if the account does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}
	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}
