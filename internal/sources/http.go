// Package sources provides clients for non-RPC upstream data sources:
// the market aggregator and the block-explorer history API.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-asset-radar/internal/upstream"
)

// defaultTimeout bounds a single HTTP attempt.
const defaultTimeout = 15 * time.Second

// getJSON performs one GET through the shared caller and decodes the
// response body into out.
func getJSON(ctx context.Context, caller *upstream.Caller, client *http.Client, host, rawURL string, out interface{}) error {
	return caller.Call(ctx, host, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return &upstream.CallError{Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return &upstream.CallError{Timeout: true, Err: fmt.Errorf("http request: %w", err)}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return &upstream.CallError{Err: fmt.Errorf("read response: %w", err)}
		}

		if resp.StatusCode != http.StatusOK {
			return &upstream.CallError{
				StatusCode: resp.StatusCode,
				RetryAfter: retryAfterOf(resp),
				Err:        fmt.Errorf("status %d from %s", resp.StatusCode, host),
			}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return &upstream.CallError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("unmarshal: %w", err)}
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

// hostOf extracts the host from a base URL, falling back to the raw string.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
