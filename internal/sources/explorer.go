package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"solana-asset-radar/internal/upstream"
)

// TxRecord is one transaction-like record from the explorer history API.
// Explorers disagree on the timestamp field name and unit; RawTimestamp
// carries whichever value was present, unnormalized.
type TxRecord struct {
	Signature    string
	RawTimestamp float64
}

// ExplorerClient queries a block-explorer history endpoint templated by
// address.
type ExplorerClient struct {
	// urlTemplate contains a {address} placeholder.
	urlTemplate string
	host        string
	client      *http.Client
	caller      *upstream.Caller
}

// NewExplorerClient creates an explorer client. urlTemplate must contain
// an {address} placeholder, e.g.
// "https://api.example.com/v0/addresses/{address}/transactions".
func NewExplorerClient(urlTemplate string, caller *upstream.Caller) *ExplorerClient {
	return &ExplorerClient{
		urlTemplate: urlTemplate,
		host:        hostOf(strings.Replace(urlTemplate, "{address}", "x", 1)),
		caller:      caller,
		client:      &http.Client{Timeout: defaultTimeout},
	}
}

// Host returns the host key this client reports to the guard.
func (c *ExplorerClient) Host() string {
	return c.host
}

// History returns transaction records for an address, newest first as
// served by the explorer.
func (c *ExplorerClient) History(ctx context.Context, address string) ([]TxRecord, error) {
	if !strings.Contains(c.urlTemplate, "{address}") {
		return nil, fmt.Errorf("explorer url template missing {address} placeholder")
	}
	u := strings.Replace(c.urlTemplate, "{address}", url.PathEscape(address), 1)

	var raw []map[string]json.RawMessage
	if err := getJSON(ctx, c.caller, c.client, c.host, u, &raw); err != nil {
		return nil, err
	}

	records := make([]TxRecord, 0, len(raw))
	for _, item := range raw {
		rec := TxRecord{}
		if sig, ok := item["signature"]; ok {
			json.Unmarshal(sig, &rec.Signature)
		} else if sig, ok := item["txHash"]; ok {
			json.Unmarshal(sig, &rec.Signature)
		}
		rec.RawTimestamp = timestampField(item)
		records = append(records, rec)
	}
	return records, nil
}

// timestampField extracts the first recognized timestamp field.
func timestampField(item map[string]json.RawMessage) float64 {
	for _, key := range []string{"timestamp", "blockTime", "block_time", "time"} {
		raw, ok := item[key]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil && v > 0 {
			return v
		}
	}
	return 0
}
