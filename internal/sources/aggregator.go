package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"solana-asset-radar/internal/upstream"
)

// SolanaChainID identifies Solana pairs in aggregator responses.
const SolanaChainID = "solana"

// Token is one side of an aggregator pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is one aggregator trading pair.
type Pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   Token  `json:"baseToken"`
	QuoteToken  Token  `json:"quoteToken"`
	PriceUsd    string `json:"priceUsd"`
	Liquidity   struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	// PairCreatedAt is seconds or milliseconds depending on the feed;
	// callers must normalize.
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

// PriceUsdFloat parses the string-typed price field.
func (p *Pair) PriceUsdFloat() float64 {
	v, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil {
		return 0
	}
	return v
}

// TokenProfile is one entry of the aggregator "latest" feed.
type TokenProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// AggregatorClient queries a DexScreener-compatible market aggregator.
type AggregatorClient struct {
	baseURL string
	host    string
	client  *http.Client
	caller  *upstream.Caller
}

// NewAggregatorClient creates an aggregator client routing attempts
// through caller.
func NewAggregatorClient(baseURL string, caller *upstream.Caller) *AggregatorClient {
	return &AggregatorClient{
		baseURL: baseURL,
		host:    hostOf(baseURL),
		caller:  caller,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Host returns the host key this client reports to the guard.
func (c *AggregatorClient) Host() string {
	return c.host
}

// TokenPairs returns the pairs listing a token, best liquidity first as
// served by the aggregator.
func (c *AggregatorClient) TokenPairs(ctx context.Context, mint string) ([]Pair, error) {
	var result struct {
		Pairs []Pair `json:"pairs"`
	}
	u := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(mint))
	if err := getJSON(ctx, c.caller, c.client, c.host, u, &result); err != nil {
		return nil, err
	}
	return filterSolana(result.Pairs), nil
}

// Search returns pairs matching a free-text query.
func (c *AggregatorClient) Search(ctx context.Context, query string) ([]Pair, error) {
	var result struct {
		Pairs []Pair `json:"pairs"`
	}
	u := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(query))
	if err := getJSON(ctx, c.caller, c.client, c.host, u, &result); err != nil {
		return nil, err
	}
	return filterSolana(result.Pairs), nil
}

// LatestProfiles returns the newest token profiles listed by the
// aggregator, Solana entries only.
func (c *AggregatorClient) LatestProfiles(ctx context.Context) ([]TokenProfile, error) {
	var result []TokenProfile
	u := c.baseURL + "/token-profiles/latest/v1"
	if err := getJSON(ctx, c.caller, c.client, c.host, u, &result); err != nil {
		return nil, err
	}

	var out []TokenProfile
	for _, p := range result {
		if p.ChainID == SolanaChainID && p.TokenAddress != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// BestPair selects the pair with the highest USD liquidity.
func BestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || pairs[i].Liquidity.Usd > best.Liquidity.Usd {
			best = &pairs[i]
		}
	}
	return best
}

// EarliestCreation returns the smallest nonzero pairCreatedAt value.
func EarliestCreation(pairs []Pair) int64 {
	var earliest int64
	for _, p := range pairs {
		if p.PairCreatedAt <= 0 {
			continue
		}
		if earliest == 0 || p.PairCreatedAt < earliest {
			earliest = p.PairCreatedAt
		}
	}
	return earliest
}

func filterSolana(pairs []Pair) []Pair {
	var out []Pair
	for _, p := range pairs {
		if p.ChainID == SolanaChainID {
			out = append(out, p)
		}
	}
	return out
}
