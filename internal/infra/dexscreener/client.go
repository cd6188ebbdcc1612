package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Nirdla020/basescreener/internal/domain"
	"github.com/Nirdla020/basescreener/internal/infra"
)

const (
	searchPath     = "/latest/dex/search"
	tokenPairsPath = "/token-pairs/v1"
	tokensPath     = "/tokens/v1"

	// maxTokensPerBatch is the upstream limit for the batched token endpoint
	maxTokensPerBatch = 30
)

// Client talks to the DexScreener public API.
// All results are filtered to the configured chain before they leave this package.
type Client struct {
	baseURL    string
	chainID    string
	httpClient *http.Client
}

// NewClient creates a DexScreener API client
func NewClient(baseURL, chainID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: chainID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChainID returns the chain this client is scoped to
func (c *Client) ChainID() string {
	return c.chainID
}

// Search runs a free-text pair search and returns the pairs on our chain.
// The search endpoint is cross-chain, so the chain filter happens client side.
func (c *Client) Search(ctx context.Context, query string) ([]domain.PairRecord, error) {
	endpoint := c.baseURL + searchPath + "?q=" + url.QueryEscape(query)

	var resp searchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	return toRecords(resp.Pairs, c.chainID), nil
}

// TokenPairs returns every trading pair for one token address on our chain
func (c *Client) TokenPairs(ctx context.Context, address string) ([]domain.PairRecord, error) {
	endpoint := fmt.Sprintf("%s%s/%s/%s",
		c.baseURL, tokenPairsPath, c.chainID, url.PathEscape(address))

	var pairs []wirePair
	if err := c.getJSON(ctx, endpoint, &pairs); err != nil {
		return nil, fmt.Errorf("token pairs for %s: %w", address, err)
	}

	return toRecords(pairs, c.chainID), nil
}

// Tokens resolves pairs for a batch of token addresses on our chain.
// Addresses beyond the upstream batch limit are split into extra requests.
func (c *Client) Tokens(ctx context.Context, addresses []string) ([]domain.PairRecord, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	var records []domain.PairRecord
	for start := 0; start < len(addresses); start += maxTokensPerBatch {
		end := start + maxTokensPerBatch
		if end > len(addresses) {
			end = len(addresses)
		}

		joined := strings.Join(addresses[start:end], ",")
		endpoint := fmt.Sprintf("%s%s/%s/%s", c.baseURL, tokensPath, c.chainID, joined)

		var pairs []wirePair
		if err := c.getJSON(ctx, endpoint, &pairs); err != nil {
			return nil, fmt.Errorf("tokens batch: %w", err)
		}
		records = append(records, toRecords(pairs, c.chainID)...)
	}

	return records, nil
}

// getJSON performs a GET request and decodes the JSON body into out
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
