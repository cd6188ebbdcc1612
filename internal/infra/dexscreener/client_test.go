package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const searchPayload = `{
	"schemaVersion": "1.0.0",
	"pairs": [
		{
			"chainId": "base",
			"dexId": "uniswap",
			"url": "https://dexscreener.com/base/0xpair1",
			"pairAddress": "0xPair1",
			"baseToken": {"address": "0xToken1", "name": "Degen", "symbol": "DEGEN"},
			"quoteToken": {"address": "0xWeth", "name": "Wrapped Ether", "symbol": "WETH"},
			"priceUsd": "0.0123",
			"txns": {"h24": {"buys": 120, "sells": 80}},
			"volume": {"h24": 50000.5},
			"priceChange": {"h24": -3.2},
			"liquidity": {"usd": 25000},
			"fdv": 1000000,
			"pairCreatedAt": 1700000000000,
			"info": {"imageUrl": "https://cdn.example/degen.png"}
		},
		{
			"chainId": "ethereum",
			"dexId": "uniswap",
			"pairAddress": "0xOtherChain",
			"baseToken": {"address": "0xT", "name": "T", "symbol": "T"}
		},
		{
			"chainId": "base",
			"dexId": "aerodrome",
			"pairAddress": "0xPair2",
			"baseToken": {"address": "0xToken2", "name": "NoLiq", "symbol": "NL"},
			"quoteToken": {"address": "0xWeth", "name": "Wrapped Ether", "symbol": "WETH"},
			"liquidity": null
		}
	]
}`

const tokenPairsPayload = `[
	{
		"chainId": "base",
		"dexId": "uniswap",
		"pairAddress": "0xPairA",
		"baseToken": {"address": "0xToken1", "name": "Degen", "symbol": "DEGEN"},
		"quoteToken": {"address": "0xUsdc", "name": "USD Coin", "symbol": "USDC"},
		"priceUsd": "1.5",
		"liquidity": {"usd": 900}
	}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "base", 5*time.Second)
}

func TestClient_Search(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchPayload))
	})

	records, err := client.Search(context.Background(), "base degen")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotPath != "/latest/dex/search" {
		t.Errorf("Expected search path, got %s", gotPath)
	}
	if gotQuery != "base degen" {
		t.Errorf("Expected query 'base degen', got %q", gotQuery)
	}

	// The ethereum pair must be filtered out
	if len(records) != 2 {
		t.Fatalf("Expected 2 base-chain records, got %d", len(records))
	}

	rec := records[0]
	if rec.PairAddress != "0xPair1" {
		t.Errorf("Expected 0xPair1, got %s", rec.PairAddress)
	}
	if !rec.PriceUsd.Equal(decimal.RequireFromString("0.0123")) {
		t.Errorf("Expected price 0.0123, got %s", rec.PriceUsd)
	}
	if rec.LiquidityUsd != 25000 {
		t.Errorf("Expected liquidity 25000, got %v", rec.LiquidityUsd)
	}
	if rec.Volume24hUsd != 50000.5 {
		t.Errorf("Expected volume 50000.5, got %v", rec.Volume24hUsd)
	}
	if rec.Buys24h != 120 || rec.Sells24h != 80 {
		t.Errorf("Expected 120/80 txns, got %d/%d", rec.Buys24h, rec.Sells24h)
	}
	if rec.PriceChange.H24 == nil || *rec.PriceChange.H24 != -3.2 {
		t.Errorf("Expected h24 change -3.2, got %v", rec.PriceChange.H24)
	}
	if rec.IconURL != "https://cdn.example/degen.png" {
		t.Errorf("Expected icon URL, got %q", rec.IconURL)
	}
	if rec.PairCreatedAt != 1700000000000 {
		t.Errorf("Expected raw pairCreatedAt, got %d", rec.PairCreatedAt)
	}

	// Null liquidity maps to zero, missing priceChange stays nil
	if records[1].LiquidityUsd != 0 {
		t.Errorf("Expected zero liquidity for null, got %v", records[1].LiquidityUsd)
	}
	if records[1].PriceChange.H24 != nil {
		t.Error("Expected nil h24 change when the source omitted it")
	}
}

func TestClient_TokenPairs(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(tokenPairsPayload))
	})

	records, err := client.TokenPairs(context.Background(), "0xToken1")
	if err != nil {
		t.Fatalf("TokenPairs failed: %v", err)
	}

	if gotPath != "/token-pairs/v1/base/0xToken1" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if len(records) != 1 || records[0].PairAddress != "0xPairA" {
		t.Errorf("Unexpected records: %+v", records)
	}
}

func TestClient_TokensBatching(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`[]`))
	})

	addrs := make([]string, 35)
	for i := range addrs {
		addrs[i] = "0xaddr"
	}

	if _, err := client.Tokens(context.Background(), addrs); err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("Expected 2 batched requests for 35 addresses, got %d", len(paths))
	}
	first := strings.TrimPrefix(paths[0], "/tokens/v1/base/")
	if n := strings.Count(first, ",") + 1; n != 30 {
		t.Errorf("Expected 30 addresses in first batch, got %d", n)
	}
}

func TestClient_TokensEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty address list")
	})

	records, err := client.Tokens(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if records != nil {
		t.Errorf("Expected nil records, got %+v", records)
	}
}

func TestClient_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := client.Search(context.Background(), "base"); err == nil {
		t.Error("Expected error on 429 response")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Search(ctx, "base"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
