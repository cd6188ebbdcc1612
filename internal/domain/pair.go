package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// msThreshold separates second-resolution from millisecond-resolution epochs.
// Upstream is inconsistent about the unit, so anything below is treated as seconds.
const msThreshold = 1_000_000_000_000

// Token identifies one side of a trading pair
type Token struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

// PriceChange holds percent price changes per timeframe.
// Pointers because the source omits timeframes it has no data for.
type PriceChange struct {
	M5  *float64 `json:"m5,omitempty"`
	H1  *float64 `json:"h1,omitempty"`
	H6  *float64 `json:"h6,omitempty"`
	H24 *float64 `json:"h24,omitempty"`
}

// PairRecord is one observed trading pair for a token on one venue.
// It is the unit the pool, filters and ranker all operate on.
type PairRecord struct {
	PairAddress string `json:"pair_address"`
	ChainID     string `json:"chain_id"`
	DexID       string `json:"dex_id"`
	URL         string `json:"url"`

	BaseToken  Token `json:"base_token"`
	QuoteToken Token `json:"quote_token"`

	PriceUsd     decimal.Decimal `json:"price_usd"`
	LiquidityUsd float64         `json:"liquidity_usd"`
	Volume24hUsd float64         `json:"volume_24h_usd"`
	Buys24h      int             `json:"buys_24h"`
	Sells24h     int             `json:"sells_24h"`
	FDV          float64         `json:"fdv"`
	PriceChange  PriceChange     `json:"price_change"`

	// PairCreatedAt is the raw upstream epoch (seconds or milliseconds).
	// Use CreatedAtMillis for anything that sorts or renders it.
	PairCreatedAt int64  `json:"pair_created_at"`
	IconURL       string `json:"icon_url,omitempty"`

	// FirstSeenAt (ms) is assigned by the merge store, never by the source.
	FirstSeenAt int64 `json:"first_seen_at"`
}

// Key returns the pool key for this record
func (p *PairRecord) Key() string {
	return strings.ToLower(p.PairAddress)
}

// Txns24h returns the combined 24h buy and sell count
func (p *PairRecord) Txns24h() int {
	return p.Buys24h + p.Sells24h
}

// Change24h returns the 24h percent change, or zero when the source omitted it
func (p *PairRecord) Change24h() float64 {
	if p.PriceChange.H24 == nil {
		return 0
	}
	return *p.PriceChange.H24
}

// CreatedAtMillis returns the normalized creation time in milliseconds.
// ok is false when the upstream record has no usable timestamp.
func (p *PairRecord) CreatedAtMillis() (ms int64, ok bool) {
	return NormalizeMillis(p.PairCreatedAt)
}

// NormalizeMillis coerces an ambiguous epoch to milliseconds.
// Values under 10^12 are seconds; at or above, already milliseconds.
func NormalizeMillis(ts int64) (int64, bool) {
	if ts <= 0 {
		return 0, false
	}
	if ts < msThreshold {
		return ts * 1000, true
	}
	return ts, true
}

// FormatAge renders a pair age as the dashboard shows it: "34m", "7h", "3d".
// Unknown or future timestamps render as an em dash placeholder.
func FormatAge(ts int64, now time.Time) string {
	ms, ok := NormalizeMillis(ts)
	if !ok {
		return "—"
	}
	diff := now.UnixMilli() - ms
	if diff < 0 {
		return "—"
	}

	mins := diff / 60_000
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}

	hrs := mins / 60
	if hrs < 48 {
		return fmt.Sprintf("%dh", hrs)
	}

	return fmt.Sprintf("%dd", hrs/24)
}
