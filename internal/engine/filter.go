package engine

import (
	"strings"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// Filters holds the user-configurable thresholds applied after merge.
// Zero values mean "no constraint"; all conditions are conjunctive.
type Filters struct {
	MinLiquidity float64 `json:"min_liquidity"`
	MinVolume    float64 `json:"min_volume"`
	MinTxns      int     `json:"min_txns"`
	RequireIcon  bool    `json:"require_icon"`

	// Match is a free-text needle checked against symbol, name and address
	Match string `json:"match,omitempty"`
}

// Pass reports whether a record clears every configured threshold
func (f Filters) Pass(p *domain.PairRecord) bool {
	if f.MinLiquidity > 0 && p.LiquidityUsd < f.MinLiquidity {
		return false
	}
	if f.MinVolume > 0 && p.Volume24hUsd < f.MinVolume {
		return false
	}
	if f.MinTxns > 0 && p.Txns24h() < f.MinTxns {
		return false
	}
	if f.RequireIcon && p.IconURL == "" {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Match)); q != "" {
		if !strings.Contains(strings.ToLower(p.BaseToken.Symbol), q) &&
			!strings.Contains(strings.ToLower(p.BaseToken.Name), q) &&
			!strings.Contains(strings.ToLower(p.BaseToken.Address), q) {
			return false
		}
	}
	return true
}

// Apply returns the records passing the filter, preserving input order
func (f Filters) Apply(records []domain.PairRecord) []domain.PairRecord {
	out := make([]domain.PairRecord, 0, len(records))
	for i := range records {
		if f.Pass(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
