package engine

import (
	"math"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// Liquidity floors below which the trending score is penalized.
// Bursty volume on a thin pool is usually wash trading or a honeypot.
const (
	lowLiquidityFloor  = 2_000
	softLiquidityFloor = 10_000

	lowLiquidityPenalty  = 1.5
	softLiquidityPenalty = 0.7
)

// TrendingScore computes the composite popularity score for a pair.
//
// Volume, transaction count and liquidity are log-compressed so a handful of
// mega-liquidity pairs cannot dominate on raw size, then weighted with volume
// counting most. Pure and monotonically non-decreasing in each input.
func TrendingScore(p *domain.PairRecord) float64 {
	lv := math.Log10(p.Volume24hUsd + 1)
	ll := math.Log10(p.LiquidityUsd + 1)
	lt := math.Log10(float64(p.Txns24h()) + 1)

	penalty := 0.0
	switch {
	case p.LiquidityUsd < lowLiquidityFloor:
		penalty = lowLiquidityPenalty
	case p.LiquidityUsd < softLiquidityFloor:
		penalty = softLiquidityPenalty
	}

	return 2.2*lv + 1.6*lt + 1.0*ll - penalty
}
