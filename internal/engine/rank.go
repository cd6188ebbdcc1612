package engine

import (
	"cmp"
	"slices"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// DefaultViewLimit caps the ranked output after sorting
const DefaultViewLimit = 120

// ViewMode selects which tab's ordering rules apply
type ViewMode int

const (
	ViewTrending ViewMode = iota
	ViewNew
	ViewTop
	ViewSaved
)

var viewModeNames = map[ViewMode]string{
	ViewTrending: "trending",
	ViewNew:      "new",
	ViewTop:      "top",
	ViewSaved:    "saved",
}

func (v ViewMode) String() string {
	if s, ok := viewModeNames[v]; ok {
		return s
	}
	return "trending"
}

// ParseViewMode maps a tab name to its ViewMode, defaulting to trending
func ParseViewMode(s string) ViewMode {
	for v, name := range viewModeNames {
		if name == s {
			return v
		}
	}
	return ViewTrending
}

// RankBy selects the secondary strategy within trending-family views
type RankBy int

const (
	RankTrending RankBy = iota
	RankGainers
	RankVolume
	RankTxns
	RankLiquidity
)

var rankByNames = map[RankBy]string{
	RankTrending:  "trending",
	RankGainers:   "gainers",
	RankVolume:    "volume",
	RankTxns:      "txns",
	RankLiquidity: "liquidity",
}

func (r RankBy) String() string {
	if s, ok := rankByNames[r]; ok {
		return s
	}
	return "trending"
}

// ParseRankBy maps a strategy name to its RankBy, defaulting to trending
func ParseRankBy(s string) RankBy {
	for r, name := range rankByNames {
		if name == s {
			return r
		}
	}
	return RankTrending
}

// comparator orders two records; negative means a ranks before b
type comparator func(a, b *domain.PairRecord) int

// rankComparators dispatches the trending-family strategies.
// All are plain descending numeric sorts except the composite score.
var rankComparators = map[RankBy]comparator{
	RankTrending: func(a, b *domain.PairRecord) int {
		return cmp.Compare(TrendingScore(b), TrendingScore(a))
	},
	RankGainers: func(a, b *domain.PairRecord) int {
		return cmp.Compare(b.Change24h(), a.Change24h())
	},
	RankVolume: func(a, b *domain.PairRecord) int {
		return cmp.Compare(b.Volume24hUsd, a.Volume24hUsd)
	},
	RankTxns: func(a, b *domain.PairRecord) int {
		return cmp.Compare(b.Txns24h(), a.Txns24h())
	},
	RankLiquidity: func(a, b *domain.PairRecord) int {
		return cmp.Compare(b.LiquidityUsd, a.LiquidityUsd)
	},
}

// compareNewest orders the New view: normalized creation time descending,
// records without a creation time after ones that have it, and FirstSeenAt
// descending when neither side has one.
func compareNewest(a, b *domain.PairRecord) int {
	ca, aok := a.CreatedAtMillis()
	cb, bok := b.CreatedAtMillis()

	switch {
	case aok && bok:
		return cmp.Compare(cb, ca)
	case bok:
		return 1
	case aok:
		return -1
	default:
		return cmp.Compare(b.FirstSeenAt, a.FirstSeenAt)
	}
}

// compareTop orders the Top view: liquidity descending, volume tie-break
func compareTop(a, b *domain.PairRecord) int {
	if c := cmp.Compare(b.LiquidityUsd, a.LiquidityUsd); c != 0 {
		return c
	}
	return cmp.Compare(b.Volume24hUsd, a.Volume24hUsd)
}

// Rank sorts records under the view's strategy and caps the output.
// Truncation happens strictly after sorting so the cap holds the genuinely
// top-ranked rows. Input is not mutated.
func Rank(records []domain.PairRecord, view ViewMode, by RankBy, limit int) []domain.PairRecord {
	if limit <= 0 {
		limit = DefaultViewLimit
	}

	var compare comparator
	switch view {
	case ViewNew:
		compare = compareNewest
	case ViewTop:
		compare = compareTop
	default:
		compare = rankComparators[by]
		if compare == nil {
			compare = rankComparators[RankTrending]
		}
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b domain.PairRecord) int {
		return compare(&a, &b)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
