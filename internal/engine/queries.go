package engine

import (
	"time"
)

// DefaultTrendingQueries is always issued, in this order, on every cycle
var DefaultTrendingQueries = []string{
	"base",
	"base usdc",
	"base weth",
	"base degen",
	"base meme",
	"base ai",
	"aerodrome base",
	"base microcap",
	"base token",
}

// DefaultDiscoveryQueries is the larger rotation set for surfacing new pairs.
// A different window of it runs each minute so repeated polls within a minute
// hit the same queries while longer sessions sweep the whole list.
var DefaultDiscoveryQueries = []string{
	"base fair launch",
	"base launch",
	"base new token",
	"base presale",
	"base pump",
	"base community",
	"base telegram",
	"base ca",
	"base coin",
	"base low cap",
}

// DefaultDiscoverySize is how many discovery terms join each cycle
const DefaultDiscoverySize = 6

// QuerySet builds the search terms for one poll cycle
type QuerySet struct {
	Trending      []string
	Discovery     []string
	DiscoverySize int
}

// NewQuerySet returns a QuerySet with the given term lists, falling back to
// the defaults for anything empty
func NewQuerySet(trending, discovery []string, discoverySize int) QuerySet {
	qs := QuerySet{Trending: trending, Discovery: discovery, DiscoverySize: discoverySize}
	if len(qs.Trending) == 0 {
		qs.Trending = DefaultTrendingQueries
	}
	if len(qs.Discovery) == 0 {
		qs.Discovery = DefaultDiscoveryQueries
	}
	if qs.DiscoverySize <= 0 {
		qs.DiscoverySize = DefaultDiscoverySize
	}
	return qs
}

// ForCycle returns the ordered query list for the cycle at now:
// all trending terms, then a discovery window rotated once per minute.
// Deterministic for a given wall-clock minute.
func (q QuerySet) ForCycle(now time.Time) []string {
	if len(q.Discovery) == 0 {
		return append([]string(nil), q.Trending...)
	}

	offset := int((now.Unix() / 60) % int64(len(q.Discovery)))

	rotated := make([]string, 0, len(q.Discovery))
	rotated = append(rotated, q.Discovery[offset:]...)
	rotated = append(rotated, q.Discovery[:offset]...)

	size := q.DiscoverySize
	if size > len(rotated) {
		size = len(rotated)
	}

	out := make([]string, 0, len(q.Trending)+size)
	out = append(out, q.Trending...)
	out = append(out, rotated[:size]...)
	return out
}
