package engine

import (
	"slices"
	"time"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// DefaultPoolCap bounds how many pairs the pool retains across cycles
const DefaultPoolCap = 1200

// Pool is the deduplicated working set of best-known pair records across
// poll cycles, keyed by lowercased pair address. It is a plain value owned
// by the service; the service serializes all writes.
type Pool struct {
	cap     int
	index   map[string]int
	entries []*domain.PairRecord // insertion order, positions tracked by index
}

// NewPool creates an empty pool with the given cap (DefaultPoolCap if <= 0)
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCap
	}
	return &Pool{
		cap:   capacity,
		index: make(map[string]int),
	}
}

// Len returns the current number of retained pairs
func (p *Pool) Len() int {
	return len(p.entries)
}

// Reset drops all state. Called when switching between search mode and
// address/watchlist mode so stale search results cannot bleed across.
func (p *Pool) Reset() {
	p.index = make(map[string]int)
	p.entries = nil
}

// Merge folds one cycle's fetch results into the pool.
//
// A new pair is inserted with FirstSeenAt = observedAt. An already-known pair
// is replaced only when the incoming liquidity is strictly greater, and the
// original FirstSeenAt is carried forward, so FirstSeenAt always marks the
// earliest cycle the pair surfaced in. After the batch the pool is truncated
// to its cap keeping the most recently first-seen entries.
func (p *Pool) Merge(records []domain.PairRecord, observedAt time.Time) (added, updated int) {
	seenAt := observedAt.UnixMilli()

	for i := range records {
		rec := records[i]
		key := rec.Key()
		if key == "" {
			continue
		}

		if pos, ok := p.index[key]; ok {
			cur := p.entries[pos]
			if rec.LiquidityUsd > cur.LiquidityUsd {
				rec.FirstSeenAt = cur.FirstSeenAt
				p.entries[pos] = &rec
				updated++
			}
			continue
		}

		rec.FirstSeenAt = seenAt
		p.index[key] = len(p.entries)
		p.entries = append(p.entries, &rec)
		added++
	}

	p.truncate()
	return added, updated
}

// truncate evicts the least recently first-seen pairs once the cap is
// exceeded. The sort is stable, so equal timestamps fall back to insertion
// order and earlier entries survive.
func (p *Pool) truncate() {
	if len(p.entries) <= p.cap {
		return
	}

	sorted := slices.Clone(p.entries)
	slices.SortStableFunc(sorted, func(a, b *domain.PairRecord) int {
		switch {
		case b.FirstSeenAt > a.FirstSeenAt:
			return 1
		case b.FirstSeenAt < a.FirstSeenAt:
			return -1
		default:
			return 0
		}
	})
	kept := sorted[:p.cap]

	p.index = make(map[string]int, len(kept))
	p.entries = kept
	for i, rec := range kept {
		p.index[rec.Key()] = i
	}
}

// Get returns the stored record for a pair address, if any
func (p *Pool) Get(pairAddress string) (domain.PairRecord, bool) {
	pos, ok := p.index[domain.NormalizeAddress(pairAddress)]
	if !ok {
		return domain.PairRecord{}, false
	}
	return *p.entries[pos], true
}

// Records returns a copy of everything in the pool
func (p *Pool) Records() []domain.PairRecord {
	out := make([]domain.PairRecord, len(p.entries))
	for i, rec := range p.entries {
		out[i] = *rec
	}
	return out
}

// Recent returns up to n records ordered by most recent FirstSeenAt.
// This is the working-set view the rank pipeline consumes: favoring
// currently circulating pairs over ones merged long ago.
func (p *Pool) Recent(n int) []domain.PairRecord {
	all := p.Records()
	slices.SortStableFunc(all, func(a, b domain.PairRecord) int {
		switch {
		case b.FirstSeenAt > a.FirstSeenAt:
			return 1
		case b.FirstSeenAt < a.FirstSeenAt:
			return -1
		default:
			return 0
		}
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// BestPerToken reduces an arbitrary record list to at most one pair per base
// token, keeping the highest-liquidity listing. Output preserves the order in
// which each token first appears. Pure; usually applied to the filtered view,
// not the whole pool.
func BestPerToken(records []domain.PairRecord) []domain.PairRecord {
	best := make(map[string]int, len(records))
	out := make([]domain.PairRecord, 0, len(records))

	for i := range records {
		key := domain.NormalizeAddress(records[i].BaseToken.Address)
		if key == "" {
			continue
		}

		if pos, ok := best[key]; ok {
			if records[i].LiquidityUsd > out[pos].LiquidityUsd {
				out[pos] = records[i]
			}
			continue
		}

		best[key] = len(out)
		out = append(out, records[i])
	}
	return out
}
