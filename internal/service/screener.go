package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Nirdla020/basescreener/internal/domain"
	"github.com/Nirdla020/basescreener/internal/engine"
	"github.com/Nirdla020/basescreener/internal/infra"
)

// addressViewCap bounds the per-venue listing in address mode
const addressViewCap = 12

// Mode selects where poll cycles get their records from
type Mode int

const (
	// ModeSearch runs the rotating free-text query fan-out
	ModeSearch Mode = iota
	// ModeAddress lists every venue for one token address
	ModeAddress
	// ModeWatchlist resolves the saved addresses in one batch
	ModeWatchlist
)

func (m Mode) String() string {
	switch m {
	case ModeAddress:
		return "address"
	case ModeWatchlist:
		return "watchlist"
	default:
		return "search"
	}
}

// Snapshot is one consistent read of the screener state, safe to serialize
type Snapshot struct {
	Mode      string              `json:"mode"`
	View      string              `json:"view"`
	RankBy    string              `json:"rank_by"`
	Rows      []domain.PairRecord `json:"rows"`
	TotalVol  float64             `json:"total_volume_24h"`
	TotalTxns int                 `json:"total_txns_24h"`
	PoolSize  int                 `json:"pool_size"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Options configures a ScreenerService
type Options struct {
	Queries    engine.QuerySet
	PoolCap    int
	WorkingSet int
	ViewLimit  int
	Refresh    time.Duration
}

// ScreenerService owns the pair pool and drives poll cycles against the
// market source. One instance serves all readers; state is guarded by mu.
type ScreenerService struct {
	mu sync.RWMutex

	source    domain.MarketSource
	watchlist domain.WatchlistStore
	metrics   *infra.Metrics

	queries    engine.QuerySet
	pool       *engine.Pool
	workingSet int
	viewLimit  int
	refresh    time.Duration

	mode    Mode
	address string // token address, ModeAddress only

	filters engine.Filters
	view    engine.ViewMode
	rankBy  engine.RankBy

	// rows is the working set the rank pipeline reads, rebuilt after
	// every successful poll
	rows      []domain.PairRecord
	updatedAt time.Time

	// runCancel aborts the in-flight poll; runSeq fences its results out
	// so a superseded run can never merge
	runCancel context.CancelFunc
	runSeq    uint64

	onUpdate func(Snapshot)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScreenerService creates a screener over the given market source
func NewScreenerService(source domain.MarketSource, watchlist domain.WatchlistStore, opts Options) *ScreenerService {
	refresh := opts.Refresh
	if refresh < infra.MinRefreshSec*time.Second {
		refresh = 12 * time.Second
	}
	workingSet := opts.WorkingSet
	if workingSet <= 0 {
		workingSet = 400
	}

	return &ScreenerService{
		source:     source,
		watchlist:  watchlist,
		metrics:    infra.GlobalMetrics,
		queries:    opts.Queries,
		pool:       engine.NewPool(opts.PoolCap),
		workingSet: workingSet,
		viewLimit:  opts.ViewLimit,
		refresh:    refresh,
	}
}

// SetOnUpdate registers a callback invoked after every successful poll.
// Must be set before Start.
func (s *ScreenerService) SetOnUpdate(fn func(Snapshot)) {
	s.onUpdate = fn
}

// ======================================================================================
// Mode and view state
// ======================================================================================

// UseSearchMode switches to the rotating query fan-out.
// The pool is reset so address results cannot bleed into search views.
func (s *ScreenerService) UseSearchMode() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeSearch {
		return
	}
	s.mode = ModeSearch
	s.address = ""
	s.resetLocked()
}

// UseAddressMode switches to direct lookup for one token address.
// The raw input may be a bare address or a URL containing one; anything
// else is rejected before any network work happens.
func (s *ScreenerService) UseAddressMode(raw string) error {
	addr := domain.ExtractAddress(raw)
	if addr == "" {
		return domain.ErrInvalidAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = ModeAddress
	s.address = addr
	s.resetLocked()
	return nil
}

// UseWatchlistMode switches to resolving the saved addresses each cycle
func (s *ScreenerService) UseWatchlistMode() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeWatchlist {
		return
	}
	s.mode = ModeWatchlist
	s.address = ""
	s.resetLocked()
}

// resetLocked drops all derived state. Caller holds mu.
// Advancing runSeq fences out an in-flight run that was already past its
// cancellation check and waiting on mu; its results must not land in the
// freshly reset pool.
func (s *ScreenerService) resetLocked() {
	s.pool.Reset()
	s.rows = nil
	s.updatedAt = time.Time{}
	s.runSeq++
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.metrics.SetPoolSize(0)
}

// Mode returns the current source mode
func (s *ScreenerService) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetFilters replaces the active filter set
func (s *ScreenerService) SetFilters(f engine.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// SetView selects the tab and rank strategy for subsequent snapshots
func (s *ScreenerService) SetView(view engine.ViewMode, by engine.RankBy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
	s.rankBy = by
}

// ======================================================================================
// Polling
// ======================================================================================

// Poll runs one fetch cycle for the current mode and folds the results in.
// A new call cancels any still-running previous cycle; the superseded cycle's
// results are discarded even if its requests complete afterwards.
func (s *ScreenerService) Poll(ctx context.Context) error {
	runCtx, seq := s.beginRun(ctx)
	defer s.endRun(seq)

	start := time.Now()

	var (
		records []domain.PairRecord
		err     error
	)

	s.mu.RLock()
	mode, address := s.mode, s.address
	s.mu.RUnlock()

	switch mode {
	case ModeAddress:
		records, err = s.fetchAddress(runCtx, address)
	case ModeWatchlist:
		records, err = s.fetchWatchlist(runCtx)
	default:
		records, err = s.fetchSearch(runCtx)
	}

	if err != nil {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		// An empty watchlist is a state, not a failure
		if !errors.Is(err, domain.ErrEmptyResult) {
			s.metrics.RecordPollFailure()
		}
		return err
	}

	// A newer run may have started while requests were in flight; its
	// state must win, so this run's results are dropped on the floor.
	if runCtx.Err() != nil {
		return runCtx.Err()
	}

	s.apply(seq, mode, records, start)

	// Zero usable records is a state the UI renders, not a failure
	s.mu.RLock()
	empty := len(s.rows) == 0
	s.mu.RUnlock()
	if empty {
		return domain.ErrEmptyResult
	}
	return nil
}

// beginRun cancels the previous in-flight cycle and registers a new one
func (s *ScreenerService) beginRun(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCancel != nil {
		s.runCancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	s.runSeq++
	return runCtx, s.runSeq
}

// endRun releases the run's cancel func if it is still the active one
func (s *ScreenerService) endRun(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runSeq == seq && s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
}

// fetchSearch fans out one goroutine per query for this cycle. Individual
// query failures degrade to empty results; only a cycle where every query
// failed is an error, and a retriable one.
func (s *ScreenerService) fetchSearch(ctx context.Context) ([]domain.PairRecord, error) {
	s.mu.RLock()
	queries := s.queries.ForCycle(time.Now())
	s.mu.RUnlock()

	results := make([][]domain.PairRecord, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			recs, err := s.source.Search(ctx, q)
			if err != nil {
				slog.Debug("Search query failed", slog.String("query", q), slog.Any("error", err))
				errs[i] = err
				return
			}
			results[i] = recs
		}(i, q)
	}
	wg.Wait()

	var (
		merged  []domain.PairRecord
		failed  int
		lastErr error
	)
	for i := range results {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			continue
		}
		merged = append(merged, results[i]...)
	}
	s.metrics.RecordQueries(len(queries), failed)

	if failed == len(queries) {
		return nil, domain.NewFetchError(len(queries), lastErr)
	}
	return merged, nil
}

// fetchAddress lists every venue trading the given token
func (s *ScreenerService) fetchAddress(ctx context.Context, address string) ([]domain.PairRecord, error) {
	s.metrics.RecordQueries(1, 0)
	records, err := s.source.TokenPairs(ctx, address)
	if err != nil {
		return nil, domain.NewFetchError(1, err)
	}
	return records, nil
}

// fetchWatchlist resolves all saved addresses in one batched call
func (s *ScreenerService) fetchWatchlist(ctx context.Context) ([]domain.PairRecord, error) {
	addrs, err := s.watchlist.List()
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, domain.ErrEmptyResult
	}

	s.metrics.RecordQueries(1, 0)
	records, err := s.source.Tokens(ctx, addrs)
	if err != nil {
		return nil, domain.NewFetchError(1, err)
	}
	return records, nil
}

// apply folds a completed cycle's records into the pool and rebuilds the
// working set, unless a newer run has already superseded this one.
func (s *ScreenerService) apply(seq uint64, mode Mode, records []domain.PairRecord, start time.Time) {
	now := time.Now()

	s.mu.Lock()
	if s.runSeq != seq {
		s.mu.Unlock()
		return
	}

	// Direct lookups replace the working set outright; only search mode
	// accumulates best observations across cycles.
	if mode != ModeSearch {
		s.pool.Reset()
	}
	added, updated := s.pool.Merge(records, now)

	switch mode {
	case ModeAddress:
		// Per-venue listing: every pair for the token, deepest first,
		// volume breaking liquidity ties
		rows := s.pool.Records()
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].LiquidityUsd != rows[j].LiquidityUsd {
				return rows[i].LiquidityUsd > rows[j].LiquidityUsd
			}
			return rows[i].Volume24hUsd > rows[j].Volume24hUsd
		})
		if len(rows) > addressViewCap {
			rows = rows[:addressViewCap]
		}
		s.rows = rows
	default:
		// One row per token, best venue wins
		s.rows = engine.BestPerToken(s.pool.Recent(s.workingSet))
	}
	s.updatedAt = now

	s.metrics.RecordMerged(added + updated)
	s.metrics.SetPoolSize(s.pool.Len())
	onUpdate := s.onUpdate
	s.mu.Unlock()

	s.metrics.RecordPoll(time.Since(start))
	slog.Debug("Poll cycle applied",
		slog.String("mode", mode.String()),
		slog.Int("fetched", len(records)),
		slog.Int("added", added),
		slog.Int("updated", updated))

	if onUpdate != nil {
		onUpdate(s.Snapshot())
	}
}

// ======================================================================================
// Reads
// ======================================================================================

// Ranked returns the current working set filtered and ordered for a view
func (s *ScreenerService) Ranked(view engine.ViewMode, by engine.RankBy) []domain.PairRecord {
	s.mu.RLock()
	rows := make([]domain.PairRecord, len(s.rows))
	copy(rows, s.rows)
	filters := s.filters
	limit := s.viewLimit
	s.mu.RUnlock()

	return engine.Rank(filters.Apply(rows), view, by, limit)
}

// Snapshot returns the ranked rows for the active view plus aggregates
func (s *ScreenerService) Snapshot() Snapshot {
	s.mu.RLock()
	mode, view, by := s.mode, s.view, s.rankBy
	poolSize := s.pool.Len()
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	rows := s.Ranked(view, by)

	var totalVol float64
	var totalTxns int
	for i := range rows {
		totalVol += rows[i].Volume24hUsd
		totalTxns += rows[i].Txns24h()
	}

	return Snapshot{
		Mode:      mode.String(),
		View:      view.String(),
		RankBy:    by.String(),
		Rows:      rows,
		TotalVol:  totalVol,
		TotalTxns: totalTxns,
		PoolSize:  poolSize,
		UpdatedAt: updatedAt,
	}
}

// ======================================================================================
// Lifecycle
// ======================================================================================

// Start begins the auto-refresh loop. The first poll runs immediately.
func (s *ScreenerService) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.Poll(ctx); err != nil {
		slog.Warn("Initial poll failed", slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Screener polling panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(s.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Screener polling stopped")
				return
			case <-ticker.C:
				err := s.Poll(ctx)
				switch {
				case err == nil || errors.Is(err, domain.ErrEmptyResult):
				case ctx.Err() != nil:
					return
				case domain.IsRetriable(err):
					slog.Warn("Poll cycle failed, will retry", slog.Any("error", err))
				default:
					slog.Error("Poll cycle failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Stop halts the auto-refresh loop and waits for it to exit
func (s *ScreenerService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
