package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nirdla020/basescreener/internal/domain"
	"github.com/Nirdla020/basescreener/internal/engine"
	"github.com/Nirdla020/basescreener/internal/service"
)

// stubSource feeds a fixed result set into the screener
type stubSource struct {
	records []domain.PairRecord
}

func (s *stubSource) Search(_ context.Context, _ string) ([]domain.PairRecord, error) {
	return s.records, nil
}

func (s *stubSource) TokenPairs(_ context.Context, _ string) ([]domain.PairRecord, error) {
	return s.records, nil
}

func (s *stubSource) Tokens(_ context.Context, _ []string) ([]domain.PairRecord, error) {
	return s.records, nil
}

// memWatchlist is an in-memory WatchlistStore
type memWatchlist struct {
	mu    sync.Mutex
	addrs []string
}

func (m *memWatchlist) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.addrs...), nil
}

func (m *memWatchlist) Add(addr string) error {
	if !domain.IsAddress(addr) {
		return domain.ErrInvalidAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrs = append([]string{strings.ToLower(addr)}, m.addrs...)
	return nil
}

func (m *memWatchlist) Remove(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.addrs {
		if a == strings.ToLower(addr) {
			m.addrs = append(m.addrs[:i], m.addrs[i+1:]...)
			break
		}
	}
	return nil
}

func newTestServer(t *testing.T, records []domain.PairRecord) (*Server, *service.ScreenerService, *memWatchlist) {
	t.Helper()

	wl := &memWatchlist{}
	svc := service.NewScreenerService(&stubSource{records: records}, wl, service.Options{
		Queries: engine.NewQuerySet([]string{"q"}, []string{"d"}, 1),
	})
	srv := NewServer(svc, wl, ":0", "")
	return srv, svc, wl
}

func sampleRecords() []domain.PairRecord {
	return []domain.PairRecord{
		{
			PairAddress:  "0xp1",
			ChainID:      "base",
			BaseToken:    domain.Token{Address: "0xt1", Symbol: "AAA"},
			LiquidityUsd: 9_000,
			Volume24hUsd: 1_000,
			Buys24h:      10,
			Sells24h:     5,
		},
		{
			PairAddress:  "0xp2",
			ChainID:      "base",
			BaseToken:    domain.Token{Address: "0xt2", Symbol: "BBB"},
			LiquidityUsd: 100,
			Volume24hUsd: 4_000,
			Buys24h:      2,
		},
	}
}

func TestHandleScreener(t *testing.T) {
	srv, svc, _ := newTestServer(t, sampleRecords())
	if err := svc.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/screener?view=top", nil)
	w := httptest.NewRecorder()
	srv.handleScreener(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var snap service.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if snap.View != "top" {
		t.Errorf("Expected view 'top', got %q", snap.View)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(snap.Rows))
	}
	if snap.Rows[0].PairAddress != "0xp1" {
		t.Errorf("top view must lead with the deepest pair, got %s", snap.Rows[0].PairAddress)
	}
	if snap.TotalVol != 5_000 {
		t.Errorf("Expected total volume 5000, got %v", snap.TotalVol)
	}
	if snap.TotalTxns != 17 {
		t.Errorf("Expected 17 total txns, got %d", snap.TotalTxns)
	}
}

func TestHandleScreener_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/screener", nil)
	w := httptest.NewRecorder()
	srv.handleScreener(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestHandleMode(t *testing.T) {
	srv, svc, _ := newTestServer(t, sampleRecords())

	t.Run("Invalid Address Rejected", func(t *testing.T) {
		body := strings.NewReader(`{"mode":"address","query":"not-an-address"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/mode", body)
		w := httptest.NewRecorder()
		srv.handleMode(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
		if svc.Mode() != service.ModeSearch {
			t.Error("failed switch must leave the mode unchanged")
		}
	})

	t.Run("Watchlist Switch", func(t *testing.T) {
		body := strings.NewReader(`{"mode":"watchlist"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/mode", body)
		w := httptest.NewRecorder()
		srv.handleMode(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if svc.Mode() != service.ModeWatchlist {
			t.Errorf("Expected watchlist mode, got %v", svc.Mode())
		}
	})

	t.Run("Unknown Mode", func(t *testing.T) {
		body := strings.NewReader(`{"mode":"bogus"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/mode", body)
		w := httptest.NewRecorder()
		srv.handleMode(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestHandleFilters(t *testing.T) {
	srv, svc, _ := newTestServer(t, sampleRecords())
	if err := svc.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	body := strings.NewReader(`{"min_liquidity": 1000, "view": "top", "rank_by": "volume"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/filters", body)
	w := httptest.NewRecorder()
	srv.handleFilters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var snap service.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(snap.Rows) != 1 || snap.Rows[0].PairAddress != "0xp1" {
		t.Errorf("Expected only the liquid pair, got %+v", snap.Rows)
	}
	if snap.View != "top" || snap.RankBy != "volume" {
		t.Errorf("Expected sticky view state in response, got %s/%s", snap.View, snap.RankBy)
	}
}

func TestHandleWatchlist(t *testing.T) {
	srv, _, wl := newTestServer(t, nil)
	valid := "0x" + strings.Repeat("ab", 20)

	t.Run("Add", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/watchlist?address="+valid, nil)
		w := httptest.NewRecorder()
		srv.handleWatchlist(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		addrs, _ := wl.List()
		if len(addrs) != 1 {
			t.Errorf("Expected 1 watched address, got %d", len(addrs))
		}
	})

	t.Run("Add Invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/watchlist?address=nope", nil)
		w := httptest.NewRecorder()
		srv.handleWatchlist(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("Missing Address Param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/watchlist", nil)
		w := httptest.NewRecorder()
		srv.handleWatchlist(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/watchlist", nil)
		w := httptest.NewRecorder()
		srv.handleWatchlist(w, req)

		var resp struct {
			Addresses []string `json:"addresses"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Addresses) != 1 || resp.Addresses[0] != valid {
			t.Errorf("Unexpected watchlist: %v", resp.Addresses)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/watchlist?address="+valid, nil)
		w := httptest.NewRecorder()
		srv.handleWatchlist(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		addrs, _ := wl.List()
		if len(addrs) != 0 {
			t.Errorf("Expected empty watchlist, got %v", addrs)
		}
	})
}

func TestToPayload_AddsRowAge(t *testing.T) {
	snap := service.Snapshot{Rows: []domain.PairRecord{
		{PairAddress: "0xp1", PairCreatedAt: time.Now().Add(-2 * time.Hour).Unix()},
		{PairAddress: "0xp2"}, // no creation timestamp
	}}

	p := toPayload(snap)
	if p.Rows[0].Age != "2h" {
		t.Errorf("Expected age 2h, got %q", p.Rows[0].Age)
	}
	if p.Rows[1].Age != "—" {
		t.Errorf("Expected placeholder age, got %q", p.Rows[1].Age)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
}

func TestWebSocket_InitialSnapshotAndBroadcast(t *testing.T) {
	srv, svc, _ := newTestServer(t, sampleRecords())
	if err := svc.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The connection gets the current state immediately
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap service.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read initial snapshot: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Errorf("Expected 2 rows in initial snapshot, got %d", len(snap.Rows))
	}

	// Subsequent broadcasts arrive on the same connection
	srv.BroadcastSnapshot(svc.Snapshot())
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	if got := srv.Hub().ClientCount(); got != 1 {
		t.Errorf("Expected 1 connected client, got %d", got)
	}
}
