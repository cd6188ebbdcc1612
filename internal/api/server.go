package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nirdla020/basescreener/internal/domain"
	"github.com/Nirdla020/basescreener/internal/engine"
	"github.com/Nirdla020/basescreener/internal/infra"
	"github.com/Nirdla020/basescreener/internal/service"
)

// Server exposes the screener over HTTP: a JSON API for state changes and
// one-shot reads, plus a WebSocket that pushes a snapshot after every poll.
type Server struct {
	screener  *service.ScreenerService
	watchlist domain.WatchlistStore
	config    domain.ConfigStore
	hub       *Hub
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
	iconDir   string
}

// NewServer creates the HTTP server for the given screener
func NewServer(screener *service.ScreenerService, watchlist domain.WatchlistStore, addr, iconDir string) *Server {
	s := &Server{
		screener:  screener,
		watchlist: watchlist,
		hub:       NewHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local dashboard, any origin
			},
		},
		iconDir: iconDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/screener", s.handleScreener)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/watchlist", s.handleWatchlist)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/health", s.handleHealth)
	if iconDir != "" {
		mux.Handle("/icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(iconDir))))
	}

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Hub returns the WebSocket hub for wiring the screener's update callback
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetConfigStore wires the persistence for sticky view state
func (s *Server) SetConfigStore(cs domain.ConfigStore) {
	s.config = cs
}

// Start begins serving. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server starting", slog.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections and closes the hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpSrv.Shutdown(ctx)
}

// BroadcastSnapshot pushes a snapshot to every WebSocket client
func (s *Server) BroadcastSnapshot(snap service.Snapshot) {
	payload, err := json.Marshal(toPayload(snap))
	if err != nil {
		slog.Error("Failed to marshal snapshot", slog.Any("error", err))
		return
	}
	s.hub.Broadcast(payload)
}

// rowPayload decorates a record with its rendered age for the table
type rowPayload struct {
	domain.PairRecord
	Age string `json:"age"`
}

// snapshotPayload is the wire form of a snapshot; Rows shadows the
// embedded field so every row carries its age
type snapshotPayload struct {
	service.Snapshot
	Rows []rowPayload `json:"rows"`
}

func toPayload(snap service.Snapshot) snapshotPayload {
	now := time.Now()
	rows := make([]rowPayload, len(snap.Rows))
	for i, r := range snap.Rows {
		rows[i] = rowPayload{PairRecord: r, Age: domain.FormatAge(r.PairCreatedAt, now)}
	}
	return snapshotPayload{Snapshot: snap, Rows: rows}
}

// ======================================================================================
// Handlers
// ======================================================================================

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	// New clients get the current state before joining the broadcast set
	initial, err := json.Marshal(toPayload(s.screener.Snapshot()))
	if err != nil {
		initial = nil
	}
	s.hub.serve(conn, initial)
}

// handleScreener returns ranked rows for a view without touching the
// sticky view state. view and rank default to the active ones.
func (s *Server) handleScreener(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	snap := s.screener.Snapshot()
	q := r.URL.Query()
	if v := q.Get("view"); v != "" || q.Get("rank") != "" {
		view := engine.ParseViewMode(v)
		rank := engine.ParseRankBy(q.Get("rank"))
		rows := s.screener.Ranked(view, rank)

		snap.View = view.String()
		snap.RankBy = rank.String()
		snap.Rows = rows
		snap.TotalVol, snap.TotalTxns = totals(rows)
	}

	writeJSON(w, http.StatusOK, toPayload(snap))
}

// modeRequest switches the data source
type modeRequest struct {
	Mode  string `json:"mode"`
	Query string `json:"query,omitempty"` // address or URL, address mode only
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Mode {
	case "address":
		if err := s.screener.UseAddressMode(req.Query); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "watchlist":
		s.screener.UseWatchlistMode()
	case "search":
		s.screener.UseSearchMode()
	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}

	// Refresh in the background so the switch responds immediately
	go func() {
		if err := s.screener.Poll(context.Background()); err != nil &&
			!errors.Is(err, context.Canceled) {
			slog.Warn("Poll after mode switch failed", slog.Any("error", err))
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

// filtersRequest narrows the visible rows
type filtersRequest struct {
	MinLiquidity float64 `json:"min_liquidity"`
	MinVolume    float64 `json:"min_volume"`
	MinTxns      int     `json:"min_txns"`
	RequireIcon  bool    `json:"require_icon"`
	Match        string  `json:"match"`
	View         string  `json:"view"`
	RankBy       string  `json:"rank_by"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req filtersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filters := engine.Filters{
		MinLiquidity: req.MinLiquidity,
		MinVolume:    req.MinVolume,
		MinTxns:      req.MinTxns,
		RequireIcon:  req.RequireIcon,
		Match:        req.Match,
	}
	view := engine.ParseViewMode(req.View)
	rank := engine.ParseRankBy(req.RankBy)
	s.screener.SetFilters(filters)
	s.screener.SetView(view, rank)

	// Persist the sticky view state so it survives restarts
	if s.config != nil {
		persist := map[string]string{
			"view_mode": view.String(),
			"rank_by":   rank.String(),
		}
		if raw, err := json.Marshal(filters); err == nil {
			persist["filters"] = string(raw)
		}
		for key, value := range persist {
			if err := s.config.SaveConfig(key, value); err != nil {
				slog.Debug("Failed to persist view state",
					slog.String("key", key), slog.Any("error", err))
			}
		}
	}

	writeJSON(w, http.StatusOK, toPayload(s.screener.Snapshot()))
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		addrs, err := s.watchlist.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})

	case http.MethodPost:
		addr := s.watchlistAddr(w, r)
		if addr == "" {
			return
		}
		if err := s.watchlist.Add(addr); err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, domain.ErrInvalidAddress):
				status = http.StatusBadRequest
			case errors.Is(err, domain.ErrWatchlistFull):
				status = http.StatusConflict
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"added": strings.ToLower(addr)})

	case http.MethodDelete:
		addr := s.watchlistAddr(w, r)
		if addr == "" {
			return
		}
		if err := s.watchlist.Remove(addr); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"removed": strings.ToLower(addr)})

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET, POST or DELETE")
	}
}

// watchlistAddr pulls the address from the query string, writing the error
// response itself when it is missing
func (s *Server) watchlistAddr(w http.ResponseWriter, r *http.Request) string {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "address parameter required")
	}
	return addr
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := infra.GlobalMetrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"polls_total":    snap.PollsTotal,
		"poll_failures":  snap.PollFailures,
		"queries_issued": snap.QueriesIssued,
		"queries_failed": snap.QueriesFailed,
		"records_merged": snap.RecordsMerged,
		"avg_poll_ms":    strconv.FormatFloat(float64(snap.AvgPollNs)/1e6, 'f', 2, 64),
		"pool_size":      snap.PoolSize,
		"ws_clients":     snap.WSClients,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
		"clients":   s.hub.ClientCount(),
		"mode":      s.screener.Mode().String(),
	})
}

// ======================================================================================
// Helpers
// ======================================================================================

func totals(rows []domain.PairRecord) (vol float64, txns int) {
	for i := range rows {
		vol += rows[i].Volume24hUsd
		txns += rows[i].Txns24h()
	}
	return vol, txns
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
