package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nirdla020/basescreener/internal/api"
	"github.com/Nirdla020/basescreener/internal/app"
	"github.com/Nirdla020/basescreener/internal/engine"
	"github.com/Nirdla020/basescreener/internal/infra/dexscreener"
	"github.com/Nirdla020/basescreener/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Market Source (Gateway)
	source := dexscreener.NewClient(
		cfg.API.DexScreener.BaseURL,
		cfg.API.DexScreener.ChainID,
		time.Duration(cfg.API.DexScreener.TimeoutSec)*time.Second,
	)

	// 5. Screener Service (The Poll Loop)
	screener := service.NewScreenerService(source, bootstrap.Storage, service.Options{
		Queries: engine.NewQuerySet(
			cfg.Screener.TrendingQueries,
			cfg.Screener.DiscoveryQueries,
			cfg.Screener.DiscoverySize,
		),
		PoolCap:    cfg.Screener.PoolCap,
		WorkingSet: cfg.Screener.WorkingSet,
		ViewLimit:  cfg.Screener.ViewLimit,
		Refresh:    time.Duration(cfg.Screener.RefreshSec) * time.Second,
	})

	// Restore the persisted view state from the last session
	if saved, err := bootstrap.Storage.LoadConfigMap(); err == nil {
		screener.SetView(engine.ParseViewMode(saved["view_mode"]), engine.ParseRankBy(saved["rank_by"]))
		if raw, ok := saved["filters"]; ok {
			var filters engine.Filters
			if err := json.Unmarshal([]byte(raw), &filters); err == nil {
				screener.SetFilters(filters)
			}
		}
	}

	// 6. HTTP + WebSocket Server
	server := api.NewServer(screener, bootstrap.Storage, cfg.Server.Addr, bootstrap.Downloader.BasePath())
	server.SetConfigStore(bootstrap.Storage)
	screener.SetOnUpdate(func(snap service.Snapshot) {
		server.BroadcastSnapshot(snap)
		go bootstrap.SyncIcons(ctx, snap.Rows)
	})

	if err := screener.Start(ctx); err != nil {
		slog.Error("Failed to start screener", slog.Any("error", err))
		os.Exit(1)
	}
	defer screener.Stop()

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ BaseScreener fully operational. Press Ctrl+C to exit.",
		slog.String("addr", cfg.Server.Addr),
		slog.String("chain", cfg.API.DexScreener.ChainID))

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", slog.Any("error", err))
	}
}
