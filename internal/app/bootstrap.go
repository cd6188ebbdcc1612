package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Nirdla020/basescreener/internal/domain"
	"github.com/Nirdla020/basescreener/internal/infra"
	"github.com/Nirdla020/basescreener/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (DB, Dir, etc.)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping BaseScreener...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Screener.WatchlistMax)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader()
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("✅ Icon downloader ready")

	return nil
}

// SyncIcons caches the icons for a batch of pair records in the background.
// Already-cached icons are skipped by the downloader.
func (b *Bootstrap) SyncIcons(ctx context.Context, records []domain.PairRecord) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, rec := range records {
		if rec.IconURL == "" || rec.BaseToken.Symbol == "" {
			continue
		}

		wg.Add(1)
		go func(symbol, iconURL string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := b.Downloader.Fetch(ctx, symbol, iconURL); err != nil {
				slog.Debug("Failed to cache icon",
					slog.String("symbol", symbol), slog.Any("error", err))
			}
		}(rec.BaseToken.Symbol, rec.IconURL)
	}

	wg.Wait()
}
