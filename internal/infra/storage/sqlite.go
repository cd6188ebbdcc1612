package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// DefaultWatchlistMax caps how many addresses the watchlist may hold
const DefaultWatchlistMax = 30

// Storage persists the watchlist and user configuration in SQLite
type Storage struct {
	db           *gorm.DB
	watchlistMax int
}

// NewStorage creates a new SQLite storage instance at the default OS path
func NewStorage(watchlistMax int) (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}
	return NewStorageAt(dbPath, watchlistMax)
}

// NewStorageAt creates a SQLite storage instance at an explicit path
func NewStorageAt(dbPath string, watchlistMax int) (*Storage, error) {
	if watchlistMax <= 0 {
		watchlistMax = DefaultWatchlistMax
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.WatchEntry{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db, watchlistMax: watchlistMax}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "BaseScreener", "data", "basescreener.db"), nil
}

// ======================================================================================
// Watchlist Operations
// ======================================================================================

// List returns all watched addresses, newest first
func (s *Storage) List() ([]string, error) {
	var entries []domain.WatchEntry
	if err := s.db.Order("position asc").Find(&entries).Error; err != nil {
		return nil, err
	}

	addrs := make([]string, len(entries))
	for i, e := range entries {
		addrs[i] = e.Address
	}
	return addrs, nil
}

// Add saves a token address at the top of the watchlist.
// Re-adding an existing address is a no-op.
func (s *Storage) Add(address string) error {
	if !domain.IsAddress(address) {
		return domain.ErrInvalidAddress
	}
	addr := domain.NormalizeAddress(address)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.WatchEntry
		err := tx.First(&existing, "address = ?", addr).Error
		if err == nil {
			return nil // Already watched
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&domain.WatchEntry{}).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(s.watchlistMax) {
			return domain.ErrWatchlistFull
		}

		// Shift everything down, then insert at the top
		if err := tx.Model(&domain.WatchEntry{}).
			Where("1 = 1").
			Update("position", gorm.Expr("position + 1")).Error; err != nil {
			return err
		}

		return tx.Create(&domain.WatchEntry{Address: addr, Position: 0}).Error
	})
}

// Remove deletes a token address from the watchlist.
// Removing an unknown address is a no-op.
func (s *Storage) Remove(address string) error {
	addr := domain.NormalizeAddress(address)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry domain.WatchEntry
		err := tx.First(&entry, "address = ?", addr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}

		// Close the gap left behind
		return tx.Model(&domain.WatchEntry{}).
			Where("position > ?", entry.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
