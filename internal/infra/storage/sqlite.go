package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"trail_bot/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the SQLite-backed trade journal. Audit only; the position state
// machine never reads from it.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the journal database. An empty path resolves
// a per-user default location.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
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
	if err := db.AutoMigrate(&domain.TradeRecord{}, &domain.OrderEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
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

	return filepath.Join(configDir, "TrailBot", "data", "trail_bot.db"), nil
}

// RecordOrderEvent journals one order action or confirmation.
func (s *Storage) RecordOrderEvent(ev *domain.OrderEvent) error {
	return s.db.Create(ev).Error
}

// RecordTrade journals one completed round trip.
func (s *Storage) RecordTrade(tr *domain.TradeRecord) error {
	return s.db.Create(tr).Error
}

// RecentTrades returns the most recently closed round trips, newest first.
func (s *Storage) RecentTrades(limit int) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	err := s.db.Order("closed_at DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

// OrderHistory returns the journaled events for one order, oldest first.
func (s *Storage) OrderHistory(orderID int64) ([]domain.OrderEvent, error) {
	var events []domain.OrderEvent
	err := s.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// TotalPnl sums the realized PnL over all journaled round trips.
func (s *Storage) TotalPnl() (decimal.Decimal, error) {
	var trades []domain.TradeRecord
	if err := s.db.Find(&trades).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.Pnl)
	}
	return total, nil
}
