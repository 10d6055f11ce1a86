package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cancel_sweep/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal is the SQLite audit trail of cancellation attempts.
type Journal struct {
	db *gorm.DB
}

// OpenJournal opens (or creates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newJournal(db)
}

func newJournal(db *gorm.DB) (*Journal, error) {
	// Attempts are recorded from many goroutines; SQLite takes one writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	// Auto Migration
	if err := db.AutoMigrate(&domain.CancellationRecord{}, &domain.RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Attempt Operations
// ======================================================================================

// Record appends one attempt.
func (j *Journal) Record(ctx context.Context, rec domain.CancellationRecord) error {
	rec.ID = 0
	return j.db.WithContext(ctx).Create(&rec).Error
}

// ListRun returns the attempts of a run ordered by order id.
func (j *Journal) ListRun(ctx context.Context, runID string) ([]domain.CancellationRecord, error) {
	var recs []domain.CancellationRecord
	err := j.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("order_id, id").
		Find(&recs).Error
	return recs, err
}

// OrderHistory returns every attempt made on an order across runs, oldest
// first.
func (j *Journal) OrderHistory(ctx context.Context, id domain.OrderID) ([]domain.CancellationRecord, error) {
	var recs []domain.CancellationRecord
	err := j.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id").
		Find(&recs).Error
	return recs, err
}

// ======================================================================================
// Run Operations
// ======================================================================================

// FinishRun creates or updates a run summary.
func (j *Journal) FinishRun(ctx context.Context, run domain.RunRecord) error {
	return j.db.WithContext(ctx).Save(&run).Error
}

// GetRun retrieves a run summary by id.
func (j *Journal) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := j.db.WithContext(ctx).First(&run, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecentRuns returns up to limit run summaries, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	err := j.db.WithContext(ctx).
		Order("started_at desc").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
