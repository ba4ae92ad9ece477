package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChartStore persists chart records keyed by (basket id, year).
//
// Get returns (nil, nil) when no row exists for the key. Upsert inserts the
// row or replaces payload and updated_at_ms of the existing one in a single
// statement. Storage failures wrap apperr.ErrIO.
type ChartStore interface {
	InitSchema(ctx context.Context) error
	Get(ctx context.Context, basketID string, year int) (*models.ChartRecord, error)
	Upsert(ctx context.Context, rec *models.ChartRecord) error
	Close() error
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chart_cache (
	basket_id     TEXT    NOT NULL,
	year          INTEGER NOT NULL,
	payload       TEXT    NOT NULL,
	updated_at_ms INTEGER NOT NULL,
	PRIMARY KEY (basket_id, year)
)`

type SQLiteChartRepo struct {
	db *gorm.DB
}

func NewSQLiteChartRepo(db *gorm.DB) *SQLiteChartRepo {
	return &SQLiteChartRepo{db: db}
}

func (r *SQLiteChartRepo) InitSchema(ctx context.Context) error {
	return r.conn(ctx, func(tx *gorm.DB) error {
		return tx.Exec(sqliteSchema).Error
	})
}

func (r *SQLiteChartRepo) Get(ctx context.Context, basketID string, year int) (*models.ChartRecord, error) {
	var rec models.ChartRecord
	found := true
	err := r.conn(ctx, func(tx *gorm.DB) error {
		err := tx.Where("basket_id = ? AND year = ?", basketID, year).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (r *SQLiteChartRepo) Upsert(ctx context.Context, rec *models.ChartRecord) error {
	return r.conn(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "basket_id"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at_ms"}),
		}).Create(rec).Error
	})
}

func (r *SQLiteChartRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// conn runs fn on a connection checked out for this call only; it is
// returned to the pool whatever fn does.
func (r *SQLiteChartRepo) conn(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := r.db.WithContext(ctx).Connection(fn); err != nil {
		return fmt.Errorf("%w: sqlite: %w", apperr.ErrIO, err)
	}
	return nil
}
