package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS chart_cache (
	basket_id     TEXT    NOT NULL,
	year          INTEGER NOT NULL,
	payload       TEXT    NOT NULL,
	updated_at_ms BIGINT  NOT NULL,
	PRIMARY KEY (basket_id, year)
)`

type PgChartRepo struct {
	pool *pgxpool.Pool
}

func NewPgChartRepo(pool *pgxpool.Pool) *PgChartRepo {
	return &PgChartRepo{pool: pool}
}

func (r *PgChartRepo) InitSchema(ctx context.Context) error {
	return r.conn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx, pgSchema)
		return err
	})
}

func (r *PgChartRepo) Get(ctx context.Context, basketID string, year int) (*models.ChartRecord, error) {
	var rec *models.ChartRecord
	err := r.conn(ctx, func(c *pgxpool.Conn) error {
		row := c.QueryRow(ctx,
			`SELECT basket_id, year, payload, updated_at_ms
			 FROM chart_cache WHERE basket_id = $1 AND year = $2`,
			basketID, year,
		)
		var err error
		rec, err = scanChart(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PgChartRepo) Upsert(ctx context.Context, rec *models.ChartRecord) error {
	return r.conn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx,
			`INSERT INTO chart_cache (basket_id, year, payload, updated_at_ms)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (basket_id, year) DO UPDATE SET
			     payload = excluded.payload,
			     updated_at_ms = excluded.updated_at_ms`,
			rec.BasketID, rec.Year, rec.Payload, rec.UpdatedAtMs,
		)
		return err
	})
}

func (r *PgChartRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *PgChartRepo) conn(ctx context.Context, fn func(c *pgxpool.Conn) error) error {
	c, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire: %w", apperr.ErrIO, err)
	}
	defer c.Release()

	if err := fn(c); err != nil {
		return fmt.Errorf("%w: postgres: %w", apperr.ErrIO, err)
	}
	return nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanChart(row scannable) (*models.ChartRecord, error) {
	var rec models.ChartRecord
	if err := row.Scan(&rec.BasketID, &rec.Year, &rec.Payload, &rec.UpdatedAtMs); err != nil {
		return nil, err
	}
	return &rec, nil
}
