package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

const (
	DefaultQueryLimit = 100
	DefaultQueryHours = 24
)

const historyColumns = `symbol, price, volume, open, high, low, previous_close,
	change, change_percent, trend, volatility, source, sampled_at, processed_at`

// History is the append-only record of processed samples
type History struct {
	db  *sql.DB
	now func() time.Time
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db, now: time.Now}
}

// Append stores one processed sample. Re-appending the same symbol and
// timestamp is a no-op, so redelivered messages do not duplicate rows.
func (h *History) Append(ctx context.Context, ps models.ProcessedSample) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO stock_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol, sampled_at) DO NOTHING`,
		ps.Symbol, ps.Price, ps.Volume, ps.Open, ps.High, ps.Low, ps.PreviousClose,
		ps.Change, ps.ChangePercent, string(ps.Trend), string(ps.Volatility), ps.Source,
		ps.Timestamp.UTC(), ps.ProcessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history %s: %w", ps.Symbol, err)
	}
	return nil
}

// Query returns rows stored within the last sinceHours, newest first.
// Non-positive arguments fall back to 24 hours and 100 rows.
func (h *History) Query(ctx context.Context, symbol string, sinceHours, limit int) ([]models.ProcessedSample, error) {
	if sinceHours <= 0 {
		sinceHours = DefaultQueryHours
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	since := h.now().Add(-time.Duration(sinceHours) * time.Hour).UTC()

	rows, err := h.db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM stock_history
		WHERE symbol = $1 AND created_at >= $2
		ORDER BY sampled_at DESC, id DESC
		LIMIT $3`,
		symbol, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []models.ProcessedSample
	for rows.Next() {
		ps, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (h *History) Latest(ctx context.Context, symbol string) (models.ProcessedSample, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT `+historyColumns+`
		FROM stock_history
		WHERE symbol = $1
		ORDER BY sampled_at DESC, id DESC
		LIMIT 1`,
		symbol,
	)
	ps, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProcessedSample{}, errs.ErrNotFound
	}
	return ps, err
}

// Purge deletes rows stored more than olderThanDays ago and reports how many went.
func (h *History) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, errs.Invalid("days", "must be positive, got %d", olderThanDays)
	}
	cutoff := h.now().AddDate(0, 0, -olderThanDays).UTC()

	res, err := h.db.ExecContext(ctx, `DELETE FROM stock_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(s scanner) (models.ProcessedSample, error) {
	var (
		ps                         models.ProcessedSample
		volume                     sql.NullInt64
		open, high, low, prevClose sql.NullFloat64
		trend, volatility          string
	)
	err := s.Scan(
		&ps.Symbol, &ps.Price, &volume, &open, &high, &low, &prevClose,
		&ps.Change, &ps.ChangePercent, &trend, &volatility, &ps.Source,
		&ps.Timestamp, &ps.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ps, err
		}
		return ps, fmt.Errorf("scan history: %w", err)
	}
	ps.Trend = models.Trend(trend)
	ps.Volatility = models.Volatility(volatility)
	if volume.Valid {
		ps.Volume = &volume.Int64
	}
	ps.Open = nullFloat(open)
	ps.High = nullFloat(high)
	ps.Low = nullFloat(low)
	ps.PreviousClose = nullFloat(prevClose)
	return ps, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
