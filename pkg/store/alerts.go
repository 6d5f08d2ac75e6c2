package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-alerts/pkg/errs"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

type Alerts struct {
	db  *sql.DB
	now func() time.Time
}

func NewAlerts(db *sql.DB) *Alerts {
	return &Alerts{db: db, now: time.Now}
}

// CreateAlerts inserts all alerts in one transaction and returns the rows
// actually created, with ids and trigger times filled in. An alert whose
// DedupeKey already exists is skipped and not returned.
func (s *Alerts) CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin alerts tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	triggeredAt := s.now().UTC()
	created := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO alerts (user_id, symbol, alert_type, threshold, message, dedupe_key, triggered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (dedupe_key) DO NOTHING
			RETURNING id`,
			a.UserID, a.Symbol, a.AlertType, decimalArg(a.Threshold), a.Message, nullString(a.DedupeKey), triggeredAt,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert alert %s for user %d: %w", a.Symbol, a.UserID, err)
		}
		a.ID = id
		a.TriggeredAt = triggeredAt
		a.IsRead = false
		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alerts tx: %w", err)
	}
	return created, nil
}

// ListAlerts returns a user's alerts, newest first.
func (s *Alerts) ListAlerts(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]models.Alert, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, alert_type, threshold, message, triggered_at, is_read
		FROM alerts
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY triggered_at DESC, id DESC
		LIMIT $3`,
		userID, unreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var (
			a         models.Alert
			threshold sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Symbol, &a.AlertType, &threshold, &a.Message, &a.TriggeredAt, &a.IsRead); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if a.Threshold, err = parseDecimal(threshold); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRead is the only mutation an alert allows.
func (s *Alerts) MarkRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark alert %d read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func decimalArg(v *float64) any {
	if v == nil {
		return nil
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func parseDecimal(v sql.NullString) (*float64, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", v.String, err)
	}
	f := d.InexactFloat64()
	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
