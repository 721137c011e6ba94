package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/swfung/dualcannon/pkg/database"
)

// OrderRecord is one audited order event.
type OrderRecord struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // buy | sell
	Date       string  `json:"date,omitempty"`
	Time       string  `json:"time,omitempty"`
	CashAmount float64 `json:"cash_amount,omitempty"`
	Qty        int64   `json:"qty,omitempty"`
	Accepted   bool    `json:"accepted"`
	Reason     string  `json:"reason,omitempty"`
}

// Repository persists the order audit trail.
type Repository struct {
	db *database.DB
}

// NewRepository creates an execution repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// LogOrder appends one order event.
func (r *Repository) LogOrder(ctx context.Context, rec OrderRecord) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO order_log (symbol, side, trade_date, trade_time, cash_amount, qty, accepted, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Symbol, rec.Side, rec.Date, rec.Time, rec.CashAmount, rec.Qty, rec.Accepted, rec.Reason, time.Now())
	if err != nil {
		return fmt.Errorf("insert order log: %w", err)
	}
	return nil
}

// RecentOrders returns the newest order events, newest first.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]OrderRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT symbol, side, trade_date, trade_time, cash_amount, qty, accepted, reason
		 FROM order_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query order log: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(&rec.Symbol, &rec.Side, &rec.Date, &rec.Time,
			&rec.CashAmount, &rec.Qty, &rec.Accepted, &rec.Reason); err != nil {
			return nil, fmt.Errorf("scan order log: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
