package market

import (
	"context"
	"fmt"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/database"
)

// Repository stores bar history and the trading calendar in Postgres.
type Repository struct {
	db *database.DB
}

// NewRepository creates a market data repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// DailyBars returns up to count daily bars ending at asOfDate,
// ascending.
func (r *Repository) DailyBars(ctx context.Context, symbol, asOfDate string, count int) ([]contracts.Bar, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT trade_date, open, high, low, close, volume
		 FROM daily_bars
		 WHERE symbol = $1 AND trade_date <= $2
		 ORDER BY trade_date DESC LIMIT $3`,
		symbol, asOfDate, count)
	if err != nil {
		return nil, fmt.Errorf("query daily bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows, true)
	if err != nil {
		return nil, err
	}
	reverse(bars)
	return bars, nil
}

// MinuteBars returns the minute bars for symbol on date up to
// untilTime inclusive, ascending. count 0 means no limit.
func (r *Repository) MinuteBars(ctx context.Context, symbol, date, untilTime string, count int) ([]contracts.Bar, error) {
	limit := count
	if limit <= 0 {
		limit = 1 << 15
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT bar_time, open, high, low, close, volume
		 FROM minute_bars
		 WHERE symbol = $1 AND trade_date = $2 AND bar_time <= $3
		 ORDER BY bar_time DESC LIMIT $4`,
		symbol, date, untilTime, limit)
	if err != nil {
		return nil, fmt.Errorf("query minute bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows, false)
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Date = date
	}
	reverse(bars)
	return bars, nil
}

// PrevTradingDates returns the count trading dates before date,
// ascending.
func (r *Repository) PrevTradingDates(ctx context.Context, date string, count int) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT trade_date FROM trading_calendar
		 WHERE trade_date < $1 ORDER BY trade_date DESC LIMIT $2`,
		date, count)
	if err != nil {
		return nil, fmt.Errorf("query trading calendar: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates, nil
}

// IsTradingDate reports whether date is in the trading calendar.
func (r *Repository) IsTradingDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM trading_calendar WHERE trade_date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query trading calendar: %w", err)
	}
	return exists, nil
}

// UpsertMinuteBar stores one minute bar from the live feed.
func (r *Repository) UpsertMinuteBar(ctx context.Context, symbol string, bar contracts.Bar) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO minute_bars (symbol, trade_date, bar_time, open, high, low, close, volume)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (symbol, trade_date, bar_time) DO UPDATE
		 SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
		     close = EXCLUDED.close, volume = EXCLUDED.volume`,
		symbol, bar.Date, bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("upsert minute bar: %w", err)
	}
	return nil
}

// UpsertDailyBar stores one end-of-day bar.
func (r *Repository) UpsertDailyBar(ctx context.Context, symbol string, bar contracts.Bar) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO daily_bars (symbol, trade_date, open, high, low, close, volume)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (symbol, trade_date) DO UPDATE
		 SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
		     close = EXCLUDED.close, volume = EXCLUDED.volume`,
		symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("upsert daily bar: %w", err)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanBars reads bars whose first column is either the date (daily) or
// the minute time.
func scanBars(rows rowScanner, daily bool) ([]contracts.Bar, error) {
	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		var key string
		if err := rows.Scan(&key, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if daily {
			b.Date = key
		} else {
			b.Time = key
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func reverse(bars []contracts.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
