package selection

import (
	"context"
	"fmt"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/database"
)

// Repository persists screen results and built watchlists for audit
// and next-day review.
type Repository struct {
	db *database.DB
}

// NewRepository creates a selection repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveCandidates replaces the stored candidate set for a formula date.
func (r *Repository) SaveCandidates(ctx context.Context, formulaDate string, candidates []contracts.Candidate) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM screen_candidates WHERE formula_date = $1`, formulaDate); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}

	for _, c := range candidates {
		if _, err := tx.Exec(ctx,
			`INSERT INTO screen_candidates (formula_date, symbol) VALUES ($1, $2)`,
			c.FormulaDate, c.Symbol); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Symbol, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadCandidates returns the stored candidates for a formula date.
func (r *Repository) LoadCandidates(ctx context.Context, formulaDate string) ([]contracts.Candidate, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT symbol FROM screen_candidates WHERE formula_date = $1 ORDER BY symbol`, formulaDate)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []contracts.Candidate
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, contracts.Candidate{Symbol: symbol, FormulaDate: formulaDate})
	}
	return out, rows.Err()
}

// SaveWatchlist stores a frozen watchlist, replacing any earlier build
// for the same trade date.
func (r *Repository) SaveWatchlist(ctx context.Context, wl *contracts.Watchlist) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM watchlist_entries WHERE trade_date = $1`, wl.TradeDate); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}

	for _, e := range wl.Entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO watchlist_entries (trade_date, built_at, symbol, volume_ratio, rank)
			 VALUES ($1, $2, $3, $4, $5)`,
			wl.TradeDate, wl.BuiltAt, e.Symbol, e.VolumeRatio, e.Rank); err != nil {
			return fmt.Errorf("insert watchlist entry %s: %w", e.Symbol, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadWatchlist returns the stored watchlist for a trade date, or nil
// when none was built.
func (r *Repository) LoadWatchlist(ctx context.Context, tradeDate string) (*contracts.Watchlist, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT built_at, symbol, volume_ratio, rank
		 FROM watchlist_entries WHERE trade_date = $1 ORDER BY rank`, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	wl := &contracts.Watchlist{TradeDate: tradeDate}
	for rows.Next() {
		var e contracts.WatchlistEntry
		if err := rows.Scan(&wl.BuiltAt, &e.Symbol, &e.VolumeRatio, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		wl.Entries = append(wl.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(wl.Entries) == 0 {
		return nil, nil
	}
	return wl, nil
}
