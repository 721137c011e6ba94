package session

import (
	"context"
	"time"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/execution"
	"github.com/swfung/dualcannon/internal/pattern"
	"github.com/swfung/dualcannon/internal/selection"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

const (
	sessionOpen  = "09:30"
	sessionClose = "15:00"
)

// WatchlistStore persists selection output for audit. Nil-safe via
// Driver.
type WatchlistStore interface {
	SaveCandidates(ctx context.Context, formulaDate string, candidates []contracts.Candidate) error
	SaveWatchlist(ctx context.Context, wl *contracts.Watchlist) error
}

// Driver sequences the whole pipeline on minute ticks. It is strictly
// single-threaded: one tick runs to completion before the next starts,
// so no component below it needs locking.
type Driver struct {
	cfg      *strategyconfig.Config
	data     contracts.MarketData
	universe contracts.UniverseSource
	screener *selection.Screener
	ranker   *selection.Ranker
	matcher  *pattern.Matcher
	manager  *execution.Manager
	store    WatchlistStore
	log      *logger.Logger

	// OnWatchlist, when set, is called once right after the watchlist
	// freezes (used to point the live feed at the day's symbols).
	OnWatchlist func(wl *contracts.Watchlist)

	state *DayState
}

// NewDriver wires the session driver. store may be nil.
func NewDriver(
	cfg *strategyconfig.Config,
	data contracts.MarketData,
	universe contracts.UniverseSource,
	screener *selection.Screener,
	ranker *selection.Ranker,
	matcher *pattern.Matcher,
	manager *execution.Manager,
	store WatchlistStore,
	log *logger.Logger,
) *Driver {
	return &Driver{
		cfg:      cfg,
		data:     data,
		universe: universe,
		screener: screener,
		ranker:   ranker,
		matcher:  matcher,
		manager:  manager,
		store:    store,
		log:      log,
	}
}

// State exposes the current day state for the status API. Callers must
// treat it as read-only.
func (d *Driver) State() *DayState {
	return d.state
}

// Tick runs one pipeline pass for the wall-clock moment now. The
// sequence is fixed: rollover, watchlist build, entry scan, retries,
// take-profits, stop check.
func (d *Driver) Tick(ctx context.Context, now time.Time) {
	date := now.Format("20060102")
	hhmm := now.Format("15:04")

	if d.state == nil || d.state.Date != date {
		d.rollover(ctx, date)
	}

	if hhmm < sessionOpen || hhmm > sessionClose {
		return
	}

	if d.state.Watchlist == nil && hhmm >= d.cfg.Ratio.BuildTime {
		d.buildWatchlist(ctx)
	}

	if d.state.Watchlist != nil {
		d.scanEntries(ctx, now, hhmm)
	}

	d.manager.ProcessPending(ctx, d.state.Book, now)
	d.manager.CheckTakeProfits(ctx, d.state.Book)
	d.manager.CheckStops(ctx, d.state.Book, date, hhmm)
}

// rollover resets the day state, carrying held positions over, and
// runs the pre-open screen against the last completed session.
func (d *Driver) rollover(ctx context.Context, date string) {
	var book *execution.Book
	if d.state != nil {
		book = d.state.Book
	}
	d.state = NewDayState(date, book)
	d.log.WithField("date", date).Info("Session rollover")

	prev, err := d.data.PrevTradingDates(ctx, date, 1)
	if err != nil || len(prev) == 0 {
		d.log.WithError(err).Warn("No reference session, screen skipped")
		return
	}
	d.state.FormulaDate = prev[0]

	symbols, err := d.universe.ListSymbols(ctx)
	if err != nil {
		d.log.WithError(err).Error("Universe load failed, screen skipped")
		return
	}

	candidates, _, err := d.screener.Screen(ctx, d.state.FormulaDate, symbols)
	if err != nil {
		d.log.WithError(err).Error("Daily screen failed")
		return
	}
	d.state.Candidates = candidates
	d.state.Screened = true

	if d.store != nil {
		if err := d.store.SaveCandidates(ctx, d.state.FormulaDate, candidates); err != nil {
			d.log.WithError(err).Warn("Candidate audit write failed")
		}
	}
}

// buildWatchlist ranks the screened candidates once and freezes the
// result for the rest of the day.
func (d *Driver) buildWatchlist(ctx context.Context) {
	wl, err := d.ranker.Build(ctx, d.state.Date, d.state.Candidates)
	if err != nil {
		d.log.WithError(err).Error("Watchlist build failed, retrying next tick")
		return
	}
	d.state.Watchlist = wl

	for _, symbol := range wl.Symbols() {
		d.state.PatternState(symbol)
	}

	if d.store != nil {
		if err := d.store.SaveWatchlist(ctx, wl); err != nil {
			d.log.WithError(err).Warn("Watchlist audit write failed")
		}
	}

	if d.OnWatchlist != nil {
		d.OnWatchlist(wl)
	}
}

// scanEntries advances the matcher for each watchlist symbol in rank
// order and submits entries for fresh triggers.
func (d *Driver) scanEntries(ctx context.Context, now time.Time, hhmm string) {
	for _, symbol := range d.state.Watchlist.Symbols() {
		bars, err := d.data.MinuteBars(ctx, symbol, d.state.Date, hhmm, 0)
		if err != nil {
			d.log.WithError(err).WithField("symbol", symbol).Debug("Minute bars unavailable this tick")
			continue
		}

		trg := d.matcher.Scan(symbol, d.state.PatternState(symbol), bars)
		if trg == nil {
			continue
		}

		d.log.WithFields(map[string]interface{}{
			"symbol":       symbol,
			"time":         trg.Time,
			"price":        trg.Price,
			"pullback_low": trg.PullbackLow,
		}).Info("Formation triggered")

		if hhmm < d.cfg.Entry.StartTime {
			continue
		}
		d.manager.SubmitEntry(ctx, d.state.Book, symbol, trg.PullbackLow, now)
	}
}
