package selection

import (
	"context"
	"sort"
	"time"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

// PriorPatternChecker reports whether the formation completed on a
// given reference day. Used as an optional extra gate before a
// candidate can enter the watchlist.
type PriorPatternChecker interface {
	FormedOn(ctx context.Context, symbol, date string) (bool, error)
}

// Ranker builds the day's frozen watchlist from screened candidates by
// early-window volume ratio.
type Ranker struct {
	cfg     *strategyconfig.Config
	data    contracts.MarketData
	checker PriorPatternChecker
	log     *logger.Logger
}

// NewRanker creates a watchlist ranker. checker may be nil when the
// prior-pattern gate is disabled in the profile.
func NewRanker(cfg *strategyconfig.Config, data contracts.MarketData, checker PriorPatternChecker, log *logger.Logger) *Ranker {
	return &Ranker{cfg: cfg, data: data, checker: checker, log: log}
}

// Build ranks candidates by volume ratio at the build time on
// tradeDate and returns the frozen watchlist. Candidates below the
// ratio floor, with incomplete volume history, or failing the
// prior-pattern gate are dropped. Per-symbol provider errors skip the
// symbol.
func (r *Ranker) Build(ctx context.Context, tradeDate string, candidates []contracts.Candidate) (*contracts.Watchlist, error) {
	rc := r.cfg.Ratio

	type scored struct {
		symbol string
		ratio  float64
	}
	var pool []scored

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ratio, ok, err := r.volumeRatio(ctx, cand.Symbol, tradeDate)
		if err != nil {
			r.log.WithError(err).WithField("symbol", cand.Symbol).Warn("Volume ratio unavailable, skipping")
			continue
		}
		if !ok || ratio <= rc.Min {
			continue
		}

		if rc.RequirePriorPattern && r.checker != nil {
			formed, err := r.checker.FormedOn(ctx, cand.Symbol, cand.FormulaDate)
			if err != nil {
				r.log.WithError(err).WithField("symbol", cand.Symbol).Warn("Prior pattern check failed, skipping")
				continue
			}
			if !formed {
				continue
			}
		}

		pool = append(pool, scored{symbol: cand.Symbol, ratio: ratio})
	}

	// stable: equal ratios keep candidate order
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ratio > pool[j].ratio })

	if len(pool) > rc.WatchlistSize {
		pool = pool[:rc.WatchlistSize]
	}

	wl := &contracts.Watchlist{
		TradeDate: tradeDate,
		BuiltAt:   time.Now(),
		Entries:   make([]contracts.WatchlistEntry, 0, len(pool)),
	}
	for i, s := range pool {
		wl.Entries = append(wl.Entries, contracts.WatchlistEntry{
			Symbol:      s.symbol,
			VolumeRatio: s.ratio,
			Rank:        i + 1,
		})
	}

	r.log.WithFields(map[string]interface{}{
		"trade_date": tradeDate,
		"candidates": len(candidates),
		"selected":   len(wl.Entries),
	}).Info("Watchlist built")

	return wl, nil
}

// volumeRatio compares the early-window trading pace against the
// average per-minute volume of the prior full sessions. ok is false
// when the window traded nothing or any baseline session is missing or
// zero.
func (r *Ranker) volumeRatio(ctx context.Context, symbol, tradeDate string) (float64, bool, error) {
	rc := r.cfg.Ratio

	minutes, err := r.data.MinuteBars(ctx, symbol, tradeDate, rc.WindowEnd, 0)
	if err != nil {
		return 0, false, err
	}

	var windowVol float64
	var elapsed int
	for _, b := range minutes {
		if b.Time < rc.WindowStart || b.Time >= rc.WindowEnd {
			continue
		}
		windowVol += b.Volume
		elapsed++
	}
	if elapsed == 0 || windowVol <= 0 {
		return 0, false, nil
	}

	dates, err := r.data.PrevTradingDates(ctx, tradeDate, rc.HistoryDays)
	if err != nil {
		return 0, false, err
	}
	if len(dates) < rc.HistoryDays {
		return 0, false, nil
	}

	var baselineSum float64
	for _, d := range dates {
		bars, err := r.data.DailyBars(ctx, symbol, d, 1)
		if err != nil {
			return 0, false, err
		}
		if len(bars) == 0 || bars[0].Date != d || bars[0].Volume <= 0 {
			// suspended or unlisted day invalidates the baseline
			return 0, false, nil
		}
		baselineSum += bars[0].Volume
	}

	perMinBaseline := baselineSum / float64(rc.HistoryDays) / rc.BaselineMinutes
	if perMinBaseline <= 0 {
		return 0, false, nil
	}

	perMinNow := windowVol / float64(elapsed)
	return perMinNow / perMinBaseline, true, nil
}
