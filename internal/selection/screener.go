package selection

import (
	"context"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/indicator"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

// ScreenStats counts why symbols fell out of the daily screen. One
// counter per filter, in evaluation order.
type ScreenStats struct {
	Evaluated      int `json:"evaluated"`
	ShortHistory   int `json:"short_history"`
	JPrevTooHigh   int `json:"j_prev_too_high"`
	JTooHigh       int `json:"j_too_high"`
	ReturnTooLow   int `json:"return_too_low"`
	VolumeTooLow   int `json:"volume_too_low"`
	ShadowTooLarge int `json:"shadow_too_large"`
	Passed         int `json:"passed"`
}

// Screener applies the end-of-day candidate filters to a symbol
// universe. Screening runs once per session, before the open, against
// the previous trading day's completed daily bars.
type Screener struct {
	cfg  *strategyconfig.Config
	data contracts.MarketData
	log  *logger.Logger
}

// NewScreener creates a daily screener.
func NewScreener(cfg *strategyconfig.Config, data contracts.MarketData, log *logger.Logger) *Screener {
	return &Screener{cfg: cfg, data: data, log: log}
}

// Screen evaluates every symbol against the daily filters with
// formulaDate as the T day. Symbols whose history is too short or whose
// bars fail per-filter checks are skipped, never fatal; provider errors
// on a single symbol are logged and counted as short history.
func (s *Screener) Screen(ctx context.Context, formulaDate string, symbols []string) ([]contracts.Candidate, ScreenStats, error) {
	// enough bars to warm up the KDJ recursion plus the T-1/T pair
	need := s.cfg.Screening.KDJWindow*3 + 2

	var stats ScreenStats
	var out []contracts.Candidate

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Evaluated++

		bars, err := s.data.DailyBars(ctx, symbol, formulaDate, need)
		if err != nil {
			s.log.WithError(err).WithField("symbol", symbol).Debug("daily bars unavailable, skipping")
			stats.ShortHistory++
			continue
		}

		if s.evaluate(symbol, bars, &stats) {
			stats.Passed++
			out = append(out, contracts.Candidate{Symbol: symbol, FormulaDate: formulaDate})
		}
	}

	s.log.WithFields(map[string]interface{}{
		"formula_date": formulaDate,
		"evaluated":    stats.Evaluated,
		"passed":       stats.Passed,
	}).Info("Daily screen complete")

	return out, stats, nil
}

// evaluate runs the filter chain on one symbol's daily bars. The last
// bar is the T day. Filters short-circuit in order so each rejection is
// attributed to exactly one counter.
func (s *Screener) evaluate(symbol string, bars []contracts.Bar, stats *ScreenStats) bool {
	sc := s.cfg.Screening

	if len(bars) < sc.KDJWindow+2 {
		stats.ShortHistory++
		return false
	}

	t := len(bars) - 1
	today := bars[t]
	prev := bars[t-1]

	kdj := indicator.KDJ(bars, sc.KDJWindow, sc.KDJInitK, sc.KDJInitD)

	if kdj.J[t-1] >= sc.JPrevMax {
		stats.JPrevTooHigh++
		return false
	}
	if kdj.J[t] >= sc.JMax {
		stats.JTooHigh++
		return false
	}

	if prev.Close <= 0 {
		stats.ShortHistory++
		return false
	}
	ret := today.Close/prev.Close - 1.0
	if ret <= sc.ReturnMin {
		stats.ReturnTooLow++
		return false
	}

	if prev.Volume <= 0 || today.Volume < sc.VolumeRatioMin*prev.Volume {
		stats.VolumeTooLow++
		return false
	}

	if today.UpperShadowRatio() >= sc.UpperShadowMax {
		stats.ShadowTooLarge++
		return false
	}

	return true
}
