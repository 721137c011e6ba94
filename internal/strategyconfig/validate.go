package strategyconfig

import (
	"fmt"
	"regexp"
)

var hhmmRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks the parameter set for values the pipeline cannot run
// with. Thresholds are not second-guessed beyond basic sanity.
func (c *Config) Validate() error {
	if c.Meta.StrategyID == "" {
		return fmt.Errorf("meta.strategy_id is required")
	}
	if c.Meta.TickSize <= 0 {
		return fmt.Errorf("meta.tick_size must be positive, got %v", c.Meta.TickSize)
	}

	if c.Screening.KDJWindow < 2 {
		return fmt.Errorf("screening.kdj_window must be at least 2, got %d", c.Screening.KDJWindow)
	}
	if c.Screening.ReturnMin < 0 {
		return fmt.Errorf("screening.return_min must not be negative, got %v", c.Screening.ReturnMin)
	}
	if c.Screening.UpperShadowMax < 0 || c.Screening.UpperShadowMax > 1 {
		return fmt.Errorf("screening.upper_shadow_max must be in [0,1], got %v", c.Screening.UpperShadowMax)
	}

	if c.Ratio.Min <= 0 {
		return fmt.Errorf("volume_ratio.min must be positive, got %v", c.Ratio.Min)
	}
	if c.Ratio.HistoryDays < 1 {
		return fmt.Errorf("volume_ratio.history_days must be at least 1, got %d", c.Ratio.HistoryDays)
	}
	if c.Ratio.BaselineMinutes <= 0 {
		return fmt.Errorf("volume_ratio.baseline_minutes must be positive, got %v", c.Ratio.BaselineMinutes)
	}
	if c.Ratio.WatchlistSize < 1 {
		return fmt.Errorf("volume_ratio.watchlist_size must be at least 1, got %d", c.Ratio.WatchlistSize)
	}
	for name, v := range map[string]string{
		"volume_ratio.window_start": c.Ratio.WindowStart,
		"volume_ratio.window_end":   c.Ratio.WindowEnd,
		"volume_ratio.build_time":   c.Ratio.BuildTime,
		"entry.start_time":          c.Entry.StartTime,
		"exit.stop_check_time":      c.Exit.StopCheckTime,
	} {
		if !hhmmRe.MatchString(v) {
			return fmt.Errorf("%s must be HH:MM, got %q", name, v)
		}
	}
	if c.Ratio.WindowStart >= c.Ratio.WindowEnd {
		return fmt.Errorf("volume_ratio window is empty: %s >= %s", c.Ratio.WindowStart, c.Ratio.WindowEnd)
	}

	if c.Pattern.ParallelLookback < 2 {
		return fmt.Errorf("pattern.parallel_lookback must be at least 2, got %d", c.Pattern.ParallelLookback)
	}
	if c.Pattern.FirstBodyMinRatio <= 0 || c.Pattern.FirstBodyMinRatio > 1 {
		return fmt.Errorf("pattern.first_body_min_ratio must be in (0,1], got %v", c.Pattern.FirstBodyMinRatio)
	}
	if c.Pattern.PullbackMinBars < 1 || c.Pattern.PullbackMaxBars < c.Pattern.PullbackMinBars {
		return fmt.Errorf("pattern pullback bar range invalid: min=%d max=%d",
			c.Pattern.PullbackMinBars, c.Pattern.PullbackMaxBars)
	}
	if c.Pattern.ReboundLookback < 1 {
		return fmt.Errorf("pattern.rebound_lookback must be at least 1, got %d", c.Pattern.ReboundLookback)
	}

	if c.Entry.OrderCash <= 0 {
		return fmt.Errorf("entry.order_cash must be positive, got %v", c.Entry.OrderCash)
	}

	if c.Exit.TakeProfit1 <= 0 || c.Exit.TakeProfit2 <= c.Exit.TakeProfit1 {
		return fmt.Errorf("exit take-profit levels must satisfy 0 < tp1 < tp2, got %v and %v",
			c.Exit.TakeProfit1, c.Exit.TakeProfit2)
	}
	if c.Exit.SellFraction <= 0 || c.Exit.SellFraction > 1 {
		return fmt.Errorf("exit.sell_fraction must be in (0,1], got %v", c.Exit.SellFraction)
	}
	if c.Exit.VolumeAvgDays < 1 {
		return fmt.Errorf("exit.volume_avg_days must be at least 1, got %d", c.Exit.VolumeAvgDays)
	}

	return nil
}
