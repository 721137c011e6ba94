package strategyconfig

import "time"

// Config is the full declarative parameter set of the trading pipeline.
// All strategy variants (pattern gate on/off, ratio thresholds) are
// expressed here; there is exactly one code path.
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Screening Screening `yaml:"screening" json:"screening"`
	Ratio     Ratio     `yaml:"volume_ratio" json:"volume_ratio"`
	Pattern   Pattern   `yaml:"pattern" json:"pattern"`
	Entry     Entry     `yaml:"entry" json:"entry"`
	Exit      Exit      `yaml:"exit" json:"exit"`
}

// Meta identifies the strategy profile
type Meta struct {
	StrategyID string  `yaml:"strategy_id" json:"strategy_id"`
	Version    string  `yaml:"version" json:"version"`
	TickSize   float64 `yaml:"tick_size" json:"tick_size"`
}

// Universe controls the tradable symbol pool
type Universe struct {
	MainBoardOnly bool `yaml:"main_board_only" json:"main_board_only"`
	MinSize       int  `yaml:"min_size" json:"min_size"`
}

// Screening holds the daily candidate filter thresholds
type Screening struct {
	KDJWindow      int     `yaml:"kdj_window" json:"kdj_window"`
	KDJInitK       float64 `yaml:"kdj_init_k" json:"kdj_init_k"`
	KDJInitD       float64 `yaml:"kdj_init_d" json:"kdj_init_d"`
	JPrevMax       float64 `yaml:"j_prev_max" json:"j_prev_max"`
	JMax           float64 `yaml:"j_max" json:"j_max"`
	ReturnMin      float64 `yaml:"return_min" json:"return_min"`
	VolumeRatioMin float64 `yaml:"volume_ratio_min" json:"volume_ratio_min"`
	UpperShadowMax float64 `yaml:"upper_shadow_max" json:"upper_shadow_max"`
}

// Ratio holds the volume-ratio watchlist selection parameters.
// Baseline convention: historical per-minute volume is the prior
// session's full continuous-session volume divided by BaselineMinutes
// (not the same-clock-time cumulative variant).
type Ratio struct {
	Min             float64 `yaml:"min" json:"min"`
	WindowStart     string  `yaml:"window_start" json:"window_start"` // HH:MM
	WindowEnd       string  `yaml:"window_end" json:"window_end"`     // HH:MM
	HistoryDays     int     `yaml:"history_days" json:"history_days"`
	BaselineMinutes float64 `yaml:"baseline_minutes" json:"baseline_minutes"`
	WatchlistSize   int     `yaml:"watchlist_size" json:"watchlist_size"`
	BuildTime       string  `yaml:"build_time" json:"build_time"` // HH:MM

	// RequirePriorPattern additionally gates watchlist entries on the
	// formation appearing on the reference day.
	RequirePriorPattern bool `yaml:"require_prior_pattern" json:"require_prior_pattern"`
}

// Pattern holds the four-phase formation thresholds
type Pattern struct {
	ParallelLookback int     `yaml:"parallel_lookback" json:"parallel_lookback"`
	ParallelMAGapMax float64 `yaml:"parallel_ma_gap_max" json:"parallel_ma_gap_max"`
	ParallelSlopeMax float64 `yaml:"parallel_slope_max" json:"parallel_slope_max"`
	ParallelRangeMax float64 `yaml:"parallel_range_max" json:"parallel_range_max"`

	FirstBodyMinRatio float64 `yaml:"first_body_min_ratio" json:"first_body_min_ratio"`
	FirstVolMAMult    float64 `yaml:"first_vol_ma_mult" json:"first_vol_ma_mult"`

	PullbackMinBars     int     `yaml:"pullback_min_bars" json:"pullback_min_bars"`
	PullbackMaxBars     int     `yaml:"pullback_max_bars" json:"pullback_max_bars"`
	PullbackMA10Tol     float64 `yaml:"pullback_ma10_tol" json:"pullback_ma10_tol"`
	PullbackMaxRetrace  float64 `yaml:"pullback_max_retrace" json:"pullback_max_retrace"`
	PullbackShrinkRatio float64 `yaml:"pullback_shrink_ratio" json:"pullback_shrink_ratio"`

	SecondMinFirstVolRatio float64 `yaml:"second_min_first_vol_ratio" json:"second_min_first_vol_ratio"`
	SecondVolMAMult        float64 `yaml:"second_vol_ma_mult" json:"second_vol_ma_mult"`
	ReboundLookback        int     `yaml:"rebound_lookback" json:"rebound_lookback"`
	ReboundLocalLowTicks   float64 `yaml:"rebound_local_low_ticks" json:"rebound_local_low_ticks"`
}

// Entry holds the order submission parameters
type Entry struct {
	OrderCash float64 `yaml:"order_cash" json:"order_cash"`
	StartTime string  `yaml:"start_time" json:"start_time"` // HH:MM, entries allowed from here
}

// Exit holds the take-profit and stop parameters
type Exit struct {
	TakeProfit1   float64 `yaml:"take_profit_1" json:"take_profit_1"`
	TakeProfit2   float64 `yaml:"take_profit_2" json:"take_profit_2"`
	SellFraction  float64 `yaml:"sell_fraction" json:"sell_fraction"`
	StopCheckTime string  `yaml:"stop_check_time" json:"stop_check_time"` // HH:MM
	VolumeAvgDays int     `yaml:"volume_avg_days" json:"volume_avg_days"`
}

// Default returns the b2a profile.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "b2a",
			Version:    "1.0.0",
			TickSize:   0.01,
		},
		Universe: Universe{
			MainBoardOnly: true,
			MinSize:       100,
		},
		Screening: Screening{
			KDJWindow:      9,
			KDJInitK:       50.0,
			KDJInitD:       50.0,
			JPrevMax:       20.0,
			JMax:           65.0,
			ReturnMin:      0.04,
			VolumeRatioMin: 1.5,
			UpperShadowMax: 0.20,
		},
		Ratio: Ratio{
			Min:                 5.0,
			WindowStart:         "09:30",
			WindowEnd:           "09:35",
			HistoryDays:         5,
			BaselineMinutes:     240.0,
			WatchlistSize:       3,
			BuildTime:           "09:35",
			RequirePriorPattern: true,
		},
		Pattern: Pattern{
			ParallelLookback: 10,
			ParallelMAGapMax: 0.005,
			ParallelSlopeMax: 0.003,
			ParallelRangeMax: 0.04,

			FirstBodyMinRatio: 0.60,
			FirstVolMAMult:    1.80,

			PullbackMinBars:     1,
			PullbackMaxBars:     4,
			PullbackMA10Tol:     0.003,
			PullbackMaxRetrace:  0.50,
			PullbackShrinkRatio: 1.00,

			SecondMinFirstVolRatio: 0.80,
			SecondVolMAMult:        1.00,
			ReboundLookback:        5,
			ReboundLocalLowTicks:   1.0,
		},
		Entry: Entry{
			OrderCash: 20000.0,
			StartTime: "09:35",
		},
		Exit: Exit{
			TakeProfit1:   0.03,
			TakeProfit2:   0.10,
			SellFraction:  1.0 / 3.0,
			StopCheckTime: "14:45",
			VolumeAvgDays: 5,
		},
	}
}

// Snapshot records which parameter set a session ran with, for audit.
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}
