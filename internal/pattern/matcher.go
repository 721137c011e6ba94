package pattern

import (
	"math"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/indicator"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

// Stage is the matcher's position in the formation.
type Stage int

const (
	// StageWaitFirst scans for a first breakout bar out of a flat
	// parallel MA channel.
	StageWaitFirst Stage = iota
	// StageWaitPullback tracks the retreat after a first cannon,
	// waiting for the confirming second cannon.
	StageWaitPullback
)

func (s Stage) String() string {
	switch s {
	case StageWaitFirst:
		return "wait_first"
	case StageWaitPullback:
		return "wait_pullback"
	default:
		return "unknown"
	}
}

// State is one symbol's matcher state for one trading day. Zero value
// is ready to use.
type State struct {
	Stage Stage `json:"stage"`

	// first cannon context, valid in StageWaitPullback
	FirstTime   string  `json:"first_time,omitempty"`
	FirstClose  float64 `json:"first_close,omitempty"`
	FirstBody   float64 `json:"first_body,omitempty"`
	FirstVolume float64 `json:"first_volume,omitempty"`

	PullbackBars int     `json:"pullback_bars,omitempty"`
	PullbackLow  float64 `json:"pullback_low,omitempty"`
	PullbackHigh float64 `json:"pullback_high,omitempty"`
	VolumeShrank bool    `json:"volume_shrank,omitempty"`

	// LastBarTime keys incremental scans; bars at or before it have
	// been processed already.
	LastBarTime string `json:"last_bar_time,omitempty"`
}

func (s *State) reset() {
	last := s.LastBarTime
	*s = State{LastBarTime: last}
}

// Trigger is the one-shot completion event of the formation.
type Trigger struct {
	Symbol      string  `json:"symbol"`
	Time        string  `json:"time"` // HH:MM of the second cannon bar
	Price       float64 `json:"price"`
	PullbackLow float64 `json:"pullback_low"`
}

// Matcher evaluates the four-phase breakout-pullback-confirmation
// formation over one day of minute bars. It is stateless itself; all
// per-symbol progress lives in State so one Matcher serves the whole
// watchlist.
type Matcher struct {
	cfg *strategyconfig.Config
	log *logger.Logger
}

// NewMatcher creates a formation matcher.
func NewMatcher(cfg *strategyconfig.Config, log *logger.Logger) *Matcher {
	return &Matcher{cfg: cfg, log: log}
}

// Scan advances state over any bars not yet processed. bars must be
// the full current day ascending; the split between old and new bars
// is taken from state.LastBarTime. Returns the trigger fired by the
// newest bars, if any. After a trigger the state is reset so the event
// cannot fire twice.
func (m *Matcher) Scan(symbol string, state *State, bars []contracts.Bar) *Trigger {
	var fired *Trigger
	for i, b := range bars {
		if state.LastBarTime != "" && b.Time <= state.LastBarTime {
			continue
		}
		if trg := m.step(state, bars, i); trg != nil {
			trg.Symbol = symbol
			fired = trg
		}
		state.LastBarTime = b.Time
	}
	return fired
}

// Replay runs a fresh state over a complete day of bars and reports
// whether the formation completed at any point.
func (m *Matcher) Replay(bars []contracts.Bar) bool {
	var state State
	for i := range bars {
		if trg := m.step(&state, bars, i); trg != nil {
			return true
		}
		state.LastBarTime = bars[i].Time
	}
	return false
}

// step processes the bar at idx. A pullback violation resets the state
// and re-evaluates the same bar as a possible new first cannon.
func (m *Matcher) step(state *State, bars []contracts.Bar, idx int) *Trigger {
	for pass := 0; pass < 2; pass++ {
		switch state.Stage {
		case StageWaitFirst:
			m.tryFirstCannon(state, bars, idx)
			return nil

		case StageWaitPullback:
			if trg, reset := m.advancePullback(state, bars, idx); trg != nil {
				state.reset()
				return trg
			} else if !reset {
				return nil
			}
			state.reset()
			// fall through: the violating bar may itself open a new setup
		}
	}
	return nil
}

// tryFirstCannon promotes the state when bar idx breaks out of a flat
// parallel channel on heavy volume.
func (m *Matcher) tryFirstCannon(state *State, bars []contracts.Bar, idx int) {
	pc := m.cfg.Pattern
	bar := bars[idx]

	zoneHigh, ok := m.parallelZoneHigh(bars, idx)
	if !ok {
		return
	}

	if !bar.Bullish() {
		return
	}
	rng := bar.Range()
	if rng <= 0 || bar.Body()/rng < pc.FirstBodyMinRatio {
		return
	}

	volMA, ok := indicator.MAVolume(bars, idx-1, 5)
	if !ok || bar.Volume < pc.FirstVolMAMult*volMA {
		return
	}

	if bar.Close <= zoneHigh+m.cfg.Meta.TickSize {
		return
	}

	state.Stage = StageWaitPullback
	state.FirstTime = bar.Time
	state.FirstClose = bar.Close
	state.FirstBody = bar.Body()
	state.FirstVolume = bar.Volume
	state.PullbackBars = 0
	state.PullbackLow = math.Inf(1)
	state.PullbackHigh = math.Inf(-1)
	state.VolumeShrank = false
}

// parallelZoneHigh validates the flat-channel context over the
// lookback window ending just before idx and returns the window high.
func (m *Matcher) parallelZoneHigh(bars []contracts.Bar, idx int) (float64, bool) {
	pc := m.cfg.Pattern
	start := idx - pc.ParallelLookback
	if start < 1 {
		return 0, false
	}

	winHigh := math.Inf(-1)
	winLow := math.Inf(1)

	for p := start; p < idx; p++ {
		ma5, ok5 := indicator.MAClose(bars, p, 5)
		ma10, ok10 := indicator.MAClose(bars, p, 10)
		if !ok5 || !ok10 || ma10 <= 0 {
			return 0, false
		}
		if math.Abs(ma5-ma10)/ma10 > pc.ParallelMAGapMax {
			return 0, false
		}

		prev5, okP5 := indicator.MAClose(bars, p-1, 5)
		prev10, okP10 := indicator.MAClose(bars, p-1, 10)
		if !okP5 || !okP10 || prev5 <= 0 || prev10 <= 0 {
			return 0, false
		}
		if math.Abs(ma5-prev5)/prev5 > pc.ParallelSlopeMax {
			return 0, false
		}
		if math.Abs(ma10-prev10)/prev10 > pc.ParallelSlopeMax {
			return 0, false
		}

		if bars[p].High > winHigh {
			winHigh = bars[p].High
		}
		if bars[p].Low < winLow {
			winLow = bars[p].Low
		}
	}

	if winLow <= 0 || (winHigh-winLow)/winLow > pc.ParallelRangeMax {
		return 0, false
	}
	return winHigh, true
}

// advancePullback handles one bar in StageWaitPullback. Returns the
// trigger when the bar is a valid second cannon, or reset=true when
// the pullback is violated or overrun.
func (m *Matcher) advancePullback(state *State, bars []contracts.Bar, idx int) (*Trigger, bool) {
	pc := m.cfg.Pattern
	bar := bars[idx]

	if state.PullbackBars >= pc.PullbackMinBars && state.VolumeShrank {
		if m.isSecondCannon(state, bars, idx) {
			return &Trigger{
				Time:        bar.Time,
				Price:       bar.Close,
				PullbackLow: state.PullbackLow,
			}, false
		}
	}

	if state.PullbackBars >= pc.PullbackMaxBars {
		return nil, true
	}

	ma10, ok := indicator.MAClose(bars, idx, 10)
	if !ok {
		return nil, true
	}
	if bar.Low < ma10*(1.0-pc.PullbackMA10Tol) {
		return nil, true
	}

	body := state.FirstBody
	if body < m.cfg.Meta.TickSize {
		body = m.cfg.Meta.TickSize
	}
	if bar.Low < state.FirstClose-pc.PullbackMaxRetrace*body {
		return nil, true
	}

	state.PullbackBars++
	if bar.Low < state.PullbackLow {
		state.PullbackLow = bar.Low
	}
	if bar.High > state.PullbackHigh {
		state.PullbackHigh = bar.High
	}
	if bar.Volume <= pc.PullbackShrinkRatio*state.FirstVolume {
		state.VolumeShrank = true
	}
	return nil, false
}

// isSecondCannon checks the confirmation bar at idx: a below-VWAP
// rebound off a local low on renewed volume.
func (m *Matcher) isSecondCannon(state *State, bars []contracts.Bar, idx int) bool {
	pc := m.cfg.Pattern
	tick := m.cfg.Meta.TickSize
	bar := bars[idx]

	if idx < 2 {
		return false
	}
	prev := bars[idx-1]

	vwapNow, ok := indicator.VWAP(bars, idx)
	if !ok || bar.Close >= vwapNow {
		return false
	}
	vwapPrev, ok := indicator.VWAP(bars, idx-1)
	if !ok || prev.Close >= vwapPrev {
		return false
	}

	// down then up, each leg clearing the one-tick deadband
	if prev.Close > bars[idx-2].Close-tick {
		return false
	}
	if bar.Close < prev.Close+tick {
		return false
	}

	// prev close sits on the local low of the rebound window
	lo := idx - pc.ReboundLookback
	if lo < 0 {
		lo = 0
	}
	localMin := math.Inf(1)
	for p := lo; p < idx; p++ {
		if bars[p].Close < localMin {
			localMin = bars[p].Close
		}
	}
	if prev.Close > localMin+pc.ReboundLocalLowTicks*tick {
		return false
	}

	if bar.Volume < pc.SecondMinFirstVolRatio*state.FirstVolume {
		return false
	}
	volMA, ok := indicator.MAVolume(bars, idx-1, 5)
	if !ok || bar.Volume <= pc.SecondVolMAMult*volMA {
		return false
	}

	return true
}
