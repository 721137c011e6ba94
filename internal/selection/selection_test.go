package selection

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

// mockMarketData serves canned bars keyed by symbol and date.
type mockMarketData struct {
	daily    map[string][]contracts.Bar // ascending, Date set
	minutes  map[string][]contracts.Bar // key symbol|date, ascending, Time set
	calendar []string                   // ascending trading dates
	errs     map[string]error
}

func (m *mockMarketData) DailyBars(_ context.Context, symbol, asOfDate string, count int) ([]contracts.Bar, error) {
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	var out []contracts.Bar
	for _, b := range m.daily[symbol] {
		if b.Date <= asOfDate {
			out = append(out, b)
		}
	}
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out, nil
}

func (m *mockMarketData) MinuteBars(_ context.Context, symbol, date, untilTime string, _ int) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, b := range m.minutes[symbol+"|"+date] {
		if b.Time <= untilTime {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockMarketData) PrevTradingDates(_ context.Context, date string, count int) ([]string, error) {
	var before []string
	for _, d := range m.calendar {
		if d < date {
			before = append(before, d)
		}
	}
	if len(before) > count {
		before = before[len(before)-count:]
	}
	return before, nil
}

func (m *mockMarketData) CurrentPrice(context.Context, string) (float64, bool, error) {
	return 0, false, nil
}

// decliningHistory builds ten gap-less bearish daily bars so the J
// line decays well below the oversold gate, then appends a T bar with
// the given close and volume.
func decliningHistory(tClose, tVolume float64) []contracts.Bar {
	bars := make([]contracts.Bar, 0, 11)
	close := 20.0
	for i := 0; i < 10; i++ {
		open := close + 1.0
		bars = append(bars, contracts.Bar{
			Date:   fmt.Sprintf("202608%02d", i+1),
			Open:   open,
			High:   open,
			Low:    close,
			Close:  close,
			Volume: 1000,
		})
		close -= 1.0
	}
	// last history close is 11.0
	high := tClose
	bars = append(bars, contracts.Bar{
		Date:   "20260811",
		Open:   11.0,
		High:   high,
		Low:    11.0,
		Close:  tClose,
		Volume: tVolume,
	})
	return bars
}

func screenOne(t *testing.T, bars []contracts.Bar) ([]contracts.Candidate, ScreenStats) {
	t.Helper()
	data := &mockMarketData{daily: map[string][]contracts.Bar{"600000.SH": bars}}
	s := NewScreener(strategyconfig.Default(), data, logger.NewNop())
	cands, stats, err := s.Screen(context.Background(), "20260811", []string{"600000.SH"})
	if err != nil {
		t.Fatalf("Screen() error = %v", err)
	}
	return cands, stats
}

func TestScreenerReturnBoundary(t *testing.T) {
	// 4.1% gain with doubled volume passes every filter
	cands, stats := screenOne(t, decliningHistory(11.0*1.041, 2000))
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1 (stats %+v)", len(cands), stats)
	}

	// exactly 4.0% is not a pass, the gate is strict
	cands, stats = screenOne(t, decliningHistory(11.0*1.04, 2000))
	if len(cands) != 0 {
		t.Fatalf("candidates = %d, want 0", len(cands))
	}
	if stats.ReturnTooLow != 1 {
		t.Errorf("ReturnTooLow = %d, want 1 (stats %+v)", stats.ReturnTooLow, stats)
	}
}

func TestScreenerVolumeGate(t *testing.T) {
	cands, stats := screenOne(t, decliningHistory(11.0*1.05, 1400))
	if len(cands) != 0 {
		t.Fatal("passed with volume below 1.5x previous day")
	}
	if stats.VolumeTooLow != 1 {
		t.Errorf("VolumeTooLow = %d, want 1", stats.VolumeTooLow)
	}
}

func TestScreenerZeroPrevVolume(t *testing.T) {
	bars := decliningHistory(11.0*1.05, 2000)
	bars[len(bars)-2].Volume = 0
	cands, stats := screenOne(t, bars)
	if len(cands) != 0 {
		t.Fatal("passed with zero previous-day volume")
	}
	if stats.VolumeTooLow != 1 {
		t.Errorf("VolumeTooLow = %d, want 1", stats.VolumeTooLow)
	}
}

func TestScreenerUpperShadow(t *testing.T) {
	bars := decliningHistory(11.0*1.05, 2000)
	last := &bars[len(bars)-1]
	// stretch the high so the shadow is a quarter of the range
	last.High = last.Low + (last.Close-last.Low)/0.75
	cands, stats := screenOne(t, bars)
	if len(cands) != 0 {
		t.Fatal("passed with oversized upper shadow")
	}
	if stats.ShadowTooLarge != 1 {
		t.Errorf("ShadowTooLarge = %d, want 1", stats.ShadowTooLarge)
	}
}

func TestScreenerShortHistory(t *testing.T) {
	bars := decliningHistory(11.0*1.05, 2000)
	_, stats := screenOne(t, bars[8:])
	if stats.ShortHistory != 1 {
		t.Errorf("ShortHistory = %d, want 1", stats.ShortHistory)
	}
}

type formedFunc func(ctx context.Context, symbol, date string) (bool, error)

func (f formedFunc) FormedOn(ctx context.Context, symbol, date string) (bool, error) {
	return f(ctx, symbol, date)
}

func ratioFixture() *mockMarketData {
	data := &mockMarketData{
		daily:    map[string][]contracts.Bar{},
		minutes:  map[string][]contracts.Bar{},
		calendar: []string{"20260804", "20260805", "20260806", "20260807", "20260810", "20260811"},
	}

	// five prior sessions of 48000 shares: 200 shares/minute baseline
	var hist []contracts.Bar
	for _, d := range data.calendar[:5] {
		hist = append(hist, contracts.Bar{
			Date: d, Open: 10, High: 10, Low: 10, Close: 10, Volume: 48000,
		})
	}
	data.daily["600000.SH"] = hist

	// five opening minutes at 500 shares/minute: ratio 2.5
	var mins []contracts.Bar
	for i := 0; i < 5; i++ {
		mins = append(mins, contracts.Bar{
			Date: "20260811", Time: fmt.Sprintf("09:%02d", 30+i),
			Open: 10, High: 10, Low: 10, Close: 10, Volume: 500,
		})
	}
	data.minutes["600000.SH|20260811"] = mins
	return data
}

func TestRankerVolumeRatio(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Ratio.Min = 2.0
	cfg.Ratio.RequirePriorPattern = false

	r := NewRanker(cfg, ratioFixture(), nil, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811",
		[]contracts.Candidate{{Symbol: "600000.SH", FormulaDate: "20260810"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(wl.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(wl.Entries))
	}
	if math.Abs(wl.Entries[0].VolumeRatio-2.5) > 1e-9 {
		t.Errorf("VolumeRatio = %v, want 2.5", wl.Entries[0].VolumeRatio)
	}
	if wl.Entries[0].Rank != 1 {
		t.Errorf("Rank = %d, want 1", wl.Entries[0].Rank)
	}
}

func TestRankerRatioFloor(t *testing.T) {
	cfg := strategyconfig.Default() // floor 5.0, ratio is only 2.5
	cfg.Ratio.RequirePriorPattern = false

	r := NewRanker(cfg, ratioFixture(), nil, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811",
		[]contracts.Candidate{{Symbol: "600000.SH", FormulaDate: "20260810"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(wl.Entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(wl.Entries))
	}
}

func TestRankerRatioBoundaryExclusive(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Ratio.Min = 2.5 // exactly the fixture's ratio
	cfg.Ratio.RequirePriorPattern = false

	r := NewRanker(cfg, ratioFixture(), nil, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811",
		[]contracts.Candidate{{Symbol: "600000.SH", FormulaDate: "20260810"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(wl.Entries) != 0 {
		t.Fatalf("entries = %d, want 0: ratio equal to the floor must not pass", len(wl.Entries))
	}
}

func TestRankerBaselineGap(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Ratio.Min = 1.0
	cfg.Ratio.RequirePriorPattern = false

	data := ratioFixture()
	data.daily["600000.SH"][2].Volume = 0 // suspended day breaks the baseline

	r := NewRanker(cfg, data, nil, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811",
		[]contracts.Candidate{{Symbol: "600000.SH", FormulaDate: "20260810"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(wl.Entries) != 0 {
		t.Fatal("selected a symbol with a zero-volume baseline session")
	}
}

func TestRankerPriorPatternGate(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Ratio.Min = 2.0
	cfg.Ratio.RequirePriorPattern = true

	var checkedDate string
	checker := formedFunc(func(_ context.Context, _, date string) (bool, error) {
		checkedDate = date
		return false, nil
	})

	r := NewRanker(cfg, ratioFixture(), checker, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811",
		[]contracts.Candidate{{Symbol: "600000.SH", FormulaDate: "20260810"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(wl.Entries) != 0 {
		t.Fatal("selected a symbol the prior-pattern gate rejected")
	}
	if checkedDate != "20260810" {
		t.Errorf("pattern checked on %q, want formula date 20260810", checkedDate)
	}
}

func TestRankerOrderingAndTruncation(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Ratio.Min = 1.0
	cfg.Ratio.WatchlistSize = 2
	cfg.Ratio.RequirePriorPattern = false

	data := ratioFixture()
	for i, sym := range []string{"000001.SZ", "000002.SZ"} {
		data.daily[sym] = data.daily["600000.SH"]
		var mins []contracts.Bar
		for j := 0; j < 5; j++ {
			mins = append(mins, contracts.Bar{
				Date: "20260811", Time: fmt.Sprintf("09:%02d", 30+j),
				Open: 10, High: 10, Low: 10, Close: 10,
				Volume: float64(1000 * (i + 2)), // ratios 10 and 15
			})
		}
		data.minutes[sym+"|20260811"] = mins
	}

	r := NewRanker(cfg, data, nil, logger.NewNop())
	wl, err := r.Build(context.Background(), "20260811", []contracts.Candidate{
		{Symbol: "600000.SH", FormulaDate: "20260810"},
		{Symbol: "000001.SZ", FormulaDate: "20260810"},
		{Symbol: "000002.SZ", FormulaDate: "20260810"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(wl.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(wl.Entries))
	}
	if wl.Entries[0].Symbol != "000002.SZ" || wl.Entries[1].Symbol != "000001.SZ" {
		t.Errorf("order = %s, %s; want 000002.SZ, 000001.SZ",
			wl.Entries[0].Symbol, wl.Entries[1].Symbol)
	}
}
