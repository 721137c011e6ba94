package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/execution"
	"github.com/swfung/dualcannon/internal/pattern"
	"github.com/swfung/dualcannon/internal/selection"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/logger"
)

const sym = "600000.SH"

type mockData struct {
	prices   map[string]float64
	daily    map[string][]contracts.Bar
	minutes  map[string][]contracts.Bar
	calendar []string
}

func (m *mockData) DailyBars(_ context.Context, symbol, asOfDate string, count int) ([]contracts.Bar, error) {
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

func (m *mockData) MinuteBars(_ context.Context, symbol, date, untilTime string, _ int) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, b := range m.minutes[symbol+"|"+date] {
		if b.Time <= untilTime {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockData) PrevTradingDates(_ context.Context, date string, count int) ([]string, error) {
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

func (m *mockData) CurrentPrice(_ context.Context, symbol string) (float64, bool, error) {
	p, ok := m.prices[symbol]
	return p, ok, nil
}

type universeFunc func(ctx context.Context) ([]string, error)

func (f universeFunc) ListSymbols(ctx context.Context) ([]string, error) { return f(ctx) }

func minuteTime(i int) string {
	return fmt.Sprintf("%02d:%02d", 9+(30+i)/60, (30+i)%60)
}

// tradingDay builds minute bars that complete the formation at the
// 09:58 bar: opening spike, flat channel, breakout, fading pullback,
// confirming rebound.
func tradingDay(date string) []contracts.Bar {
	bars := make([]contracts.Bar, 0, 32)
	add := func(o, h, l, c, vol float64) {
		bars = append(bars, contracts.Bar{
			Date: date, Time: minuteTime(len(bars)),
			Open: o, High: h, Low: l, Close: c, Volume: vol,
		})
	}

	for i := 0; i < 5; i++ {
		add(115.00, 115.00, 110.00, 110.00, 50000)
	}
	for i := 0; i < 20; i++ {
		add(100.00, 100.25, 100.00, 100.25, 1000)
	}
	add(100.00, 101.00, 100.00, 101.00, 3000) // breakout
	add(101.00, 101.00, 100.75, 100.75, 800)  // pullback
	add(100.75, 100.75, 100.50, 100.50, 700)  // pullback low
	add(100.50, 100.75, 100.50, 100.75, 2600) // confirmation, 09:58
	add(100.75, 100.75, 100.50, 100.50, 900)
	return bars
}

// screenHistory builds daily bars that pass the pre-open screen on
// their last date.
func screenHistory(dates []string) []contracts.Bar {
	bars := make([]contracts.Bar, 0, len(dates))
	price := 20.0
	for _, d := range dates[:len(dates)-1] {
		open := price + 1.0
		bars = append(bars, contracts.Bar{
			Date: d, Open: open, High: open, Low: price, Close: price, Volume: 1000,
		})
		price -= 1.0
	}
	last := dates[len(dates)-1]
	bars = append(bars, contracts.Bar{
		Date: last, Open: price + 1.0, High: (price + 1.0) * 1.05, Low: price + 1.0,
		Close: (price + 1.0) * 1.05, Volume: 2000,
	})
	return bars
}

type fixture struct {
	driver *Driver
	data   *mockData
	gw     *execution.MockGateway
	cfg    *strategyconfig.Config
}

func newFixture() *fixture {
	cfg := strategyconfig.Default()
	cfg.Meta.TickSize = 0.25
	cfg.Ratio.RequirePriorPattern = false

	calendar := []string{
		"20260727", "20260728", "20260729", "20260730", "20260731",
		"20260803", "20260804", "20260805", "20260806", "20260807",
		"20260810", "20260811", "20260812",
	}
	data := &mockData{
		prices:   map[string]float64{sym: 100.75},
		daily:    map[string][]contracts.Bar{sym: screenHistory(calendar[:11])},
		minutes:  map[string][]contracts.Bar{sym + "|20260811": tradingDay("20260811")},
		calendar: calendar,
	}

	gw := execution.NewMockGateway(100000)
	gw.Prices[sym] = 100.75

	log := logger.NewNop()
	trading := config.TradingConfig{AccountID: "ACC1", Enabled: true}

	driver := NewDriver(
		cfg,
		data,
		universeFunc(func(context.Context) ([]string, error) { return []string{sym}, nil }),
		selection.NewScreener(cfg, data, log),
		selection.NewRanker(cfg, data, nil, log),
		pattern.NewMatcher(cfg, log),
		execution.NewManager(cfg, trading, gw, data, nil, log),
		nil,
		log,
	)
	return &fixture{driver: driver, data: data, gw: gw, cfg: cfg}
}

func tickAt(t *testing.T, d *Driver, day, hhmm string) {
	t.Helper()
	now, err := time.Parse("20060102 15:04", day+" "+hhmm)
	if err != nil {
		t.Fatal(err)
	}
	d.Tick(context.Background(), now)
}

func runMorning(t *testing.T, f *fixture, untilMinute int) {
	t.Helper()
	for i := 0; i <= untilMinute; i++ {
		tickAt(t, f.driver, "20260811", minuteTime(i))
	}
}

func TestDriverFullDay(t *testing.T) {
	f := newFixture()

	// before the cutoff: screened but no watchlist
	runMorning(t, f, 4)
	st := f.driver.State()
	if !st.Screened || len(st.Candidates) != 1 {
		t.Fatalf("screen state = %+v", st)
	}
	if st.Watchlist != nil {
		t.Fatal("watchlist built before the cutoff")
	}

	// cutoff: watchlist frozen with our symbol
	tickAt(t, f.driver, "20260811", "09:35")
	if st.Watchlist == nil || !st.Watchlist.Contains(sym) {
		t.Fatalf("watchlist = %+v", st.Watchlist)
	}

	// formation completes at 09:58 and the entry fills
	runMorning(t, f, 30)
	if len(f.gw.BuyCalls) != 1 {
		t.Fatalf("buy calls = %d, want 1", len(f.gw.BuyCalls))
	}
	pos := st.Book.Positions[sym]
	if pos == nil {
		t.Fatal("no position after the trigger")
	}
	if pos.StopRef != 100.50 {
		t.Errorf("StopRef = %v, want pullback low 100.50", pos.StopRef)
	}
	if pos.EntryPrice != 100.75 {
		t.Errorf("EntryPrice = %v, want 100.75", pos.EntryPrice)
	}

	// later ticks do not double-buy
	tickAt(t, f.driver, "20260811", "10:05")
	if len(f.gw.BuyCalls) != 1 {
		t.Errorf("buy calls = %d after extra ticks, want 1", len(f.gw.BuyCalls))
	}

	// stop check liquidates below the stop reference, exactly once
	f.data.prices[sym] = 100.00
	f.gw.Prices[sym] = 100.00
	tickAt(t, f.driver, "20260811", "14:45")
	if len(f.gw.SellCalls) != 1 {
		t.Fatalf("sell calls = %d, want 1", len(f.gw.SellCalls))
	}
	tickAt(t, f.driver, "20260811", "14:46")
	if len(f.gw.SellCalls) != 1 {
		t.Errorf("stop check repeated, sell calls = %d", len(f.gw.SellCalls))
	}
}

func TestDriverRollover(t *testing.T) {
	f := newFixture()
	runMorning(t, f, 30) // entry fills at 09:58

	old := f.driver.State()
	if old.Book.Positions[sym] == nil {
		t.Fatal("fixture did not open a position")
	}

	tickAt(t, f.driver, "20260812", "09:00")
	st := f.driver.State()
	if st == old {
		t.Fatal("state not rebuilt at rollover")
	}
	if st.Date != "20260812" {
		t.Errorf("Date = %s, want 20260812", st.Date)
	}
	if st.Watchlist != nil || len(st.Patterns) != 0 {
		t.Error("selection state leaked across the rollover")
	}

	// the overnight hold stays under management
	pos := st.Book.Positions[sym]
	if pos == nil {
		t.Fatal("held position dropped at rollover")
	}
	if pos.StopRef != 100.50 {
		t.Errorf("StopRef = %v, want 100.50 carried overnight", pos.StopRef)
	}
	if len(st.Book.BoughtToday) != 0 || len(st.Book.Pending) != 0 {
		t.Error("intraday book state leaked across the rollover")
	}
}

func TestDriverRetryAfterReject(t *testing.T) {
	f := newFixture()
	f.gw.RejectBuys = true

	runMorning(t, f, 28) // trigger at 09:58 is rejected
	st := f.driver.State()
	if len(f.gw.BuyCalls) != 1 {
		t.Fatalf("buy calls = %d, want 1", len(f.gw.BuyCalls))
	}
	if _, ok := st.Book.Pending[sym]; !ok {
		t.Fatal("no retry scheduled after rejection")
	}

	f.gw.RejectBuys = false
	tickAt(t, f.driver, "20260811", "09:59")
	if len(f.gw.BuyCalls) != 2 {
		t.Fatalf("buy calls = %d, want 2 after retry", len(f.gw.BuyCalls))
	}
	pos := st.Book.Positions[sym]
	if pos == nil || pos.StopRef != 100.50 {
		t.Fatalf("position = %+v, want StopRef 100.50 carried through retry", pos)
	}
}
