package execution

import (
	"context"
	"testing"
	"time"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/logger"
)

type stubMarketData struct {
	prices   map[string]float64
	daily    map[string][]contracts.Bar
	minutes  map[string][]contracts.Bar
	calendar []string
}

func (s *stubMarketData) DailyBars(_ context.Context, symbol, asOfDate string, count int) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, b := range s.daily[symbol] {
		if b.Date <= asOfDate {
			out = append(out, b)
		}
	}
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out, nil
}

func (s *stubMarketData) MinuteBars(_ context.Context, symbol, date, untilTime string, _ int) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, b := range s.minutes[symbol+"|"+date] {
		if b.Time <= untilTime {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubMarketData) PrevTradingDates(_ context.Context, date string, count int) ([]string, error) {
	var before []string
	for _, d := range s.calendar {
		if d < date {
			before = append(before, d)
		}
	}
	if len(before) > count {
		before = before[len(before)-count:]
	}
	return before, nil
}

func (s *stubMarketData) CurrentPrice(_ context.Context, symbol string) (float64, bool, error) {
	p, ok := s.prices[symbol]
	return p, ok, nil
}

const sym = "600000.SH"

func newFixture(price float64) (*Manager, *MockGateway, *stubMarketData) {
	gw := NewMockGateway(100000)
	gw.Prices[sym] = price
	data := &stubMarketData{prices: map[string]float64{sym: price}}
	trading := config.TradingConfig{AccountID: "ACC1", Enabled: true}
	m := NewManager(strategyconfig.Default(), trading, gw, data, nil, logger.NewNop())
	return m, gw, data
}

func at(hhmm string) time.Time {
	t, _ := time.Parse("20060102 15:04", "20260811 "+hhmm)
	return t
}

func TestSubmitEntryAccepted(t *testing.T) {
	m, gw, _ := newFixture(10.0)
	book := NewBook()

	m.SubmitEntry(context.Background(), book, sym, 9.8, at("09:41"))

	pos, ok := book.Positions[sym]
	if !ok {
		t.Fatal("no position after accepted buy")
	}
	if pos.EntryPrice != 10.0 {
		t.Errorf("EntryPrice = %v, want 10.0", pos.EntryPrice)
	}
	if pos.StopRef != 9.8 {
		t.Errorf("StopRef = %v, want 9.8", pos.StopRef)
	}
	if pos.BuyDate != "20260811" {
		t.Errorf("BuyDate = %s, want 20260811", pos.BuyDate)
	}
	if gw.Holdings[sym] != 2000 {
		t.Errorf("holdings = %d, want 2000", gw.Holdings[sym])
	}

	// the same trigger again must not double-buy
	m.SubmitEntry(context.Background(), book, sym, 9.8, at("09:42"))
	if len(gw.BuyCalls) != 1 {
		t.Errorf("buy calls = %d, want 1", len(gw.BuyCalls))
	}
}

func TestSubmitEntryStopRefDefaultsToEntry(t *testing.T) {
	m, _, _ := newFixture(10.0)
	book := NewBook()

	m.SubmitEntry(context.Background(), book, sym, 0, at("09:41"))
	if pos := book.Positions[sym]; pos == nil || pos.StopRef != 10.0 {
		t.Fatalf("StopRef = %+v, want entry price 10.0", pos)
	}
}

func TestRejectKeepsRetrying(t *testing.T) {
	m, gw, _ := newFixture(10.0)
	gw.RejectBuys = true
	book := NewBook()
	ctx := context.Background()

	now := at("09:41")
	m.SubmitEntry(ctx, book, sym, 9.8, now)

	pb, ok := book.Pending[sym]
	if !ok {
		t.Fatal("no pending retry after rejection")
	}
	if !pb.NotBefore.Equal(now.Add(time.Minute)) {
		t.Errorf("NotBefore = %v, want %v", pb.NotBefore, now.Add(time.Minute))
	}
	if pb.StopRef != 9.8 {
		t.Errorf("retry StopRef = %v, want 9.8", pb.StopRef)
	}

	// too early: nothing happens
	m.ProcessPending(ctx, book, now.Add(30*time.Second))
	if len(gw.BuyCalls) != 1 {
		t.Fatalf("buy calls = %d, want 1 before retry is due", len(gw.BuyCalls))
	}

	// due: retried, rejected again, pushed back another minute
	m.ProcessPending(ctx, book, now.Add(time.Minute))
	if len(gw.BuyCalls) != 2 {
		t.Fatalf("buy calls = %d, want 2", len(gw.BuyCalls))
	}
	pb, ok = book.Pending[sym]
	if !ok {
		t.Fatal("pending retry dropped after a rejected retry")
	}
	if !pb.NotBefore.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("NotBefore = %v, want %v", pb.NotBefore, now.Add(2*time.Minute))
	}

	// while a retry is pending a fresh trigger must not double-schedule
	m.SubmitEntry(ctx, book, sym, 9.8, now.Add(90*time.Second))
	if len(gw.BuyCalls) != 2 {
		t.Fatalf("buy calls = %d, want 2 with a retry already pending", len(gw.BuyCalls))
	}

	// the gateway comes around: the next attempt fills
	gw.RejectBuys = false
	m.ProcessPending(ctx, book, now.Add(2*time.Minute))
	if len(gw.BuyCalls) != 3 {
		t.Fatalf("buy calls = %d, want 3", len(gw.BuyCalls))
	}
	if _, held := book.Positions[sym]; !held {
		t.Fatal("no position after the gateway accepted the retry")
	}
	if len(book.Pending) != 0 {
		t.Error("pending retry survived the fill")
	}
	if book.stats(sym).Retries != 2 {
		t.Errorf("retries = %d, want 2", book.stats(sym).Retries)
	}
}

func TestRetryAcceptCarriesStopRef(t *testing.T) {
	m, gw, _ := newFixture(10.0)
	gw.RejectBuys = true
	book := NewBook()

	now := at("09:41")
	m.SubmitEntry(context.Background(), book, sym, 9.8, now)

	gw.RejectBuys = false
	m.ProcessPending(context.Background(), book, now.Add(time.Minute))

	pos := book.Positions[sym]
	if pos == nil {
		t.Fatal("no position after accepted retry")
	}
	if pos.StopRef != 9.8 {
		t.Errorf("StopRef = %v, want carried 9.8", pos.StopRef)
	}
	if book.stats(sym).Retries != 1 {
		t.Errorf("retries = %d, want 1", book.stats(sym).Retries)
	}
}

func TestResetDayKeepsPositions(t *testing.T) {
	m, gw, _ := newFixture(10.0)
	book := NewBook()
	ctx := context.Background()

	m.SubmitEntry(ctx, book, sym, 9.8, at("09:41"))
	gw.RejectBuys = true
	m.SubmitEntry(ctx, book, "000001.SZ", 0, at("09:42"))
	m.CheckStops(ctx, book, "20260811", "14:45")

	book.ResetDay()

	if _, held := book.Positions[sym]; !held {
		t.Fatal("held position dropped at rollover")
	}
	if len(book.Pending) != 0 || len(book.BoughtToday) != 0 || len(book.Stats) != 0 {
		t.Errorf("intraday state survived rollover: pending=%d bought=%d stats=%d",
			len(book.Pending), len(book.BoughtToday), len(book.Stats))
	}
	if book.ExitChecked != "20260811" {
		t.Errorf("ExitChecked = %q, want the date gate kept", book.ExitChecked)
	}
}

func TestTradingDisabledSuppressesOrders(t *testing.T) {
	gw := NewMockGateway(100000)
	data := &stubMarketData{prices: map[string]float64{sym: 10}}
	trading := config.TradingConfig{AccountID: "ACC1", Enabled: false}
	m := NewManager(strategyconfig.Default(), trading, gw, data, nil, logger.NewNop())
	book := NewBook()

	m.SubmitEntry(context.Background(), book, sym, 0, at("09:41"))
	if len(gw.BuyCalls) != 0 {
		t.Error("buy attempted with trading disabled")
	}
	if book.stats(sym).LastSkip != "trading_disabled" {
		t.Errorf("LastSkip = %q, want trading_disabled", book.stats(sym).LastSkip)
	}
	if len(book.Pending) != 0 {
		t.Error("gate skip scheduled a retry")
	}
}

func TestTakeProfitStages(t *testing.T) {
	m, gw, data := newFixture(10.0)
	book := NewBook()
	ctx := context.Background()

	m.SubmitEntry(ctx, book, sym, 9.8, at("09:41")) // 2000 shares at 10

	// below the first target: nothing fires
	data.prices[sym] = 10.2
	m.CheckTakeProfits(ctx, book)
	if len(gw.SellCalls) != 0 {
		t.Fatal("sold below the first target")
	}

	// first stage: a third of 2000, rounded to lots
	data.prices[sym] = 10.5
	gw.Prices[sym] = 10.5
	m.CheckTakeProfits(ctx, book)
	if len(gw.SellCalls) != 1 || gw.SellCalls[0].Qty != 600 {
		t.Fatalf("sell calls = %+v, want one 600-share sell", gw.SellCalls)
	}
	if book.Positions[sym].TPStage != contracts.TPStageFirst {
		t.Errorf("stage = %v, want first", book.Positions[sym].TPStage)
	}

	// same price again: the stage does not re-fire
	m.CheckTakeProfits(ctx, book)
	if len(gw.SellCalls) != 1 {
		t.Fatal("first stage fired twice")
	}

	// second stage at +15%: a third of the remaining 1400
	data.prices[sym] = 11.5
	gw.Prices[sym] = 11.5
	m.CheckTakeProfits(ctx, book)
	if len(gw.SellCalls) != 2 || gw.SellCalls[1].Qty != 400 {
		t.Fatalf("sell calls = %+v, want a second 400-share sell", gw.SellCalls)
	}
	if book.Positions[sym].TPStage != contracts.TPStageFinal {
		t.Errorf("stage = %v, want final", book.Positions[sym].TPStage)
	}

	// final stage is terminal even at higher prices
	data.prices[sym] = 15.0
	m.CheckTakeProfits(ctx, book)
	if len(gw.SellCalls) != 2 {
		t.Error("sold past the final stage")
	}
}

func TestStopCheckLiquidatesBelowStopRef(t *testing.T) {
	m, gw, data := newFixture(10.0)
	book := NewBook()
	ctx := context.Background()

	m.SubmitEntry(ctx, book, sym, 9.8, at("09:41"))

	data.prices[sym] = 9.5
	gw.Prices[sym] = 9.5

	// before the stop window: untouched
	m.CheckStops(ctx, book, "20260811", "14:30")
	if len(gw.SellCalls) != 0 {
		t.Fatal("stop fired before the check time")
	}

	m.CheckStops(ctx, book, "20260811", "14:45")
	if len(gw.SellCalls) != 1 || gw.SellCalls[0].Qty != 2000 {
		t.Fatalf("sell calls = %+v, want full 2000-share liquidation", gw.SellCalls)
	}
	if _, held := book.Positions[sym]; held {
		t.Error("position record survived liquidation")
	}

	// same day again: idempotent
	m.CheckStops(ctx, book, "20260811", "14:50")
	if len(gw.SellCalls) != 1 {
		t.Error("stop check ran twice on one day")
	}
}

func TestStopCheckDistributionDay(t *testing.T) {
	m, gw, data := newFixture(10.0)
	book := NewBook()
	ctx := context.Background()

	m.SubmitEntry(ctx, book, sym, 9.0, at("09:41"))

	data.calendar = []string{"20260806", "20260807", "20260810", "20260811"}
	data.daily = map[string][]contracts.Bar{sym: {
		{Date: "20260806", Open: 9.9, High: 10, Low: 9.8, Close: 9.9, Volume: 8000},
		{Date: "20260807", Open: 9.9, High: 10, Low: 9.8, Close: 9.9, Volume: 9000},
		{Date: "20260810", Open: 9.8, High: 9.9, Low: 9.7, Close: 9.8, Volume: 10000},
	}}
	data.minutes = map[string][]contracts.Bar{sym + "|20260811": {
		{Date: "20260811", Time: "09:31", Open: 9.6, High: 9.6, Low: 9.5, Close: 9.5, Volume: 9000},
		{Date: "20260811", Time: "13:00", Open: 9.5, High: 9.6, Low: 9.4, Close: 9.5, Volume: 6000},
	}}

	// above the stop reference but under yesterday's close on heavy volume
	data.prices[sym] = 9.5
	gw.Prices[sym] = 9.5
	m.CheckStops(ctx, book, "20260811", "14:45")

	if len(gw.SellCalls) != 1 {
		t.Fatalf("sell calls = %d, want 1", len(gw.SellCalls))
	}
	if _, held := book.Positions[sym]; held {
		t.Error("position record survived distribution-day exit")
	}
}

func TestStopCheckHoldsQuietDay(t *testing.T) {
	m, gw, data := newFixture(10.0)
	book := NewBook()
	ctx := context.Background()

	m.SubmitEntry(ctx, book, sym, 9.0, at("09:41"))

	data.calendar = []string{"20260810", "20260811"}
	data.daily = map[string][]contracts.Bar{sym: {
		{Date: "20260810", Open: 9.8, High: 9.9, Low: 9.7, Close: 9.8, Volume: 10000},
	}}
	data.minutes = map[string][]contracts.Bar{sym + "|20260811": {
		{Date: "20260811", Time: "09:31", Open: 9.6, High: 9.6, Low: 9.5, Close: 9.5, Volume: 3000},
	}}

	data.prices[sym] = 9.5
	m.CheckStops(ctx, book, "20260811", "14:45")
	if len(gw.SellCalls) != 0 {
		t.Error("liquidated on a quiet down day")
	}
	if _, held := book.Positions[sym]; !held {
		t.Error("position record dropped without a sell")
	}
}
