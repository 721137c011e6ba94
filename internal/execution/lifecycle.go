package execution

import (
	"context"
	"sort"
	"time"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/logger"
)

// OrderLogger persists order events for audit. Nil-safe via Manager.
type OrderLogger interface {
	LogOrder(ctx context.Context, rec OrderRecord) error
}

// Manager drives the order lifecycle: entry submission with minute
// retries, staged take-profits, and the end-of-day stop check. All state
// lives in the Book passed to each call; the manager itself holds only
// wiring. Single-threaded by contract with the session driver.
type Manager struct {
	cfg     *strategyconfig.Config
	trading config.TradingConfig
	gateway contracts.OrderGateway
	data    contracts.MarketData
	orders  OrderLogger
	log     *logger.Logger

	logged map[string]bool
}

// NewManager creates an order lifecycle manager. orders may be nil.
func NewManager(cfg *strategyconfig.Config, trading config.TradingConfig, gateway contracts.OrderGateway, data contracts.MarketData, orders OrderLogger, log *logger.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		trading: trading,
		gateway: gateway,
		data:    data,
		orders:  orders,
		log:     log,
		logged:  make(map[string]bool),
	}
}

// logOnce emits a skip reason a single time per manager lifetime so a
// disabled account does not flood the log every minute.
func (m *Manager) logOnce(key, msg string) {
	if m.logged[key] {
		return
	}
	m.logged[key] = true
	m.log.Warn(msg)
}

// SubmitEntry attempts the initial buy for a triggered symbol. A
// gateway rejection schedules a retry on the next minute tick; adapter
// errors skip the tick. At most one retry is pending per symbol at a
// time.
func (m *Manager) SubmitEntry(ctx context.Context, book *Book, symbol string, stopRef float64, now time.Time) {
	st := book.stats(symbol)
	st.Triggers++

	if _, held := book.Positions[symbol]; held || book.BoughtToday[symbol] {
		st.LastSkip = "already_holding"
		return
	}
	if _, waiting := book.Pending[symbol]; waiting {
		st.LastSkip = "retry_scheduled"
		return
	}

	accepted, ok := m.placeBuy(ctx, book, symbol, stopRef, now)
	if !ok {
		return
	}
	if !accepted {
		book.Pending[symbol] = &contracts.PendingBuy{
			Symbol:    symbol,
			NotBefore: now.Add(time.Minute),
			StopRef:   stopRef,
		}
		m.log.WithField("symbol", symbol).Info("Buy rejected, retry scheduled")
	}
}

// ProcessPending fires due retries. A rejected retry is pushed back a
// minute and tried again; rejection never gives up the symbol while
// the trigger stands.
func (m *Manager) ProcessPending(ctx context.Context, book *Book, now time.Time) {
	for _, symbol := range sortedKeys(book.Pending) {
		pb := book.Pending[symbol]
		if now.Before(pb.NotBefore) {
			continue
		}

		if _, held := book.Positions[symbol]; held || book.BoughtToday[symbol] {
			delete(book.Pending, symbol)
			continue
		}

		accepted, ok := m.placeBuy(ctx, book, symbol, pb.StopRef, now)
		if !ok {
			continue // gate or adapter problem, attempt again next tick
		}
		book.stats(symbol).Retries++
		if accepted {
			delete(book.Pending, symbol)
			continue
		}
		pb.NotBefore = now.Add(time.Minute)
		m.log.WithField("symbol", symbol).Info("Retry rejected, rescheduled")
	}
}

// placeBuy runs the submission gates and the gateway call. ok=false
// means a gate or adapter problem stopped the attempt before a
// definitive accept/reject.
func (m *Manager) placeBuy(ctx context.Context, book *Book, symbol string, stopRef float64, now time.Time) (accepted, ok bool) {
	st := book.stats(symbol)

	if !m.trading.Enabled {
		st.LastSkip = "trading_disabled"
		m.logOnce("trading_disabled", "Trading disabled, orders suppressed")
		return false, false
	}
	if m.trading.AccountID == "" {
		st.LastSkip = "no_account"
		m.logOnce("no_account", "No trading account bound, orders suppressed")
		return false, false
	}

	cash, err := m.gateway.AvailableCash(ctx, m.trading.AccountID)
	if err != nil {
		st.LastSkip = "cash_unavailable"
		m.log.WithError(err).WithField("symbol", symbol).Warn("Cash query failed, skipping tick")
		return false, false
	}
	if cash <= 0 {
		st.LastSkip = "no_cash"
		m.logOnce("no_cash", "No available cash, orders suppressed")
		return false, false
	}

	amount := m.cfg.Entry.OrderCash
	if cash < amount {
		amount = cash
	}

	st.Submitted++
	accepted, err = m.gateway.Buy(ctx, m.trading.AccountID, symbol, amount)
	if err != nil {
		st.LastSkip = "gateway_error"
		m.log.WithError(err).WithField("symbol", symbol).Warn("Buy failed, skipping tick")
		return false, false
	}

	m.logOrder(ctx, OrderRecord{
		Symbol: symbol, Side: "buy", Date: now.Format("20060102"),
		Time: now.Format("15:04"), CashAmount: amount, Accepted: accepted,
	})

	if !accepted {
		st.Rejected++
		return false, true
	}

	entry := m.entryPrice(ctx, symbol)
	if stopRef <= 0 {
		stopRef = entry
	}
	book.Positions[symbol] = &contracts.PositionRecord{
		Symbol:     symbol,
		EntryPrice: entry,
		BuyDate:    now.Format("20060102"),
		StopRef:    stopRef,
		TPStage:    contracts.TPStageNone,
	}
	book.BoughtToday[symbol] = true
	st.Accepted++

	m.log.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"entry":    entry,
		"stop_ref": stopRef,
		"cash":     amount,
	}).Info("Buy accepted")
	return true, true
}

// entryPrice resolves the sticky entry price: the live quote when one
// exists, otherwise the gateway's average cost. Zero is backfilled on
// a later take-profit sweep.
func (m *Manager) entryPrice(ctx context.Context, symbol string) float64 {
	if price, ok, err := m.data.CurrentPrice(ctx, symbol); err == nil && ok && price > 0 {
		return price
	}
	if cost, ok, err := m.gateway.PositionCost(ctx, m.trading.AccountID, symbol); err == nil && ok && cost > 0 {
		return cost
	}
	return 0
}

// CheckTakeProfits advances the staged take-profits on every held
// position. Stages fire at most once and never regress; each firing
// sells a third of the current quantity in round lots.
func (m *Manager) CheckTakeProfits(ctx context.Context, book *Book) {
	if len(book.Positions) == 0 {
		return
	}

	holdings, err := m.gateway.Positions(ctx, m.trading.AccountID)
	if err != nil {
		m.log.WithError(err).Warn("Position query failed, skipping take-profit sweep")
		return
	}

	for _, symbol := range sortedKeys(book.Positions) {
		pos := book.Positions[symbol]
		qty := holdings[symbol]
		if qty <= 0 {
			delete(book.Positions, symbol)
			continue
		}

		price, ok, err := m.data.CurrentPrice(ctx, symbol)
		if err != nil || !ok || price <= 0 {
			continue
		}

		if pos.EntryPrice <= 0 {
			if cost, ok, err := m.gateway.PositionCost(ctx, m.trading.AccountID, symbol); err == nil && ok && cost > 0 {
				pos.EntryPrice = cost
				if pos.StopRef <= 0 {
					pos.StopRef = cost
				}
			} else {
				continue
			}
		}

		gain := price/pos.EntryPrice - 1.0
		var target float64
		switch pos.TPStage {
		case contracts.TPStageNone:
			target = m.cfg.Exit.TakeProfit1
		case contracts.TPStageFirst:
			target = m.cfg.Exit.TakeProfit2
		default:
			continue
		}
		if gain < target {
			continue
		}

		sellQty := int64(float64(qty)*m.cfg.Exit.SellFraction) / 100 * 100
		if sellQty <= 0 {
			sellQty = qty // position too small to split, close it out
		}

		accepted, err := m.gateway.Sell(ctx, m.trading.AccountID, symbol, sellQty)
		if err != nil {
			m.log.WithError(err).WithField("symbol", symbol).Warn("Sell failed, will retry next tick")
			continue
		}
		if !accepted {
			continue
		}

		pos.TPStage++
		m.logOrder(ctx, OrderRecord{
			Symbol: symbol, Side: "sell", Qty: sellQty, Accepted: true,
			Reason: "take_profit",
		})
		m.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"gain":   gain,
			"qty":    sellQty,
			"stage":  int(pos.TPStage),
		}).Info("Take-profit filled")
	}
}

// CheckStops runs the once-per-day stop evaluation at the configured
// time. A position is liquidated below its stop reference, or on a
// distribution day: price under the prior close while cumulative
// volume exceeds both the prior session and its trailing average.
func (m *Manager) CheckStops(ctx context.Context, book *Book, date, hhmm string) {
	if hhmm < m.cfg.Exit.StopCheckTime || book.ExitChecked == date {
		return
	}
	book.ExitChecked = date

	m.logEntryStats(book, date)

	if len(book.Positions) == 0 {
		return
	}

	holdings, err := m.gateway.Positions(ctx, m.trading.AccountID)
	if err != nil {
		m.log.WithError(err).Warn("Position query failed, stop check skipped")
		return
	}

	for _, symbol := range sortedKeys(book.Positions) {
		pos := book.Positions[symbol]
		qty := holdings[symbol]
		if qty <= 0 {
			delete(book.Positions, symbol)
			continue
		}

		price, ok, err := m.data.CurrentPrice(ctx, symbol)
		if err != nil || !ok || price <= 0 {
			continue
		}

		reason := ""
		switch {
		case pos.StopRef > 0 && price < pos.StopRef:
			reason = "stop_reference"
		case m.isDistributionDay(ctx, symbol, date, hhmm, price):
			reason = "distribution_day"
		}
		if reason == "" {
			continue
		}

		accepted, err := m.gateway.Sell(ctx, m.trading.AccountID, symbol, qty)
		if err != nil || !accepted {
			m.log.WithError(err).WithField("symbol", symbol).Warn("Liquidation not filled")
			continue
		}

		delete(book.Positions, symbol)
		m.logOrder(ctx, OrderRecord{
			Symbol: symbol, Side: "sell", Qty: qty, Accepted: true, Reason: reason,
		})
		m.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"price":  price,
			"reason": reason,
		}).Info("Position liquidated")
	}
}

// isDistributionDay checks the heavy-volume-under-prior-close exit.
// Any missing data answers false.
func (m *Manager) isDistributionDay(ctx context.Context, symbol, date, hhmm string, price float64) bool {
	prev, err := m.data.PrevTradingDates(ctx, date, 1)
	if err != nil || len(prev) == 0 {
		return false
	}

	daily, err := m.data.DailyBars(ctx, symbol, prev[0], m.cfg.Exit.VolumeAvgDays)
	if err != nil || len(daily) == 0 {
		return false
	}

	yesterday := daily[len(daily)-1]
	if yesterday.Close <= 0 || price >= yesterday.Close {
		return false
	}

	minutes, err := m.data.MinuteBars(ctx, symbol, date, hhmm, 0)
	if err != nil {
		return false
	}
	var todayVol float64
	for _, b := range minutes {
		todayVol += b.Volume
	}

	var sum float64
	for _, b := range daily {
		sum += b.Volume
	}
	avg := sum / float64(len(daily))

	return todayVol > yesterday.Volume && todayVol > avg
}

func (m *Manager) logEntryStats(book *Book, date string) {
	for _, symbol := range sortedKeys(book.Stats) {
		st := book.Stats[symbol]
		m.log.WithFields(map[string]interface{}{
			"date":      date,
			"symbol":    symbol,
			"triggers":  st.Triggers,
			"submitted": st.Submitted,
			"accepted":  st.Accepted,
			"rejected":  st.Rejected,
			"retries":   st.Retries,
			"last_skip": st.LastSkip,
		}).Info("Entry stats")
	}
}

func (m *Manager) logOrder(ctx context.Context, rec OrderRecord) {
	if m.orders == nil {
		return
	}
	if err := m.orders.LogOrder(ctx, rec); err != nil {
		m.log.WithError(err).Warn("Order audit write failed")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
