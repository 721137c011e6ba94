package contracts

import "context"

// MarketData supplies bar history, the trading calendar and live
// quotes. The core never parses provider wire formats; implementations
// live under internal/market and internal/external.
type MarketData interface {
	// DailyBars returns up to count daily bars for symbol ending at
	// asOfDate (inclusive), ascending. Fewer bars when history is short.
	DailyBars(ctx context.Context, symbol, asOfDate string, count int) ([]Bar, error)

	// MinuteBars returns minute bars for symbol on date, ascending,
	// truncated at untilTime (HH:MM, inclusive).
	MinuteBars(ctx context.Context, symbol, date, untilTime string, count int) ([]Bar, error)

	// PrevTradingDates returns the count trading dates before date
	// (ascending, date itself excluded).
	PrevTradingDates(ctx context.Context, date string, count int) ([]string, error)

	// CurrentPrice returns the latest trade price for symbol.
	// ok=false means no quote this tick, which is not an error.
	CurrentPrice(ctx context.Context, symbol string) (float64, bool, error)
}

// OrderGateway places orders and reports account state. A single
// synchronous call per operation; retry policy lives in the core.
type OrderGateway interface {
	// Buy places a buy order sized by cash amount. Returns false when
	// the gateway rejects the order.
	Buy(ctx context.Context, account, symbol string, cashAmount float64) (bool, error)

	// Sell places a sell order sized by share quantity.
	Sell(ctx context.Context, account, symbol string, shareQty int64) (bool, error)

	// AvailableCash returns the cash available for new orders.
	AvailableCash(ctx context.Context, account string) (float64, error)

	// Positions returns current position quantity per symbol.
	Positions(ctx context.Context, account string) (map[string]int64, error)

	// PositionCost returns the average cost of an open position.
	// ok=false when the gateway has no cost for the symbol.
	PositionCost(ctx context.Context, account, symbol string) (float64, bool, error)
}

// UniverseSource supplies the tradable symbol list once per session.
type UniverseSource interface {
	ListSymbols(ctx context.Context) ([]string, error)
}
