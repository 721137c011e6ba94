package execution

import (
	"context"
	"fmt"
	"sync"
)

// BuyCall records one Buy invocation on the mock.
type BuyCall struct {
	Symbol string
	Cash   float64
}

// SellCall records one Sell invocation on the mock.
type SellCall struct {
	Symbol string
	Qty    int64
}

// MockGateway is an in-memory order gateway for tests and dry runs.
// Buys fill at the configured price in round 100-share lots.
type MockGateway struct {
	mu sync.Mutex

	Cash     float64
	Prices   map[string]float64
	Holdings map[string]int64
	Costs    map[string]float64

	RejectBuys  bool
	RejectSells bool
	Err         error

	BuyCalls  []BuyCall
	SellCalls []SellCall
}

// NewMockGateway creates a mock gateway with the given starting cash.
func NewMockGateway(cash float64) *MockGateway {
	return &MockGateway{
		Cash:     cash,
		Prices:   make(map[string]float64),
		Holdings: make(map[string]int64),
		Costs:    make(map[string]float64),
	}
}

func (g *MockGateway) Buy(_ context.Context, _, symbol string, cashAmount float64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.BuyCalls = append(g.BuyCalls, BuyCall{Symbol: symbol, Cash: cashAmount})
	if g.Err != nil {
		return false, g.Err
	}
	if g.RejectBuys {
		return false, nil
	}

	price := g.Prices[symbol]
	if price <= 0 {
		return false, fmt.Errorf("mock gateway: no price for %s", symbol)
	}
	qty := int64(cashAmount/price) / 100 * 100
	if qty <= 0 || float64(qty)*price > g.Cash {
		return false, nil
	}

	g.Cash -= float64(qty) * price
	g.Holdings[symbol] += qty
	g.Costs[symbol] = price
	return true, nil
}

func (g *MockGateway) Sell(_ context.Context, _, symbol string, shareQty int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SellCalls = append(g.SellCalls, SellCall{Symbol: symbol, Qty: shareQty})
	if g.Err != nil {
		return false, g.Err
	}
	if g.RejectSells {
		return false, nil
	}
	if g.Holdings[symbol] < shareQty {
		return false, nil
	}

	g.Holdings[symbol] -= shareQty
	if g.Holdings[symbol] == 0 {
		delete(g.Holdings, symbol)
		delete(g.Costs, symbol)
	}
	g.Cash += float64(shareQty) * g.Prices[symbol]
	return true, nil
}

func (g *MockGateway) AvailableCash(context.Context, string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return 0, g.Err
	}
	return g.Cash, nil
}

func (g *MockGateway) Positions(context.Context, string) (map[string]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	out := make(map[string]int64, len(g.Holdings))
	for k, v := range g.Holdings {
		out[k] = v
	}
	return out, nil
}

func (g *MockGateway) PositionCost(_ context.Context, _, symbol string) (float64, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return 0, false, g.Err
	}
	cost, ok := g.Costs[symbol]
	return cost, ok, nil
}
