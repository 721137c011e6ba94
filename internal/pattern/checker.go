package pattern

import (
	"context"
	"fmt"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/logger"
)

// Checker answers whether the formation completed on a past session,
// replaying that day's full minute history through the matcher.
type Checker struct {
	matcher *Matcher
	data    contracts.MarketData
}

// NewChecker creates an offline formation checker.
func NewChecker(cfg *strategyconfig.Config, data contracts.MarketData, log *logger.Logger) *Checker {
	return &Checker{matcher: NewMatcher(cfg, log), data: data}
}

// FormedOn reports whether symbol completed the formation on date.
func (c *Checker) FormedOn(ctx context.Context, symbol, date string) (bool, error) {
	bars, err := c.data.MinuteBars(ctx, symbol, date, "15:00", 0)
	if err != nil {
		return false, fmt.Errorf("minute bars for %s on %s: %w", symbol, date, err)
	}
	if len(bars) == 0 {
		return false, nil
	}
	return c.matcher.Replay(bars), nil
}
