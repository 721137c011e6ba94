package contracts

import "fmt"

// Bar is a single OHLCV bar. Daily bars carry only Date (YYYYMMDD);
// minute bars additionally carry Time (HH:MM) within one session.
// Sequences are always ascending.
type Bar struct {
	Date   string  `json:"date"`
	Time   string  `json:"time,omitempty"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Validate checks the OHLCV invariant:
// high >= max(open,close) >= min(open,close) >= low >= 0, volume >= 0.
func (b Bar) Validate() error {
	if b.Low < 0 || b.Volume < 0 {
		return fmt.Errorf("bar %s %s: negative low or volume", b.Date, b.Time)
	}
	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	bottom := b.Open
	if b.Close < bottom {
		bottom = b.Close
	}
	if b.High < top || bottom < b.Low {
		return fmt.Errorf("bar %s %s: high/low do not bound open/close", b.Date, b.Time)
	}
	return nil
}

// Body returns close − open (negative for a down bar).
func (b Bar) Body() float64 {
	return b.Close - b.Open
}

// Range returns high − low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// UpperShadowRatio returns (high − max(open,close)) / (high − low).
// A zero-range bar has no shadow by definition, so the ratio is 0.
func (b Bar) UpperShadowRatio() float64 {
	total := b.High - b.Low
	if total <= 0 {
		return 0.0
	}

	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	return (b.High - top) / total
}
