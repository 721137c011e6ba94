package session

import (
	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/execution"
	"github.com/swfung/dualcannon/internal/pattern"
)

// DayState is everything the pipeline accumulates during one trading
// day. The driver owns exactly one and rebuilds it at day rollover.
// Only the order book's positions outlive the session; they stay
// managed until the account reports them closed.
type DayState struct {
	Date string `json:"date"` // YYYYMMDD

	// Candidates passed the pre-open screen for this day's reference
	// date.
	Candidates []contracts.Candidate `json:"candidates"`
	// FormulaDate is the completed session the screen was computed on.
	FormulaDate string `json:"formula_date"`

	// Watchlist is nil until the build time, then frozen for the day.
	Watchlist *contracts.Watchlist `json:"watchlist,omitempty"`

	// Patterns holds per-watchlist-symbol matcher state.
	Patterns map[string]*pattern.State `json:"patterns"`

	// Book is the order lifecycle state.
	Book *execution.Book `json:"book"`

	Screened bool `json:"screened"`
}

// NewDayState creates an empty state for date. A non-nil book is
// carried over with its intraday maps reset, keeping overnight holds
// under management.
func NewDayState(date string, book *execution.Book) *DayState {
	if book == nil {
		book = execution.NewBook()
	} else {
		book.ResetDay()
	}
	return &DayState{
		Date:     date,
		Patterns: make(map[string]*pattern.State),
		Book:     book,
	}
}

// PatternState returns the matcher state for symbol, creating it on
// first use.
func (s *DayState) PatternState(symbol string) *pattern.State {
	st, ok := s.Patterns[symbol]
	if !ok {
		st = &pattern.State{}
		s.Patterns[symbol] = st
	}
	return st
}
