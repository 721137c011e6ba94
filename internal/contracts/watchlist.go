package contracts

import "time"

// Candidate is a symbol that passed the daily screen for a formula
// date. Ephemeral; recomputed every trading day.
type Candidate struct {
	Symbol      string `json:"symbol"`
	FormulaDate string `json:"formula_date"` // the T day the filters were evaluated on
}

// WatchlistEntry is one ranked entry of the day's frozen watchlist.
type WatchlistEntry struct {
	Symbol      string  `json:"symbol"`
	VolumeRatio float64 `json:"volume_ratio"`
	Rank        int     `json:"rank"`
}

// Watchlist is the frozen, ranked, size-bounded selection for one
// trading day.
type Watchlist struct {
	TradeDate string           `json:"trade_date"`
	BuiltAt   time.Time        `json:"built_at"`
	Entries   []WatchlistEntry `json:"entries"`
}

// Symbols returns the entry symbols in rank order.
func (w *Watchlist) Symbols() []string {
	symbols := make([]string, 0, len(w.Entries))
	for _, e := range w.Entries {
		symbols = append(symbols, e.Symbol)
	}
	return symbols
}

// Contains reports whether symbol is on the watchlist.
func (w *Watchlist) Contains(symbol string) bool {
	for _, e := range w.Entries {
		if e.Symbol == symbol {
			return true
		}
	}
	return false
}
