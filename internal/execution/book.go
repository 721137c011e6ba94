package execution

import "github.com/swfung/dualcannon/internal/contracts"

// EntryStats counts what happened to one watchlist symbol's entry
// attempts during the session. Logged at the end-of-day gate.
type EntryStats struct {
	Triggers  int    `json:"triggers"`
	Submitted int    `json:"submitted"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
	Retries   int    `json:"retries"`
	LastSkip  string `json:"last_skip,omitempty"`
}

// Book is the manager's order state. Positions survive day rollover
// until the account reports them closed; the intraday maps are wiped
// every trading day. Share quantities always come fresh from the
// gateway.
type Book struct {
	Positions map[string]*contracts.PositionRecord `json:"positions"`
	Pending   map[string]*contracts.PendingBuy     `json:"pending"`

	// BoughtToday blocks same-day resubmission once a buy was accepted.
	BoughtToday map[string]bool `json:"bought_today"`

	Stats map[string]*EntryStats `json:"stats"`

	// ExitChecked is the date the stop check already ran for.
	ExitChecked string `json:"exit_checked,omitempty"`
}

// NewBook returns an empty order book.
func NewBook() *Book {
	return &Book{
		Positions:   make(map[string]*contracts.PositionRecord),
		Pending:     make(map[string]*contracts.PendingBuy),
		BoughtToday: make(map[string]bool),
		Stats:       make(map[string]*EntryStats),
	}
}

// ResetDay clears the intraday state at rollover. Held positions and
// the exit-checked date carry over.
func (b *Book) ResetDay() {
	b.Pending = make(map[string]*contracts.PendingBuy)
	b.BoughtToday = make(map[string]bool)
	b.Stats = make(map[string]*EntryStats)
}

func (b *Book) stats(symbol string) *EntryStats {
	s, ok := b.Stats[symbol]
	if !ok {
		s = &EntryStats{}
		b.Stats[symbol] = s
	}
	return s
}
