package contracts

import "time"

// TakeProfitStage is the staged take-profit counter for a held
// position. Stages are monotonic: once a stage fires it never
// re-enters a lower one.
type TakeProfitStage int

const (
	TPStageNone  TakeProfitStage = 0
	TPStageFirst TakeProfitStage = 1
	TPStageFinal TakeProfitStage = 2
)

// PositionRecord is the core's own bookkeeping for one held symbol.
// Created on the first accepted buy, cleared when the gateway reports
// the position gone. Share quantities always come fresh from the
// gateway; only entry context lives here.
type PositionRecord struct {
	Symbol     string          `json:"symbol"`
	EntryPrice float64         `json:"entry_price"` // first observed trade price, sticky
	BuyDate    string          `json:"buy_date"`    // YYYYMMDD
	StopRef    float64         `json:"stop_ref"`    // pullback low if known, else entry price
	TPStage    TakeProfitStage `json:"tp_stage"`
}

// PendingBuy is a scheduled one-shot retry after a rejected buy.
// At most one exists per symbol.
type PendingBuy struct {
	Symbol    string    `json:"symbol"`
	NotBefore time.Time `json:"not_before"` // next minute tick
	StopRef   float64   `json:"stop_ref"`   // carried forward from the trigger, 0 = unset
}
