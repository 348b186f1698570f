package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recommendation constants
const (
	RecommendationBuy  = "BUY"
	RecommendationSell = "SELL"
	RecommendationHold = "HOLD"
)

// Momentum trend constants
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Price-series trend constants
const (
	SeriesTrendUp         = "uptrend"
	SeriesTrendDown       = "downtrend"
	SeriesTrendRangeBound = "range-bound"
	SeriesTrendNeutral    = "neutral"
)

// Fundamentals holds ratios derived from the financial-statement series.
// Every field is optional: "not computed" is distinct from "computed as zero".
type Fundamentals struct {
	Revenue          *float64 `json:"revenue,omitempty"`
	RevenueGrowthYoY *float64 `json:"revenue_growth_yoy,omitempty"`
	RevenueGrowthQoQ *float64 `json:"revenue_growth_qoq,omitempty"`
	GrossMargin      *float64 `json:"gross_margin,omitempty"`
	OperatingMargin  *float64 `json:"operating_margin,omitempty"`
}

// TechnicalSignals holds the output of the price-series classifier.
type TechnicalSignals struct {
	Trend           string   `json:"trend"`
	SupportLevel    *float64 `json:"support_level,omitempty"`
	ResistanceLevel *float64 `json:"resistance_level,omitempty"`
	PatternAlerts   []string `json:"pattern_alerts"`
}

// HoldingSignal is the per-position derived signal, recomputed every refresh
// cycle and never persisted. A signal exists for every position: when market
// data is unavailable the engine emits a documented fallback instead of
// omitting the entry.
type HoldingSignal struct {
	Symbol          string            `json:"symbol"`
	CurrentPrice    float64           `json:"current_price"`
	Change          float64           `json:"change"`
	ChangePercent   float64           `json:"change_percent"`
	DayHigh         float64           `json:"day_high"`
	DayLow          float64           `json:"day_low"`
	Volume          int64             `json:"volume"`
	Week52High      *float64          `json:"week_52_high,omitempty"`
	Week52Low       *float64          `json:"week_52_low,omitempty"`
	AvgVolume       *int64            `json:"average_volume,omitempty"`
	Recommendation  string            `json:"recommendation"`
	Reasoning       string            `json:"reasoning"`
	Alerts          []string          `json:"alerts"`
	RSIProxy        int               `json:"rsi"`
	Trend           string            `json:"trend"`
	PriceInDayRange int               `json:"price_in_day_range"`
	Fundamentals    *Fundamentals     `json:"fundamentals,omitempty"`
	Technical       *TechnicalSignals `json:"technical,omitempty"`
}

// Holding pairs a position with its live signal for presentation.
type Holding struct {
	Position *Position      `json:"position"`
	Signal   *HoldingSignal `json:"signal,omitempty"`
}

// PortfolioTotals aggregates all holdings into portfolio-level figures.
// Invariant: TotalGainLoss = TotalValue - TotalCost, exactly.
type PortfolioTotals struct {
	TotalValue                   decimal.Decimal `json:"total_value"`
	TotalCost                    decimal.Decimal `json:"total_cost"`
	TotalGainLoss                decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent         decimal.Decimal `json:"total_gain_loss_percent"`
	TotalValueDailyChange        decimal.Decimal `json:"total_value_daily_change"`
	TotalValueDailyChangePercent decimal.Decimal `json:"total_value_daily_change_percent"`
	CostBasisDailyChange         decimal.Decimal `json:"cost_basis_daily_change"`
	CostBasisDailyChangePercent  decimal.Decimal `json:"cost_basis_daily_change_percent"`
	PLDailyChange                decimal.Decimal `json:"pl_daily_change"`
	PLDailyChangePercent         decimal.Decimal `json:"pl_daily_change_percent"`
	ReturnDailyChangePercent     decimal.Decimal `json:"return_daily_change_percent"`
}

// SignalEvent is a Kafka event emitted when a holding's signal changes.
type SignalEvent struct {
	EventType string         `json:"event_type"`
	Symbol    string         `json:"symbol"`
	Signal    *HoldingSignal `json:"signal,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RefreshEvent is a Kafka event emitted when a refresh cycle completes.
type RefreshEvent struct {
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id"`
	Totals    *PortfolioTotals `json:"totals,omitempty"`
	Holdings  int              `json:"holdings"`
	Timestamp time.Time        `json:"timestamp"`
}

// PositionSync is one entry of a broker position snapshot received over Kafka.
type PositionSync struct {
	Symbol   string `json:"symbol"`
	Shares   string `json:"shares"`
	AvgPrice string `json:"avg_price"`
	Name     string `json:"name,omitempty"`
}

// PositionsSyncEvent is a full position snapshot for one user. The consumer
// replaces the stored position list with its contents.
type PositionsSyncEvent struct {
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id"`
	Positions []PositionSync `json:"positions"`
	Timestamp time.Time      `json:"timestamp"`
}
