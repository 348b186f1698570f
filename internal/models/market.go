package models

import "time"

// Snapshot is a point-in-time quote for a symbol. Snapshots are transient:
// refreshed on a timer and on demand, never persisted.
type Snapshot struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
}

// DailyBar is one day of OHLCV data. Series are ordered ascending by date.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// FinancialsPeriod holds income-statement figures for one reporting period.
// Series are ordered most-recent-first. Fields are pointers because the
// provider frequently omits line items.
type FinancialsPeriod struct {
	Revenue         *float64 `json:"revenue,omitempty"`
	GrossProfit     *float64 `json:"gross_profit,omitempty"`
	OperatingIncome *float64 `json:"operating_income,omitempty"`
}

// MarketIndex is a quote for one of the tracked index ETFs.
type MarketIndex struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// SMAPoint is one point of a simple-moving-average overlay series.
type SMAPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ChartSeries is the numeric payload for a single-symbol chart: the visible
// bars plus the 50- and 200-period SMA overlays, already trimmed to the
// display window.
type ChartSeries struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Bars      []DailyBar `json:"bars"`
	SMA50     []SMAPoint `json:"sma_50,omitempty"`
	SMA200    []SMAPoint `json:"sma_200,omitempty"`
}
