package analytics

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// Recommendation thresholds on the day's change percent, evaluated in
// priority order. Fixed contract; do not re-derive.
const (
	StrongDropPct = -3.0
	StrongGainPct = 3.0
	MildDropPct   = -1.5
	MildGainPct   = 1.5
)

// Alert thresholds
const (
	RSIOversold          = 30
	RSIOverbought        = 70
	DayRangeHighPct      = 95
	DayRangeLowPct       = 5
	HighVolumeRatio      = 2.0
	LowVolumeRatio       = 0.3
	Week52ProximityPct   = 5.0
	FallbackDayRangeBand = 0.02
	FallbackRSI          = 50
)

// Reasoning texts keyed to the recommendation buckets
const (
	ReasonStrongDrop = "Significant price drop presents buying opportunity"
	ReasonStrongGain = "Strong gains - consider taking profits"
	ReasonMildDrop   = "Price pullback - potential accumulation zone"
	ReasonMildGain   = "Upward momentum - good exit opportunity"
	ReasonNeutral    = "Market conditions neutral"
)

// Fallback reasoning texts for cycles where no snapshot was obtainable
const (
	ReasonNoData      = "No data available - stock may not be trading"
	ReasonRateLimited = "Rate limit reached - please wait before refreshing"
	ReasonFetchError  = "Error fetching data - please refresh"
)

// Computer turns raw market data into per-holding signals. It is pure and
// total: every well-typed input produces exactly one HoldingSignal.
type Computer struct {
	// jitter returns a value in [0,n); swapped out in tests.
	jitter func(n int) int
}

// NewComputer creates a Computer with the default jitter source.
func NewComputer() *Computer {
	return &Computer{jitter: rand.IntN}
}

// Compute derives a HoldingSignal for one position. The snapshot may be nil
// (provider had no data for the symbol), in which case the no-data fallback
// is returned. Bars and financials are optional and only enrich the signal.
func (c *Computer) Compute(pos *models.Position, snap *models.Snapshot, bars []models.DailyBar, financials []models.FinancialsPeriod) *models.HoldingSignal {
	if snap == nil {
		return c.Fallback(pos, ReasonNoData)
	}

	currentPrice := round2(snap.CurrentPrice)
	dayHigh := snap.DayHigh
	dayLow := snap.DayLow
	if dayHigh == 0 {
		dayHigh = currentPrice * (1 + FallbackDayRangeBand)
	}
	if dayLow == 0 {
		dayLow = currentPrice * (1 - FallbackDayRangeBand)
	}

	week52High, week52Low, avgVolume := yearStats(snap, bars, dayHigh, dayLow)

	recommendation, rsi, reasoning := c.classify(snap.ChangePercent)

	priceInRange := 50.0
	if dayRange := dayHigh - dayLow; dayRange > 0 {
		priceInRange = (currentPrice - dayLow) / dayRange * 100
	}
	// A last trade outside the day bar's range would push this past the
	// 0-100 scale.
	priceInRange = math.Min(math.Max(priceInRange, 0), 100)

	signal := &models.HoldingSignal{
		Symbol:          pos.Symbol,
		CurrentPrice:    currentPrice,
		Change:          round2(snap.Change),
		ChangePercent:   round2(snap.ChangePercent),
		DayHigh:         round2(dayHigh),
		DayLow:          round2(dayLow),
		Volume:          snap.Volume,
		Week52High:      &week52High,
		Week52Low:       &week52Low,
		AvgVolume:       &avgVolume,
		Recommendation:  recommendation,
		Reasoning:       reasoning,
		RSIProxy:        rsi,
		Trend:           momentumTrend(snap.ChangePercent),
		PriceInDayRange: int(math.Round(priceInRange)),
		Fundamentals:    computeFundamentals(financials),
	}

	if len(bars) > 0 {
		signal.Technical = ClassifyTechnical(bars, currentPrice)
	}

	signal.Alerts = buildAlerts(signal, priceInRange, avgVolume, week52High, week52Low)
	return signal
}

// Fallback returns the degraded signal used when the provider call failed,
// was rate limited, or returned no data for the symbol. Every position
// always yields a signal.
func (c *Computer) Fallback(pos *models.Position, reason string) *models.HoldingSignal {
	avgPrice := pos.AvgPrice.InexactFloat64()
	return &models.HoldingSignal{
		Symbol:          pos.Symbol,
		CurrentPrice:    avgPrice,
		Change:          0,
		ChangePercent:   0,
		DayHigh:         round2(avgPrice * (1 + FallbackDayRangeBand)),
		DayLow:          round2(avgPrice * (1 - FallbackDayRangeBand)),
		Volume:          0,
		Recommendation:  models.RecommendationHold,
		Reasoning:       reason,
		Alerts:          []string{},
		RSIProxy:        FallbackRSI,
		Trend:           models.TrendNeutral,
		PriceInDayRange: 50,
	}
}

// classify maps the day's change percent onto the recommendation buckets.
// The RSI proxy is a presentational jitter within a fixed band per bucket;
// it never influences the recommendation.
func (c *Computer) classify(changePercent float64) (string, int, string) {
	switch {
	case changePercent < StrongDropPct:
		return models.RecommendationBuy, c.jitter(20) + 20, ReasonStrongDrop
	case changePercent > StrongGainPct:
		return models.RecommendationSell, c.jitter(20) + 65, ReasonStrongGain
	case changePercent < MildDropPct:
		return models.RecommendationBuy, c.jitter(15) + 30, ReasonMildDrop
	case changePercent > MildGainPct:
		return models.RecommendationSell, c.jitter(15) + 60, ReasonMildGain
	default:
		return models.RecommendationHold, c.jitter(40) + 30, ReasonNeutral
	}
}

// yearStats derives 52-week high/low and average volume from the supplied
// bars, falling back to the snapshot's own day figures when no history is
// available.
func yearStats(snap *models.Snapshot, bars []models.DailyBar, dayHigh, dayLow float64) (float64, float64, int64) {
	if len(bars) == 0 {
		return round2(dayHigh), round2(dayLow), snap.Volume
	}

	high := bars[0].High
	low := bars[0].Low
	var totalVolume int64
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
		totalVolume += b.Volume
	}
	avgVolume := int64(math.Round(float64(totalVolume) / float64(len(bars))))
	return round2(high), round2(low), avgVolume
}

// buildAlerts assembles the alert list in its fixed order: RSI extremes,
// day-range extremes, volume anomalies, then 52-week proximity.
func buildAlerts(s *models.HoldingSignal, priceInRange float64, avgVolume int64, week52High, week52Low float64) []string {
	alerts := []string{}

	if s.RSIProxy < RSIOversold {
		alerts = append(alerts, fmt.Sprintf("Oversold (RSI: %d) - potential reversal", s.RSIProxy))
	} else if s.RSIProxy > RSIOverbought {
		alerts = append(alerts, fmt.Sprintf("Overbought (RSI: %d) - possible pullback", s.RSIProxy))
	}

	if priceInRange > DayRangeHighPct {
		alerts = append(alerts, "Trading near day's high")
	} else if priceInRange < DayRangeLowPct {
		alerts = append(alerts, "Trading near day's low")
	}

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = float64(s.Volume) / float64(avgVolume)
	}
	if volumeRatio > HighVolumeRatio {
		alerts = append(alerts, "Unusually high volume - significant interest")
	} else if volumeRatio < LowVolumeRatio && s.Volume > 0 {
		alerts = append(alerts, "Low volume - weak conviction")
	}

	if week52High > 0 {
		if distance := (week52High - s.CurrentPrice) / week52High * 100; distance <= Week52ProximityPct {
			alerts = append(alerts, fmt.Sprintf("Near 52-week high ($%.2f)", week52High))
		}
	}
	if week52Low > 0 {
		if distance := (s.CurrentPrice - week52Low) / week52Low * 100; distance <= Week52ProximityPct {
			alerts = append(alerts, fmt.Sprintf("Near 52-week low ($%.2f)", week52Low))
		}
	}

	return alerts
}

// computeFundamentals derives margin and growth ratios from the most recent
// reporting periods. Returns nil when the latest period carries no revenue;
// individual ratios are skipped when their inputs are absent or zero.
func computeFundamentals(financials []models.FinancialsPeriod) *models.Fundamentals {
	if len(financials) == 0 {
		return nil
	}
	latest := financials[0]
	if latest.Revenue == nil || *latest.Revenue == 0 {
		return nil
	}
	revenue := *latest.Revenue

	f := &models.Fundamentals{Revenue: &revenue}

	if latest.GrossProfit != nil {
		f.GrossMargin = round1Ptr(*latest.GrossProfit / revenue * 100)
	}
	if latest.OperatingIncome != nil {
		f.OperatingMargin = round1Ptr(*latest.OperatingIncome / revenue * 100)
	}

	// Quarter over quarter: period 0 vs period 1.
	if len(financials) >= 2 {
		if prev := financials[1].Revenue; prev != nil && *prev != 0 {
			f.RevenueGrowthQoQ = round1Ptr((revenue - *prev) / *prev * 100)
		}
	}
	// Year over year: period 0 vs period 4 (four quarters back).
	if len(financials) >= 5 {
		if yearAgo := financials[4].Revenue; yearAgo != nil && *yearAgo != 0 {
			f.RevenueGrowthYoY = round1Ptr((revenue - *yearAgo) / *yearAgo * 100)
		}
	}

	return f
}

func momentumTrend(changePercent float64) string {
	switch {
	case changePercent > 0:
		return models.TrendBullish
	case changePercent < 0:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1Ptr(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}
