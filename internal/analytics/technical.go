package analytics

import (
	"github.com/trogers1052/portfolio-commander/internal/models"
)

// Price-series classification thresholds. These cutoffs are a behavioral
// contract with the consuming dashboard; do not tune them.
const (
	MinTechnicalBars        = 20
	SupportResistanceWindow = 50
	TrendWindow             = 20
	TrendHalfWindow         = 10
	UptrendRatio            = 1.02
	DowntrendRatio          = 0.98
	LowerLowsWindow         = 5
	BreakoutTouchRatio      = 0.99
	BreakoutFailRatio       = 0.97
	ConstructiveBaseRatio   = 1.05
)

// Pattern alert texts
const (
	AlertLowerLows        = "Lower lows - bearish pattern"
	AlertFailedBreakout   = "Failed breakout attempt"
	AlertConstructiveBase = "Above support - constructive base"
	AlertBrokenSupport    = "Broken support level"
)

// ClassifyTechnical derives support, resistance, trend and pattern alerts
// from an ascending daily-bar series and the current price. Fewer than 20
// bars is not an error: the result is neutral with no levels and no alerts.
func ClassifyTechnical(bars []models.DailyBar, currentPrice float64) *models.TechnicalSignals {
	signals := &models.TechnicalSignals{
		Trend:         models.SeriesTrendNeutral,
		PatternAlerts: []string{},
	}
	if len(bars) < MinTechnicalBars {
		return signals
	}

	recent20 := bars[len(bars)-TrendWindow:]
	recent50 := bars
	if len(bars) > SupportResistanceWindow {
		recent50 = bars[len(bars)-SupportResistanceWindow:]
	}

	support := recent50[0].Low
	resistance := recent50[0].High
	for _, b := range recent50 {
		if b.Low < support {
			support = b.Low
		}
		if b.High > resistance {
			resistance = b.High
		}
	}
	signals.SupportLevel = &support
	signals.ResistanceLevel = &resistance

	firstHalfAvg := meanClose(recent20[:TrendHalfWindow])
	secondHalfAvg := meanClose(recent20[TrendHalfWindow:])
	switch {
	case secondHalfAvg > firstHalfAvg*UptrendRatio:
		signals.Trend = models.SeriesTrendUp
	case secondHalfAvg < firstHalfAvg*DowntrendRatio:
		signals.Trend = models.SeriesTrendDown
	default:
		signals.Trend = models.SeriesTrendRangeBound
	}

	// Lower lows across the trailing 5 bars: each low at or below the previous.
	recentLows := recent20[len(recent20)-LowerLowsWindow:]
	lowerLows := true
	for i := 1; i < len(recentLows); i++ {
		if recentLows[i].Low > recentLows[i-1].Low {
			lowerLows = false
			break
		}
	}
	if lowerLows {
		signals.PatternAlerts = append(signals.PatternAlerts, AlertLowerLows)
	}

	// Failed breakout: a recent bar touched the resistance zone but price
	// has since retreated below it.
	touched := false
	for _, b := range recent20 {
		if b.High >= resistance*BreakoutTouchRatio {
			touched = true
			break
		}
	}
	if touched && currentPrice < resistance*BreakoutFailRatio {
		signals.PatternAlerts = append(signals.PatternAlerts, AlertFailedBreakout)
	}

	if currentPrice > support*ConstructiveBaseRatio {
		signals.PatternAlerts = append(signals.PatternAlerts, AlertConstructiveBase)
	} else if currentPrice < support {
		signals.PatternAlerts = append(signals.PatternAlerts, AlertBrokenSupport)
	}

	return signals
}

func meanClose(bars []models.DailyBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Close
	}
	return sum / float64(len(bars))
}
