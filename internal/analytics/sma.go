package analytics

import (
	"time"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// ComputeSMA returns the trailing simple moving average of closing prices.
// The first output point corresponds to input index period-1; a series
// shorter than the period yields an empty result. Callers wanting a display
// sub-range must compute over the full history first and trim afterwards
// with TrimFromDate, otherwise the averages at the window boundary are wrong.
func ComputeSMA(bars []models.DailyBar, period int) []models.SMAPoint {
	if period <= 0 || len(bars) < period {
		return nil
	}

	points := make([]models.SMAPoint, 0, len(bars)-period+1)
	sum := 0.0
	for i, bar := range bars {
		sum += bar.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			points = append(points, models.SMAPoint{
				Date:  bar.Date,
				Value: sum / float64(period),
			})
		}
	}
	return points
}

// TrimFromDate restricts an SMA series to points on or after the given date.
func TrimFromDate(points []models.SMAPoint, from time.Time) []models.SMAPoint {
	trimmed := make([]models.SMAPoint, 0, len(points))
	for _, p := range points {
		if !p.Date.Before(from) {
			trimmed = append(trimmed, p)
		}
	}
	return trimmed
}

// TrimBarsFromDate restricts a bar series to bars on or after the given date.
func TrimBarsFromDate(bars []models.DailyBar, from time.Time) []models.DailyBar {
	trimmed := make([]models.DailyBar, 0, len(bars))
	for _, b := range bars {
		if !b.Date.Before(from) {
			trimmed = append(trimmed, b)
		}
	}
	return trimmed
}
