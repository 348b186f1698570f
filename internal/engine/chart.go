package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-commander/internal/analytics"
	"github.com/trogers1052/portfolio-commander/internal/models"
)

// Timeframe selects the visible window of a chart request.
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
	Timeframe3M Timeframe = "3M"
	Timeframe1Y Timeframe = "1Y"
	Timeframe5Y Timeframe = "5Y"
)

// SMALeadInDays is how many extra calendar days of bars are fetched before
// the display window. Roughly 300 calendar days cover the 200 trading days
// the long moving average needs, so the overlay is complete from the first
// visible bar.
const SMALeadInDays = 300

// ParseTimeframe validates a timeframe string from a request.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe1D, Timeframe1W, Timeframe1M, Timeframe3M, Timeframe1Y, Timeframe5Y:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("invalid timeframe %q", s)
}

// displayStart returns the start of the visible window ending at to.
func (tf Timeframe) displayStart(to time.Time) time.Time {
	switch tf {
	case Timeframe1D:
		return to.AddDate(0, 0, -1)
	case Timeframe1W:
		return to.AddDate(0, 0, -7)
	case Timeframe1M:
		return to.AddDate(0, -1, 0)
	case Timeframe3M:
		return to.AddDate(0, -3, 0)
	case Timeframe1Y:
		return to.AddDate(-1, 0, 0)
	case Timeframe5Y:
		return to.AddDate(-5, 0, 0)
	}
	return to.AddDate(0, -1, 0)
}

// BuildChart fetches bars for symbol with enough lead-in to compute the 50-
// and 200-period moving averages over full history, then trims bars and
// overlays to the display window. Averaging always runs before trimming;
// trimming first would corrupt the overlay at the window boundary.
func (r *Refresher) BuildChart(ctx context.Context, symbol string, tf Timeframe) (*models.ChartSeries, error) {
	to := time.Now().UTC()
	displayFrom := tf.displayStart(to)
	fetchFrom := displayFrom.AddDate(0, 0, -SMALeadInDays)

	bars, err := r.gateway.GetDailyBars(ctx, symbol, fetchFrom, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart bars for %s: %w", symbol, err)
	}

	sma50 := analytics.ComputeSMA(bars, 50)
	sma200 := analytics.ComputeSMA(bars, 200)

	return &models.ChartSeries{
		Symbol:    symbol,
		Timeframe: string(tf),
		Bars:      analytics.TrimBarsFromDate(bars, displayFrom),
		SMA50:     analytics.TrimFromDate(sma50, displayFrom),
		SMA200:    analytics.TrimFromDate(sma200, displayFrom),
	}, nil
}
