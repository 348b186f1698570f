package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Aggregate folds all holdings' live signals and static position data into
// portfolio-level totals. Positions without a signal are excluded from the
// sums; that only happens transiently before the first refresh completes.
func Aggregate(positions []*models.Position, signals map[string]*models.HoldingSignal) *models.PortfolioTotals {
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	totalDailyChange := decimal.Zero

	for _, pos := range positions {
		signal, ok := signals[pos.Symbol]
		if !ok {
			continue
		}
		currentValue := decimal.NewFromFloat(signal.CurrentPrice).Mul(pos.Shares)
		costBasis := pos.AvgPrice.Mul(pos.Shares)
		dailyChange := decimal.NewFromFloat(signal.Change).Mul(pos.Shares)

		totalValue = totalValue.Add(currentValue)
		totalCost = totalCost.Add(costBasis)
		totalDailyChange = totalDailyChange.Add(dailyChange)
	}

	totalGainLoss := totalValue.Sub(totalCost)

	totalGainLossPercent := decimal.Zero
	if totalCost.IsPositive() {
		totalGainLossPercent = totalGainLoss.Div(totalCost).Mul(hundred)
	}

	totalValueChangePercent := decimal.Zero
	if !totalValue.IsZero() {
		totalValueChangePercent = totalDailyChange.Div(totalValue).Mul(hundred)
	}

	// Day's dollar change over cumulative gain/loss. Not a true
	// percent-of-percent: this can exceed 100% or flip sign when the
	// cumulative P/L is near zero. Kept for compatibility with the
	// dashboard this feeds.
	plDailyChangePercent := decimal.Zero
	if !totalGainLoss.IsZero() {
		plDailyChangePercent = totalDailyChange.Div(totalGainLoss).Mul(hundred)
	}

	return &models.PortfolioTotals{
		TotalValue:                   totalValue,
		TotalCost:                    totalCost,
		TotalGainLoss:                totalGainLoss,
		TotalGainLossPercent:         totalGainLossPercent,
		TotalValueDailyChange:        totalDailyChange,
		TotalValueDailyChangePercent: totalValueChangePercent,
		CostBasisDailyChange:         decimal.Zero,
		CostBasisDailyChangePercent:  decimal.Zero,
		PLDailyChange:                totalDailyChange,
		PLDailyChangePercent:         plDailyChangePercent,
		ReturnDailyChangePercent:     plDailyChangePercent,
	}
}
