package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// Sort key constants
const (
	SortAlphabetical  = "alphabetical"
	SortPositionValue = "position-value"
	SortPL            = "pl"
)

// FilterAll keeps every holding regardless of recommendation.
const FilterAll = "all"

// SortHoldings orders a holding list by the chosen key. Alphabetical sorts
// ascending by symbol; position-value and pl sort descending. The sort is
// stable and holdings without a signal keep their relative order.
func SortHoldings(holdings []models.Holding, key string) {
	switch key {
	case SortPositionValue:
		sort.SliceStable(holdings, func(i, j int) bool {
			a, b := holdings[i], holdings[j]
			if a.Signal == nil || b.Signal == nil {
				return false
			}
			return positionValue(a).GreaterThan(positionValue(b))
		})
	case SortPL:
		sort.SliceStable(holdings, func(i, j int) bool {
			a, b := holdings[i], holdings[j]
			if a.Signal == nil || b.Signal == nil {
				return false
			}
			return gainLoss(a).GreaterThan(gainLoss(b))
		})
	default:
		sort.SliceStable(holdings, func(i, j int) bool {
			return holdings[i].Position.Symbol < holdings[j].Position.Symbol
		})
	}
}

// FilterHoldings keeps holdings whose signal recommendation matches. The
// "all" filter returns the input unchanged; holdings without a signal are
// dropped by any specific filter.
func FilterHoldings(holdings []models.Holding, recommendation string) []models.Holding {
	if recommendation == FilterAll || recommendation == "" {
		return holdings
	}
	filtered := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Signal != nil && h.Signal.Recommendation == recommendation {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

func positionValue(h models.Holding) decimal.Decimal {
	return decimal.NewFromFloat(h.Signal.CurrentPrice).Mul(h.Position.Shares)
}

func gainLoss(h models.Holding) decimal.Decimal {
	return positionValue(h).Sub(h.Position.AvgPrice.Mul(h.Position.Shares))
}
