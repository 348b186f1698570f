package engine

import (
	"context"
	"fmt"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// trackedIndexes are the ETFs quoted on the market strip. ETFs stand in for
// the indexes themselves because index tickers are not available on the
// provider's free tier.
var trackedIndexes = []struct {
	Symbol string
	Name   string
}{
	{Symbol: "DIA", Name: "Dow Jones"},
	{Symbol: "SPY", Name: "S&P 500"},
	{Symbol: "QQQ", Name: "NASDAQ"},
}

// MarketIndexes returns quotes for the tracked index ETFs, in catalogue
// order. Symbols missing from the snapshot response are skipped.
func (r *Refresher) MarketIndexes(ctx context.Context) ([]models.MarketIndex, error) {
	symbols := make([]string, len(trackedIndexes))
	for i, idx := range trackedIndexes {
		symbols[i] = idx.Symbol
	}

	snaps, err := r.gateway.GetSnapshots(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index quotes: %w", err)
	}

	indexes := make([]models.MarketIndex, 0, len(trackedIndexes))
	for _, idx := range trackedIndexes {
		snap := snaps[idx.Symbol]
		if snap == nil {
			continue
		}
		indexes = append(indexes, models.MarketIndex{
			Symbol:        idx.Symbol,
			Name:          idx.Name,
			Price:         snap.CurrentPrice,
			Change:        snap.Change,
			ChangePercent: snap.ChangePercent,
		})
	}

	return indexes, nil
}
