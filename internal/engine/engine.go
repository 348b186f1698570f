// Package engine drives refresh cycles: it reads the position list, pulls
// market data through the gateway, computes per-holding signals and portfolio
// totals, and swaps the finished result in atomically for presentation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/trogers1052/portfolio-commander/internal/analytics"
	"github.com/trogers1052/portfolio-commander/internal/models"
	"github.com/trogers1052/portfolio-commander/internal/polygon"
)

const (
	// DefaultRefreshInterval is how often signals are recomputed.
	DefaultRefreshInterval = 5 * time.Minute

	// DefaultWorkers bounds how many per-symbol fetches run concurrently.
	DefaultWorkers = 4

	// FinancialsLimit is the number of reporting periods fetched per symbol.
	FinancialsLimit = 5

	// BarsRangeDays is the historical window used for 52-week stats.
	BarsRangeDays = 365
)

// MarketDataGateway supplies quotes, historical bars, financial statements
// and ticker details. Implementations own all network, auth and caching
// concerns; the engine only consumes typed results or errors.
type MarketDataGateway interface {
	GetSnapshots(ctx context.Context, symbols []string) (map[string]*models.Snapshot, error)
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
	GetFinancials(ctx context.Context, symbol string, limit int) ([]models.FinancialsPeriod, error)
	GetTickerName(ctx context.Context, symbol string) (string, error)
}

// PositionStore reads the position list at the start of each cycle and
// takes name updates when a legacy row's display name gets resolved.
type PositionStore interface {
	ListPositions(userID string) ([]*models.Position, error)
	UpdatePositionName(id int, name string) error
}

// EventPublisher receives notifications as signals are recomputed.
type EventPublisher interface {
	PublishSignalUpdated(ctx context.Context, signal *models.HoldingSignal) error
	PublishRefreshCompleted(ctx context.Context, userID string, totals *models.PortfolioTotals, holdings int) error
}

// Result is one refresh cycle's complete output. Results are immutable once
// published; a new cycle builds a fresh Result and swaps it in whole.
type Result struct {
	Positions   []*models.Position
	Signals     map[string]*models.HoldingSignal
	Totals      *models.PortfolioTotals
	RefreshedAt time.Time
}

// Holdings pairs each position with its signal, in position-list order.
func (r *Result) Holdings() []models.Holding {
	holdings := make([]models.Holding, len(r.Positions))
	for i, pos := range r.Positions {
		holdings[i] = models.Holding{
			Position: pos,
			Signal:   r.Signals[pos.Symbol],
		}
	}
	return holdings
}

// Refresher runs refresh cycles on a fixed interval and on demand.
type Refresher struct {
	gateway  MarketDataGateway
	store    PositionStore
	computer *analytics.Computer
	events   EventPublisher
	userID   string
	interval time.Duration
	workers  int

	mu      sync.RWMutex
	current *Result

	cycleMu  sync.Mutex
	inFlight bool
}

// Option configures the refresher
type Option func(*Refresher)

// WithInterval sets the periodic refresh interval
func WithInterval(interval time.Duration) Option {
	return func(r *Refresher) {
		r.interval = interval
	}
}

// WithWorkers sets the per-symbol fetch concurrency
func WithWorkers(n int) Option {
	return func(r *Refresher) {
		r.workers = n
	}
}

// WithEvents sets the event publisher
func WithEvents(events EventPublisher) Option {
	return func(r *Refresher) {
		r.events = events
	}
}

// NewRefresher creates a refresher for one user's portfolio.
func NewRefresher(gateway MarketDataGateway, store PositionStore, userID string, opts ...Option) *Refresher {
	r := &Refresher{
		gateway:  gateway,
		store:    store,
		computer: analytics.NewComputer(),
		userID:   userID,
		interval: DefaultRefreshInterval,
		workers:  DefaultWorkers,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Current returns the latest published result, or nil before the first
// cycle completes.
func (r *Refresher) Current() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Run refreshes immediately, then on every interval tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("initial refresh failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled refresh failed")
			}
		}
	}
}

// Refresh runs one cycle. If a cycle is already in flight the call is
// coalesced into it and returns immediately: overlapping cycles would race
// on the published result, so at most one runs at a time.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.cycleMu.Lock()
	if r.inFlight {
		r.cycleMu.Unlock()
		log.Debug().Msg("refresh already in flight, coalescing")
		return nil
	}
	r.inFlight = true
	r.cycleMu.Unlock()

	defer func() {
		r.cycleMu.Lock()
		r.inFlight = false
		r.cycleMu.Unlock()
	}()

	return r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) error {
	started := time.Now().UTC()

	positions, err := r.store.ListPositions(r.userID)
	if err != nil {
		return fmt.Errorf("failed to list positions: %w", err)
	}

	signals := make(map[string]*models.HoldingSignal, len(positions))

	if len(positions) == 0 {
		r.publish(ctx, positions, signals, started)
		return nil
	}

	// Rows synced before name resolution existed still carry the symbol as
	// display name; resolve those once per cycle.
	r.backfillNames(ctx, positions)

	symbols := make([]string, len(positions))
	for i, pos := range positions {
		symbols[i] = pos.Symbol
	}

	snaps, err := r.gateway.GetSnapshots(ctx, symbols)
	if err != nil {
		// Provider-level failure degrades every holding to the documented
		// fallback rather than aborting the cycle.
		reason := analytics.ReasonFetchError
		if errors.Is(err, polygon.ErrRateLimited) {
			reason = analytics.ReasonRateLimited
		}
		log.Warn().Err(err).Str("reason", reason).Msg("snapshot fetch failed, degrading to fallback signals")

		for _, pos := range positions {
			signals[pos.Symbol] = r.computer.Fallback(pos, reason)
		}
		r.publish(ctx, positions, signals, started)
		return nil
	}

	// Secondary per-symbol fetches are independent, so they run on a bounded
	// worker pool. Results land in a slice indexed by position so assembly
	// order never depends on completion order.
	type symbolData struct {
		bars       []models.DailyBar
		financials []models.FinancialsPeriod
	}
	fetched := make([]symbolData, len(positions))

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -BarsRangeDays)

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, pos := range positions {
		if snaps[pos.Symbol] == nil {
			continue
		}

		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			bars, err := r.gateway.GetDailyBars(ctx, symbol, from, to)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("daily bars unavailable")
				bars = nil
			}

			financials, err := r.gateway.GetFinancials(ctx, symbol, FinancialsLimit)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("financials unavailable")
				financials = nil
			}

			fetched[i] = symbolData{bars: bars, financials: financials}
		}(i, pos.Symbol)
	}
	wg.Wait()

	for i, pos := range positions {
		signals[pos.Symbol] = r.computer.Compute(pos, snaps[pos.Symbol], fetched[i].bars, fetched[i].financials)
	}

	r.publish(ctx, positions, signals, started)
	return nil
}

// backfillNames resolves display names for positions still carrying their
// symbol as name. A lookup or store failure leaves the row for the next
// cycle; the cycle itself never fails over names.
func (r *Refresher) backfillNames(ctx context.Context, positions []*models.Position) {
	for _, pos := range positions {
		if !pos.HasLegacyName() {
			continue
		}

		name, err := r.gateway.GetTickerName(ctx, pos.Symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("name lookup failed")
			continue
		}
		if name == "" || name == pos.Symbol {
			continue
		}
		if len(name) > models.MaxNameLength {
			name = name[:models.MaxNameLength]
		}

		if err := r.store.UpdatePositionName(pos.ID, name); err != nil {
			log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("failed to store resolved name")
			continue
		}
		pos.Name = name
		log.Info().Str("symbol", pos.Symbol).Str("name", name).Msg("resolved legacy position name")
	}
}

// publish aggregates totals, swaps the new result in and emits events.
func (r *Refresher) publish(ctx context.Context, positions []*models.Position, signals map[string]*models.HoldingSignal, started time.Time) {
	totals := analytics.Aggregate(positions, signals)

	result := &Result{
		Positions:   positions,
		Signals:     signals,
		Totals:      totals,
		RefreshedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.current = result
	r.mu.Unlock()

	log.Info().
		Int("holdings", len(positions)).
		Dur("elapsed", time.Since(started)).
		Msg("refresh cycle complete")

	if r.events == nil {
		return
	}

	for _, pos := range positions {
		if err := r.events.PublishSignalUpdated(ctx, signals[pos.Symbol]); err != nil {
			log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("failed to publish signal event")
		}
	}
	if err := r.events.PublishRefreshCompleted(ctx, r.userID, totals, len(positions)); err != nil {
		log.Warn().Err(err).Msg("failed to publish refresh event")
	}
}
