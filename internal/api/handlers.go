package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/portfolio-commander/internal/analytics"
	"github.com/trogers1052/portfolio-commander/internal/database"
	"github.com/trogers1052/portfolio-commander/internal/engine"
	"github.com/trogers1052/portfolio-commander/internal/models"
)

// PositionStore defines the position persistence operations handlers need
type PositionStore interface {
	CreatePosition(p *models.Position) error
	GetPositionByID(id int) (*models.Position, error)
	ListPositions(userID string) ([]*models.Position, error)
	UpdatePosition(id int, shares, avgPrice decimal.Decimal, name string) error
	DeletePosition(id int) error
}

// Engine is the refresh-cycle surface the API exposes
type Engine interface {
	Current() *engine.Result
	Refresh(ctx context.Context) error
	BuildChart(ctx context.Context, symbol string, tf engine.Timeframe) (*models.ChartSeries, error)
	MarketIndexes(ctx context.Context) ([]models.MarketIndex, error)
}

// NameResolver resolves symbols to company names at position-add time
type NameResolver interface {
	GetTickerName(ctx context.Context, symbol string) (string, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store  PositionStore
	engine Engine
	names  NameResolver
	userID string
}

// NewHandler creates a new Handler
func NewHandler(store PositionStore, eng Engine, names NameResolver, userID string) *Handler {
	return &Handler{
		store:  store,
		engine: eng,
		names:  names,
		userID: userID,
	}
}

// portfolioResponse is the payload of GET /api/v1/portfolio
type portfolioResponse struct {
	Holdings    []models.Holding        `json:"holdings"`
	Totals      *models.PortfolioTotals `json:"totals"`
	RefreshedAt time.Time               `json:"refreshed_at"`
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Current()
	if result == nil {
		// Before the first refresh completes there is nothing to show yet.
		respondJSON(w, http.StatusOK, portfolioResponse{
			Holdings: []models.Holding{},
			Totals:   analytics.Aggregate(nil, nil),
		})
		return
	}

	holdings := result.Holdings()
	holdings = analytics.FilterHoldings(holdings, r.URL.Query().Get("filter"))
	analytics.SortHoldings(holdings, r.URL.Query().Get("sort"))

	respondJSON(w, http.StatusOK, portfolioResponse{
		Holdings:    holdings,
		Totals:      result.Totals,
		RefreshedAt: result.RefreshedAt,
	})
}

// RefreshPortfolio handles POST /portfolio/refresh
func (h *Handler) RefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.GetPortfolio(w, r)
}

// ListPositions handles GET /positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.ListPositions(h.userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

type positionRequest struct {
	Symbol   string          `json:"symbol"`
	Shares   decimal.Decimal `json:"shares"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Name     string          `json:"name"`
}

// AddPosition handles POST /positions
func (h *Handler) AddPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	name := req.Name
	if name == "" {
		name = h.resolveName(r.Context(), req.Symbol)
	}

	position, err := models.NewPosition(h.userID, req.Symbol, req.Shares, req.AvgPrice, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.CreatePosition(position); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Recompute signals in the background so the new holding shows up
	// without waiting for the next scheduled cycle.
	go func() {
		if err := h.engine.Refresh(context.Background()); err != nil {
			log.Warn().Err(err).Msg("refresh after position add failed")
		}
	}()

	respondJSON(w, http.StatusCreated, position)
}

// UpdatePosition handles PUT /positions/{id}
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := positionID(w, r)
	if !ok {
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	position, err := h.store.GetPositionByID(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	// Symbol and id are immutable; only shares, price and name may change.
	if err := position.ApplyUpdate(req.Shares, req.AvgPrice, req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.UpdatePosition(id, position.Shares, position.AvgPrice, position.Name); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, position)
}

// RemovePosition handles DELETE /positions/{id}
func (h *Handler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := positionID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeletePosition(id); err != nil {
		respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetChart handles GET /chart/{symbol}
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	symbol := models.NormalizeSymbol(mux.Vars(r)["symbol"])

	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = string(engine.Timeframe1M)
	}
	tf, err := engine.ParseTimeframe(timeframe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := h.engine.BuildChart(r.Context(), symbol, tf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// GetMarkets handles GET /markets
func (h *Handler) GetMarkets(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.engine.MarketIndexes(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusOK, indexes)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// resolveName looks a symbol's company name up, falling back to the symbol
func (h *Handler) resolveName(ctx context.Context, symbol string) string {
	symbol = models.NormalizeSymbol(symbol)
	if h.names == nil {
		return symbol
	}

	name, err := h.names.GetTickerName(ctx, symbol)
	if err != nil || name == "" {
		return symbol
	}
	return name
}

func positionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrPositionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
