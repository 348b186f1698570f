package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/portfolio-commander/internal/analytics"
	"github.com/trogers1052/portfolio-commander/internal/database"
	"github.com/trogers1052/portfolio-commander/internal/engine"
	"github.com/trogers1052/portfolio-commander/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	positions map[int]*models.Position
	nextID    int
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: make(map[int]*models.Position), nextID: 1}
}

func (s *fakeStore) CreatePosition(p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	p.ID = s.nextID
	s.nextID++
	copied := *p
	s.positions[p.ID] = &copied
	return nil
}

func (s *fakeStore) GetPositionByID(id int) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", database.ErrPositionNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) ListPositions(userID string) ([]*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*models.Position, 0, len(s.positions))
	for _, p := range s.positions {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeStore) UpdatePosition(id int, shares, avgPrice decimal.Decimal, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", database.ErrPositionNotFound, id)
	}
	p.Shares = shares
	p.AvgPrice = avgPrice
	p.Name = name
	return nil
}

func (s *fakeStore) DeletePosition(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("%w: %d", database.ErrPositionNotFound, id)
	}
	delete(s.positions, id)
	return nil
}

type fakeEngine struct {
	mu           sync.Mutex
	result       *engine.Result
	refreshes    int
	refreshErr   error
	chart        *models.ChartSeries
	chartErr     error
	indexes      []models.MarketIndex
	indexesErr   error
	lastSymbol   string
	lastTimefame engine.Timeframe
}

func (e *fakeEngine) Current() *engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

func (e *fakeEngine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshes++
	return e.refreshErr
}

func (e *fakeEngine) Refreshes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshes
}

func (e *fakeEngine) BuildChart(ctx context.Context, symbol string, tf engine.Timeframe) (*models.ChartSeries, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSymbol = symbol
	e.lastTimefame = tf
	return e.chart, e.chartErr
}

func (e *fakeEngine) MarketIndexes(ctx context.Context) ([]models.MarketIndex, error) {
	return e.indexes, e.indexesErr
}

type fakeNames struct {
	names map[string]string
}

func (f *fakeNames) GetTickerName(ctx context.Context, symbol string) (string, error) {
	return f.names[symbol], nil
}

func newTestServer(store PositionStore, eng Engine, names NameResolver) *httptest.Server {
	handler := NewHandler(store, eng, names, "user-1")
	return httptest.NewServer(SetupRoutes(handler))
}

func engineResult() *engine.Result {
	positions := []*models.Position{
		{ID: 1, UserID: "user-1", Symbol: "AAPL", Shares: decimal.NewFromInt(10), AvgPrice: decimal.NewFromInt(100), Name: "Apple Inc."},
		{ID: 2, UserID: "user-1", Symbol: "MSFT", Shares: decimal.NewFromInt(5), AvgPrice: decimal.NewFromInt(300), Name: "Microsoft Corporation"},
	}
	signals := map[string]*models.HoldingSignal{
		"AAPL": {Symbol: "AAPL", CurrentPrice: 150, Recommendation: models.RecommendationBuy},
		"MSFT": {Symbol: "MSFT", CurrentPrice: 400, Recommendation: models.RecommendationHold},
	}
	return &engine.Result{
		Positions:   positions,
		Signals:     signals,
		Totals:      analytics.Aggregate(positions, signals),
		RefreshedAt: time.Now().UTC(),
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeEngine{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetPortfolio(t *testing.T) {
	t.Run("empty before the first refresh", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{}, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/portfolio")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload struct {
			Holdings []models.Holding        `json:"holdings"`
			Totals   *models.PortfolioTotals `json:"totals"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Empty(t, payload.Holdings)
		require.NotNil(t, payload.Totals)
		assert.True(t, payload.Totals.TotalValue.IsZero())
	})

	t.Run("returns holdings and totals", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{result: engineResult()}, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/portfolio")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload struct {
			Holdings []models.Holding        `json:"holdings"`
			Totals   *models.PortfolioTotals `json:"totals"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Len(t, payload.Holdings, 2)
		assert.Equal(t, "AAPL", payload.Holdings[0].Position.Symbol)
		assert.True(t, payload.Totals.TotalValue.Equal(decimal.NewFromInt(3500)))
	})

	t.Run("filter keeps only matching recommendations", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{result: engineResult()}, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/portfolio?filter=BUY")
		require.NoError(t, err)
		defer resp.Body.Close()

		var payload struct {
			Holdings []models.Holding `json:"holdings"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Len(t, payload.Holdings, 1)
		assert.Equal(t, "AAPL", payload.Holdings[0].Position.Symbol)
	})

	t.Run("sorts by position value", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{result: engineResult()}, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/portfolio?sort=position-value")
		require.NoError(t, err)
		defer resp.Body.Close()

		var payload struct {
			Holdings []models.Holding `json:"holdings"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		require.Len(t, payload.Holdings, 2)
		// MSFT 5*400=2000 ahead of AAPL 10*150=1500
		assert.Equal(t, "MSFT", payload.Holdings[0].Position.Symbol)
	})
}

func TestRefreshPortfolio(t *testing.T) {
	eng := &fakeEngine{result: engineResult()}
	srv := newTestServer(newFakeStore(), eng, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/portfolio/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, eng.Refreshes())
}

func TestAddPosition(t *testing.T) {
	t.Run("creates a validated position with a resolved name", func(t *testing.T) {
		store := newFakeStore()
		eng := &fakeEngine{}
		names := &fakeNames{names: map[string]string{"AAPL": "Apple Inc."}}
		srv := newTestServer(store, eng, names)
		defer srv.Close()

		body := bytes.NewBufferString(`{"symbol": "aapl", "shares": 10, "avg_price": 100.5}`)
		resp, err := http.Post(srv.URL+"/api/v1/positions", "application/json", body)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created models.Position
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, "AAPL", created.Symbol, "symbol is normalized")
		assert.Equal(t, "Apple Inc.", created.Name)
		assert.NotZero(t, created.ID)

		// The add triggers a background recompute.
		require.Eventually(t, func() bool { return eng.Refreshes() == 1 }, time.Second, time.Millisecond)
	})

	t.Run("rejects invalid input at the boundary", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{}, nil)
		defer srv.Close()

		cases := []string{
			`{"symbol": "TOOLONG", "shares": 10, "avg_price": 100}`,
			`{"symbol": "AAPL", "shares": 0, "avg_price": 100}`,
			`{"symbol": "AAPL", "shares": -5, "avg_price": 100}`,
			`{"symbol": "AAPL", "shares": 10, "avg_price": 2000000}`,
			`not json`,
		}
		for _, c := range cases {
			resp, err := http.Post(srv.URL+"/api/v1/positions", "application/json", bytes.NewBufferString(c))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", c)
		}
	})

	t.Run("falls back to the symbol when no name is available", func(t *testing.T) {
		store := newFakeStore()
		srv := newTestServer(store, &fakeEngine{}, &fakeNames{})
		defer srv.Close()

		body := bytes.NewBufferString(`{"symbol": "ZZZZ", "shares": 1, "avg_price": 10}`)
		resp, err := http.Post(srv.URL+"/api/v1/positions", "application/json", body)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created models.Position
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, "ZZZZ", created.Name)
	})
}

func TestUpdatePosition(t *testing.T) {
	seed := func(t *testing.T, store *fakeStore) *models.Position {
		t.Helper()
		p, err := models.NewPosition("user-1", "AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), "Apple Inc.")
		require.NoError(t, err)
		require.NoError(t, store.CreatePosition(p))
		return p
	}

	t.Run("updates the mutable fields", func(t *testing.T) {
		store := newFakeStore()
		p := seed(t, store)
		srv := newTestServer(store, &fakeEngine{}, nil)
		defer srv.Close()

		body := bytes.NewBufferString(`{"shares": 20, "avg_price": 110, "name": "Apple"}`)
		req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/v1/positions/%d", srv.URL, p.ID), body)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		updated, err := store.GetPositionByID(p.ID)
		require.NoError(t, err)
		assert.True(t, updated.Shares.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, "Apple", updated.Name)
		assert.Equal(t, "AAPL", updated.Symbol, "symbol is immutable")
	})

	t.Run("rejects invalid edits", func(t *testing.T) {
		store := newFakeStore()
		p := seed(t, store)
		srv := newTestServer(store, &fakeEngine{}, nil)
		defer srv.Close()

		body := bytes.NewBufferString(`{"shares": -1, "avg_price": 110}`)
		req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/v1/positions/%d", srv.URL, p.ID), body)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown id yields 404", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{}, nil)
		defer srv.Close()

		body := bytes.NewBufferString(`{"shares": 1, "avg_price": 1}`)
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/positions/99", body)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRemovePosition(t *testing.T) {
	store := newFakeStore()
	p, err := models.NewPosition("user-1", "AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), "Apple Inc.")
	require.NoError(t, err)
	require.NoError(t, store.CreatePosition(p))

	srv := newTestServer(store, &fakeEngine{}, nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/positions/%d", srv.URL, p.ID), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/positions/%d", srv.URL, p.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetChart(t *testing.T) {
	t.Run("builds a chart for the requested timeframe", func(t *testing.T) {
		eng := &fakeEngine{chart: &models.ChartSeries{Symbol: "AAPL", Timeframe: "3M"}}
		srv := newTestServer(newFakeStore(), eng, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/chart/aapl?timeframe=3M")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, "AAPL", eng.lastSymbol, "symbol is normalized")
		assert.Equal(t, engine.Timeframe3M, eng.lastTimefame)
	})

	t.Run("defaults to one month", func(t *testing.T) {
		eng := &fakeEngine{chart: &models.ChartSeries{}}
		srv := newTestServer(newFakeStore(), eng, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/chart/AAPL")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, engine.Timeframe1M, eng.lastTimefame)
	})

	t.Run("rejects unknown timeframes", func(t *testing.T) {
		srv := newTestServer(newFakeStore(), &fakeEngine{}, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/chart/AAPL?timeframe=2W")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("maps provider failures to bad gateway", func(t *testing.T) {
		eng := &fakeEngine{chartErr: errors.New("provider down")}
		srv := newTestServer(newFakeStore(), eng, nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/v1/chart/AAPL?timeframe=1Y")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestGetMarkets(t *testing.T) {
	eng := &fakeEngine{indexes: []models.MarketIndex{
		{Symbol: "DIA", Name: "Dow Jones", Price: 420.2},
		{Symbol: "SPY", Name: "S&P 500", Price: 560.5},
	}}
	srv := newTestServer(newFakeStore(), eng, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/markets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var indexes []models.MarketIndex
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&indexes))
	require.Len(t, indexes, 2)
	assert.Equal(t, "Dow Jones", indexes[0].Name)
}
