package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bondtrader/internal/domain/entity/purchases"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockDeals struct {
	mock.Mock
}

func (m *MockDeals) LastDeal(ctx context.Context) (*purchases.Deal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchases.Deal), args.Error(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) LastPurchases(ctx context.Context, limit int) ([]purchases.Purchase, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchases.Purchase), args.Error(1)
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestStatusBeforeFirstDeal(t *testing.T) {
	deals := new(MockDeals)
	deals.On("LastDeal", mock.Anything).Return(nil, nil)

	w := serve(NewHandler(deals, nil), "/api/v1/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"last_deal_annual_yield":null,"last_deal_datetime":null}`, w.Body.String())
}

func TestStatusWithDeal(t *testing.T) {
	deals := new(MockDeals)
	at := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	deals.On("LastDeal", mock.Anything).Return(&purchases.Deal{AnnualYield: 14.2, At: at}, nil)

	w := serve(NewHandler(deals, nil), "/api/v1/status")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.InDelta(t, 14.2, body["last_deal_annual_yield"], 1e-9)
	assert.Equal(t, "2026-03-10T09:30:00.000000Z", body["last_deal_datetime"])
}

func TestStatusStoreError(t *testing.T) {
	deals := new(MockDeals)
	deals.On("LastDeal", mock.Anything).Return(nil, errors.New("redis down"))

	w := serve(NewHandler(deals, nil), "/api/v1/status")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"redis down"}`, w.Body.String())
}

func TestLastPurchasesWithoutJournal(t *testing.T) {
	w := serve(NewHandler(new(MockDeals), nil), "/api/v1/purchases/last?limit=5")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLastPurchases(t *testing.T) {
	journal := new(MockJournal)
	journal.On("LastPurchases", mock.Anything, 5).Return([]purchases.Purchase{{Ticker: "RU000A"}}, nil)
	journal.On("LastPurchases", mock.Anything, defaultPurchasesLim).Return(nil, nil)

	h := NewHandler(new(MockDeals), journal)

	w := serve(h, "/api/v1/purchases/last?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var list []purchases.Purchase
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "RU000A", list[0].Ticker)

	w = serve(h, "/api/v1/purchases/last")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	journal.AssertExpectations(t)
}

func TestLastPurchasesBadLimit(t *testing.T) {
	journal := new(MockJournal)
	h := NewHandler(new(MockDeals), journal)

	for _, target := range []string{
		"/api/v1/purchases/last?limit=abc",
		"/api/v1/purchases/last?limit=0",
		"/api/v1/purchases/last?limit=1000",
	} {
		w := serve(h, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	journal.AssertNotCalled(t, "LastPurchases", mock.Anything, mock.Anything)
}

func TestHealth(t *testing.T) {
	w := serve(NewHandler(new(MockDeals), nil), "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
}
