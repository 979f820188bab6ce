package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fxseries/internal/domain"
	"fxseries/internal/rate"
	"fxseries/internal/report"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockValidator struct{ mock.Mock }

func (m *MockValidator) ValidatePair(raw string) (domain.Pair, error) {
	args := m.Called(raw)
	p, _ := args.Get(0).(domain.Pair)
	return p, args.Error(1)
}

func (m *MockValidator) ValidateRange(start, end civil.Date) error {
	args := m.Called(start, end)
	return args.Error(0)
}

func (m *MockValidator) SupportedPairs() []domain.Pair {
	args := m.Called()
	pairs, _ := args.Get(0).([]domain.Pair)
	return pairs
}

type MockService struct{ mock.Mock }

func (m *MockService) Load(ctx context.Context) (domain.Dataset, error) {
	args := m.Called(ctx)
	ds, _ := args.Get(0).(domain.Dataset)
	return ds, args.Error(1)
}

func (m *MockService) Summarize(ctx context.Context, column string) (report.Summary, error) {
	args := m.Called(ctx, column)
	s, _ := args.Get(0).(report.Summary)
	return s, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, start, end civil.Date) (domain.Dataset, error) {
	args := m.Called(ctx, start, end)
	ds, _ := args.Get(0).(domain.Dataset)
	return ds, args.Error(1)
}

type errorJSON struct {
	Error string `json:"error"`
}

var (
	jan1 = civil.Date{Year: 2024, Month: 1, Day: 1}
	jan2 = civil.Date{Year: 2024, Month: 1, Day: 2}
	jan3 = civil.Date{Year: 2024, Month: 1, Day: 3}
)

func newHandler(t *testing.T) (*Handler, *MockValidator, *MockService) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	v := new(MockValidator)
	s := new(MockService)
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	window := rate.Window{LookbackDays: 2, Location: time.UTC, Now: func() time.Time { return now }}
	return NewRateHandler(v, s, window, logger), v, s
}

func sampleDataset(t *testing.T) domain.Dataset {
	t.Helper()
	v := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	ds, err := domain.NewDataset([]string{"EUR/PLN", "USD/PLN", "EUR/USD"}, []domain.Row{
		{Date: jan1, Values: []decimal.NullDecimal{v("4.30"), v("4.00"), v("1.075")}},
		{Date: jan2, Values: []decimal.NullDecimal{v("4.31"), v("0"), {}}},
		{Date: jan3, Values: []decimal.NullDecimal{v("4.32"), v("4.02"), v("1.0746268656716418")}},
	})
	require.NoError(t, err)
	return ds
}

func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	return ej.Error
}

// --- GetDataset ---

func TestHandler_GetDataset_Success(t *testing.T) {
	h, _, svc := newHandler(t)
	svc.On("Load", mock.Anything).Return(sampleDataset(t), nil).Once()

	rr := httptest.NewRecorder()
	h.GetDataset(rr, httptest.NewRequest(http.MethodGet, "/api/v1/dataset?from=2024-01-02", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{
		"columns": ["EUR/PLN", "USD/PLN", "EUR/USD"],
		"rows": [
			{"date": "2024-01-02", "values": ["4.31", "0", null]},
			{"date": "2024-01-03", "values": ["4.32", "4.02", "1.0746268656716418"]}
		]
	}`, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_GetDataset_BadQuery(t *testing.T) {
	cases := map[string]string{
		"bad from":  "/api/v1/dataset?from=02.01.2024",
		"bad to":    "/api/v1/dataset?to=tomorrow",
		"reversed":  "/api/v1/dataset?from=2024-01-03&to=2024-01-01",
		"bad month": "/api/v1/dataset?from=2024-13-01",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			h, _, svc := newHandler(t)
			rr := httptest.NewRecorder()
			h.GetDataset(rr, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
			svc.AssertNotCalled(t, "Load", mock.Anything)
		})
	}
}

func TestHandler_GetDataset_NotFound(t *testing.T) {
	h, _, svc := newHandler(t)
	svc.On("Load", mock.Anything).Return(nil, domain.ErrDatasetNotFound).Once()

	rr := httptest.NewRecorder()
	h.GetDataset(rr, httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "no data persisted yet", decodeError(t, rr))
}

func TestHandler_GetDataset_InternalError(t *testing.T) {
	h, _, svc := newHandler(t)
	svc.On("Load", mock.Anything).Return(nil, fmt.Errorf("%w: corrupt file", domain.ErrIO)).Once()

	rr := httptest.NewRecorder()
	h.GetDataset(rr, httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "ups, couldn't load dataset this time", decodeError(t, rr))
}

// --- GetColumns ---

func TestHandler_GetColumns(t *testing.T) {
	h, _, svc := newHandler(t)
	svc.On("Load", mock.Anything).Return(sampleDataset(t), nil).Once()

	rr := httptest.NewRecorder()
	h.GetColumns(rr, httptest.NewRequest(http.MethodGet, "/api/v1/dataset/columns", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var res GetColumnsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, []string{"EUR/PLN", "USD/PLN", "EUR/USD"}, res.Columns)
}

// --- GetStats ---

func TestHandler_GetStats_Success(t *testing.T) {
	h, v, svc := newHandler(t)
	v.On("ValidatePair", "usd/pln").Return(domain.Pair{Base: "USD", Quote: "PLN"}, nil).Once()
	svc.On("Summarize", mock.Anything, "USD/PLN").Return(report.Summary{
		Column: "USD/PLN",
		Count:  2,
		Mean:   decimal.RequireFromString("4.01"),
		Median: decimal.RequireFromString("4.01"),
		Min:    decimal.RequireFromString("4.00"),
		Max:    decimal.RequireFromString("4.02"),
	}, nil).Once()

	rr := httptest.NewRecorder()
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/stats/usd/pln", nil), "base", " usd", "quote", "pln ")
	h.GetStats(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"column":"USD/PLN","count":2,"mean":"4.01","median":"4.01","min":"4","max":"4.02"}`, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_GetStats_Errors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown column", err: fmt.Errorf("%w: \"GBP/PLN\"", domain.ErrColumnNotFound), wantCode: http.StatusNotFound},
		{name: "no values", err: domain.ErrNoValues, wantCode: http.StatusNotFound},
		{name: "nothing persisted", err: domain.ErrDatasetNotFound, wantCode: http.StatusNotFound},
		{name: "io", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, v, svc := newHandler(t)
			v.On("ValidatePair", "GBP/PLN").Return(domain.Pair{Base: "GBP", Quote: "PLN"}, nil).Once()
			svc.On("Summarize", mock.Anything, "GBP/PLN").Return(nil, tc.err).Once()

			rr := httptest.NewRecorder()
			h.GetStats(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "base", "GBP", "quote", "PLN"))

			require.Equal(t, tc.wantCode, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
		})
	}
}

func TestHandler_GetStats_InvalidPair(t *testing.T) {
	h, v, svc := newHandler(t)
	v.On("ValidatePair", "PLN/PLN").Return(nil, fmt.Errorf("%w: same base and quote", domain.ErrValidation)).Once()

	rr := httptest.NewRecorder()
	h.GetStats(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "base", "PLN", "quote", "PLN"))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
}

func TestHandler_GetStats_UnsupportedPair(t *testing.T) {
	h, v, svc := newHandler(t)
	v.On("ValidatePair", "JPY/PLN").Return(nil, fmt.Errorf("%w: JPY/PLN", rate.ErrPairUnsupported)).Once()

	rr := httptest.NewRecorder()
	h.GetStats(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "base", "JPY", "quote", "PLN"))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, decodeError(t, rr), "currency pair not supported")
	svc.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	v.AssertExpectations(t)
}

// --- GetSupportedPairs ---

func TestHandler_GetSupportedPairs(t *testing.T) {
	h, v, _ := newHandler(t)
	v.On("SupportedPairs").Return([]domain.Pair{{Base: "EUR", Quote: "PLN"}, {Base: "EUR", Quote: "USD"}}).Once()

	rr := httptest.NewRecorder()
	h.GetSupportedPairs(rr, httptest.NewRequest(http.MethodGet, "/api/v1/pairs", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"pairs":["EUR/PLN","EUR/USD"]}`, rr.Body.String())
}

// --- Refresh ---

func TestHandler_Refresh_Success(t *testing.T) {
	h, v, svc := newHandler(t)
	v.On("ValidateRange", jan1, jan3).Return(nil).Once()
	svc.On("Update", mock.Anything, jan1, jan3).Return(sampleDataset(t), nil).Once()

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"start":"2024-01-01","end":"2024-01-03","rows":3}`, rr.Body.String())
	v.AssertExpectations(t)
	svc.AssertExpectations(t)
}

func TestHandler_Refresh_Errors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "transport", err: fmt.Errorf("failed to fetch EUR/PLN: %w", domain.ErrTransport), wantCode: http.StatusBadGateway},
		{name: "protocol", err: fmt.Errorf("failed to fetch EUR/PLN: %w", domain.ErrProtocol), wantCode: http.StatusBadGateway},
		{name: "empty join", err: domain.ErrEmptyJoin, wantCode: http.StatusUnprocessableEntity},
		{name: "derived", err: domain.ErrDerivedColumn, wantCode: http.StatusUnprocessableEntity},
		{name: "io", err: fmt.Errorf("%w: disk full", domain.ErrIO), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, v, svc := newHandler(t)
			v.On("ValidateRange", mock.Anything, mock.Anything).Return(nil).Once()
			svc.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rr := httptest.NewRecorder()
			h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

			require.Equal(t, tc.wantCode, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
		})
	}
}

func TestHandler_Refresh_InvalidWindow(t *testing.T) {
	h, v, svc := newHandler(t)
	v.On("ValidateRange", mock.Anything, mock.Anything).Return(rate.ErrRangeTooLong).Once()

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
