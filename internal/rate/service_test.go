package rate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Testify mocks ---

type MockRateSource struct{ mock.Mock }

func (m *MockRateSource) Fetch(ctx context.Context, pair domain.Pair, start, end civil.Date) (domain.RateSeries, error) {
	args := m.Called(ctx, pair, start, end)
	s, _ := args.Get(0).(domain.RateSeries)
	return s, args.Error(1)
}

type MockDatasetStore struct{ mock.Mock }

func (m *MockDatasetStore) Read(ctx context.Context, location string) (domain.Dataset, error) {
	args := m.Called(ctx, location)
	ds, _ := args.Get(0).(domain.Dataset)
	return ds, args.Error(1)
}

func (m *MockDatasetStore) Write(ctx context.Context, ds domain.Dataset, location string) error {
	args := m.Called(ctx, ds, location)
	return args.Error(0)
}

func (m *MockDatasetStore) Append(ctx context.Context, ds domain.Dataset, location string) error {
	args := m.Called(ctx, ds, location)
	return args.Error(0)
}

// --- fixtures ---

var (
	jan1 = civil.Date{Year: 2024, Month: 1, Day: 1}
	jan2 = civil.Date{Year: 2024, Month: 1, Day: 2}
)

func series(p domain.Pair, points ...string) domain.RateSeries {
	s := domain.RateSeries{Pair: p}
	for i, v := range points {
		s.Points = append(s.Points, domain.RatePoint{Date: jan1.AddDays(i), Rate: decimal.RequireFromString(v)})
	}
	return s
}

func newTestService(t *testing.T, workers int) (*Service, *MockRateSource, *MockDatasetStore, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	src := new(MockRateSource)
	store := new(MockDatasetStore)
	validator := NewValidator([]domain.Pair{eurpln, usdpln, eurusd}, 93)
	svc := NewService(src, store, validator, ServiceConfig{
		Pairs:        []domain.Pair{eurpln, usdpln},
		Derived:      []domain.DerivedColumn{{Name: "EUR/USD", Numerator: "EUR/PLN", Denominator: "USD/PLN"}},
		Location:     "all_currency_data.csv",
		FetchWorkers: workers,
	}, logger)
	return svc, src, store, hook
}

// --- Fetch ---

func TestService_Fetch_BuildsDataset(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			svc, src, _, _ := newTestService(t, workers)
			src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(series(eurpln, "4.30", "4.31"), nil).Once()
			src.On("Fetch", mock.Anything, usdpln, jan1, jan2).Return(series(usdpln, "4.00", "4.02"), nil).Once()

			ds, err := svc.Fetch(context.Background(), jan1, jan2)
			require.NoError(t, err)

			require.Equal(t, []string{"EUR/PLN", "USD/PLN", "EUR/USD"}, ds.Columns())
			require.Equal(t, []civil.Date{jan1, jan2}, ds.Dates())
			cross, err := ds.Values("EUR/USD")
			require.NoError(t, err)
			require.True(t, decimal.RequireFromString("1.075").Equal(cross[0]))
			src.AssertExpectations(t)
		})
	}
}

func TestService_Fetch_FailureIsAllOrNothing(t *testing.T) {
	for _, workers := range []int{1, 2} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			svc, src, _, hook := newTestService(t, workers)
			wantErr := fmt.Errorf("%w: 404", domain.ErrProtocol)
			src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(series(eurpln, "4.30", "4.31"), nil).Maybe()
			src.On("Fetch", mock.Anything, usdpln, jan1, jan2).Return(nil, wantErr).Once()

			_, err := svc.Fetch(context.Background(), jan1, jan2)
			require.ErrorIs(t, err, domain.ErrProtocol)
			require.Contains(t, err.Error(), "USD/PLN")
			require.True(t, IsUpstreamFailure(err))

			var warned bool
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel && e.Data["pair"] == "USD/PLN" {
					warned = true
				}
			}
			require.True(t, warned)
		})
	}
}

func TestService_Fetch_ParallelCancelsRemainingOnError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pairs := []domain.Pair{eurpln, usdpln, {Base: "CHF", Quote: "PLN"}, {Base: "GBP", Quote: "PLN"}}
	var calls atomic.Int32
	src := sourceFunc(func(ctx context.Context, p domain.Pair, _, _ civil.Date) (domain.RateSeries, error) {
		calls.Add(1)
		if p == eurpln {
			return domain.RateSeries{}, fmt.Errorf("%w: reset", domain.ErrTransport)
		}
		select {
		case <-ctx.Done():
			return domain.RateSeries{}, fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
		case <-time.After(5 * time.Second):
			return series(p, "1"), nil
		}
	})
	svc := NewService(src, new(MockDatasetStore), NewValidator(pairs, 93), ServiceConfig{Pairs: pairs, FetchWorkers: 4}, logger)

	started := time.Now()
	_, err := svc.Fetch(context.Background(), jan1, jan2)
	require.ErrorIs(t, err, domain.ErrTransport)
	require.True(t, domain.IsRetryable(err))
	require.Less(t, time.Since(started), 4*time.Second)
}

func TestService_Fetch_InvalidRangeSkipsSource(t *testing.T) {
	svc, src, _, _ := newTestService(t, 1)

	_, err := svc.Fetch(context.Background(), jan2, jan1)
	require.ErrorIs(t, err, domain.ErrValidation)
	src.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Fetch_DisjointSeries(t *testing.T) {
	svc, src, _, _ := newTestService(t, 1)
	src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(series(eurpln, "4.30"), nil).Once()
	src.On("Fetch", mock.Anything, usdpln, jan1, jan2).Return(domain.RateSeries{
		Pair:   usdpln,
		Points: []domain.RatePoint{{Date: jan2, Rate: decimal.RequireFromString("4.0")}},
	}, nil).Once()

	_, err := svc.Fetch(context.Background(), jan1, jan2)
	require.ErrorIs(t, err, domain.ErrEmptyJoin)
	require.False(t, IsUpstreamFailure(err))
}

// --- Update ---

func TestService_Update_AppendsToConfiguredLocation(t *testing.T) {
	svc, src, store, _ := newTestService(t, 1)
	src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(series(eurpln, "4.30", "4.31"), nil).Once()
	src.On("Fetch", mock.Anything, usdpln, jan1, jan2).Return(series(usdpln, "4.00", "4.02"), nil).Once()
	store.On("Append", mock.Anything, mock.AnythingOfType("domain.Dataset"), "all_currency_data.csv").Return(nil).Once()

	ds, err := svc.Update(context.Background(), jan1, jan2)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	store.AssertExpectations(t)
}

func TestService_Update_FetchErrorDoesNotTouchStore(t *testing.T) {
	svc, src, store, _ := newTestService(t, 1)
	src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(nil, fmt.Errorf("%w: timeout", domain.ErrTransport)).Once()

	_, err := svc.Update(context.Background(), jan1, jan2)
	require.ErrorIs(t, err, domain.ErrTransport)
	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Update_StoreError(t *testing.T) {
	svc, src, store, _ := newTestService(t, 1)
	src.On("Fetch", mock.Anything, eurpln, jan1, jan2).Return(series(eurpln, "4.30"), nil).Once()
	src.On("Fetch", mock.Anything, usdpln, jan1, jan2).Return(series(usdpln, "4.00"), nil).Once()
	store.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("%w: disk full", domain.ErrIO)).Once()

	_, err := svc.Update(context.Background(), jan1, jan2)
	require.ErrorIs(t, err, domain.ErrIO)
}

// --- Summarize ---

func TestService_Summarize(t *testing.T) {
	svc, _, store, _ := newTestService(t, 1)
	ds, err := domain.NewDataset([]string{"USD/PLN"}, []domain.Row{
		{Date: jan1, Values: []decimal.NullDecimal{decimal.NewNullDecimal(decimal.RequireFromString("4.00"))}},
		{Date: jan2, Values: []decimal.NullDecimal{decimal.NewNullDecimal(decimal.RequireFromString("4.02"))}},
	})
	require.NoError(t, err)
	store.On("Read", mock.Anything, "all_currency_data.csv").Return(ds, nil)

	sum, err := svc.Summarize(context.Background(), "USD/PLN")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("4.01").Equal(sum.Mean))
	require.True(t, decimal.RequireFromString("4.01").Equal(sum.Median))

	_, err = svc.Summarize(context.Background(), "CHF/PLN")
	require.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestService_Summarize_NothingPersisted(t *testing.T) {
	svc, _, store, _ := newTestService(t, 1)
	store.On("Read", mock.Anything, "all_currency_data.csv").Return(nil, domain.ErrDatasetNotFound).Once()

	_, err := svc.Summarize(context.Background(), "USD/PLN")
	require.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

// --- Export ---

func threeColumns(t *testing.T) domain.Dataset {
	t.Helper()
	v := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	ds, err := domain.NewDataset([]string{"EUR/PLN", "USD/PLN", "EUR/USD"}, []domain.Row{
		{Date: jan1, Values: []decimal.NullDecimal{v("4.30"), v("4.00"), v("1.075")}},
	})
	require.NoError(t, err)
	return ds
}

func TestService_Export_WritesSelectedPairs(t *testing.T) {
	svc, _, store, hook := newTestService(t, 1)
	store.On("Write", mock.Anything, mock.AnythingOfType("domain.Dataset"), "selected.csv").Return(nil).Once()

	got, err := svc.Export(context.Background(), threeColumns(t), []string{"EUR/USD", " usd/pln", "GBP/PLN"}, "selected.csv")
	require.NoError(t, err)
	require.Equal(t, []string{"EUR/USD", "USD/PLN"}, got.Columns())

	written := store.Calls[0].Arguments.Get(1).(domain.Dataset)
	require.True(t, got.Equal(written))

	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.Contains(t, hook.LastEntry().Message, "GBP/PLN")
	store.AssertExpectations(t)
}

func TestService_Export_NoValidPairsWritesNothing(t *testing.T) {
	svc, _, store, _ := newTestService(t, 1)

	_, err := svc.Export(context.Background(), threeColumns(t), []string{"GBP/PLN", "", "xyz"}, "selected.csv")
	require.ErrorIs(t, err, domain.ErrValidation)
	store.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Export_SupportedButMissingColumn(t *testing.T) {
	svc, _, store, _ := newTestService(t, 1)
	ds, err := threeColumns(t).Select([]string{"EUR/PLN"})
	require.NoError(t, err)

	_, err = svc.Export(context.Background(), ds, []string{"USD/PLN"}, "selected.csv")
	require.ErrorIs(t, err, domain.ErrValidation)
	store.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Export_StoreError(t *testing.T) {
	svc, _, store, _ := newTestService(t, 1)
	store.On("Write", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("read-only fs")).Once()

	_, err := svc.Export(context.Background(), threeColumns(t), []string{"EUR/PLN"}, "selected.csv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to export dataset")
}

func TestService_Columns(t *testing.T) {
	svc, _, _, _ := newTestService(t, 1)
	require.Equal(t, []string{"EUR/PLN", "USD/PLN", "EUR/USD"}, svc.Columns())
}

type sourceFunc func(ctx context.Context, p domain.Pair, start, end civil.Date) (domain.RateSeries, error)

func (f sourceFunc) Fetch(ctx context.Context, p domain.Pair, start, end civil.Date) (domain.RateSeries, error) {
	return f(ctx, p, start, end)
}
