package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fxseries/internal/adapters"
	"fxseries/internal/dataset"
	"fxseries/internal/domain"
	"fxseries/internal/report"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ServiceConfig struct {
	Pairs   []domain.Pair
	Derived []domain.DerivedColumn
	// Location of the main dataset in the store.
	Location string
	// FetchWorkers > 1 fetches pairs in parallel.
	FetchWorkers int
}

// Service runs the fetch, build and persist pipeline and the read-side operations on its result.
type Service struct {
	source    adapters.RateSource
	store     adapters.DatasetStore
	validator *PairValidator
	cfg       ServiceConfig
	logger    logrus.FieldLogger
}

// Fetch downloads every configured pair for [start, end] and builds the wide dataset.
// Any failed pair fails the whole call.
func (s *Service) Fetch(ctx context.Context, start, end civil.Date) (domain.Dataset, error) {
	if err := s.validator.ValidateRange(start, end); err != nil {
		return domain.Dataset{}, err
	}

	seriesByPair, err := s.fetchAll(ctx, start, end)
	if err != nil {
		return domain.Dataset{}, err
	}

	ds, err := dataset.Build(s.cfg.Pairs, seriesByPair, s.cfg.Derived)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to build dataset for %s..%s: %w", start, end, err)
	}
	s.logger.WithFields(logrus.Fields{
		"start":   start.String(),
		"end":     end.String(),
		"rows":    ds.Len(),
		"columns": len(ds.Columns()),
	}).Info("Data fetched successfully")
	return ds, nil
}

// Update fetches [start, end] and merges the result into the main dataset.
func (s *Service) Update(ctx context.Context, start, end civil.Date) (domain.Dataset, error) {
	ds, err := s.Fetch(ctx, start, end)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err = s.store.Append(ctx, ds, s.cfg.Location); err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to append dataset: %w", err)
	}
	return ds, nil
}

// Load reads the main dataset.
func (s *Service) Load(ctx context.Context) (domain.Dataset, error) {
	return s.store.Read(ctx, s.cfg.Location)
}

// Summarize computes statistics of one column of the main dataset.
func (s *Service) Summarize(ctx context.Context, column string) (report.Summary, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(ds, column)
}

// Export writes the date column and the selected pairs of ds to location, replacing it.
// Unknown pairs are skipped with a warning; when none is left nothing is written.
func (s *Service) Export(ctx context.Context, ds domain.Dataset, pairs []string, location string) (domain.Dataset, error) {
	valid, invalid := s.validator.ValidatePairs(pairs)

	columns := make([]string, 0, len(valid))
	for _, p := range valid {
		if _, ok := ds.ColumnIndex(p.String()); !ok {
			invalid = append(invalid, p.String())
			continue
		}
		columns = append(columns, p.String())
	}
	if len(invalid) > 0 {
		s.logger.Warnf("Invalid currency pairs ignored: %s", strings.Join(invalid, ", "))
	}
	if len(columns) == 0 {
		return domain.Dataset{}, fmt.Errorf("%w: no valid currency pairs selected", domain.ErrValidation)
	}

	selected, err := ds.Select(columns)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err = s.store.Write(ctx, selected, location); err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to export dataset: %w", err)
	}
	return selected, nil
}

// Columns lists the value columns the pipeline produces, in dataset order.
func (s *Service) Columns() []string {
	out := make([]string, 0, len(s.cfg.Pairs)+len(s.cfg.Derived))
	for _, p := range s.cfg.Pairs {
		out = append(out, p.String())
	}
	for _, d := range s.cfg.Derived {
		out = append(out, d.Name)
	}
	return out
}

func (s *Service) fetchAll(ctx context.Context, start, end civil.Date) (map[domain.Pair]domain.RateSeries, error) {
	results := make([]domain.RateSeries, len(s.cfg.Pairs))

	if s.cfg.FetchWorkers <= 1 {
		for i, p := range s.cfg.Pairs {
			series, err := s.fetchOne(ctx, p, start, end)
			if err != nil {
				return nil, err
			}
			results[i] = series
		}
	} else {
		// results are indexed by request position, so the join stays deterministic
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.FetchWorkers)
		for i, p := range s.cfg.Pairs {
			g.Go(func() error {
				series, err := s.fetchOne(gCtx, p, start, end)
				if err != nil {
					return err
				}
				results[i] = series
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	seriesByPair := make(map[domain.Pair]domain.RateSeries, len(results))
	for i, p := range s.cfg.Pairs {
		seriesByPair[p] = results[i]
	}
	return seriesByPair, nil
}

func (s *Service) fetchOne(ctx context.Context, p domain.Pair, start, end civil.Date) (domain.RateSeries, error) {
	series, err := s.source.Fetch(ctx, p, start, end)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"pair":      p.String(),
			"retryable": domain.IsRetryable(err),
		}).Warn("Failed to fetch data")
		return domain.RateSeries{}, fmt.Errorf("failed to fetch %s: %w", p, err)
	}
	return series, nil
}

// IsUpstreamFailure reports whether err came from the rate source rather than from local state.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrProtocol)
}

func NewService(source adapters.RateSource, store adapters.DatasetStore, validator *PairValidator, cfg ServiceConfig, logger logrus.FieldLogger) *Service {
	return &Service{source: source, store: store, validator: validator, cfg: cfg, logger: logger}
}
