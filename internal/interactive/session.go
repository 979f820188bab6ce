package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fxseries/internal/domain"
	"fxseries/internal/rate"
	"fxseries/internal/report"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
)

type Pipeline interface {
	Update(ctx context.Context, start, end civil.Date) (domain.Dataset, error)
	Load(ctx context.Context) (domain.Dataset, error)
	Export(ctx context.Context, ds domain.Dataset, pairs []string, location string) (domain.Dataset, error)
}

// Session is one manual run of the pipeline driven by operator input.
type Session struct {
	input          InputPort
	pipeline       Pipeline
	out            io.Writer
	window         rate.Window
	exportLocation string
	logger         logrus.FieldLogger
}

// Run fetches the chosen range into the main dataset, exports the chosen pairs and prints
// statistics of the chosen column of the fetched data.
func (s *Session) Run(ctx context.Context) error {
	defStart, defEnd := s.window.Range()
	start, end, err := s.input.DateRange(ctx, defStart, defEnd)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"start": start.String(), "end": end.String()}).Info("Fetching currency data")
	ds, err := s.pipeline.Update(ctx, start, end)
	if err != nil {
		return err
	}
	return s.exportAndAnalyze(ctx, ds)
}

// RunReport prints statistics of one column of the persisted dataset.
func (s *Session) RunReport(ctx context.Context) error {
	ds, err := s.pipeline.Load(ctx)
	if err != nil {
		return err
	}
	return s.analyze(ctx, ds)
}

// RunExport writes the chosen pairs of the persisted dataset to the export location.
func (s *Session) RunExport(ctx context.Context) error {
	ds, err := s.pipeline.Load(ctx)
	if err != nil {
		return err
	}
	return s.export(ctx, ds)
}

func (s *Session) exportAndAnalyze(ctx context.Context, ds domain.Dataset) error {
	if err := s.export(ctx, ds); err != nil && !errors.Is(err, domain.ErrValidation) {
		return err
	}
	return s.analyze(ctx, ds)
}

// export reports ErrValidation after telling the operator nothing was saved.
func (s *Session) export(ctx context.Context, ds domain.Dataset) error {
	columns := ds.Columns()
	s.printf("Available currency pairs: %s\n", strings.Join(columns, ", "))

	pairs, err := s.input.SelectPairs(ctx, columns)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.printf("No valid currency pairs selected. No data saved.\n")
		}
		return err
	}

	selected, err := s.pipeline.Export(ctx, ds, pairs, s.exportLocation)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.printf("No valid currency pairs selected. No data saved.\n")
		}
		return err
	}
	s.printf("Saved %s to %s (%d rows).\n", strings.Join(selected.Columns(), ", "), s.exportLocation, selected.Len())
	return nil
}

func (s *Session) analyze(ctx context.Context, ds domain.Dataset) error {
	column, err := s.input.SelectColumn(ctx, ds.Columns())
	if err != nil {
		return err
	}
	summary, err := report.Summarize(ds, column)
	if err != nil {
		return err
	}

	s.printf("Analysis for %s:\n", summary.Column)
	s.printf("Average Rate: %s\n", summary.Mean.StringFixed(4))
	s.printf("Median Rate: %s\n", summary.Median.StringFixed(4))
	s.printf("Minimum Rate: %s\n", summary.Min.StringFixed(4))
	s.printf("Maximum Rate: %s\n", summary.Max.StringFixed(4))
	return nil
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func NewSession(input InputPort, pipeline Pipeline, out io.Writer, window rate.Window, exportLocation string, logger logrus.FieldLogger) *Session {
	return &Session{
		input:          input,
		pipeline:       pipeline,
		out:            out,
		window:         window,
		exportLocation: exportLocation,
		logger:         logger,
	}
}
