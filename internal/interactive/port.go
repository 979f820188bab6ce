// Package interactive drives the manual pipeline run: it asks the operator for a date range,
// the pairs to export and the column to analyze.
package interactive

import (
	"context"
	"fmt"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
)

// InputPort is where operator choices come from.
type InputPort interface {
	// DateRange returns the inclusive range to fetch; the defaults apply to empty answers.
	DateRange(ctx context.Context, defaultStart, defaultEnd civil.Date) (start, end civil.Date, err error)
	// SelectPairs returns the pairs to export, as entered. Entries need not be in available.
	SelectPairs(ctx context.Context, available []string) ([]string, error)
	// SelectColumn returns one of available.
	SelectColumn(ctx context.Context, available []string) (string, error)
}

// Static answers from preset values, for non-interactive runs. Zero dates take the defaults.
type Static struct {
	Start  civil.Date
	End    civil.Date
	Pairs  []string
	Column string
}

var _ InputPort = Static{}

func (s Static) DateRange(_ context.Context, defaultStart, defaultEnd civil.Date) (civil.Date, civil.Date, error) {
	start, end := s.Start, s.End
	if start.IsZero() {
		start = defaultStart
	}
	if end.IsZero() {
		end = defaultEnd
	}
	return start, end, nil
}

func (s Static) SelectPairs(context.Context, []string) ([]string, error) {
	if len(s.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no currency pairs given", domain.ErrValidation)
	}
	return s.Pairs, nil
}

func (s Static) SelectColumn(_ context.Context, available []string) (string, error) {
	column, ok := matchColumn(s.Column, available)
	if !ok {
		return "", fmt.Errorf("%w: %q is not available in the data", domain.ErrColumnNotFound, s.Column)
	}
	return column, nil
}
