// Package report computes descriptive statistics over dataset columns.
package report

import (
	"fmt"
	"slices"

	"fxseries/internal/domain"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

type Summary struct {
	Column string
	Count  int
	Mean   decimal.Decimal
	Median decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

// Summarize computes mean, median, min and max of the present cells of column.
func Summarize(ds domain.Dataset, column string) (Summary, error) {
	values, err := ds.Values(column)
	if err != nil {
		return Summary{}, err
	}
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("%w: %q", domain.ErrNoValues, column)
	}

	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = sorted[n/2-1].Add(sorted[n/2]).Div(two)
	}

	return Summary{
		Column: column,
		Count:  n,
		Mean:   decimal.Sum(sorted[0], sorted[1:]...).Div(decimal.NewFromInt(int64(n))),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[n-1],
	}, nil
}
