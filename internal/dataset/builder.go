// Package dataset joins per-pair rate series into a wide, date-keyed table.
package dataset

import (
	"fmt"
	"slices"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Build inner-joins the series of pairs on date and appends the derived columns.
//
// Only dates quoted for every pair survive the join, so no row ever has a missing pair cell.
// Columns come out as pairs in the given order followed by derived columns in the given order.
// A derived cell whose denominator is zero is left absent; the rest of the row is kept.
func Build(pairs []domain.Pair, seriesByPair map[domain.Pair]domain.RateSeries, derived []domain.DerivedColumn) (domain.Dataset, error) {
	if len(pairs) == 0 {
		return domain.Dataset{}, fmt.Errorf("%w: no pairs requested", domain.ErrEmptyJoin)
	}

	// STEP 1: index every series by date
	quotes := make([]map[civil.Date]decimal.Decimal, len(pairs))
	columns := make([]string, 0, len(pairs)+len(derived))
	for i, p := range pairs {
		series, ok := seriesByPair[p]
		if !ok {
			return domain.Dataset{}, fmt.Errorf("%w: no series for pair %s", domain.ErrValidation, p)
		}
		if slices.Contains(columns, p.String()) {
			return domain.Dataset{}, fmt.Errorf("%w: pair %s requested twice", domain.ErrValidation, p)
		}
		columns = append(columns, p.String())

		byDate := make(map[civil.Date]decimal.Decimal, len(series.Points))
		for _, pt := range series.Points {
			byDate[pt.Date] = pt.Rate
		}
		quotes[i] = byDate
	}

	// STEP 2: intersect dates, starting from the first series
	dates := joinDates(quotes)
	if len(dates) == 0 {
		return domain.Dataset{}, fmt.Errorf("%w: %d series share no date", domain.ErrEmptyJoin, len(pairs))
	}

	rows := make([]domain.Row, len(dates))
	for i, d := range dates {
		values := make([]decimal.NullDecimal, len(pairs), len(pairs)+len(derived))
		for j := range pairs {
			values[j] = decimal.NewNullDecimal(quotes[j][d])
		}
		rows[i] = domain.Row{Date: d, Values: values}
	}

	// STEP 3: derived columns may refer to pairs and to derived columns defined before them
	for _, dc := range derived {
		if slices.Contains(columns, dc.Name) || dc.Name == domain.DateColumn {
			return domain.Dataset{}, fmt.Errorf("%w: column %q already exists", domain.ErrDerivedColumn, dc.Name)
		}
		num := slices.Index(columns, dc.Numerator)
		if num < 0 {
			return domain.Dataset{}, fmt.Errorf("%w: %q needs missing column %q", domain.ErrDerivedColumn, dc.Name, dc.Numerator)
		}
		den := slices.Index(columns, dc.Denominator)
		if den < 0 {
			return domain.Dataset{}, fmt.Errorf("%w: %q needs missing column %q", domain.ErrDerivedColumn, dc.Name, dc.Denominator)
		}

		for i := range rows {
			rows[i].Values = append(rows[i].Values, ratio(rows[i].Values[num], rows[i].Values[den]))
		}
		columns = append(columns, dc.Name)
	}

	return domain.NewDataset(columns, rows)
}

func joinDates(quotes []map[civil.Date]decimal.Decimal) []civil.Date {
	dates := make([]civil.Date, 0, len(quotes[0]))
	for d := range quotes[0] {
		inAll := true
		for _, q := range quotes[1:] {
			if _, ok := q[d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			dates = append(dates, d)
		}
	}
	slices.SortFunc(dates, domain.CompareDates)
	return dates
}

func ratio(num, den decimal.NullDecimal) decimal.NullDecimal {
	if !num.Valid || !den.Valid || den.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(num.Decimal.Div(den.Decimal))
}
