package domain

import (
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MergeByDate unions the rows of prior and next keyed by date. A date present in both
// takes next's row as a whole; prior's cells for that date are dropped, not merged.
//
// Resulting columns are prior's columns followed by next's columns that prior lacks.
// Cells for columns a row's origin dataset did not have are absent.
func MergeByDate(prior, next Dataset) Dataset {
	columns := slices.Clone(prior.columns)
	for _, c := range next.columns {
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}

	priorIdx := columnMapping(prior.columns, columns)
	nextIdx := columnMapping(next.columns, columns)

	byDate := make(map[civil.Date]Row, len(prior.rows)+len(next.rows))
	for _, r := range prior.rows {
		byDate[r.Date] = remap(r, priorIdx, len(columns))
	}
	for _, r := range next.rows {
		byDate[r.Date] = remap(r, nextIdx, len(columns))
	}

	rows := make([]Row, 0, len(byDate))
	for _, r := range byDate {
		rows = append(rows, r)
	}
	slices.SortFunc(rows, func(a, b Row) int { return CompareDates(a.Date, b.Date) })

	return Dataset{columns: columns, rows: rows}
}

// columnMapping returns, for each source column, its position among target.
func columnMapping(source, target []string) []int {
	idx := make([]int, len(source))
	for i, c := range source {
		idx[i] = slices.Index(target, c)
	}
	return idx
}

func remap(r Row, idx []int, width int) Row {
	values := make([]decimal.NullDecimal, width)
	for i, v := range r.Values {
		values[idx[i]] = v
	}
	return Row{Date: r.Date, Values: values}
}
