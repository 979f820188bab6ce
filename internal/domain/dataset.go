package domain

import (
	"fmt"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateColumn is the name of the key column. It is implicit: Dataset.Columns never contains it.
const DateColumn = "Date"

type Row struct {
	Date   civil.Date
	Values []decimal.NullDecimal
}

func (r Row) clone() Row {
	return Row{Date: r.Date, Values: slices.Clone(r.Values)}
}

// Dataset is an immutable wide table keyed by date. Rows are sorted ascending by date
// and every row carries one cell per column; absent cells have Valid == false.
type Dataset struct {
	columns []string
	rows    []Row
}

// NewDataset validates and copies its input.
func NewDataset(columns []string, rows []Row) (Dataset, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return Dataset{}, fmt.Errorf("%w: empty column name", ErrValidation)
		}
		if c == DateColumn {
			return Dataset{}, fmt.Errorf("%w: column %q is reserved", ErrValidation, c)
		}
		if _, dup := seen[c]; dup {
			return Dataset{}, fmt.Errorf("%w: duplicate column %q", ErrValidation, c)
		}
		seen[c] = struct{}{}
	}

	copied := make([]Row, len(rows))
	for i, r := range rows {
		if !r.Date.IsValid() {
			return Dataset{}, fmt.Errorf("%w: row %d has invalid date %s", ErrValidation, i, r.Date)
		}
		if len(r.Values) != len(columns) {
			return Dataset{}, fmt.Errorf("%w: row %s has %d cells, want %d", ErrValidation, r.Date, len(r.Values), len(columns))
		}
		if i > 0 && !rows[i-1].Date.Before(r.Date) {
			return Dataset{}, fmt.Errorf("%w: rows not strictly ascending at %s", ErrValidation, r.Date)
		}
		copied[i] = r.clone()
	}

	return Dataset{columns: slices.Clone(columns), rows: copied}, nil
}

func (d Dataset) Columns() []string { return slices.Clone(d.columns) }

func (d Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.clone()
	}
	return out
}

func (d Dataset) Len() int { return len(d.rows) }

func (d Dataset) IsEmpty() bool { return len(d.rows) == 0 }

func (d Dataset) Dates() []civil.Date {
	dates := make([]civil.Date, len(d.rows))
	for i, r := range d.rows {
		dates[i] = r.Date
	}
	return dates
}

// ColumnIndex returns the position of column among the value cells of a row.
func (d Dataset) ColumnIndex(column string) (int, bool) {
	i := slices.Index(d.columns, column)
	return i, i >= 0
}

// Values returns the present cells of column in date order.
func (d Dataset) Values(column string) ([]decimal.Decimal, error) {
	idx, ok := d.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	values := make([]decimal.Decimal, 0, len(d.rows))
	for _, r := range d.rows {
		if r.Values[idx].Valid {
			values = append(values, r.Values[idx].Decimal)
		}
	}
	return values, nil
}

// Select projects the dataset onto the given columns, in the given order.
func (d Dataset) Select(columns []string) (Dataset, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := d.ColumnIndex(c)
		if !ok {
			return Dataset{}, fmt.Errorf("%w: %q", ErrColumnNotFound, c)
		}
		idx[i] = j
	}

	rows := make([]Row, len(d.rows))
	for i, r := range d.rows {
		values := make([]decimal.NullDecimal, len(idx))
		for k, j := range idx {
			values[k] = r.Values[j]
		}
		rows[i] = Row{Date: r.Date, Values: values}
	}
	return NewDataset(columns, rows)
}

// Between keeps the rows with from <= date <= to. A zero bound is open.
func (d Dataset) Between(from, to civil.Date) Dataset {
	rows := make([]Row, 0, len(d.rows))
	for _, r := range d.rows {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		rows = append(rows, r.clone())
	}
	return Dataset{columns: slices.Clone(d.columns), rows: rows}
}

// Equal compares columns, dates and cell values; decimals compare by value.
func (d Dataset) Equal(other Dataset) bool {
	if !slices.Equal(d.columns, other.columns) || len(d.rows) != len(other.rows) {
		return false
	}
	for i, r := range d.rows {
		o := other.rows[i]
		if r.Date != o.Date {
			return false
		}
		for j, v := range r.Values {
			w := o.Values[j]
			if v.Valid != w.Valid || (v.Valid && !v.Decimal.Equal(w.Decimal)) {
				return false
			}
		}
	}
	return true
}
