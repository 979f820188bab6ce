package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses "EUR/PLN" style codes. Input is trimmed and upper-cased.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "/")
	if !ok {
		return Pair{}, fmt.Errorf("%w: pair %q must look like BASE/QUOTE", ErrValidation, s)
	}
	p := Pair{Base: strings.TrimSpace(base), Quote: strings.TrimSpace(quote)}
	if !isCurrencyCode(p.Base) || !isCurrencyCode(p.Quote) {
		return Pair{}, fmt.Errorf("%w: pair %q must consist of two 3-letter currency codes", ErrValidation, s)
	}
	if p.Base == p.Quote {
		return Pair{}, fmt.Errorf("%w: pair %q has the same base and quote", ErrValidation, s)
	}
	return p, nil
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

func (p Pair) Reversed() Pair {
	return Pair{
		Base:  p.Quote,
		Quote: p.Base,
	}
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

type RatePoint struct {
	Date civil.Date
	Rate decimal.Decimal
}

// CompareDates orders calendar dates for slices.SortFunc.
func CompareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// RateSeries holds the quotes of one pair ordered by date, one quote per date.
type RateSeries struct {
	Pair   Pair
	Points []RatePoint
}

func (s RateSeries) Dates() []civil.Date {
	dates := make([]civil.Date, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// DerivedColumn describes a cross-rate computed as Numerator / Denominator.
type DerivedColumn struct {
	Name        string
	Numerator   string
	Denominator string
}
