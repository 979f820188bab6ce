package rate

import (
	"fmt"
	"slices"
	"strings"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
)

var (
	ErrPairRequired    = fmt.Errorf("%w: currency pair is required", domain.ErrValidation)
	ErrPairUnsupported = fmt.Errorf("%w: currency pair not supported", domain.ErrValidation)
	ErrDateRequired    = fmt.Errorf("%w: start and end dates are required", domain.ErrValidation)
	ErrRangeReversed   = fmt.Errorf("%w: start date is after end date", domain.ErrValidation)
	ErrRangeTooLong    = fmt.Errorf("%w: date range too long", domain.ErrValidation)
)

// PairValidator checks user input against the pairs the pipeline produces.
type PairValidator struct {
	supportedSet map[domain.Pair]struct{} // read only
	supportedLst []domain.Pair            // read only, in configuration order
	maxRangeDays int
}

func (v *PairValidator) ValidatePair(raw string) (domain.Pair, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Pair{}, ErrPairRequired
	}
	p, err := domain.ParsePair(raw)
	if err != nil {
		return domain.Pair{}, err
	}
	if _, ok := v.supportedSet[p]; !ok {
		return domain.Pair{}, fmt.Errorf("%w: %s", ErrPairUnsupported, p)
	}
	return p, nil
}

// ValidatePairs splits raw input into supported pairs (deduplicated, input order kept)
// and the trimmed inputs that were rejected. Blank entries are dropped silently.
func (v *PairValidator) ValidatePairs(raw []string) (valid []domain.Pair, invalid []string) {
	seen := make(map[domain.Pair]struct{}, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		p, err := v.ValidatePair(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		valid = append(valid, p)
	}
	return valid, invalid
}

// ValidateRange accepts inclusive ranges of at most maxRangeDays days.
func (v *PairValidator) ValidateRange(start, end civil.Date) error {
	if start.IsZero() || end.IsZero() || !start.IsValid() || !end.IsValid() {
		return ErrDateRequired
	}
	if start.After(end) {
		return fmt.Errorf("%w: %s > %s", ErrRangeReversed, start, end)
	}
	if v.maxRangeDays > 0 && end.DaysSince(start)+1 > v.maxRangeDays {
		return fmt.Errorf("%w: %s..%s exceeds %d days", ErrRangeTooLong, start, end, v.maxRangeDays)
	}
	return nil
}

func (v *PairValidator) SupportedPairs() []domain.Pair {
	return slices.Clone(v.supportedLst)
}

// NewValidator supports the given pairs; duplicates are collapsed. maxRangeDays <= 0
// disables the range length check.
func NewValidator(supported []domain.Pair, maxRangeDays int) *PairValidator {
	set := make(map[domain.Pair]struct{}, len(supported))
	lst := make([]domain.Pair, 0, len(supported))
	for _, p := range supported {
		if _, ok := set[p]; ok {
			continue
		}
		set[p] = struct{}{}
		lst = append(lst, p)
	}
	return &PairValidator{supportedSet: set, supportedLst: lst, maxRangeDays: maxRangeDays}
}
