package adapters

import (
	"context"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
)

type RateSource interface {
	Fetch(ctx context.Context, pair domain.Pair, start, end civil.Date) (domain.RateSeries, error)
}

// DatasetStore persists datasets under a location (a file path or a dataset name).
type DatasetStore interface {
	Read(ctx context.Context, location string) (domain.Dataset, error)
	Write(ctx context.Context, ds domain.Dataset, location string) error
	Append(ctx context.Context, ds domain.Dataset, location string) error
}
