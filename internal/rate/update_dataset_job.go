package rate

import (
	"context"
	"fmt"
	"time"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
)

type DatasetUpdater interface {
	Update(ctx context.Context, start, end civil.Date) (domain.Dataset, error)
}

// Window is the rolling date range the pipeline refreshes: the LookbackDays days before
// today plus today, with "today" taken in Location.
type Window struct {
	LookbackDays int
	Location     *time.Location
	Now          func() time.Time
}

func (w Window) Range() (start, end civil.Date) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	end = civil.DateOf(now().In(loc))
	return end.AddDays(-w.LookbackDays), end
}

// UpdateDataset refreshes the main dataset with the current window.
func UpdateDataset(ctx context.Context, execID string, updater DatasetUpdater, window Window, logger logrus.FieldLogger) error {
	// STEP 1: resolving the window in the scheduler's timezone
	start, end := window.Range()
	log := logger.WithFields(logrus.Fields{"exec_id": execID, "start": start.String(), "end": end.String()})
	log.Info("Fetching currency data")

	// STEP 2: fetch every pair, build and append. All-or-nothing: a failure leaves the
	// persisted dataset as it was, the next run picks the same dates up again
	ds, err := updater.Update(ctx, start, end)
	if err != nil {
		return fmt.Errorf("update %s..%s failed: %w", start, end, err)
	}

	log.WithField("rows", ds.Len()).Info("Dataset updated")
	return nil
}
