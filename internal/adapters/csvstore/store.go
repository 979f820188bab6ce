// Package csvstore persists datasets as delimited flat files.
//
// File layout: a header row "Date,<column>,...", then one row per date in ascending order.
// Numbers are written in plain decimal notation; absent cells are empty.
package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fxseries/internal/adapters"
	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const lockRetryDelay = 50 * time.Millisecond

var _ adapters.DatasetStore = (*Store)(nil)

type Store struct {
	logger logrus.FieldLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *Store) Read(_ context.Context, location string) (domain.Dataset, error) {
	return s.read(location)
}

// Write replaces the file at location. The new content is written to a temporary file
// first and renamed over the old one, so readers never see a partial file.
func (s *Store) Write(ctx context.Context, ds domain.Dataset, location string) error {
	unlock, err := s.lock(ctx, location)
	if err != nil {
		return err
	}
	defer unlock()

	if err = s.write(ds, location); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"location": location, "rows": ds.Len()}).Info("Data saved")
	return nil
}

// Append merges ds into the dataset stored at location, rows of ds winning on equal dates.
// A missing file counts as an empty dataset; an unreadable one aborts without touching it.
func (s *Store) Append(ctx context.Context, ds domain.Dataset, location string) error {
	unlock, err := s.lock(ctx, location)
	if err != nil {
		return err
	}
	defer unlock()

	prior, err := s.read(location)
	if err != nil && !errors.Is(err, domain.ErrDatasetNotFound) {
		return err
	}

	merged := domain.MergeByDate(prior, ds)
	if err = s.write(merged, location); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"location": location,
		"prior":    prior.Len(),
		"new":      ds.Len(),
		"total":    merged.Len(),
	}).Info("Data appended")
	return nil
}

func (s *Store) read(location string) (domain.Dataset, error) {
	f, err := os.Open(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Dataset{}, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, location)
		}
		return domain.Dataset{}, fmt.Errorf("%w: failed to open %s: %v", domain.ErrIO, location, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Decode(f)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: corrupt file %s: %v", domain.ErrIO, location, err)
	}
	return ds, nil
}

func (s *Store) write(ds domain.Dataset, location string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		return fmt.Errorf("%w: failed to encode dataset: %v", domain.ErrIO, err)
	}
	if err := renameio.WriteFile(location, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", domain.ErrIO, location, err)
	}
	return nil
}

// lock serializes read-modify-write cycles on location within the process (mutex)
// and across processes (advisory lock file next to it). The parent directory of location
// is created first since the lock file lives there.
func (s *Store) lock(ctx context.Context, location string) (func(), error) {
	if dir := filepath.Dir(location); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create %s: %v", domain.ErrIO, dir, err)
		}
	}

	s.mu.Lock()
	m, ok := s.locks[location]
	if !ok {
		m = &sync.Mutex{}
		s.locks[location] = m
	}
	s.mu.Unlock()
	m.Lock()

	fl := flock.New(location + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		m.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to lock %s: %v", domain.ErrIO, location, err)
	}

	return func() {
		if unlockErr := fl.Unlock(); unlockErr != nil {
			s.logger.WithError(unlockErr).WithField("location", location).Warn("Failed to release file lock")
		}
		m.Unlock()
	}, nil
}

// Encode writes ds in the flat-file layout.
func Encode(w io.Writer, ds domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{domain.DateColumn}, ds.Columns()...)); err != nil {
		return err
	}
	for _, r := range ds.Rows() {
		record := make([]string, 0, len(r.Values)+1)
		record = append(record, r.Date.String())
		for _, v := range r.Values {
			if v.Valid {
				record = append(record, v.Decimal.String())
			} else {
				record = append(record, "")
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses the flat-file layout. Any deviation is an error; nothing is skipped.
func Decode(r io.Reader) (domain.Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Dataset{}, errors.New("missing header")
		}
		return domain.Dataset{}, err
	}
	if len(header) == 0 || header[0] != domain.DateColumn {
		return domain.Dataset{}, fmt.Errorf("first column must be %q", domain.DateColumn)
	}
	columns := header[1:]

	var rows []domain.Row
	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return domain.Dataset{}, readErr
		}

		d, parseErr := civil.ParseDate(record[0])
		if parseErr != nil {
			return domain.Dataset{}, fmt.Errorf("bad date %q", record[0])
		}
		values := make([]decimal.NullDecimal, len(columns))
		for i, raw := range record[1:] {
			if raw == "" {
				continue
			}
			v, decErr := decimal.NewFromString(raw)
			if decErr != nil {
				return domain.Dataset{}, fmt.Errorf("bad value %q in column %q on %s", raw, columns[i], d)
			}
			values[i] = decimal.NewNullDecimal(v)
		}
		rows = append(rows, domain.Row{Date: d, Values: values})
	}

	return domain.NewDataset(columns, rows)
}

func NewStore(logger logrus.FieldLogger) *Store {
	return &Store{logger: logger, locks: make(map[string]*sync.Mutex)}
}
