package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fxseries/internal/adapters"
	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var _ adapters.DatasetStore = (*DatasetRepository)(nil)

// DatasetRepository stores datasets by name. Cells of a row are kept as one jsonb object
// keyed by column, so rows written before a column existed read back with that cell absent.
type DatasetRepository struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

type rowPayload struct {
	RateDate string                         `json:"rate_date"`
	Cells    map[string]decimal.NullDecimal `json:"cells"`
}

func (r *DatasetRepository) Read(ctx context.Context, name string) (domain.Dataset, error) {
	return r.read(ctx, r.pool, name)
}

// Write replaces the dataset stored under name.
func (r *DatasetRepository) Write(ctx context.Context, ds domain.Dataset, name string) error {
	err := r.inLockedTx(ctx, name, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `delete from fx_dataset_rows where dataset = $1`, name); err != nil {
			return fmt.Errorf("failed to clear rows: %w", err)
		}
		return upsert(ctx, tx, name, ds.Columns(), ds)
	})
	if err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{"dataset": name, "rows": ds.Len()}).Info("Data saved")
	return nil
}

// Append merges ds into the dataset stored under name; rows of ds replace stored rows of the same date.
func (r *DatasetRepository) Append(ctx context.Context, ds domain.Dataset, name string) error {
	err := r.inLockedTx(ctx, name, func(tx pgx.Tx) error {
		prior, err := readColumns(ctx, tx, name)
		if err != nil && !errors.Is(err, domain.ErrDatasetNotFound) {
			return err
		}
		header, err := domain.NewDataset(prior, nil)
		if err != nil {
			return fmt.Errorf("%w: corrupt dataset %s: %v", domain.ErrIO, name, err)
		}
		columns := domain.MergeByDate(header, ds).Columns()
		return upsert(ctx, tx, name, columns, ds)
	})
	if err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{"dataset": name, "new": ds.Len()}).Info("Data appended")
	return nil
}

func (r *DatasetRepository) inLockedTx(ctx context.Context, name string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrIO, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// writers of the same dataset queue here until the holder commits
	if _, err = tx.Exec(ctx, `select pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return fmt.Errorf("%w: failed to lock dataset %s: %v", domain.ErrIO, name, err)
	}
	if err = fn(tx); err != nil {
		if errors.Is(err, domain.ErrIO) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", domain.ErrIO, err)
	}
	return nil
}

func upsert(ctx context.Context, tx pgx.Tx, name string, columns []string, ds domain.Dataset) error {
	const upsertDataset = `
		insert into fx_datasets(name, columns, updated_at) values ($1, $2, now())
		on conflict (name) do update
		set columns = excluded.columns, updated_at = now();
	`
	if columns == nil {
		// nil encodes as NULL, the header column is not null
		columns = []string{}
	}
	if _, err := tx.Exec(ctx, upsertDataset, name, columns); err != nil {
		return fmt.Errorf("failed to save dataset header: %w", err)
	}
	if ds.IsEmpty() {
		return nil
	}

	dsColumns := ds.Columns()
	payload := make([]rowPayload, 0, ds.Len())
	for _, row := range ds.Rows() {
		cells := make(map[string]decimal.NullDecimal, len(dsColumns))
		for i, c := range dsColumns {
			cells[c] = row.Values[i]
		}
		payload = append(payload, rowPayload{RateDate: row.Date.String(), Cells: cells})
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	const upsertRows = `
		insert into fx_dataset_rows(dataset, rate_date, cells)
		select $1, r.rate_date, r.cells
		from json_to_recordset($2::json) as r(rate_date date, cells jsonb)
		on conflict (dataset, rate_date) do update
		set cells = excluded.cells;
	`
	if _, err = tx.Exec(ctx, upsertRows, name, json.RawMessage(payloadJSON)); err != nil {
		return fmt.Errorf("failed to save rows: %w", err)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func readColumns(ctx context.Context, q querier, name string) ([]string, error) {
	var columns []string
	err := q.QueryRow(ctx, `select columns from fx_datasets where name = $1`, name).Scan(&columns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, name)
		}
		return nil, fmt.Errorf("%w: failed to read dataset %s: %v", domain.ErrIO, name, err)
	}
	return columns, nil
}

func (r *DatasetRepository) read(ctx context.Context, q querier, name string) (domain.Dataset, error) {
	columns, err := readColumns(ctx, q, name)
	if err != nil {
		return domain.Dataset{}, err
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	rows, err := q.Query(ctx, `select rate_date, cells from fx_dataset_rows where dataset = $1 order by rate_date`, name)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: failed to read rows of %s: %v", domain.ErrIO, name, err)
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var (
			rateDate time.Time
			cells    map[string]decimal.NullDecimal
		)
		if err = rows.Scan(&rateDate, &cells); err != nil {
			return domain.Dataset{}, fmt.Errorf("%w: failed to scan row of %s: %v", domain.ErrIO, name, err)
		}
		values := make([]decimal.NullDecimal, len(columns))
		for c, v := range cells {
			i, ok := index[c]
			if !ok {
				return domain.Dataset{}, fmt.Errorf("%w: corrupt dataset %s: unknown column %q", domain.ErrIO, name, c)
			}
			values[i] = v
		}
		out = append(out, domain.Row{Date: civil.DateOf(rateDate), Values: values})
	}
	if err = rows.Err(); err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: failed to read rows of %s: %v", domain.ErrIO, name, err)
	}

	ds, err := domain.NewDataset(columns, out)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: corrupt dataset %s: %v", domain.ErrIO, name, err)
	}
	return ds, nil
}

func NewDatasetRepository(pool *pgxpool.Pool, logger logrus.FieldLogger) *DatasetRepository {
	return &DatasetRepository{pool: pool, logger: logger}
}
