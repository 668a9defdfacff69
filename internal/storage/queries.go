package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type HeadcountRow struct {
	Year  string
	Men   string
	Women string
}

const deleteHeadcounts = `DELETE FROM headcounts`

func (q *Queries) DeleteHeadcounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteHeadcounts)
	return err
}

const insertHeadcount = `INSERT INTO headcounts (year, men, women, updated_at) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertHeadcount(ctx context.Context, row HeadcountRow, at time.Time) error {
	_, err := q.db.ExecContext(ctx, insertHeadcount, row.Year, row.Men, row.Women, at)
	return err
}

const listHeadcounts = `SELECT year, men, women FROM headcounts ORDER BY year`

func (q *Queries) ListHeadcounts(ctx context.Context) ([]HeadcountRow, error) {
	rows, err := q.db.QueryContext(ctx, listHeadcounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HeadcountRow
	for rows.Next() {
		var i HeadcountRow
		if err := rows.Scan(&i.Year, &i.Men, &i.Women); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type DatasetLoad struct {
	Version  string
	Source   string
	RawRows  int64
	Records  int64
	Skipped  int64
	LoadedAt time.Time
}

const insertDatasetLoad = `INSERT INTO dataset_loads (version, source, raw_rows, records, skipped, loaded_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertDatasetLoad(ctx context.Context, arg DatasetLoad) error {
	_, err := q.db.ExecContext(ctx, insertDatasetLoad,
		arg.Version, arg.Source, arg.RawRows, arg.Records, arg.Skipped, arg.LoadedAt)
	return err
}

const listDatasetLoads = `SELECT version, source, raw_rows, records, skipped, loaded_at
FROM dataset_loads ORDER BY loaded_at DESC LIMIT ?`

func (q *Queries) ListDatasetLoads(ctx context.Context, limit int64) ([]DatasetLoad, error) {
	rows, err := q.db.QueryContext(ctx, listDatasetLoads, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DatasetLoad
	for rows.Next() {
		var i DatasetLoad
		if err := rows.Scan(&i.Version, &i.Source, &i.RawRows, &i.Records, &i.Skipped, &i.LoadedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
