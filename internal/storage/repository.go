package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"egitim/internal/dataset"
	"egitim/internal/headcount"

	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit caps ListLoads when the caller passes no limit.
const DefaultHistoryLimit = 20

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ headcount.Persister = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps the headcount rewrite transaction free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by /readyz.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveHeadcounts replaces every stored year with entries in one transaction.
func (r *SQLiteRepository) SaveHeadcounts(ctx context.Context, entries map[string]headcount.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := r.queries.WithTx(tx)
	if err := q.DeleteHeadcounts(ctx); err != nil {
		return fmt.Errorf("clear headcounts: %w", err)
	}
	at := r.now().UTC()
	for year, e := range entries {
		men, err := json.Marshal(e.Men)
		if err != nil {
			return fmt.Errorf("encode men %s: %w", year, err)
		}
		women, err := json.Marshal(e.Women)
		if err != nil {
			return fmt.Errorf("encode women %s: %w", year, err)
		}
		if err := q.InsertHeadcount(ctx, HeadcountRow{Year: year, Men: string(men), Women: string(women)}, at); err != nil {
			return fmt.Errorf("insert headcount %s: %w", year, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit headcounts: %w", err)
	}

	slog.DebugContext(ctx, "Headcounts saved to SQLite", "years", len(entries))
	return nil
}

// LoadHeadcounts reads every stored year. Malformed series decode to zeros.
func (r *SQLiteRepository) LoadHeadcounts(ctx context.Context) (map[string]headcount.Entry, error) {
	rows, err := r.queries.ListHeadcounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list headcounts: %w", err)
	}
	out := make(map[string]headcount.Entry, len(rows))
	for _, row := range rows {
		out[row.Year] = headcount.Entry{
			Men:   headcount.DecodeSeries([]byte(row.Men)),
			Women: headcount.DecodeSeries([]byte(row.Women)),
		}
	}
	return out, nil
}

// RecordLoad appends a dataset load to the history.
func (r *SQLiteRepository) RecordLoad(ctx context.Context, s dataset.Summary) error {
	err := r.queries.InsertDatasetLoad(ctx, DatasetLoad{
		Version:  s.Version,
		Source:   s.Source,
		RawRows:  int64(s.RawRows),
		Records:  int64(s.Records),
		Skipped:  int64(s.Skipped),
		LoadedAt: s.LoadedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("record dataset load: %w", err)
	}
	return nil
}

// ListLoads returns the most recent loads, newest first.
func (r *SQLiteRepository) ListLoads(ctx context.Context, limit int) ([]dataset.Summary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.queries.ListDatasetLoads(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list dataset loads: %w", err)
	}
	out := make([]dataset.Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, dataset.Summary{
			Version:  row.Version,
			Source:   row.Source,
			LoadedAt: row.LoadedAt,
			RawRows:  int(row.RawRows),
			Records:  int(row.Records),
			Skipped:  int(row.Skipped),
		})
	}
	return out, nil
}
