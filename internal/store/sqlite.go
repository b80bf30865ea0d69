package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/competitor-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	variant      TEXT NOT NULL,
	status       TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	competitors  TEXT NOT NULL DEFAULT '[]',
	usage        TEXT NOT NULL DEFAULT '{}',
	cost         REAL NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const runColumns = `id, url, variant, status, company_name, industry, competitors, usage, cost, duration_ms, error, created_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return eris.New("sqlite: save run: missing id")
	}
	competitors, usage, err := marshalRunJSON(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: save run")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			variant = excluded.variant,
			status = excluded.status,
			company_name = excluded.company_name,
			industry = excluded.industry,
			competitors = excluded.competitors,
			usage = excluded.usage,
			cost = excluded.cost,
			duration_ms = excluded.duration_ms,
			error = excluded.error`,
		run.ID, run.URL, run.Variant, string(run.Status), run.CompanyName, run.Industry,
		string(competitors), string(usage), run.Cost, run.Duration.Milliseconds(), run.Error, createdAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status, competitors, usage string
	var durationMS int64

	err := row.Scan(&r.ID, &r.URL, &r.Variant, &status, &r.CompanyName, &r.Industry,
		&competitors, &usage, &r.Cost, &durationMS, &r.Error, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if err := unmarshalRunJSON(&r, []byte(competitors), []byte(usage)); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalRunJSON(run *model.Run) (competitors, usage []byte, err error) {
	list := run.Competitors
	if list == nil {
		list = []model.Competitor{}
	}
	if competitors, err = json.Marshal(list); err != nil {
		return nil, nil, eris.Wrap(err, "marshal competitors")
	}
	if usage, err = json.Marshal(run.Usage); err != nil {
		return nil, nil, eris.Wrap(err, "marshal usage")
	}
	return competitors, usage, nil
}

func unmarshalRunJSON(r *model.Run, competitors, usage []byte) error {
	if len(competitors) > 0 {
		if err := json.Unmarshal(competitors, &r.Competitors); err != nil {
			return eris.Wrap(err, "unmarshal competitors")
		}
	}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &r.Usage); err != nil {
			return eris.Wrap(err, "unmarshal usage")
		}
	}
	return nil
}
