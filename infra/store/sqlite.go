package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/usdplan/core/model"
	corestore "github.com/kilianp07/usdplan/core/store"
)

// SQLiteStore persists results in a SQLite database, one row per period.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

const schema = `CREATE TABLE IF NOT EXISTS plan_results (
        year INTEGER NOT NULL,
        month INTEGER NOT NULL,
        fy INTEGER NOT NULL,
        run_id TEXT NOT NULL,
        converged INTEGER NOT NULL,
        stored_at INTEGER NOT NULL,
        summary TEXT NOT NULL,
        result TEXT NOT NULL,
        PRIMARY KEY (year, month)
    );`

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Save upserts the result of its period.
func (s *SQLiteStore) Save(ctx context.Context, res model.Result) error {
	sum := corestore.Summarize(res, s.now().UTC())
	sb, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	rb, err := json.Marshal(res)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO plan_results
        (year, month, fy, run_id, converged, stored_at, summary, result)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(year, month) DO UPDATE SET
        fy = excluded.fy, run_id = excluded.run_id, converged = excluded.converged,
        stored_at = excluded.stored_at, summary = excluded.summary, result = excluded.result`,
		res.Period.Year, res.Period.Month, res.Period.FinancialYear(), res.RunID,
		res.Converged, sum.StoredAt.Unix(), string(sb), string(rb))
	if err != nil {
		return fmt.Errorf("save %s: %w", res.Period, err)
	}
	return nil
}

// Get returns the stored result of p.
func (s *SQLiteStore) Get(ctx context.Context, p model.Period) (model.Result, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM plan_results WHERE year = ? AND month = ?`, p.Year, p.Month).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Result{}, fmt.Errorf("%s: %w", p, corestore.ErrNotFound)
	}
	if err != nil {
		return model.Result{}, err
	}
	var res model.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return model.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return res, nil
}

// List returns summaries matching q ordered by period.
func (s *SQLiteStore) List(ctx context.Context, q corestore.Query) ([]corestore.Summary, error) {
	var args []any
	query := `SELECT summary FROM plan_results WHERE 1=1`
	if q.FinancialYear != 0 {
		query += ` AND fy = ?`
		args = append(args, q.FinancialYear)
	}
	if q.ConvergedOnly {
		query += ` AND converged = 1`
	}
	query += ` ORDER BY year, month`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []corestore.Summary
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sum corestore.Summary
		if err := json.Unmarshal([]byte(data), &sum); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		res = append(res, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
