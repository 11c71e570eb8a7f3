/*
# Module: storage/sqlite.go
SQLite store for swept businesses and sweep runs.

## Linked Modules
- [storage/repository](./repository.go) - Repository interfaces
- [types/business](../types/business.go) - Business data structure
- [types/sweep](../types/sweep.go) - SweepRun data structure

## Tags
storage, sqlite, persistence, repository

## Exports
SQLiteStore, OpenSQLite, Transaction, SaveAll, GetByID, GetAll, SaveRun, GetRun, GetRecentRuns

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/sqlite.go" ;
    code:description "SQLite store for swept businesses and sweep runs" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "./repository.go" ;
        code:relationship "Repository interfaces"
    ], [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Business data structure"
    ], [
        code:name "types/sweep" ;
        code:path "../types/sweep.go" ;
        code:relationship "SweepRun data structure"
    ] ;
    code:exports :SQLiteStore, :OpenSQLite, :Transaction, :SaveAll, :GetByID, :GetAll, :SaveRun, :GetRun, :GetRecentRuns ;
    code:tags "storage", "sqlite", "persistence", "repository" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"places-sweep/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS businesses (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	name       TEXT,
	latitude   REAL,
	longitude  REAL,
	categories TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sweep_runs (
	id            TEXT PRIMARY KEY,
	started_at_ns INTEGER NOT NULL,
	data          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sweep_runs_started ON sweep_runs (started_at_ns);
`

// SQLiteStore implements BusinessRepository and SweepRunRepository on SQLite.
// Businesses are returned in the order they were first stored.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply SQLite schema: %w", err)
	}

	log.Printf("🗄️  SQLite database initialized: %s", path)
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Transaction executes fn within a database transaction
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SaveAll inserts businesses whose ID is not stored yet, in one transaction.
// It returns how many rows were inserted.
func (s *SQLiteStore) SaveAll(ctx context.Context, businesses []types.Business) (int, error) {
	saved := 0
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO businesses (id, name, latitude, longitude, categories, data)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, business := range businesses {
			data, err := json.Marshal(business)
			if err != nil {
				return fmt.Errorf("failed to marshal business %s: %w", business.ID, err)
			}
			categories := business.Categories
			if categories == nil {
				categories = []string{}
			}
			categoriesJSON, err := json.Marshal(categories)
			if err != nil {
				return fmt.Errorf("failed to marshal categories: %w", err)
			}

			res, err := stmt.ExecContext(ctx,
				business.ID,
				nullString(business.Name),
				nullFloat(business.Latitude),
				nullFloat(business.Longitude),
				string(categoriesJSON),
				string(data),
			)
			if err != nil {
				return fmt.Errorf("failed to insert business %s: %w", business.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			saved += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("💾 Saved %d/%d businesses to SQLite", saved, len(businesses))
	return saved, nil
}

// GetByID retrieves a business by ID
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*types.Business, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM businesses WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("business %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}

	var business types.Business
	if err := json.Unmarshal([]byte(data), &business); err != nil {
		return nil, fmt.Errorf("failed to unmarshal business: %w", err)
	}
	return &business, nil
}

// GetAll returns every stored business in first-stored order
func (s *SQLiteStore) GetAll(ctx context.Context) ([]types.Business, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM businesses ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]types.Business, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		var business types.Business
		if err := json.Unmarshal([]byte(data), &business); err != nil {
			log.Printf("⚠️  Failed to unmarshal business: %v", err)
			continue
		}
		businesses = append(businesses, business)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate businesses: %w", err)
	}
	return businesses, nil
}

// SaveRun stores a sweep run, replacing any run with the same ID
func (s *SQLiteStore) SaveRun(ctx context.Context, run types.SweepRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, started_at_ns, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET started_at_ns = excluded.started_at_ns, data = excluded.data`,
		run.ID, run.StartedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// GetRun retrieves a sweep run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*types.SweepRun, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sweep_runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sweep run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep run: %w", err)
	}

	var run types.SweepRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep run: %w", err)
	}
	return &run, nil
}

// GetRecentRuns returns up to limit runs, most recently started first.
// A limit <= 0 returns every run.
func (s *SQLiteStore) GetRecentRuns(ctx context.Context, limit int) ([]types.SweepRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM sweep_runs ORDER BY started_at_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	runs := make([]types.SweepRun, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		var run types.SweepRun
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			log.Printf("⚠️  Failed to unmarshal sweep run: %v", err)
			continue
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sweep runs: %w", err)
	}
	return runs, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
