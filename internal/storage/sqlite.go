package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// SQLiteQueryLog implements QueryLog using SQLite.
type SQLiteQueryLog struct {
	db *sql.DB
}

var _ QueryLog = (*SQLiteQueryLog)(nil)

// NewSQLiteQueryLog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteQueryLog(dbPath string) (*SQLiteQueryLog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteQueryLog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_log (
		id TEXT PRIMARY KEY,
		ts TIMESTAMP NOT NULL,
		query TEXT NOT NULL,
		filters TEXT,
		alpha REAL NOT NULL,
		result_limit INTEGER NOT NULL,
		took_ms INTEGER NOT NULL,
		lexical_ms INTEGER NOT NULL,
		vector_ms INTEGER NOT NULL,
		merge_ms INTEGER NOT NULL,
		top3 TEXT NOT NULL,
		vector_used INTEGER NOT NULL,
		remote_addr TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_query_log_ts ON query_log(ts);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts rec. A missing ID or timestamp is filled in.
func (s *SQLiteQueryLog) Record(ctx context.Context, rec *models.QueryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	var filtersJSON sql.NullString
	if rec.Filters != nil {
		b, err := json.Marshal(rec.Filters)
		if err != nil {
			return fmt.Errorf("failed to marshal filters: %w", err)
		}
		filtersJSON = sql.NullString{String: string(b), Valid: true}
	}
	top3 := rec.Top3
	if top3 == nil {
		top3 = []string{}
	}
	top3JSON, err := json.Marshal(top3)
	if err != nil {
		return fmt.Errorf("failed to marshal top3: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_log (id, ts, query, filters, alpha, result_limit, took_ms,
		 lexical_ms, vector_ms, merge_ms, top3, vector_used, remote_addr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.Query, filtersJSON, rec.Alpha, rec.Limit, rec.TookMS,
		rec.LexicalMS, rec.VectorMS, rec.MergeMS, string(top3JSON), rec.VectorUsed, rec.RemoteAddr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *SQLiteQueryLog) Recent(ctx context.Context, n int) ([]*models.QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, query, filters, alpha, result_limit, took_ms,
		 lexical_ms, vector_ms, merge_ms, top3, vector_used, remote_addr
		 FROM query_log ORDER BY ts DESC, rowid DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.QueryRecord
	for rows.Next() {
		var (
			rec         models.QueryRecord
			filtersJSON sql.NullString
			top3JSON    string
			remoteAddr  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Query, &filtersJSON, &rec.Alpha, &rec.Limit,
			&rec.TookMS, &rec.LexicalMS, &rec.VectorMS, &rec.MergeMS, &top3JSON, &rec.VectorUsed, &remoteAddr); err != nil {
			return nil, err
		}
		if filtersJSON.Valid && filtersJSON.String != "" {
			rec.Filters = &models.Filters{}
			if err := json.Unmarshal([]byte(filtersJSON.String), rec.Filters); err != nil {
				return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
			}
		}
		if err := json.Unmarshal([]byte(top3JSON), &rec.Top3); err != nil {
			return nil, fmt.Errorf("failed to unmarshal top3: %w", err)
		}
		rec.RemoteAddr = remoteAddr.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteQueryLog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_log").Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteQueryLog) Close() error {
	return s.db.Close()
}
