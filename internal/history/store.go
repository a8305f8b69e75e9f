package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"restack/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users must delete the history database afterwards.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Record is one completed transfer request.
type Record struct {
	RequestID   string
	Operation   string
	Items       int
	Completed   int
	Failed      int
	BytesCopied int64
	Errors      []string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store persists transfer outcomes in SQLite.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, maxEntries: cfg.History.MaxEntries}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return tx.Commit()
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Append inserts one record and prunes entries past the configured cap.
func (s *Store) Append(ctx context.Context, rec Record) error {
	var errorsJSON any
	if len(rec.Errors) > 0 {
		data, err := json.Marshal(rec.Errors)
		if err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
		errorsJSON = string(data)
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transfer_history (
            request_id, operation, items, completed, failed,
            bytes_copied, errors_json, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.Operation,
		rec.Items,
		rec.Completed,
		rec.Failed,
		rec.BytesCopied,
		errorsJSON,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	if s.maxEntries > 0 {
		_, err = s.db.ExecContext(
			ctx,
			`DELETE FROM transfer_history WHERE id NOT IN (
                SELECT id FROM transfer_history ORDER BY id DESC LIMIT ?
            )`,
			s.maxEntries,
		)
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT request_id, operation, items, completed, failed,
                bytes_copied, errors_json, started_at, finished_at
         FROM transfer_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			errorsJSON sql.NullString
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(
			&rec.RequestID,
			&rec.Operation,
			&rec.Items,
			&rec.Completed,
			&rec.Failed,
			&rec.BytesCopied,
			&errorsJSON,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			if err := json.Unmarshal([]byte(errorsJSON.String), &rec.Errors); err != nil {
				return nil, fmt.Errorf("decode errors for %s: %w", rec.RequestID, err)
			}
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// Count reports the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM transfer_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
