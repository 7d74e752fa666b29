package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a single SQLite table with JSON field maps.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			tbl TEXT NOT NULL,
			id TEXT NOT NULL,
			fields TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (tbl, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, table, id string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM records WHERE tbl = ? AND id = ?`, table, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying record: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Record{}, fmt.Errorf("decoding fields of %s/%s: %w", table, id, err)
	}
	return Record{ID: id, Fields: fields}, nil
}

// Update implements Store. The read-merge-write runs in one transaction.
func (s *SQLiteStore) Update(ctx context.Context, table, id string, fields Fields) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT fields FROM records WHERE tbl = ? AND id = ?`, table, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying record: %w", err)
	}

	merged := Fields{}
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		return fmt.Errorf("decoding fields of %s/%s: %w", table, id, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = ? WHERE tbl = ? AND id = ?`,
		string(data), Timestamp(time.Now()), table, id,
	); err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return tx.Commit()
}

// Put implements Putter.
func (s *SQLiteStore) Put(ctx context.Context, table string, rec Record) error {
	data, err := json.Marshal(rec.Fields.Clone())
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (tbl, id, fields, updated_at) VALUES (?, ?, ?, ?)`,
		table, rec.ID, string(data), Timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
