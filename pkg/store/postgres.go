package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// PostgresStore keeps records in a PostgreSQL table with JSONB field maps.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn, checks the connection and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	const q = `
create table if not exists records (
	tbl        text not null,
	id         text not null,
	fields     jsonb not null default '{}'::jsonb,
	updated_at timestamptz not null default now(),
	primary key (tbl, id)
)`
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, table, id string) (Record, error) {
	const q = `select fields from records where tbl=$1 and id=$2`
	var js []byte
	if err := s.db.QueryRowContext(ctx, q, table, id).Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var fields Fields
	if err := json.Unmarshal(js, &fields); err != nil {
		return Record{}, fmt.Errorf("decoding fields of %s/%s: %w", table, id, err)
	}
	return Record{ID: id, Fields: fields}, nil
}

// Update implements Store. The merge is done server-side with the jsonb
// concatenation operator.
func (s *PostgresStore) Update(ctx context.Context, table, id string, fields Fields) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	js, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	const q = `
update records
set fields = fields || $3::jsonb, updated_at = now()
where tbl=$1 and id=$2`
	res, err := s.db.ExecContext(ctx, q, table, id, js)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Put implements Putter.
func (s *PostgresStore) Put(ctx context.Context, table string, rec Record) error {
	js, err := json.Marshal(rec.Fields.Clone())
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	const q = `
insert into records(tbl, id, fields)
values ($1,$2,$3::jsonb)
on conflict (tbl, id)
do update set fields=excluded.fields, updated_at=now()`
	_, err = s.db.ExecContext(ctx, q, table, rec.ID, js)
	return err
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
