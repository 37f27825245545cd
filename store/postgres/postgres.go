package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/store/postgres/migrations"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var _ credential.Store = (*Store)(nil)

// Store is a PostgreSQL-backed credential.Store.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. It does not run migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUp(ctx, s.db, ".")
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return credential.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", credential.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", credential.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	return nil
}
