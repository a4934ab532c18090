package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var (
	ErrBuildingQuery   = errors.New("error building sql query")
	ErrBeginningTx     = errors.New("error beginning transaction")
	ErrCommittingTx    = errors.New("error committing transaction")
	ErrUnsupportedDial = errors.New("unsupported sql dialect")
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Store holds the connection pool and the dialect-specific statement builder.
type Store struct {
	db      *sql.DB
	dialect string
	builder sq.StatementBuilderType
}

func NewStore(db *sql.DB, dialect string) (*Store, error) {
	var placeholder sq.PlaceholderFormat
	switch dialect {
	case "mysql":
		placeholder = sq.Question
	case "postgres":
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDial, dialect)
	}
	return &Store{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn in a transaction. Repositories called with the ctx passed to fn
// join that transaction. The transaction is rolled back when fn returns an error or
// panics; panics are rethrown.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTx, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrCommittingTx, cerr)
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	return err
}

func (s *Store) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// upsertIgnore appends the dialect's "keep the existing row" conflict clause.
func (s *Store) upsertIgnore(insert sq.InsertBuilder, key string) sq.InsertBuilder {
	if s.dialect == "postgres" {
		return insert.Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", key))
	}
	return insert.Suffix(fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", key, key))
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}
	return s.conn(ctx).ExecContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}
	return s.conn(ctx).QueryRowContext(ctx, query, args...), nil
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingQuery, err)
	}
	return s.conn(ctx).QueryContext(ctx, query, args...)
}
