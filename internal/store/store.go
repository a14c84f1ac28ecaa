package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	_ "modernc.org/sqlite"             // Register sqlite as database/sql driver

	"finance-backend/internal/config"
)

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store pairs a connection pool with the dialect that speaks to it.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// New opens the database named by cfg. An empty driver means postgres.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	return Open(ctx, NewDialect(driver), cfg.DSN(), cfg.PoolSize)
}

// Open connects with an explicit dialect and DSN. SQLite gets one
// connection, so ":memory:" databases are shared by every caller.
func Open(ctx context.Context, dialect Dialect, dsn string, poolSize int) (*Store, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name(), err)
	}

	if err := prepare(ctx, db, dialect.Name(), poolSize); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect.Name(), err)
	}
	return &Store{DB: db, Dialect: dialect}, nil
}

func prepare(ctx context.Context, db *sql.DB, dialect string, poolSize int) error {
	if dialect == "sqlite" {
		db.SetMaxOpenConns(1)
		// WAL lets readers proceed while the single writer commits
		_, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
		if err != nil {
			return err
		}
	} else if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
	}
	return db.PingContext(ctx)
}

func (s *Store) Close() {
	s.DB.Close()
}

// InTx runs fn in a transaction, committing when it returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", s.Dialect.MapError(err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", s.Dialect.MapError(err))
	}
	return nil
}

// Each runs a query and hands every result row to fn, stopping at the
// first error. Driver errors are mapped through the dialect, so a
// cancelled statement surfaces as context.Canceled.
func Each(ctx context.Context, q Querier, dialect Dialect, sqlStr string, args []any, fn func(*Row) error) error {
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return dialect.MapError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return dialect.MapError(err)
		}
		values := make(map[string]any, len(columns))
		for i, col := range columns {
			// TEXT and NUMERIC often arrive as driver-owned []byte
			if b, ok := cells[i].([]byte); ok {
				values[col] = string(b)
			} else {
				values[col] = cells[i]
			}
		}
		if err := fn(NewRow(values, dialect)); err != nil {
			return err
		}
	}
	return dialect.MapError(rows.Err())
}

// Exec runs a statement and reports how many rows it touched.
func Exec(ctx context.Context, q Querier, dialect Dialect, sqlStr string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, dialect.MapError(err)
	}
	return result.RowsAffected()
}

// Insert writes one row. Values go through the dialect's parameter
// conversion; string slices are stored as arrays and a nil slice as NULL.
func Insert(ctx context.Context, q Querier, dialect Dialect, table string, columns []string, values []any) error {
	if len(columns) != len(values) {
		return fmt.Errorf("insert %s: %d columns, %d values", table, len(columns), len(values))
	}
	pb := dialect.NewParamBuilder()
	phs := make([]string, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case []string:
			if val == nil {
				phs[i] = pb.Add(nil)
			} else {
				phs[i] = pb.Add(dialect.ArrayParam(val))
			}
		default:
			phs[i] = pb.Add(dialect.Param(deref(v)))
		}
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(phs, ", "))
	if _, err := Exec(ctx, q, dialect, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// deref unwraps pointer fields of nullable columns; nil becomes NULL.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return rv.Elem().Interface()
}
