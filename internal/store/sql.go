package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MariaDB driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Client over a live site database.
// The first SetField opens a transaction; reads issued while it is open run
// inside it so they observe staged writes.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	tx      *sql.Tx
	logger  *zap.Logger
}

// OpenSQL connects to a site database and verifies the connection.
// If logger is nil, a no-op logger is used.
func OpenSQL(ctx context.Context, dialect Dialect, conn ConnConfig, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(dialect.Driver, dialect.DSN(conn))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, dialect.Name, err)
	}
	// One session per command invocation.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s at %s:%d: %w", ErrStore, dialect.Name, conn.Host, conn.Port, err)
	}

	return NewSQLStore(db, dialect, logger), nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger.Named("sql-store"),
	}
}

func (s *SQLStore) conn() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// List returns records of kind matching all filters, ordered by name.
func (s *SQLStore) List(ctx context.Context, kind string, filters ...Filter) ([]Record, error) {
	query, args := s.dialect.buildSelect(kind, filters)
	s.logger.Debug("list", zap.String("kind", kind), zap.String("query", query))

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStore, kind, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStore, kind, err)
	}
	return records, nil
}

// Get returns the record of kind named id.
func (s *SQLStore) Get(ctx context.Context, kind, id string) (Record, error) {
	rows, err := s.conn().QueryContext(ctx, s.dialect.buildGet(kind), id)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s %q: %w", ErrStore, kind, id, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s %q: %w", ErrStore, kind, id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	return records[0], nil
}

// Count returns the number of rows in the kind's table.
func (s *SQLStore) Count(ctx context.Context, kind string) (int, error) {
	var n int
	if err := s.conn().QueryRowContext(ctx, s.dialect.buildCount(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", ErrStore, kind, err)
	}
	return n, nil
}

// SetField updates one column of one row inside the open transaction.
func (s *SQLStore) SetField(ctx context.Context, kind, id, field string, value any) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin transaction: %w", ErrStore, err)
		}
		s.tx = tx
	}

	res, err := s.tx.ExecContext(ctx, s.dialect.buildUpdate(kind, field), value, id)
	if err != nil {
		return fmt.Errorf("%w: set %s.%s on %q: %w", ErrStore, kind, field, id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	s.logger.Debug("set field",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("field", field))
	return nil
}

// Commit commits the open transaction, if any.
func (s *SQLStore) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStore, err)
	}
	return nil
}

// Rollback rolls back the open transaction, if any.
func (s *SQLStore) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: rollback: %w", ErrStore, err)
	}
	return nil
}

// Close rolls back any open transaction and closes the connection.
func (s *SQLStore) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
