package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDB is a database/sql backend answering queries from a script.
type scriptedDB struct {
	mu        sync.Mutex
	results   map[string]*scriptedRows
	affected  int64
	execs     []string
	args      [][]any
	began     int
	commits   int
	rollbacks int
	commitErr error
}

type scriptedRows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *scriptedRows) Columns() []string { return r.cols }
func (r *scriptedRows) Close() error      { return nil }

func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func (db *scriptedDB) Connect(ctx context.Context) (driver.Conn, error) {
	return &scriptedConn{db: db}, nil
}

func (db *scriptedDB) Driver() driver.Driver { return scriptedDriver{db} }

type scriptedDriver struct{ db *scriptedDB }

func (d scriptedDriver) Open(string) (driver.Conn, error) { return &scriptedConn{db: d.db}, nil }

type scriptedConn struct{ db *scriptedDB }

func (c *scriptedConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.began++
	return scriptedTx{db: c.db}, nil
}

func (c *scriptedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.args = append(c.db.args, namedValues(args))
	rows, ok := c.db.results[query]
	if !ok {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	return &scriptedRows{cols: rows.cols, data: rows.data}, nil
}

func (c *scriptedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.execs = append(c.db.execs, query)
	c.db.args = append(c.db.args, namedValues(args))
	return driver.RowsAffected(c.db.affected), nil
}

type scriptedTx struct{ db *scriptedDB }

func (tx scriptedTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.commits++
	return tx.db.commitErr
}

func (tx scriptedTx) Rollback() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	return nil
}

func namedValues(args []driver.NamedValue) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

func newScriptedStore(t *testing.T) (*SQLStore, *scriptedDB) {
	t.Helper()
	fake := &scriptedDB{results: make(map[string]*scriptedRows), affected: 1}
	db := sql.OpenDB(fake)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, MariaDB, nil), fake
}

func TestSQLStore_List(t *testing.T) {
	s, fake := newScriptedStore(t)
	fake.results["SELECT * FROM `tabDocType` WHERE `module` = ? ORDER BY `name`"] = &scriptedRows{
		cols: []string{"name", "module", "istable"},
		data: [][]driver.Value{
			{[]byte("Item"), []byte("Stock"), int64(0)},
			{[]byte("Item Price"), []byte("Stock"), int64(1)},
		},
	}

	recs, err := s.List(context.Background(), KindDocType, Eq("module", "Stock"))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Item", recs[0]["name"])
	assert.Equal(t, "Stock", recs[0].String("module"))
	assert.False(t, recs[0].Bool("istable"))
	assert.True(t, recs[1].Bool("istable"))
	assert.Equal(t, []any{"Stock"}, fake.args[0])
}

func TestSQLStore_ListQueryFailure(t *testing.T) {
	s, _ := newScriptedStore(t)

	_, err := s.List(context.Background(), "Unknown")
	assert.ErrorIs(t, err, ErrStore)
}

func TestSQLStore_Get(t *testing.T) {
	s, fake := newScriptedStore(t)
	query := "SELECT * FROM `tabModule Def` WHERE `name` = ? LIMIT 1"
	fake.results[query] = &scriptedRows{
		cols: []string{"name", "app_name"},
		data: [][]driver.Value{{[]byte("Stock"), []byte("erpnext")}},
	}

	rec, err := s.Get(context.Background(), KindModuleDef, "Stock")
	require.NoError(t, err)
	assert.Equal(t, "erpnext", rec.String("app_name"))

	fake.results[query] = &scriptedRows{cols: []string{"name", "app_name"}}
	_, err = s.Get(context.Background(), KindModuleDef, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Count(t *testing.T) {
	s, fake := newScriptedStore(t)
	fake.results["SELECT COUNT(*) FROM `tabItem`"] = &scriptedRows{
		cols: []string{"COUNT(*)"},
		data: [][]driver.Value{{int64(1500)}},
	}

	n, err := s.Count(context.Background(), "Item")
	require.NoError(t, err)
	assert.Equal(t, 1500, n)

	_, err = s.Count(context.Background(), "Customer")
	assert.ErrorIs(t, err, ErrStore)
}

func TestSQLStore_SetFieldCommit(t *testing.T) {
	ctx := context.Background()
	s, fake := newScriptedStore(t)

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom App"))
	require.NoError(t, s.SetField(ctx, KindDocType, "Item Price", "module", "Custom App"))
	assert.Equal(t, 1, fake.began, "one transaction for all writes")
	assert.Equal(t, []string{
		"UPDATE `tabDocType` SET `module` = ? WHERE `name` = ?",
		"UPDATE `tabDocType` SET `module` = ? WHERE `name` = ?",
	}, fake.execs)
	assert.Equal(t, []any{"Custom App", "Item"}, fake.args[0])

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 1, fake.commits)

	// Nothing open: commit and rollback are no-ops.
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx))
	assert.Equal(t, 1, fake.commits)
	assert.Equal(t, 0, fake.rollbacks)
}

func TestSQLStore_SetFieldMissingRow(t *testing.T) {
	s, fake := newScriptedStore(t)
	fake.affected = 0

	err := s.SetField(context.Background(), KindDocType, "Ghost", "module", "Custom App")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Rollback(t *testing.T) {
	ctx := context.Background()
	s, fake := newScriptedStore(t)

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom App"))
	require.NoError(t, s.Rollback(ctx))
	assert.Equal(t, 1, fake.rollbacks)
	assert.Equal(t, 0, fake.commits)

	// The next write starts a fresh transaction.
	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom App"))
	assert.Equal(t, 2, fake.began)
}

func TestSQLStore_CommitFailure(t *testing.T) {
	ctx := context.Background()
	s, fake := newScriptedStore(t)
	fake.commitErr = errors.New("deadlock")

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom App"))
	assert.ErrorIs(t, s.Commit(ctx), ErrStore)
}

func TestSQLStore_CloseRollsBackOpenTransaction(t *testing.T) {
	s, fake := newScriptedStore(t)

	require.NoError(t, s.SetField(context.Background(), KindDocType, "Item", "module", "Custom App"))
	require.NoError(t, s.Close())
	assert.Equal(t, 1, fake.rollbacks)
}
