// Package pgfake is a database/sql driver that understands just enough SQL to
// stand in for the catalog_state bucket table in postgres store tests.
package pgfake

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Failure toggles, each making the matching driver call return an error.
type Failures struct {
	Ping   bool
	Create bool
	Query  bool
	Begin  bool
	Upsert bool
	Commit bool
	// RowsErr is returned by the row iterator after the last row.
	RowsErr error
}

// Conn is the single shared connection behind a fake DB. Upserts issued
// inside a transaction are staged and only reach Buckets on commit.
type Conn struct {
	mu         sync.Mutex
	active     *tx
	Buckets    map[string][]byte
	Statements []string
	Fail       Failures
}

var seq atomic.Int64

// Open registers a uniquely named driver and returns a DB bound to a fresh Conn.
func Open() (*sql.DB, *Conn) {
	conn := &Conn{Buckets: make(map[string][]byte)}
	name := fmt.Sprintf("pgfake-%d", seq.Add(1))
	sql.Register(name, fakeDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Bucket returns a copy of the stored payload.
func (c *Conn) Bucket(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.Buckets[name]
	return append([]byte(nil), v...), ok
}

// Len reports how many buckets are stored.
func (c *Conn) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Buckets)
}

type fakeDriver struct{ conn *Conn }

func (d fakeDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

var errInjected = errors.New("pgfake: injected failure")

func (c *Conn) record(query string) string {
	c.Statements = append(c.Statements, query)
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

// Prepare implements driver.Conn; statements are executed directly instead.
func (c *Conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("pgfake: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *Conn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *Conn) Begin() (driver.Tx, error) { return c.BeginTx(context.Background(), driver.TxOptions{}) }

// Ping implements driver.Pinger.
func (c *Conn) Ping(context.Context) error {
	if c.Fail.Ping {
		return errInjected
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *Conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.Fail.Begin {
		return nil, errInjected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = &tx{conn: c, staged: make(map[string][]byte)}
	return c.active, nil
}

// ExecContext implements driver.ExecerContext. Outside a transaction an
// upsert is applied immediately.
func (c *Conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt := c.record(query)
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		if c.Fail.Create {
			return nil, errInjected
		}
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(stmt, "INSERT INTO CATALOG_STATE"):
		if c.Fail.Upsert {
			return nil, errInjected
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("pgfake: upsert wants 2 args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		payload, ok2 := args[1].Value.([]byte)
		if !ok || !ok2 {
			return nil, fmt.Errorf("pgfake: unexpected arg types %T, %T", args[0].Value, args[1].Value)
		}
		target := c.Buckets
		if c.active != nil {
			target = c.active.staged
		}
		target[bucket] = append([]byte(nil), payload...)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("pgfake: unsupported statement %q", query)
}

// QueryContext implements driver.QueryerContext for the bucket select.
func (c *Conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt := c.record(query)
	if !strings.HasPrefix(stmt, "SELECT BUCKET, PAYLOAD FROM CATALOG_STATE") {
		return nil, fmt.Errorf("pgfake: unsupported query %q", query)
	}
	if c.Fail.Query {
		return nil, errInjected
	}
	names := make([]string, 0, len(c.Buckets))
	for name := range c.Buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := &rows{err: c.Fail.RowsErr}
	for _, name := range names {
		out.values = append(out.values, []driver.Value{name, append([]byte(nil), c.Buckets[name]...)})
	}
	return out, nil
}

type tx struct {
	conn   *Conn
	staged map[string][]byte
}

func (t *tx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.active = nil
	if t.conn.Fail.Commit {
		return errInjected
	}
	for k, v := range t.staged {
		t.conn.Buckets[k] = v
	}
	return nil
}

func (t *tx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.active = nil
	return nil
}

type rows struct {
	values [][]driver.Value
	idx    int
	err    error
}

func (r *rows) Columns() []string { return []string{"bucket", "payload"} }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
