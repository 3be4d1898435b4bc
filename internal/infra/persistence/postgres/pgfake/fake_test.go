package pgfake

import (
	"context"
	"errors"
	"testing"
)

func TestUpsertIsStagedUntilCommit(t *testing.T) {
	ctx := context.Background()
	db, conn := Open()
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO catalog_state (bucket, payload) VALUES ($1, $2)", "plates", []byte(`{}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if conn.Len() != 0 {
		t.Fatalf("upsert visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, ok := conn.Bucket("plates"); !ok || string(got) != "{}" {
		t.Fatalf("expected committed bucket, got %q %v", got, ok)
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO catalog_state (bucket, payload) VALUES ($1, $2)", "tags", []byte(`{}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, ok := conn.Bucket("tags"); ok {
		t.Fatalf("rolled back upsert was stored")
	}
}

func TestSelectReturnsBucketsInOrder(t *testing.T) {
	ctx := context.Background()
	db, conn := Open()
	defer func() { _ = db.Close() }()
	conn.Buckets["tags"] = []byte(`{"b":1}`)
	conn.Buckets["cells"] = []byte(`{"a":1}`)

	rows, err := db.QueryContext(ctx, "SELECT bucket, payload FROM catalog_state")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	if len(names) != 2 || names[0] != "cells" || names[1] != "tags" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestFailuresAndUnsupportedStatements(t *testing.T) {
	ctx := context.Background()
	db, conn := Open()
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "DROP TABLE catalog_state"); err == nil {
		t.Fatalf("expected unsupported statement error")
	}
	if _, err := db.QueryContext(ctx, "SELECT 1"); err == nil {
		t.Fatalf("expected unsupported query error")
	}
	conn.Fail.Ping = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.Fail = Failures{RowsErr: errors.New("cursor")}
	conn.Buckets["plates"] = []byte(`{}`)
	rows, err := db.QueryContext(ctx, "SELECT bucket, payload FROM catalog_state")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for rows.Next() {
	}
	if rows.Err() == nil {
		t.Fatalf("expected rows error")
	}
	_ = rows.Close()
	if len(conn.Statements) < 3 {
		t.Fatalf("statements not recorded: %v", conn.Statements)
	}
}
