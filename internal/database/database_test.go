package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenAndHealth(t *testing.T) {
	db := openTestDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
	if filepath.Base(db.Path()) != "bytelocker.db" {
		t.Errorf("Unexpected database file: %s", db.Path())
	}
}

func TestOpen_CreatesDataDir(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "data"))
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open should create missing directories: %v", err)
	}
	_ = db.Close()
}

func TestTransaction_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after commit, got %d", count)
	}
}

func TestTransaction_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected rollback, found %d rows", count)
	}
}
