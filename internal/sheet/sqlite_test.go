package sheet

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	logx "remindbot/pkg/logx"
)

func createSQLiteTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE records ("Date" TEXT, "Topic" TEXT, "Who" TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO records VALUES ('01.02.2026', 'Syntax', '@a'), ('02.02.2026', NULL, '@b')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return path
}

func TestSQLiteReadAll(t *testing.T) {
	t.Parallel()
	path := createSQLiteTable(t)

	cfg := Config{Driver: "sqlite", Path: path, Table: "records"}
	src, err := Open(context.Background(), cfg, testSchema, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows, err := src.ReadAll(context.Background(), cfg.Table)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Topic"] != "Syntax" || rows[0]["Who"] != "@a" {
		t.Fatalf("row 0 = %v", rows[0])
	}
	// NULL reads back as the empty string, same as an absent CSV cell.
	if rows[1]["Topic"] != "" {
		t.Fatalf("NULL column = %q, want empty", rows[1]["Topic"])
	}
}

func TestSQLiteSchemaMismatch(t *testing.T) {
	t.Parallel()
	path := createSQLiteTable(t)

	cfg := Config{Driver: "sqlite", Path: path, Table: "records"}
	_, err := Open(context.Background(), cfg, Schema{"Date", "Missing"}, logx.Nop())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("Open err = %v, want ErrSchemaMismatch", err)
	}
}

func TestSQLiteMissingTable(t *testing.T) {
	t.Parallel()
	path := createSQLiteTable(t)

	cfg := Config{Driver: "sqlite", Path: path, Table: "nope"}
	if _, err := Open(context.Background(), cfg, testSchema, logx.Nop()); err == nil {
		t.Fatal("expected error for missing table")
	}
}
