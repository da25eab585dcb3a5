package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	logx "remindbot/pkg/logx"
)

var testSchema = Schema{"Date", "Topic", "Who"}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCSVReadAll(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Date,Topic,Who,Extra\n01.02.2026,Syntax,@a,ignored\n02.02.2026,Morphology,@b,x\n")

	src, err := Open(context.Background(), Config{Driver: "csv", Path: path}, testSchema, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows, err := src.ReadAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Topic"] != "Syntax" || rows[0]["Who"] != "@a" {
		t.Fatalf("row 0 = %v", rows[0])
	}
	if _, ok := rows[0]["Extra"]; ok {
		t.Fatal("columns outside the schema must not leak into rows")
	}
}

func TestCSVShortRowsPadEmpty(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Date,Topic,Who\n01.02.2026\n")

	src, err := Open(context.Background(), Config{Driver: "csv", Path: path}, testSchema, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows, err := src.ReadAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if rows[0]["Date"] != "01.02.2026" || rows[0]["Topic"] != "" || rows[0]["Who"] != "" {
		t.Fatalf("short row not padded: %v", rows[0])
	}
}

func TestCSVSchemaMismatch(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Date,Topic\n01.02.2026,Syntax\n")

	_, err := Open(context.Background(), Config{Driver: "csv", Path: path}, testSchema, logx.Nop())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("Open err = %v, want ErrSchemaMismatch", err)
	}
}

func TestCSVOverHTTP(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Topic,Who\n01.02.2026,Remote,@r\n"))
	}))
	defer ts.Close()

	src, err := Open(context.Background(), Config{Driver: "csv", Path: ts.URL}, testSchema, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows, err := src.ReadAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 1 || rows[0]["Topic"] != "Remote" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Driver: "gsheetz"}, testSchema, logx.Nop())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
