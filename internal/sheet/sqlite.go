package sheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	logx "remindbot/pkg/logx"
)

// sqliteSource reads the table from a local SQLite database. Column names
// match the schema verbatim (including spaces, e.g. "First deadline").
type sqliteSource struct {
	db     *sql.DB
	schema Schema
	log    logx.Logger
}

func openSQLite(cfg Config, schema Schema, log logx.Logger) (Source, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sheet.path is required for sqlite driver")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("sheet.table is required for sqlite driver")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	return &sqliteSource{db: db, schema: schema, log: log}, nil
}

func (s *sqliteSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteSource) validate(ctx context.Context, table string) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("sheet table %q: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	return checkHeader(s.schema, cols)
}

func (s *sqliteSource) ReadAll(ctx context.Context, table string) ([]map[string]string, error) {
	cols := make([]string, len(s.schema))
	for i, c := range s.schema {
		cols[i] = quoteIdent(c)
	}
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid`, strings.Join(cols, ", "), quoteIdent(table))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		vals := make([]sql.NullString, len(s.schema))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]string, len(s.schema))
		for i, col := range s.schema {
			m[col] = vals[i].String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// quoteIdent quotes an SQLite identifier (column or table names may contain
// spaces in sheet exports).
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
