// Package sheet reads the tabular record source the reminders come from.
//
// A Source returns every row as an ordered field map keyed by the schema's
// column names. The required columns are declared up front and validated
// once when the source is opened; a source lacking them fails fast with
// ErrSchemaMismatch instead of silently defaulting every field to empty.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logx "remindbot/pkg/logx"
)

// ErrSchemaMismatch marks a source whose header does not carry every
// required column.
var ErrSchemaMismatch = errors.New("sheet: schema mismatch")

type Config struct {
	Driver string
	Path   string
	Table  string
}

// Schema is the ordered list of required column names.
type Schema []string

// Source is the record source contract. ReadAll returns one field map per
// row, in source order. Reads are never cached: two near-simultaneous
// callers each trigger an independent full read.
type Source interface {
	ReadAll(ctx context.Context, table string) ([]map[string]string, error)
	Close() error
}

// Open initializes the configured source and validates its schema.
func Open(ctx context.Context, cfg Config, schema Schema, log logx.Logger) (Source, error) {
	if len(schema) == 0 {
		return nil, errors.New("sheet: empty schema")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		src Source
		err error
	)
	switch driver {
	case "csv":
		src, err = openCSV(cfg, schema, log)
	case "sqlite", "sqlite3":
		src, err = openSQLite(cfg, schema, log)
	default:
		return nil, fmt.Errorf("unknown sheet driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if v, ok := src.(interface {
		validate(ctx context.Context, table string) error
	}); ok {
		if err := v.validate(ctx, cfg.Table); err != nil {
			_ = src.Close()
			return nil, err
		}
	}
	log.Info("sheet opened", logx.String("driver", driver), logx.String("table", cfg.Table))
	return src, nil
}

// checkHeader verifies every schema column appears in header.
func checkHeader(schema Schema, header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = struct{}{}
	}
	for _, col := range schema {
		if _, ok := have[col]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col)
		}
	}
	return nil
}
