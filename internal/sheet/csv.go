package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	logx "remindbot/pkg/logx"
)

// csvSource reads a CSV table from a local file or an http(s) URL (e.g. a
// published-to-web spreadsheet export). The first row is the header; the
// table name is part of the URL/file for this driver, so ReadAll ignores it.
type csvSource struct {
	path   string
	schema Schema
	log    logx.Logger
	http   *http.Client
}

func openCSV(cfg Config, schema Schema, log logx.Logger) (Source, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sheet.path is required for csv driver")
	}
	return &csvSource{
		path:   path,
		schema: schema,
		log:    log,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *csvSource) Close() error { return nil }

func (s *csvSource) validate(ctx context.Context, table string) error {
	rows, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty csv (no header row)", ErrSchemaMismatch)
	}
	return checkHeader(s.schema, rows[0])
}

func (s *csvSource) ReadAll(ctx context.Context, table string) ([]map[string]string, error) {
	_ = table
	rows, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty csv (no header row)", ErrSchemaMismatch)
	}
	header := rows[0]
	if err := checkHeader(s.schema, header); err != nil {
		return nil, err
	}

	// Column index per schema field.
	idx := make(map[string]int, len(s.schema))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(s.schema))
		for _, col := range s.schema {
			i := idx[col]
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *csvSource) fetch(ctx context.Context) ([][]string, error) {
	rc, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	// Sheets exports pad rows unevenly; tolerate it and fix lengths per row.
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return rows, nil
}

func (s *csvSource) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(s.path, "http://") || strings.HasPrefix(s.path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("csv fetch: http %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
	return os.Open(s.path)
}
