// Package statements reads raw statement exports and the accounts file that
// describes them.
package statements

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"budgetanalyser/internal/core"
)

// maxConcurrentReads bounds parallel file reads in LoadAll.
const maxConcurrentReads = 4

// ReadCSV parses a delimited statement file. An empty file yields an empty
// Table without error.
func ReadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, &core.DataSourceError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := DecodeCSV(f)
	if err != nil {
		return Table{}, &core.DataSourceError{Path: path, Err: err}
	}
	return t, nil
}

// DecodeCSV reads a header row followed by records.
func DecodeCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read record: %w", err)
		}
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// LoadAll reads every account's statement from dir. The first failure
// cancels the remaining reads and is returned.
func LoadAll(ctx context.Context, dir string, accounts []AccountConfig, logger *slog.Logger) (map[string]Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var mu sync.Mutex
	out := make(map[string]Table, len(accounts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for _, acct := range accounts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := acct.StatementPath(dir)
			t, err := ReadCSV(path)
			if err != nil {
				return fmt.Errorf("account %s: %w", acct.Name, err)
			}
			logger.DebugContext(ctx, "Statement loaded", "account", acct.Name, "path", path, "rows", len(t.Rows))

			mu.Lock()
			out[acct.Name] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
