package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetanalyser/internal/amqp"
	"budgetanalyser/internal/categorizer"
	"budgetanalyser/internal/core"
	"budgetanalyser/internal/normalizer"
	"budgetanalyser/internal/statements"
	"budgetanalyser/internal/storage"
)

var columns = map[string]string{
	"Date":        core.ColDate,
	"Description": core.ColDescription,
	"Amount":      core.ColAmount,
}

type recordingPublisher struct {
	events []*amqp.IngestionEvent
	err    error
}

func (p *recordingPublisher) PublishIngestion(_ context.Context, e *amqp.IngestionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) (*Service, *storage.SQLiteRepository, *recordingPublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ingest.db"), discard())
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine := categorizer.New(categorizer.StaticSource{
		DescriptionToSubCategory: core.KeywordMapping{{Label: "Coffee", Keywords: []string{"coffee"}}},
		SubCategoryToCategory:    core.KeywordMapping{{Label: "Flexible", Keywords: []string{"coffee"}}},
	}, discard())

	pub := &recordingPublisher{}
	return New(repo, normalizer.New(discard()), engine, pub, discard()), repo, pub
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const coffeeCSV = "Date,Description,Amount\n2025-01-05,Coffee Shop,-4.50\n2025-01-05,Coffee Shop,-4.50\n"

func TestIngestCSVIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := setup(t)
	path := writeCSV(t, t.TempDir(), "chase.csv", coffeeCSV)

	first := svc.IngestCSV(ctx, path, "chase", columns)
	if !first.Success {
		t.Fatalf("first ingest failed: %s", first.Message)
	}
	if first.Processed != 2 || first.Inserted != 1 || first.Duplicates != 1 {
		t.Fatalf("first = %+v, want processed 2, inserted 1, duplicates 1", first)
	}
	if first.ImportID == "" {
		t.Fatalf("expected an import id")
	}

	second := svc.IngestCSV(ctx, path, "chase", columns)
	if !second.Success || second.Inserted != 0 || second.Duplicates != 2 {
		t.Fatalf("second = %+v, want 0 inserted", second)
	}

	stored, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d rows, want 1", len(stored))
	}
	if stored[0].Category != "Flexible" || stored[0].SubCategory != "Coffee" || stored[0].FromAccount != "chase" {
		t.Errorf("stored row not categorized: %+v", stored[0])
	}

	runs, _ := repo.ListImports(ctx, 0)
	if len(runs) != 2 {
		t.Errorf("recorded %d import runs, want 2", len(runs))
	}
	if len(pub.events) != 1 || pub.events[0].ImportID != first.ImportID {
		t.Errorf("expected one event for the first import, got %d", len(pub.events))
	}
}

func TestIngestCSVFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		mapping map[string]string
		wantMsg string
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "nope.csv"),
			mapping: columns,
			wantMsg: "CSV file not found: " + filepath.Join(dir, "nope.csv"),
		},
		{
			name:    "empty file",
			path:    writeCSV(t, dir, "empty.csv", ""),
			mapping: columns,
			wantMsg: "CSV file is empty",
		},
		{
			name:    "header only",
			path:    writeCSV(t, dir, "header.csv", "Date,Description,Amount\n"),
			mapping: columns,
			wantMsg: "CSV file is empty",
		},
		{
			name:    "no mapping",
			path:    writeCSV(t, dir, "nomap.csv", coffeeCSV),
			mapping: nil,
			wantMsg: "Failed to ingest CSV: mapping not found",
		},
		{
			name:    "bad amount",
			path:    writeCSV(t, dir, "bad.csv", "Date,Description,Amount\n2025-01-05,Coffee,abc\n"),
			mapping: columns,
			wantMsg: "Failed to ingest CSV: validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub := setup(t)
			r := svc.IngestCSV(ctx, tt.path, "chase", tt.mapping)
			if r.Success {
				t.Fatalf("expected failure, got %+v", r)
			}
			if !strings.HasPrefix(r.Message, tt.wantMsg) {
				t.Errorf("message = %q, want prefix %q", r.Message, tt.wantMsg)
			}
			if r.Inserted != 0 {
				t.Errorf("failed ingest reported %d inserted", r.Inserted)
			}
			if n, _ := repo.CountTransactions(ctx); n != 0 {
				t.Errorf("failed ingest stored %d rows", n)
			}
			if len(pub.events) != 0 {
				t.Errorf("failed ingest published %d events", len(pub.events))
			}
		})
	}
}

func TestIngestCSVKeepsBlankDescriptions(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	path := writeCSV(t, t.TempDir(), "chase.csv",
		"Date,Description,Amount\n2025-01-05,Coffee Shop,-4.50\n2025-01-06,,-2.00\n2025-01-07,Payroll,1000\n")

	r := svc.IngestCSV(ctx, path, "chase", columns)
	if !r.Success || r.Inserted != 3 {
		t.Fatalf("result = %+v, want 3 inserted", r)
	}

	stored, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var blank int
	for _, tx := range stored {
		if tx.Description == "" {
			blank++
			if tx.SubCategory != "" || tx.Category != "" {
				t.Errorf("blank row categorized: %+v", tx)
			}
		}
	}
	if blank != 1 {
		t.Errorf("stored %d blank-description rows, want 1", blank)
	}
}

func TestIngestCSVPublishFailureIsNotFatal(t *testing.T) {
	svc, _, pub := setup(t)
	pub.err = errors.New("broker down")
	path := writeCSV(t, t.TempDir(), "chase.csv", coffeeCSV)

	if r := svc.IngestCSV(context.Background(), path, "chase", columns); !r.Success {
		t.Fatalf("publish failure should not fail ingestion: %s", r.Message)
	}
}

func TestIngestMany(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	dir := t.TempDir()

	files := []File{
		{Path: writeCSV(t, dir, "chase.csv", coffeeCSV), Account: "chase", Mapping: columns},
		{Path: writeCSV(t, dir, "citi.csv", "Date,Description,Amount\n2025-01-07,Coffee Bar,3.25\n"), Account: "citi", Mapping: columns},
		{Path: filepath.Join(dir, "missing.csv"), Account: "amex", Mapping: columns},
	}

	r := svc.IngestMany(ctx, files)
	if r.Success {
		t.Fatalf("expected aggregate failure")
	}
	if !strings.Contains(r.Message, "amex: CSV file not found") {
		t.Errorf("message = %q", r.Message)
	}
	if r.Processed != 3 || r.Inserted != 2 || r.Duplicates != 1 {
		t.Errorf("totals = %+v", r)
	}

	stored, _ := repo.ListTransactionsByAccount(ctx, "citi")
	if len(stored) != 1 || !stored[0].Amount.IsNegative() {
		t.Errorf("citi amount should be inverted, got %+v", stored)
	}

	ok := svc.IngestMany(ctx, files[:2])
	if !ok.Success || ok.Message != "Successfully ingested 2 files" || ok.Inserted != 0 {
		t.Errorf("re-ingest = %+v", ok)
	}
}

func TestFilesFor(t *testing.T) {
	cfg := &statements.Config{
		StatementDir: "/data",
		CreditCards: []statements.AccountConfig{
			{Name: "citi", File: "citi.csv", Columns: map[string]string{core.ColDate: "Date"}},
		},
	}
	files := FilesFor(cfg)
	if len(files) != 1 || files[0].Path != filepath.Join("/data", "citi.csv") || files[0].Mapping["Date"] != core.ColDate {
		t.Fatalf("FilesFor() = %+v", files)
	}
}

func TestValidateCSV(t *testing.T) {
	dir := t.TempDir()
	acct := statements.AccountConfig{
		Name: "chase",
		Columns: map[string]string{
			core.ColDate:        "Posting Date",
			core.ColDescription: "Description",
			core.ColAmount:      "Amount",
		},
	}

	tests := []struct {
		name        string
		file        string
		content     string
		acct        statements.AccountConfig
		wantValid   bool
		wantMissing []string
		wantMsg     string
	}{
		{
			name:      "valid",
			file:      "ok.csv",
			content:   "posting date,Description,Amount\n01/05/2025,Coffee,-4.50\n",
			acct:      acct,
			wantValid: true,
		},
		{
			name:      "debit and credit replace amount",
			file:      "dc.csv",
			content:   "Posting Date,Description,Debit,Credit\n01/05/2025,Coffee,4.50,\n",
			acct:      acct,
			wantValid: true,
		},
		{
			name:        "missing columns",
			file:        "missing.csv",
			content:     "Date,Details\n01/05/2025,Coffee\n",
			acct:        acct,
			wantMissing: []string{"Amount (or Debit+Credit)", "Description", "Posting Date"},
		},
		{
			name:    "wrong extension",
			file:    "statement.txt",
			content: "x\n1\n",
			acct:    acct,
			wantMsg: "File must be a CSV file (.csv extension)",
		},
		{
			name:    "no mapping",
			file:    "nomap.csv",
			content: "Date\n1\n",
			acct:    statements.AccountConfig{Name: "amex"},
			wantMsg: "No column mapping found for bank 'amex' in configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateCSV(writeCSV(t, dir, tt.file, tt.content), tt.acct)
			if v.Valid != tt.wantValid {
				t.Fatalf("Valid = %v (%s), want %v", v.Valid, v.Message, tt.wantValid)
			}
			if tt.wantMissing != nil && strings.Join(v.Missing, "|") != strings.Join(tt.wantMissing, "|") {
				t.Errorf("Missing = %q, want %q", v.Missing, tt.wantMissing)
			}
			if tt.wantMsg != "" && v.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", v.Message, tt.wantMsg)
			}
		})
	}
}
