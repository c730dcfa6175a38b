package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetanalyser/internal/amqp"
	"budgetanalyser/internal/core"
	"budgetanalyser/internal/statements"
)

// Store is the persistence the ingester needs.
type Store interface {
	InsertTransactions(ctx context.Context, txs []core.Transaction, importID string) (int, error)
	RecordImport(ctx context.Context, run core.ImportRun) error
}

type Normalizer interface {
	Normalize(table statements.Table, account string, mapping map[string]string) ([]core.Transaction, error)
}

type Categorizer interface {
	Process(txs []core.Transaction) ([]core.Transaction, error)
}

// Publisher announces finished imports. Optional.
type Publisher interface {
	PublishIngestion(ctx context.Context, event *amqp.IngestionEvent) error
}

// Result reports the outcome of one ingestion call. Failures never carry
// inserted rows.
type Result struct {
	Success    bool
	Message    string
	ImportID   string
	Processed  int
	Inserted   int
	Duplicates int
}

// File is one statement to ingest.
type File struct {
	Path    string
	Account string
	Mapping map[string]string // source -> canonical
}

type Service struct {
	store       Store
	normalizer  Normalizer
	categorizer Categorizer
	publisher   Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func New(store Store, normalizer Normalizer, categorizer Categorizer, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		normalizer:  normalizer,
		categorizer: categorizer,
		publisher:   publisher,
		logger:      logger.With("component", "ingest"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// IngestCSV loads, normalizes, categorizes and stores one statement file.
// Re-ingesting the same file is safe: duplicates are counted, not stored.
func (s *Service) IngestCSV(ctx context.Context, path, account string, mapping map[string]string) Result {
	s.logger.InfoContext(ctx, "Loading CSV", "path", path, "account", account)

	table, err := statements.ReadCSV(path)
	if err != nil {
		return s.fail(ctx, path, account, err)
	}
	if table.Empty() {
		return Result{Message: "CSV file is empty"}
	}

	txs, err := s.normalizer.Normalize(table, account, mapping)
	if err != nil {
		return s.fail(ctx, path, account, err)
	}
	txs, err = s.categorizer.Process(txs)
	if err != nil {
		return s.fail(ctx, path, account, err)
	}

	importID := uuid.NewString()
	inserted, err := s.store.InsertTransactions(ctx, txs, importID)
	if err != nil {
		return s.fail(ctx, path, account, err)
	}

	run := core.ImportRun{
		ID:         importID,
		Account:    account,
		Source:     path,
		Processed:  len(txs),
		Inserted:   inserted,
		Duplicates: len(txs) - inserted,
		CreatedAt:  s.now(),
	}
	if err := s.store.RecordImport(ctx, run); err != nil {
		// The rows are committed; a missing audit entry does not undo them.
		s.logger.WarnContext(ctx, "Failed to record import run", "import_id", importID, "error", err)
	}
	s.publish(ctx, run)

	s.logger.InfoContext(ctx, "Ingestion complete",
		"account", account,
		"processed", run.Processed,
		"inserted", run.Inserted,
		"duplicates", run.Duplicates,
		"import_id", importID)

	return Result{
		Success:    true,
		Message:    fmt.Sprintf("Successfully processed %d transactions", run.Processed),
		ImportID:   importID,
		Processed:  run.Processed,
		Inserted:   run.Inserted,
		Duplicates: run.Duplicates,
	}
}

// IngestMany ingests files in order and sums the counters of the successful
// ones. Any failure makes the aggregate unsuccessful but does not stop the
// remaining files.
func (s *Service) IngestMany(ctx context.Context, files []File) Result {
	var (
		total Result
		errs  []string
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Account, err))
			break
		}
		r := s.IngestCSV(ctx, f.Path, f.Account, f.Mapping)
		if !r.Success {
			errs = append(errs, fmt.Sprintf("%s: %s", f.Account, r.Message))
			continue
		}
		total.Processed += r.Processed
		total.Inserted += r.Inserted
		total.Duplicates += r.Duplicates
	}

	if len(errs) > 0 {
		total.Message = "Some files failed: " + strings.Join(errs, "; ")
		return total
	}
	total.Success = true
	total.Message = fmt.Sprintf("Successfully ingested %d files", len(files))
	return total
}

// FilesFor builds the ingestion list for every configured account.
func FilesFor(cfg *statements.Config) []File {
	accounts := cfg.Accounts()
	files := make([]File, 0, len(accounts))
	for _, a := range accounts {
		files = append(files, File{
			Path:    a.StatementPath(cfg.StatementDir),
			Account: a.Name,
			Mapping: a.ColumnMapping(),
		})
	}
	return files
}

func (s *Service) fail(ctx context.Context, path, account string, err error) Result {
	msg := "Failed to ingest CSV: " + err.Error()
	if errors.Is(err, core.ErrDataSource) && errors.Is(err, fs.ErrNotExist) {
		msg = "CSV file not found: " + path
	}
	s.logger.ErrorContext(ctx, "Ingestion failed", "account", account, "path", path, "error", err)
	return Result{Message: msg}
}

func (s *Service) publish(ctx context.Context, run core.ImportRun) {
	if s.publisher == nil || run.Inserted == 0 {
		return
	}
	event := amqp.NewIngestionEvent(run.ID, run.Account, run.Source, run.Processed, run.Inserted)
	if err := s.publisher.PublishIngestion(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ingestion event", "import_id", run.ID, "error", err)
	}
}
