package mappings

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"budgetanalyser/internal/core"
)

// FileSource serves the two keyword mapping files and reloads a file when
// its modification time changes.
type FileSource struct {
	descPath string
	catPath  string
	logger   *slog.Logger

	mu   sync.Mutex
	desc cachedMapping
	cat  cachedMapping
}

type cachedMapping struct {
	modTime time.Time
	size    int64
	loaded  bool
	mapping core.KeywordMapping
}

func NewFileSource(descriptionToSubCategoryPath, subCategoryToCategoryPath string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		descPath: descriptionToSubCategoryPath,
		catPath:  subCategoryToCategoryPath,
		logger:   logger.With("component", "mappings"),
	}
}

// Mappings implements categorizer.Source.
func (s *FileSource) Mappings() (core.KeywordMapping, core.KeywordMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc, err := s.refresh(s.descPath, &s.desc)
	if err != nil {
		return nil, nil, err
	}
	cat, err := s.refresh(s.catPath, &s.cat)
	if err != nil {
		return nil, nil, err
	}
	return desc, cat, nil
}

// Invalidate forces the next call to re-read both files.
func (s *FileSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = cachedMapping{}
	s.cat = cachedMapping{}
}

// SaveDescriptionToSubCategory persists m and refreshes the cached copy.
func (s *FileSource) SaveDescriptionToSubCategory(m core.KeywordMapping) error {
	return s.save(s.descPath, &s.desc, m)
}

func (s *FileSource) SaveSubCategoryToCategory(m core.KeywordMapping) error {
	return s.save(s.catPath, &s.cat, m)
}

func (s *FileSource) save(path string, c *cachedMapping, m core.KeywordMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := SaveKeywordMapping(path, m); err != nil {
		return err
	}
	*c = cachedMapping{}
	return nil
}

func (s *FileSource) refresh(path string, c *cachedMapping) (core.KeywordMapping, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &core.DataSourceError{Path: path, Err: fmt.Errorf("keyword mapping file not found: %w", err)}
	}
	if c.loaded && info.ModTime().Equal(c.modTime) && info.Size() == c.size {
		return c.mapping, nil
	}

	m, err := LoadKeywordMapping(path)
	if err != nil {
		return nil, err
	}
	*c = cachedMapping{modTime: info.ModTime(), size: info.Size(), loaded: true, mapping: m}
	s.logger.Debug("Keyword mapping loaded", "path", path, "rules", len(m))
	return m, nil
}
