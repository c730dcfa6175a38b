// Package categorizer assigns sub-category and category labels to
// transactions using ordered keyword rules.
//
// Sub-categories are chosen by substring match of a keyword inside the
// lower-cased description. Categories are chosen by exact, case-insensitive
// match of the sub-category against a category's keyword list, so a
// sub-category named "Rent" never selects the category listing "Rental_trip".
// In both stages the first matching rule wins.
package categorizer

import (
	"fmt"
	"log/slog"
	"strings"

	"budgetanalyser/internal/core"
)

// Source supplies the current keyword mappings. Implementations may reload
// them lazily between calls.
type Source interface {
	Mappings() (descToSub core.KeywordMapping, subToCat core.KeywordMapping, err error)
}

// StaticSource serves fixed mappings.
type StaticSource struct {
	DescriptionToSubCategory core.KeywordMapping
	SubCategoryToCategory    core.KeywordMapping
}

func (s StaticSource) Mappings() (core.KeywordMapping, core.KeywordMapping, error) {
	return s.DescriptionToSubCategory, s.SubCategoryToCategory, nil
}

type Engine struct {
	source Source
	logger *slog.Logger
}

func New(source Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, logger: logger.With("component", "categorizer")}
}

// Process returns a categorized copy of txs. Rows with a blank description
// match no rule and stay uncategorized.
func (e *Engine) Process(txs []core.Transaction) ([]core.Transaction, error) {
	descToSub, subToCat, err := e.source.Mappings()
	if err != nil {
		return nil, fmt.Errorf("load keyword mappings: %w", err)
	}

	out := Apply(txs, descToSub, subToCat)
	unmapped := 0
	for _, tx := range out {
		if tx.SubCategory == "" {
			unmapped++
		}
	}
	e.logger.Debug("Transactions categorized", "count", len(out), "unmapped", unmapped)
	return out, nil
}

// Apply is the pure categorization step.
func Apply(txs []core.Transaction, descToSub, subToCat core.KeywordMapping) []core.Transaction {
	subs := compile(descToSub)
	cats := compile(subToCat)
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.SubCategory = subs.firstSubstring(tx.Description)
		tx.Category = cats.firstExact(tx.SubCategory)
		out[i] = tx
	}
	return out
}

// SubCategory returns the first rule whose keyword occurs in description.
func SubCategory(description string, m core.KeywordMapping) string {
	return compile(m).firstSubstring(description)
}

// Category returns the first rule listing subCategory as a full token.
func Category(subCategory string, m core.KeywordMapping) string {
	return compile(m).firstExact(subCategory)
}

type matcher []core.KeywordRule

func compile(m core.KeywordMapping) matcher {
	out := make(matcher, 0, len(m))
	for _, r := range m {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kws = append(kws, k)
			}
		}
		out = append(out, core.KeywordRule{Label: r.Label, Keywords: kws})
	}
	return out
}

func (m matcher) firstSubstring(text string) string {
	text = strings.ToLower(text)
	for _, r := range m {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Label
			}
		}
	}
	return ""
}

func (m matcher) firstExact(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	for _, r := range m {
		for _, k := range r.Keywords {
			if k == token {
				return r.Label
			}
		}
	}
	return ""
}
