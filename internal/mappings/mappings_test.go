package mappings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetanalyser/internal/core"
)

func TestDecodeKeywordMappingKeepsOrder(t *testing.T) {
	in := `{"Zeta": ["z"], "Alpha": ["a", "aa"], "Mid": []}`
	m, err := DecodeKeywordMapping(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeKeywordMapping() error = %v", err)
	}
	got := m.Labels()
	want := []string{"Zeta", "Alpha", "Mid"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("labels = %v, want %v", got, want)
	}
}

func TestDecodeKeywordMappingRejectsNonObject(t *testing.T) {
	if _, err := DecodeKeywordMapping(strings.NewReader(`["a"]`)); err == nil {
		t.Fatalf("expected error for array input")
	}
	if _, err := DecodeKeywordMapping(strings.NewReader(`{"a": "b"}`)); err == nil {
		t.Fatalf("expected error for non-list keywords")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappers", "description_to_sub_category.json")
	m := core.KeywordMapping{
		{Label: "Groceries", Keywords: []string{"whole foods", "trader \"joe\""}},
		{Label: "Coffee", Keywords: []string{"starbucks"}},
		{Label: "Empty", Keywords: nil},
	}
	if err := SaveKeywordMapping(path, m); err != nil {
		t.Fatalf("SaveKeywordMapping() error = %v", err)
	}
	got, err := LoadKeywordMapping(path)
	if err != nil {
		t.Fatalf("LoadKeywordMapping() error = %v", err)
	}
	want := core.KeywordMapping{m[0], m[1], {Label: "Empty", Keywords: []string{}}}
	if !got.Equal(want) {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the mapping file, found %d entries", len(entries))
	}
}

func TestLoadKeywordMappingMissingFile(t *testing.T) {
	_, err := LoadKeywordMapping(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, core.ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}
}

func TestAddKeywords(t *testing.T) {
	m := core.KeywordMapping{{Label: "Coffee", Keywords: []string{"starbucks"}}}
	got := AddKeywords(m, "Coffee", "STARBUCKS", "blue bottle", " ")
	kws, _ := got.Lookup("Coffee")
	if len(kws) != 2 || kws[1] != "blue bottle" {
		t.Fatalf("keywords = %v", kws)
	}
	if len(m[0].Keywords) != 1 {
		t.Fatalf("AddKeywords must not mutate its input")
	}

	got = AddKeywords(got, "Books", "powell")
	if got.Labels()[1] != "Books" {
		t.Fatalf("new label should be appended, got %v", got.Labels())
	}
}

func TestCashflowMapping(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		m, err := LoadCashflowMapping(filepath.Join(dir, "missing.json"))
		if err != nil {
			t.Fatalf("LoadCashflowMapping() error = %v", err)
		}
		if !m.IsEarning("Income") || !m.IsExpense("Needs") {
			t.Fatalf("unexpected defaults: %+v", m)
		}
	})

	t.Run("keys are case-insensitive", func(t *testing.T) {
		path := filepath.Join(dir, "lower.json")
		if err := os.WriteFile(path, []byte(`{"earnings": ["Salary"], "EXPENSES": ["Bills", " "]}`), 0644); err != nil {
			t.Fatal(err)
		}
		m, err := LoadCashflowMapping(path)
		if err != nil {
			t.Fatalf("LoadCashflowMapping() error = %v", err)
		}
		if !m.IsEarning("Salary") || m.IsEarning("Income") {
			t.Fatalf("earnings = %v", m.Earnings)
		}
		if !m.IsExpense("Bills") || !m.IsExpense(core.RefundCategory) {
			t.Fatalf("expenses = %v", m.Expenses)
		}
	})

	t.Run("save drops overlap from earnings", func(t *testing.T) {
		path := filepath.Join(dir, "saved.json")
		err := SaveCashflowMapping(path, core.CashflowMapping{
			Earnings: []string{"Income", "Both"},
			Expenses: []string{"both", "Needs"},
		})
		if err != nil {
			t.Fatalf("SaveCashflowMapping() error = %v", err)
		}
		m, err := LoadCashflowMapping(path)
		if err != nil {
			t.Fatalf("LoadCashflowMapping() error = %v", err)
		}
		if m.IsEarning("Both") {
			t.Fatalf("overlapping category should be an expense only")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte(`{`), 0644)
		if _, err := LoadCashflowMapping(path); !errors.Is(err, core.ErrDataSource) {
			t.Fatalf("expected ErrDataSource, got %v", err)
		}
	})
}

func TestFileSourceReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	descPath := filepath.Join(dir, "desc.json")
	catPath := filepath.Join(dir, "cat.json")
	if err := os.WriteFile(descPath, []byte(`{"Coffee": ["starbucks"]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(catPath, []byte(`{"Flexible": ["Coffee"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(descPath, catPath, nil)
	desc, cat, err := src.Mappings()
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if len(desc) != 1 || len(cat) != 1 {
		t.Fatalf("unexpected mappings %v %v", desc, cat)
	}

	updated := AddKeywords(desc, "Books", "powell")
	if err := src.SaveDescriptionToSubCategory(updated); err != nil {
		t.Fatalf("SaveDescriptionToSubCategory() error = %v", err)
	}
	desc, _, err = src.Mappings()
	if err != nil {
		t.Fatalf("Mappings() error = %v", err)
	}
	if _, ok := desc.Lookup("Books"); !ok {
		t.Fatalf("expected reloaded mapping to contain Books, got %v", desc.Labels())
	}

	os.Remove(catPath)
	src.Invalidate()
	if _, _, err := src.Mappings(); !errors.Is(err, core.ErrDataSource) {
		t.Fatalf("expected ErrDataSource after removing file, got %v", err)
	}
}
