package google

import (
	"context"
	"strings"
	"testing"

	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", nil)
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/creds.json")

	_, err := New(context.Background(), "sheet-id", nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("expected read error, got: %v", err)
	}
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.WriteTable(context.Background(), "Budget 2025-01", nil); err == nil {
		t.Error("WriteTable without a service should fail")
	}
	if _, err := c.ReadTable(context.Background(), "Budget 2025-01"); err == nil {
		t.Error("ReadTable without a service should fail")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Budget 2025-01", "'Budget 2025-01'"},
		{"Bob's 2025", "'Bob''s 2025'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteSheet(tt.name); got != tt.want {
				t.Errorf("quoteSheet(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestValueConversion(t *testing.T) {
	values := toValues([][]string{{"category", "2025-01"}, {"Needs", "-40.00"}, {}})
	if len(values) != 3 || values[1][1] != "-40.00" || len(values[2]) != 0 {
		t.Fatalf("toValues() = %v", values)
	}

	got := toStrings([]interface{}{" Needs ", -40.5, 3})
	if strings.Join(got, "|") != "Needs|-40.5|3" {
		t.Errorf("toStrings() = %v", got)
	}
}

func TestHasSheet(t *testing.T) {
	sheets := []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "Budget 2025-01"}},
		{},
		nil,
	}
	if !hasSheet(sheets, "Budget 2025-01") {
		t.Error("expected existing sheet to be found")
	}
	if hasSheet(sheets, "Budget 2025-02") {
		t.Error("unexpected sheet match")
	}
}
