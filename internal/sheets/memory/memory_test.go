package memory

import (
	"context"
	"testing"
)

func TestStoreWriteAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows := [][]string{{"category", "2025-01"}, {"Needs", "-10.00"}}
	if err := s.WriteTable(ctx, "Budget 2025-01", rows); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	rows[1][1] = "changed"

	got, err := s.ReadTable(ctx, "Budget 2025-01")
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if got[1][1] != "-10.00" {
		t.Errorf("stored rows should be copied, got %v", got)
	}

	if err := s.WriteTable(ctx, "Budget 2025-01", [][]string{{"replaced"}}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ReadTable(ctx, "Budget 2025-01")
	if len(got) != 1 || got[0][0] != "replaced" {
		t.Errorf("WriteTable should replace the sheet, got %v", got)
	}

	if _, err := s.ReadTable(ctx, "missing"); err == nil {
		t.Error("ReadTable(missing) should fail")
	}
	if err := s.WriteTable(ctx, "", nil); err == nil {
		t.Error("WriteTable with an empty name should fail")
	}
	if names := s.Sheets(); len(names) != 1 || names[0] != "Budget 2025-01" {
		t.Errorf("Sheets() = %v", names)
	}
}
