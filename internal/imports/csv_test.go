package imports

import (
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	input := "date,description,category,amount\n" +
		"2025-05-01,Grocery Store,Food,\"৳1,250.50\"\n" +
		"2025-05-02,Rickshaw,Transport,80\n" +
		"2025-05-03,Groceries again,Food,249.50\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if len(st.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(st.Rows))
	}
	first := st.Rows[0]
	if first.Date != "2025-05-01" {
		t.Errorf("Date = %q, want %q", first.Date, "2025-05-01")
	}
	if first.Description != "Grocery Store" {
		t.Errorf("Description = %q, want %q", first.Description, "Grocery Store")
	}
	if first.Category != "Food" {
		t.Errorf("Category = %q, want %q", first.Category, "Food")
	}
	if first.Amount != 1250.50 {
		t.Errorf("Amount = %v, want 1250.50", first.Amount)
	}

	if got := st.CategoryTotals["Food"]; got != 1500 {
		t.Errorf("CategoryTotals[Food] = %v, want 1500", got)
	}
	if got := st.CategoryTotals["Transport"]; got != 80 {
		t.Errorf("CategoryTotals[Transport] = %v, want 80", got)
	}
}

// TestParseCSV_MissingColumns verifies defaults apply when a column is absent.
func TestParseCSV_MissingColumns(t *testing.T) {
	input := "date,amount\n2025-05-01,100\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(st.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(st.Rows))
	}
	if st.Rows[0].Description != "Unknown" {
		t.Errorf("Description = %q, want %q", st.Rows[0].Description, "Unknown")
	}
	if st.Rows[0].Category != "Uncategorized" {
		t.Errorf("Category = %q, want %q", st.Rows[0].Category, "Uncategorized")
	}
	if got := st.CategoryTotals["Uncategorized"]; got != 100 {
		t.Errorf("CategoryTotals[Uncategorized] = %v, want 100", got)
	}
}

// TestParseCSV_EmptyCellKept verifies a present-but-empty cell does not fall
// back to the column default.
func TestParseCSV_EmptyCellKept(t *testing.T) {
	input := "date,description,category,amount\n2025-05-01,Shop,,100\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if st.Rows[0].Category != "" {
		t.Errorf("Category = %q, want empty", st.Rows[0].Category)
	}
	if got := st.CategoryTotals[""]; got != 100 {
		t.Errorf("CategoryTotals[\"\"] = %v, want 100", got)
	}
}

// TestParseCSV_BadAmount verifies unparseable amounts become 0 instead of
// failing the import.
func TestParseCSV_BadAmount(t *testing.T) {
	input := "date,description,category,amount\n2025-05-01,Shop,Misc,abc\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if st.Rows[0].Amount != 0 {
		t.Errorf("Amount = %v, want 0", st.Rows[0].Amount)
	}
}

// TestParseCSV_HeaderNormalization verifies headers match case- and
// whitespace-insensitively.
func TestParseCSV_HeaderNormalization(t *testing.T) {
	input := " Date ,DESCRIPTION, Amount\n2025-05-01,Shop,55\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if st.Rows[0].Date != "2025-05-01" {
		t.Errorf("Date = %q, want %q", st.Rows[0].Date, "2025-05-01")
	}
	if st.Rows[0].Amount != 55 {
		t.Errorf("Amount = %v, want 55", st.Rows[0].Amount)
	}
}

// TestParseCSV_BOM verifies a UTF-8 byte order mark does not corrupt the
// first header name.
func TestParseCSV_BOM(t *testing.T) {
	input := "\xEF\xBB\xBFdate,description,category,amount\n2025-05-01,Shop,Misc,10\n"

	st, err := ParseCSV([]byte(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if st.Rows[0].Date != "2025-05-01" {
		t.Errorf("Date = %q, want %q", st.Rows[0].Date, "2025-05-01")
	}
}

func TestParseCSV_Empty(t *testing.T) {
	st, err := ParseCSV(nil)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(st.Rows) != 0 {
		t.Errorf("got %d rows, want 0", len(st.Rows))
	}
	if st.CategoryTotals == nil {
		t.Error("CategoryTotals is nil, want empty map")
	}
}

// TestParseCSV_RaggedRow verifies a row with the wrong field count fails the
// whole parse.
func TestParseCSV_RaggedRow(t *testing.T) {
	input := "date,description,category,amount\n2025-05-01,Shop\n"

	if _, err := ParseCSV([]byte(input)); err == nil {
		t.Error("expected error for ragged row, got nil")
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(5<<20, 5); err != nil {
		t.Errorf("CheckSize at limit: %v", err)
	}
	err := CheckSize(5<<20+1, 5)
	if err == nil {
		t.Fatal("expected error above limit, got nil")
	}
	if !strings.Contains(err.Error(), "5MB") {
		t.Errorf("error = %q, want mention of 5MB", err)
	}
}
