package services

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data ExportData) (*excelize.File, string) {
	t.Helper()
	result, err := GenerateComparableSheetExcel(data)
	if err != nil {
		t.Fatalf("GenerateComparableSheetExcel() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateComparableSheetExcel() returned empty bytes")
	}

	f, err := excelize.OpenReader(bytesReader(result))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, f.GetSheetList()[0]
}

func TestGenerateComparableSheetExcel_Layout(t *testing.T) {
	f, sheet := openWorkbook(t, comparedExportData(t))

	if sheet != "Ring Road" {
		t.Errorf("expected sheet name 'Ring Road', got %q", sheet)
	}

	checks := map[string]string{
		"A1":  "Comparable Statement: Ring Road",
		"A2":  "Ref: RR-01",
		"E5":  "#1 Beta Infra",
		"G5":  "#2 Alpha Works",
		"E6":  "Rate",
		"F6":  "Amount",
		"I5":  "Average Rate",
		"A7":  "1.2",
		"B8":  "  Soft soil",
		"C8":  "10",
		"E8":  "₹9.00",
		"H8":  "₹100.00",
		"I8":  "₹9.50",
		"F9":  "₹180.00 (NC)",
		"F10": "₹270.00",
		"E11": "No Bid",
		"B12": "Total Earthworks",
		"D18": "Grand Total:",
		"F18": "₹360.00",
		"H18": "₹400.00",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}

	warning, _ := f.GetCellValue(sheet, "A20")
	if warning == "" {
		t.Error("expected the bidder-count warning below the totals")
	}
}

func TestGenerateComparableSheetExcel_NoBidders(t *testing.T) {
	data := ExportData{
		Title:       "Empty Comparison",
		CreatedDate: "15 Jan 2025",
		Rows:        []ExportRow{},
	}

	f, sheet := openWorkbook(t, data)
	avg, _ := f.GetCellValue(sheet, "E5")
	if avg != "Average Rate" {
		t.Errorf("E5 = %q, want the average column right after the fixed columns", avg)
	}
}

func TestGenerateComparableSheetExcel_LongTitle(t *testing.T) {
	_, sheet := openWorkbook(t, ExportData{Title: "This is a very long title that exceeds thirty one characters"})
	if len(sheet) > 31 {
		t.Errorf("sheet name exceeds 31 chars: %d", len(sheet))
	}
}

func TestGenerateComparableSheetExcel_EmptyTitle(t *testing.T) {
	_, sheet := openWorkbook(t, ExportData{})
	if sheet != "Comparable" {
		t.Errorf("expected default sheet name 'Comparable', got %q", sheet)
	}
}

func TestGenerateComparableSheetExcel_SanitizesText(t *testing.T) {
	data := ExportData{
		Title:   "Injection",
		Bidders: []string{"#1 =cmd"},
		Rows: []ExportRow{
			{Kind: RowTypeItem, Index: "1", Description: "=HYPERLINK(\"x\")", Rates: []string{""}, Amounts: []string{""}},
		},
	}
	f, sheet := openWorkbook(t, data)

	desc, _ := f.GetCellValue(sheet, "B7")
	if desc != "'=HYPERLINK(\"x\")" {
		t.Errorf("description = %q, want quoted formula", desc)
	}
}

func TestSanitizeExcelCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"normal text", "Hello", "Hello"},
		{"starts with equals", "=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"starts with plus", "+1234", "'+1234"},
		{"starts with minus", "-100", "'-100"},
		{"starts with at", "@import", "'@import"},
		{"starts with tab", "\tdata", "'\tdata"},
		{"starts with pipe", "|command", "'|command"},
		{"starts with carriage return", "\rdata", "'\rdata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeExcelCell(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeExcelCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestThinBorders(t *testing.T) {
	borders := thinBorders()
	if len(borders) != 4 {
		t.Errorf("thinBorders() returned %d borders, want 4", len(borders))
	}

	sides := map[string]bool{"left": false, "top": false, "bottom": false, "right": false}
	for _, b := range borders {
		sides[b.Type] = true
		if b.Style != 1 {
			t.Errorf("border %s style = %d, want 1 (thin)", b.Type, b.Style)
		}
	}
	for side, found := range sides {
		if !found {
			t.Errorf("missing border side: %s", side)
		}
	}
}
