package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Fixed leading columns: #, Description, Qty, UOM.
const excelFixedColumns = 4

// Data rows start below the title block and the two header rows.
const excelFirstDataRow = 7

// GenerateComparableSheetExcel renders a comparable sheet as an Excel workbook
// and returns the file contents as a byte slice. Every bidder gets a Rate and
// an Amount column, followed by the average rate.
func GenerateComparableSheetExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Determine sheet name (max 31 chars).
	sheetName := data.Title
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}
	if sheetName == "" {
		sheetName = "Comparable"
	}

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	totalCols := excelFixedColumns + 2*len(data.Bidders) + 1
	colName := func(n int) string {
		name, _ := excelize.ColumnNumberToName(n)
		return name
	}
	cell := func(col, row int) string {
		name, _ := excelize.CoordinatesToCellName(col, row)
		return name
	}
	lastCol := colName(totalCols)

	widths := map[int]float64{1: 8, 2: 44, 3: 10, 4: 8}
	for c := 1; c <= totalCols; c++ {
		w, ok := widths[c]
		if !ok {
			w = 16
		}
		if err := f.SetColWidth(sheetName, colName(c), colName(c), w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", colName(c), err)
		}
	}

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	warningStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Italic: true, Size: 11, Color: "#B00020"},
	})
	if err != nil {
		return nil, fmt.Errorf("create warning style: %w", err)
	}

	// Column header style: bold, white text, charcoal background, centered.
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	itemStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create item style: %w", err)
	}

	groupStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create group style: %w", err)
	}

	subtotalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 10},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F0F0F0"}, Pattern: 1},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create subtotal style: %w", err)
	}

	billTotalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 10},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create bill total style: %w", err)
	}

	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell("Comparable Statement: "+data.Title))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	if data.ReferenceNumber != "" {
		if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
			return nil, fmt.Errorf("merge ref: %w", err)
		}
		f.SetCellValue(sheetName, "A2", sanitizeExcelCell("Ref: "+data.ReferenceNumber))
		f.SetCellStyle(sheetName, "A2", lastCol+"2", subtitleStyle)
	}

	if err := f.MergeCell(sheetName, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Date: %s   Pricing level: %s", data.CreatedDate, data.PricingLevel))
	f.SetCellStyle(sheetName, "A3", lastCol+"3", subtitleStyle)

	// ── Rows 5-6: Column Headers ────────────────────────────────────────

	for i, h := range []string{"#", "Description", "Qty", "UOM"} {
		if err := f.MergeCell(sheetName, cell(i+1, 5), cell(i+1, 6)); err != nil {
			return nil, fmt.Errorf("merge header %s: %w", h, err)
		}
		f.SetCellValue(sheetName, cell(i+1, 5), h)
	}
	for i, name := range data.Bidders {
		rateCol := excelFixedColumns + 1 + 2*i
		if err := f.MergeCell(sheetName, cell(rateCol, 5), cell(rateCol+1, 5)); err != nil {
			return nil, fmt.Errorf("merge bidder header: %w", err)
		}
		f.SetCellValue(sheetName, cell(rateCol, 5), sanitizeExcelCell(name))
		f.SetCellValue(sheetName, cell(rateCol, 6), "Rate")
		f.SetCellValue(sheetName, cell(rateCol+1, 6), "Amount")
	}
	if err := f.MergeCell(sheetName, cell(totalCols, 5), cell(totalCols, 6)); err != nil {
		return nil, fmt.Errorf("merge average header: %w", err)
	}
	f.SetCellValue(sheetName, cell(totalCols, 5), "Average Rate")
	f.SetCellStyle(sheetName, "A5", cell(totalCols, 6), headerStyle)

	// ── Data Rows ───────────────────────────────────────────────────────

	row := excelFirstDataRow
	for _, r := range data.Rows {
		desc := r.Description
		if r.Indent > 0 {
			desc = "  " + desc
		}
		f.SetCellValue(sheetName, cell(1, row), sanitizeExcelCell(r.Index))
		f.SetCellValue(sheetName, cell(2, row), sanitizeExcelCell(desc))
		f.SetCellValue(sheetName, cell(3, row), r.Qty)
		f.SetCellValue(sheetName, cell(4, row), sanitizeExcelCell(r.UOM))
		for i := range data.Bidders {
			rateCol := excelFixedColumns + 1 + 2*i
			if i < len(r.Rates) {
				f.SetCellValue(sheetName, cell(rateCol, row), r.Rates[i])
				f.SetCellValue(sheetName, cell(rateCol+1, row), r.Amounts[i])
			}
		}
		f.SetCellValue(sheetName, cell(totalCols, row), r.AverageRate)

		style := itemStyle
		switch r.Kind {
		case RowTypeItemGroupHeader:
			style = groupStyle
		case RowTypeItemSubtotal:
			style = subtotalStyle
		case RowTypeBillSubtotal:
			style = billTotalStyle
		}
		f.SetCellStyle(sheetName, cell(1, row), cell(totalCols, row), style)
		row++
	}

	// ── Summary Rows ────────────────────────────────────────────────────

	row++
	f.SetCellValue(sheetName, cell(4, row), "Grand Total:")
	f.SetCellStyle(sheetName, cell(4, row), cell(4, row), summaryLabelStyle)
	for i, total := range data.GrandTotals {
		amountCell := cell(excelFixedColumns+2+2*i, row)
		f.SetCellValue(sheetName, amountCell, total)
		f.SetCellStyle(sheetName, amountCell, amountCell, billTotalStyle)
	}

	for _, w := range data.Warnings {
		row += 2
		if err := f.MergeCell(sheetName, cell(1, row), cell(totalCols, row)); err != nil {
			return nil, fmt.Errorf("merge warning: %w", err)
		}
		f.SetCellValue(sheetName, cell(1, row), sanitizeExcelCell(w))
		f.SetCellStyle(sheetName, cell(1, row), cell(totalCols, row), warningStyle)
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      excelFirstDataRow - 1,
		TopLeftCell: cell(3, excelFirstDataRow),
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
