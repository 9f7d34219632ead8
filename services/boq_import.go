package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/xuri/excelize/v2"
)

// BOQColumn names a column the importer needs from a BOQ sheet.
type BOQColumn string

const (
	ColItemNumber  BOQColumn = "item_number"
	ColDescription BOQColumn = "description"
	ColQuantity    BOQColumn = "quantity"
	ColUOM         BOQColumn = "uom"
)

// headerScanLimit is how many leading rows are searched for the header row.
const headerScanLimit = 20

// ErrNoHeaderRow is returned when no row looks like a BOQ header.
var ErrNoHeaderRow = errors.New("no BOQ header row found (need item number and description columns)")

// ColumnPattern maps header text to a BOQ column at a confidence tier.
type ColumnPattern struct {
	Column     BOQColumn
	Confidence Confidence
	Re         *regexp.Regexp
	// Exclude rejects headers that match Re but name something else ("Unit Rate").
	Exclude *regexp.Regexp
}

var pricingHeaderRe = regexp.MustCompile(`rate|price|amount|total|cost`)

// columnPatterns is ordered high tier first.
var columnPatterns = []ColumnPattern{
	{Column: ColItemNumber, Confidence: ConfidenceHigh, Re: regexp.MustCompile(`^(item|s\.?\s*no|sr\.?\s*no|sl\.?\s*no|ref|no)\.?\s*(no\.?|number|#)?$`)},
	{Column: ColDescription, Confidence: ConfidenceHigh, Re: regexp.MustCompile(`^(item\s+)?(description|particulars)(\s+of\s+(work|items?))?$`)},
	{Column: ColQuantity, Confidence: ConfidenceHigh, Re: regexp.MustCompile(`^(qty|qnty|quantity|quantities)\.?$`)},
	{Column: ColUOM, Confidence: ConfidenceHigh, Re: regexp.MustCompile(`^(uom|u/m|unit|units|unit of measure(ment)?)\.?$`)},
	{Column: ColItemNumber, Confidence: ConfidenceMedium, Re: regexp.MustCompile(`item\s*(no|number|#|code)|\bref(erence)?\b`)},
	{Column: ColDescription, Confidence: ConfidenceMedium, Re: regexp.MustCompile(`descr|particular|specification|scope`)},
	{Column: ColQuantity, Confidence: ConfidenceMedium, Re: regexp.MustCompile(`qty|quantit`), Exclude: pricingHeaderRe},
	{Column: ColUOM, Confidence: ConfidenceMedium, Re: regexp.MustCompile(`\bunits?\b|uom`), Exclude: pricingHeaderRe},
}

// fuzzyColumnKeywords drive the last-resort fuzzy match.
var fuzzyColumnKeywords = []struct {
	Column  BOQColumn
	Keyword string
}{
	{ColItemNumber, "item"},
	{ColDescription, "description"},
	{ColQuantity, "qty"},
	{ColUOM, "unit"},
}

// ColumnMapping records which sheet column feeds each BOQ column.
type ColumnMapping struct {
	HeaderRow  int                      `json:"header_row"`
	Columns    map[BOQColumn]int        `json:"columns"`
	Confidence map[BOQColumn]Confidence `json:"confidence"`
	Headers    []string                 `json:"headers"`
}

// Complete reports whether the item number and description columns are known
// and at least one of them was matched by pattern rather than fuzzily.
func (m ColumnMapping) Complete() bool {
	_, item := m.Columns[ColItemNumber]
	_, desc := m.Columns[ColDescription]
	if !item || !desc {
		return false
	}
	return m.Confidence[ColItemNumber] != ConfidenceLow || m.Confidence[ColDescription] != ConfidenceLow
}

func normalizeHeader(h string) string {
	h = segmentFolder.String(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, "*")
	return strings.Join(strings.Fields(h), " ")
}

// DetectColumnMapping maps header cells to BOQ columns using the pattern
// table, falling back to fuzzy matching for columns still unmapped.
func DetectColumnMapping(headers []string) ColumnMapping {
	m := ColumnMapping{
		Columns:    make(map[BOQColumn]int),
		Confidence: make(map[BOQColumn]Confidence),
		Headers:    headers,
	}
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	taken := make(map[int]bool)

	for _, p := range columnPatterns {
		if _, done := m.Columns[p.Column]; done {
			continue
		}
		for i, h := range normalized {
			if h == "" || taken[i] || !p.Re.MatchString(h) {
				continue
			}
			if p.Exclude != nil && p.Exclude.MatchString(h) {
				continue
			}
			m.Columns[p.Column] = i
			m.Confidence[p.Column] = p.Confidence
			taken[i] = true
			break
		}
	}

	for _, kw := range fuzzyColumnKeywords {
		if _, done := m.Columns[kw.Column]; done {
			continue
		}
		for _, match := range fuzzy.Find(kw.Keyword, normalized) {
			if taken[match.Index] || pricingHeaderRe.MatchString(match.Str) {
				continue
			}
			m.Columns[kw.Column] = match.Index
			m.Confidence[kw.Column] = ConfidenceLow
			taken[match.Index] = true
			break
		}
	}
	return m
}

// ReadBOQRows reads a BOQ sheet (.xlsx or .csv) into raw rows. For workbooks
// the named sheet is used, or the first sheet when sheetName is empty.
func ReadBOQRows(r io.Reader, fileName, sheetName string) ([]RawRow, ColumnMapping, error) {
	var grid [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		grid, err = readCSVGrid(r)
	case strings.HasSuffix(lowerName, ".xlsx"), strings.HasSuffix(lowerName, ".xlsm"):
		grid, err = readExcelGrid(r, sheetName)
	default:
		return nil, ColumnMapping{}, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, ColumnMapping{}, err
	}
	return RowsFromGrid(grid)
}

// RowsFromGrid locates the header row in a cell grid and extracts raw rows
// below it. Entirely blank rows are dropped.
func RowsFromGrid(grid [][]string) ([]RawRow, ColumnMapping, error) {
	var mapping ColumnMapping
	found := false
	for i := 0; i < len(grid) && i < headerScanLimit; i++ {
		m := DetectColumnMapping(grid[i])
		if m.Complete() {
			m.HeaderRow = i
			mapping = m
			found = true
			break
		}
	}
	if !found {
		return nil, ColumnMapping{}, ErrNoHeaderRow
	}

	cell := func(row []string, col BOQColumn) string {
		idx, ok := mapping.Columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rows := make([]RawRow, 0, len(grid)-mapping.HeaderRow-1)
	for _, line := range grid[mapping.HeaderRow+1:] {
		raw := RawRow{
			ItemNumber:  cell(line, ColItemNumber),
			Description: cell(line, ColDescription),
			Quantity:    cell(line, ColQuantity),
			UOM:         cell(line, ColUOM),
		}
		if raw == (RawRow{}) {
			continue
		}
		rows = append(rows, raw)
	}
	return rows, mapping, nil
}

func readCSVGrid(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return grid, nil
}

func readExcelGrid(r io.Reader, sheetName string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return grid, nil
}
