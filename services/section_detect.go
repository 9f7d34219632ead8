package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRow is one spreadsheet line as extracted by the sheet reader. Row order
// is document order.
type RawRow struct {
	ItemNumber  string `json:"item_number"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UOM         string `json:"uom"`
}

// DetectedSection is a node of the inferred section hierarchy. An empty
// ParentSectionNumber marks a root (bill) section.
type DetectedSection struct {
	SectionNumber       string `json:"section_number"`
	Title               string `json:"title"`
	ParentSectionNumber string `json:"parent_section_number,omitempty"`
	Level               int    `json:"level"`
	ItemCount           int    `json:"item_count"`
	// FirstRowIndex is the row on which the section was first seen, directly
	// or through a descendant. Synthesized ancestors share their child's row.
	FirstRowIndex int  `json:"first_row_index"`
	Synthesized   bool `json:"synthesized"`
}

// ParseQuantity parses a quantity cell. Thousands separators are tolerated.
// The second result is false for blank or non-numeric cells.
func ParseQuantity(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// hasUsableQuantity reports whether the cell holds a non-zero number.
func hasUsableQuantity(quantity string) bool {
	q, ok := ParseQuantity(quantity)
	return ok && !q.IsZero()
}

// IsSectionHeaderRow reports whether a row heads a section: it carries an
// item number but neither a usable quantity nor a unit of measure.
func IsSectionHeaderRow(itemNumber, quantity, uom string) bool {
	if strings.TrimSpace(itemNumber) == "" {
		return false
	}
	if hasUsableQuantity(quantity) {
		return false
	}
	return strings.TrimSpace(uom) == ""
}

// GetParentSectionNumber returns the dot-joined parent of a section number,
// or "" for a single-segment number.
func GetParentSectionNumber(sectionNumber string) string {
	parts := splitItemNumber(strings.TrimSpace(sectionNumber))
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

// FindBestSection resolves the section that owns an item number against the
// set of known section keys. The last fallback is a best guess that may not
// be in known; callers must tolerate synthesizing it.
func FindBestSection(itemNumber string, known map[string]bool) string {
	parsed := ParseItemNumber(itemNumber)
	if !parsed.Success {
		return "1"
	}
	if parsed.Level == 1 {
		return parsed.Parts[0]
	}

	full := parsed.Key()
	if known[full] {
		return full
	}
	if known[parsed.SectionNumber] {
		return parsed.SectionNumber
	}
	if known[parsed.Parts[0]] {
		return parsed.Parts[0]
	}
	return parsed.SectionNumber
}

// sectionRegistry is the ordered accumulation of sections during detection.
type sectionRegistry struct {
	byNumber map[string]*DetectedSection
	order    []string
}

func newSectionRegistry() *sectionRegistry {
	return &sectionRegistry{byNumber: make(map[string]*DetectedSection)}
}

func (r *sectionRegistry) known() map[string]bool {
	set := make(map[string]bool, len(r.byNumber))
	for k := range r.byNumber {
		set[k] = true
	}
	return set
}

// ensure registers key and every ancestor it implies. A title supplied for an
// already-synthesized section replaces the placeholder.
func (r *sectionRegistry) ensure(key, title string, rowIndex int) *DetectedSection {
	parts := splitItemNumber(key)
	for i := 1; i < len(parts); i++ {
		ancestor := strings.Join(parts[:i], ".")
		if _, ok := r.byNumber[ancestor]; !ok {
			r.add(ancestor, "", rowIndex)
		}
	}

	if s, ok := r.byNumber[key]; ok {
		if title != "" && s.Synthesized {
			s.Title = title
			s.Synthesized = false
		}
		return s
	}
	return r.add(key, title, rowIndex)
}

func (r *sectionRegistry) add(key, title string, rowIndex int) *DetectedSection {
	s := &DetectedSection{
		SectionNumber:       key,
		Title:               title,
		ParentSectionNumber: GetParentSectionNumber(key),
		Level:               len(splitItemNumber(key)) - 1,
		FirstRowIndex:       rowIndex,
	}
	if title == "" {
		s.Title = "Section " + key
		s.Synthesized = true
	}
	r.byNumber[key] = s
	r.order = append(r.order, key)
	return s
}

func (r *sectionRegistry) sorted() []DetectedSection {
	out := make([]DetectedSection, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.byNumber[k])
	}
	SortSections(out)
	return out
}

// SortSections orders sections by level, then by natural section number.
func SortSections(sections []DetectedSection) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Level != sections[j].Level {
			return sections[i].Level < sections[j].Level
		}
		return CompareSectionNumbers(sections[i].SectionNumber, sections[j].SectionNumber) < 0
	})
}

// DetectSectionsFromRows builds the section tree implied by a sheet. Header
// rows register sections first; every other numbered row is then attributed
// to its best section, synthesizing that section if it was never declared.
func DetectSectionsFromRows(rows []RawRow) []DetectedSection {
	reg := newSectionRegistry()

	for i, row := range rows {
		if !IsSectionHeaderRow(row.ItemNumber, row.Quantity, row.UOM) {
			continue
		}
		parsed := ParseItemNumber(row.ItemNumber)
		if !parsed.Success {
			continue
		}
		reg.ensure(parsed.Key(), strings.TrimSpace(row.Description), i)
	}

	known := reg.known()
	for i, row := range rows {
		if strings.TrimSpace(row.ItemNumber) == "" {
			continue
		}
		if IsSectionHeaderRow(row.ItemNumber, row.Quantity, row.UOM) {
			continue
		}
		key := FindBestSection(row.ItemNumber, known)
		if !known[key] {
			reg.ensure(key, "", i)
			for _, p := range ancestorsAndSelf(key) {
				known[p] = true
			}
		}
		reg.byNumber[key].ItemCount++
	}

	return reg.sorted()
}

// ancestorsAndSelf lists "1", "1.2", "1.2.3" for key "1.2.3".
func ancestorsAndSelf(key string) []string {
	parts := splitItemNumber(key)
	out := make([]string, 0, len(parts))
	for i := 1; i <= len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return out
}
