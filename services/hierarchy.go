package services

import (
	"strings"
)

// HierarchyRole is the structural role of one BOQ row.
type HierarchyRole string

const (
	RoleBillHeader HierarchyRole = "bill_header"
	RoleGroup      HierarchyRole = "group"
	RoleSubItem    HierarchyRole = "sub_item"
	RoleStandalone HierarchyRole = "standalone"
	RoleUnknown    HierarchyRole = "unknown"
)

// DefaultLookaheadWindow is how many rows past a candidate group are scanned
// for a confirming sub-item.
const DefaultLookaheadWindow = 15

// ItemHierarchyInfo is the classification of one row. ParentItemNumber and
// ParentRowIndex are set only for sub-items; ParentRowIndex is -1 otherwise.
type ItemHierarchyInfo struct {
	RowIndex         int           `json:"row_index"`
	ItemNumber       string        `json:"item_number"`
	Role             HierarchyRole `json:"role"`
	ParentItemNumber string        `json:"parent_item_number,omitempty"`
	ParentRowIndex   int           `json:"parent_row_index"`
	Description      string        `json:"description"`
	MatchedPattern   string        `json:"matched_pattern,omitempty"`
}

// Classifier assigns hierarchy roles to BOQ rows.
type Classifier struct {
	Patterns        PatternSet
	LookaheadWindow int
}

// NewClassifier returns a classifier over the given pattern table. A
// non-positive window selects DefaultLookaheadWindow.
func NewClassifier(patterns PatternSet, window int) *Classifier {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	if window <= 0 {
		window = DefaultLookaheadWindow
	}
	return &Classifier{Patterns: patterns, LookaheadWindow: window}
}

// Classify classifies rows with the built-in patterns.
func Classify(rows []RawRow) []ItemHierarchyInfo {
	return NewClassifier(nil, 0).Classify(rows)
}

// IsSubItemOf reports whether candidate reads as a sub-item of the group
// numbered parent, using the built-in patterns.
func IsSubItemOf(candidate, parent string) bool {
	return NewClassifier(nil, 0).IsSubItemOf(candidate, parent)
}

// groupContext is the open group while walking the sheet. nil means none.
type groupContext struct {
	itemNumber string
	rowIndex   int
}

// Classify walks the rows once, threading the open group through each step,
// then downgrades groups that collected no children.
func (c *Classifier) Classify(rows []RawRow) []ItemHierarchyInfo {
	out := make([]ItemHierarchyInfo, 0, len(rows))
	var ctx *groupContext
	for i := range rows {
		var info ItemHierarchyInfo
		info, ctx = c.step(rows, i, ctx)
		out = append(out, info)
	}
	return downgradeChildlessGroups(out)
}

func (c *Classifier) step(rows []RawRow, i int, ctx *groupContext) (ItemHierarchyInfo, *groupContext) {
	row := rows[i]
	info := ItemHierarchyInfo{
		RowIndex:       i,
		ItemNumber:     strings.TrimSpace(row.ItemNumber),
		Description:    strings.TrimSpace(row.Description),
		ParentRowIndex: -1,
	}
	if !isPricedRow(row) {
		if p, ok := c.Patterns.MatchRow(PatternBillHeader, row); ok {
			info.Role = RoleBillHeader
			info.MatchedPattern = p.Name
			return info, nil
		}
		// A bill total closes the bill like a header does and is reported as one.
		if p, ok := c.Patterns.MatchRow(PatternBillTotal, row); ok {
			info.Role = RoleBillHeader
			info.MatchedPattern = p.Name
			return info, nil
		}
	}

	if info.ItemNumber == "" {
		info.Role = RoleUnknown
		return info, ctx
	}

	if ctx != nil {
		if c.IsSubItemOf(info.ItemNumber, ctx.itemNumber) {
			info.Role = RoleSubItem
			info.ParentItemNumber = ctx.itemNumber
			info.ParentRowIndex = ctx.rowIndex
			return info, ctx
		}
		ctx = nil
	}

	if !hasUsableQuantity(row.Quantity) && strings.TrimSpace(row.UOM) == "" {
		parsed := ParseItemNumber(info.ItemNumber)
		if parsed.Success && c.HasPotentialSubItems(rows, i, info.ItemNumber) {
			info.Role = RoleGroup
			return info, &groupContext{itemNumber: info.ItemNumber, rowIndex: i}
		}
	}

	info.Role = RoleStandalone
	return info, nil
}

// IsSubItemOf reports whether candidate is a sub-item of the group numbered
// parent: a lone letter, a short code such as F1 or EFS-14, or a dotted
// parent's number followed directly by digits (9.11 under 9.1). A further
// separator (9.1.1) implies a deeper level and does not count, and a
// one-segment parent takes no digit suffixes (10 is not under 1).
func (c *Classifier) IsSubItemOf(candidate, parent string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	if _, ok := c.Patterns.MatchRow(PatternSubItemCode, RawRow{ItemNumber: candidate}); ok {
		return true
	}

	nc := normalizeSeparators(strings.ReplaceAll(candidate, " ", ""))
	np := normalizeSeparators(strings.ReplaceAll(strings.TrimSpace(parent), " ", ""))
	if len(splitItemNumber(np)) < 2 || !strings.HasPrefix(nc, np) {
		return false
	}
	return isAllDigits(nc[len(np):])
}

// HasPotentialSubItems scans the rows after groupIndex for a sub-item of
// groupNumber. A numbered row that is neither a sub-item nor a section header
// ends the search, as does a bill marker.
func (c *Classifier) HasPotentialSubItems(rows []RawRow, groupIndex int, groupNumber string) bool {
	end := groupIndex + c.LookaheadWindow
	for j := groupIndex + 1; j < len(rows) && j <= end; j++ {
		row := rows[j]
		if c.isBillMarker(row) {
			return false
		}
		item := strings.TrimSpace(row.ItemNumber)
		if item == "" {
			continue
		}
		if c.IsSubItemOf(item, groupNumber) {
			return true
		}
		if ParseItemNumber(item).Success && !IsSectionHeaderRow(row.ItemNumber, row.Quantity, row.UOM) {
			return false
		}
	}
	return false
}

// isPricedRow reports whether a row carries both a quantity and a unit.
// Priced rows are never bill markers.
func isPricedRow(row RawRow) bool {
	return hasUsableQuantity(row.Quantity) && strings.TrimSpace(row.UOM) != ""
}

func (c *Classifier) isBillMarker(row RawRow) bool {
	if isPricedRow(row) {
		return false
	}
	if _, ok := c.Patterns.MatchRow(PatternBillHeader, row); ok {
		return true
	}
	_, ok := c.Patterns.MatchRow(PatternBillTotal, row)
	return ok
}

// downgradeChildlessGroups turns every group that no sub-item points at into
// a standalone item.
func downgradeChildlessGroups(infos []ItemHierarchyInfo) []ItemHierarchyInfo {
	hasChild := make(map[int]bool)
	for _, info := range infos {
		if info.Role == RoleSubItem {
			hasChild[info.ParentRowIndex] = true
		}
	}
	for i := range infos {
		if infos[i].Role == RoleGroup && !hasChild[infos[i].RowIndex] {
			infos[i].Role = RoleStandalone
		}
	}
	return infos
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
