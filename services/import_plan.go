package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// PlannedSection is a detected section with its persisted sort position.
type PlannedSection struct {
	DetectedSection
	SortOrder int `json:"sort_order"`
}

// PlannedItem is one BOQ row that will be stored as an item.
type PlannedItem struct {
	RowIndex         int           `json:"row_index"`
	ItemNumber       string        `json:"item_number"`
	Description      string        `json:"description"`
	Quantity         string        `json:"quantity"`
	UOM              string        `json:"uom"`
	SectionNumber    string        `json:"section_number"`
	Role             HierarchyRole `json:"role"`
	IsGroup          bool          `json:"is_group"`
	ParentItemNumber string        `json:"parent_item_number,omitempty"`
	ParentRowIndex   int           `json:"parent_row_index"`
	SortOrder        int           `json:"sort_order"`
}

// ImportWarning flags a row a reviewer should look at.
type ImportWarning struct {
	RowIndex   int    `json:"row_index"`
	ItemNumber string `json:"item_number"`
	Message    string `json:"message"`
}

// ImportPlan is everything an import would persist, plus review warnings.
type ImportPlan struct {
	BatchID   string              `json:"batch_id"`
	Sections  []PlannedSection    `json:"sections"`
	Items     []PlannedItem       `json:"items"`
	Hierarchy []ItemHierarchyInfo `json:"hierarchy"`
	Warnings  []ImportWarning     `json:"warnings"`
}

// BuildImportPlan runs section detection and row classification over the
// same rows and joins the results into sections and items to persist.
func BuildImportPlan(rows []RawRow, classifier *Classifier) ImportPlan {
	if classifier == nil {
		classifier = NewClassifier(nil, 0)
	}
	infos := classifier.Classify(rows)
	srows := sectionRows(rows, infos, classifier.Patterns)
	detected := DetectSectionsFromRows(srows)

	plan := ImportPlan{
		BatchID:   uuid.NewString(),
		Hierarchy: infos,
	}

	plan.Sections = planSections(detected, srows, infos)
	known := make(map[string]bool, len(plan.Sections))
	for _, s := range plan.Sections {
		known[s.SectionNumber] = true
	}

	itemSection := make(map[int]string)
	sortOrders := make(map[string]int)
	currentSection := ""

	for _, info := range infos {
		row := srows[info.RowIndex]
		headerLike := IsSectionHeaderRow(row.ItemNumber, row.Quantity, row.UOM)
		parsed := ParseItemNumber(row.ItemNumber)

		if headerLike && parsed.Success && known[parsed.Key()] {
			currentSection = parsed.Key()
		}

		switch info.Role {
		case RoleBillHeader:
			continue
		case RoleUnknown:
			if strings.TrimSpace(row.Quantity) != "" || strings.TrimSpace(row.UOM) != "" {
				plan.Warnings = append(plan.Warnings, ImportWarning{
					RowIndex: info.RowIndex,
					Message:  "row has a quantity or unit but no item number",
				})
			}
			continue
		case RoleStandalone:
			if headerLike {
				if !parsed.Success {
					plan.Warnings = append(plan.Warnings, ImportWarning{
						RowIndex:   info.RowIndex,
						ItemNumber: info.ItemNumber,
						Message:    "heading row skipped: " + parsed.Error,
					})
				}
				continue
			}
		}

		if !parsed.Success {
			plan.Warnings = append(plan.Warnings, ImportWarning{
				RowIndex:   info.RowIndex,
				ItemNumber: info.ItemNumber,
				Message:    parsed.Error,
			})
		}

		var section string
		if info.Role == RoleSubItem {
			section = itemSection[info.ParentRowIndex]
		} else {
			section = resolveKnownSection(info.ItemNumber, known, currentSection)
		}
		if section == "" {
			plan.Warnings = append(plan.Warnings, ImportWarning{
				RowIndex:   info.RowIndex,
				ItemNumber: info.ItemNumber,
				Message:    "no section could be resolved for this item",
			})
		}
		itemSection[info.RowIndex] = section

		plan.Items = append(plan.Items, PlannedItem{
			RowIndex:         info.RowIndex,
			ItemNumber:       info.ItemNumber,
			Description:      info.Description,
			Quantity:         strings.TrimSpace(row.Quantity),
			UOM:              strings.TrimSpace(row.UOM),
			SectionNumber:    section,
			Role:             info.Role,
			IsGroup:          info.Role == RoleGroup,
			ParentItemNumber: info.ParentItemNumber,
			ParentRowIndex:   info.ParentRowIndex,
			SortOrder:        sortOrders[section],
		})
		sortOrders[section]++
	}

	// Counts follow the plan's own assignment, sub-items included.
	for i := range plan.Sections {
		plan.Sections[i].ItemCount = sortOrders[plan.Sections[i].SectionNumber]
	}
	return plan
}

var billNumberRe = regexp.MustCompile(`(?i)bill\s*(?:no\.?|number)?\s*(\d+)`)

// sectionRows is the copy of rows that section detection works on. A bill
// header becomes a heading for its bill number: BILL NO. 1 in the item
// number column heads section 1, and a plain number there is kept. Bill
// totals and any other bill marker text lose their item number so they never
// declare a section.
func sectionRows(rows []RawRow, infos []ItemHierarchyInfo, patterns PatternSet) []RawRow {
	out := make([]RawRow, len(rows))
	copy(out, rows)
	for _, info := range infos {
		row := rows[info.RowIndex]
		if info.Role != RoleBillHeader || strings.TrimSpace(row.ItemNumber) == "" {
			continue
		}
		heading := RawRow{Description: row.Description}
		if _, ok := patterns.MatchRow(PatternBillHeader, row); ok {
			if m := billNumberRe.FindStringSubmatch(row.ItemNumber); m != nil {
				heading.ItemNumber = m[1]
			} else if ParseItemNumber(row.ItemNumber).Success {
				heading.ItemNumber = row.ItemNumber
			}
		}
		out[info.RowIndex] = heading
	}
	return out
}

// planSections keeps a detected section when a standalone item lands in it,
// when a heading row declared it without being claimed by a group, or when a
// kept section sits below it. Sections implied only by group or sub-item rows
// (a lettered sub-item reads as a one-segment number) are dropped. Kept
// sections get document-order sort positions.
func planSections(detected []DetectedSection, rows []RawRow, infos []ItemHierarchyInfo) []PlannedSection {
	known := make(map[string]bool, len(detected))
	for _, s := range detected {
		known[s.SectionNumber] = true
	}
	claimed := make(map[string]bool)
	standalone := make(map[string]int)
	for _, info := range infos {
		row := rows[info.RowIndex]
		switch info.Role {
		case RoleGroup, RoleSubItem:
			if p := ParseItemNumber(row.ItemNumber); p.Success {
				claimed[p.Key()] = true
			}
		case RoleStandalone:
			if !IsSectionHeaderRow(row.ItemNumber, row.Quantity, row.UOM) {
				standalone[FindBestSection(row.ItemNumber, known)]++
			}
		}
	}

	// detected is ordered by level, so walking it backwards visits children
	// before their parents.
	keep := make(map[string]bool, len(detected))
	for i := len(detected) - 1; i >= 0; i-- {
		s := detected[i]
		declared := !s.Synthesized && !claimed[s.SectionNumber]
		if keep[s.SectionNumber] || declared || standalone[s.SectionNumber] > 0 {
			keep[s.SectionNumber] = true
			if s.ParentSectionNumber != "" {
				keep[s.ParentSectionNumber] = true
			}
		}
	}

	kept := make([]PlannedSection, 0, len(detected))
	for _, s := range detected {
		if keep[s.SectionNumber] {
			kept = append(kept, PlannedSection{DetectedSection: s})
		}
	}

	byDocument := make([]int, len(kept))
	for i := range byDocument {
		byDocument[i] = i
	}
	sort.SliceStable(byDocument, func(a, b int) bool {
		sa, sb := kept[byDocument[a]], kept[byDocument[b]]
		if sa.FirstRowIndex != sb.FirstRowIndex {
			return sa.FirstRowIndex < sb.FirstRowIndex
		}
		return sa.Level < sb.Level
	})
	for order, idx := range byDocument {
		kept[idx].SortOrder = order
	}
	return kept
}

// resolveKnownSection maps an item number onto a section that will exist,
// walking up from the best guess and finally using the enclosing heading.
func resolveKnownSection(itemNumber string, known map[string]bool, current string) string {
	key := FindBestSection(itemNumber, known)
	for key != "" {
		if known[key] {
			return key
		}
		key = GetParentSectionNumber(key)
	}
	return current
}
