package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// PocketBaseTenderStore reads tender snapshots from the PocketBase collections.
type PocketBaseTenderStore struct {
	app core.App
}

func NewPocketBaseTenderStore(app core.App) *PocketBaseTenderStore {
	return &PocketBaseTenderStore{app: app}
}

// FindTender loads a tender record, mapping a missing row to ErrTenderNotFound.
func FindTender(app core.App, tenderID string) (*core.Record, error) {
	if strings.TrimSpace(tenderID) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrTenderNotFound)
	}
	rec, err := app.FindRecordById("tenders", tenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, tenderID)
		}
		return nil, fmt.Errorf("load tender %s: %w", tenderID, err)
	}
	return rec, nil
}

// parseNullDecimal reads a decimal text field; blank or malformed is absent.
func parseNullDecimal(s string) decimal.NullDecimal {
	d, ok := ParseQuantity(s)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// LoadTenderSnapshot reads the tender, its BOQ tree, submissions and pricing.
// Items come back grouped by section sort order, then item sort order.
func (s *PocketBaseTenderStore) LoadTenderSnapshot(tenderID string) (*TenderSnapshot, error) {
	tenderRec, err := FindTender(s.app, tenderID)
	if err != nil {
		return nil, err
	}

	level, err := ParsePricingLevel(tenderRec.GetString("pricing_level"))
	if err != nil {
		level = PricingLevelItem
	}
	snap := &TenderSnapshot{
		Tender: Tender{
			ID:              tenderRec.Id,
			Title:           tenderRec.GetString("title"),
			ReferenceNumber: tenderRec.GetString("reference_number"),
			PricingLevel:    level,
			Currency:        tenderRec.GetString("currency"),
		},
	}
	params := map[string]any{"tenderId": tenderID}

	sectionRecs, err := s.app.FindRecordsByFilter("boq_sections", "tender = {:tenderId}", "sort_order", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	sectionOrder := make(map[string]int, len(sectionRecs))
	for i, r := range sectionRecs {
		sectionOrder[r.Id] = i
		snap.Sections = append(snap.Sections, Section{
			ID:            r.Id,
			SectionNumber: r.GetString("section_number"),
			Title:         r.GetString("title"),
			ParentID:      r.GetString("parent_section"),
			Level:         r.GetInt("level"),
			SortOrder:     r.GetInt("sort_order"),
		})
	}

	itemRecs, err := s.app.FindRecordsByFilter("boq_items", "tender = {:tenderId}", "sort_order", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	for _, r := range itemRecs {
		snap.Items = append(snap.Items, Item{
			ID:           r.Id,
			SectionID:    r.GetString("section"),
			ItemNumber:   r.GetString("item_number"),
			Description:  r.GetString("description"),
			Quantity:     parseNullDecimal(r.GetString("quantity")),
			UOM:          r.GetString("uom"),
			ParentItemID: r.GetString("parent_item"),
			IsGroup:      r.GetBool("is_group"),
			SortOrder:    r.GetInt("sort_order"),
		})
	}
	// Items without a known section sort after every section.
	rank := func(sectionID string) int {
		if o, ok := sectionOrder[sectionID]; ok {
			return o
		}
		return len(sectionOrder)
	}
	sort.SliceStable(snap.Items, func(i, j int) bool {
		ri, rj := rank(snap.Items[i].SectionID), rank(snap.Items[j].SectionID)
		if ri != rj {
			return ri < rj
		}
		return snap.Items[i].SortOrder < snap.Items[j].SortOrder
	})

	subRecs, err := s.app.FindRecordsByFilter("bid_submissions", "tender = {:tenderId}", "created", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	if errs := s.app.ExpandRecords(subRecs, []string{"bidder"}, nil); len(errs) > 0 {
		for key, expandErr := range errs {
			return nil, fmt.Errorf("expand submission %s: %w", key, expandErr)
		}
	}
	for _, r := range subRecs {
		sub := BidSubmission{
			ID:       r.Id,
			BidderID: r.GetString("bidder"),
			Status:   r.GetString("status"),
		}
		if bidder := r.ExpandedOne("bidder"); bidder != nil {
			sub.BidderName = bidder.GetString("name")
		}
		snap.Submissions = append(snap.Submissions, sub)
	}

	pricingRecs, err := s.app.FindRecordsByFilter("bid_pricing", "bid_submission.tender = {:tenderId}", "", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("load pricing: %w", err)
	}
	for _, r := range pricingRecs {
		snap.Pricing = append(snap.Pricing, BidPricing{
			ID:                r.Id,
			BidSubmissionID:   r.GetString("bid_submission"),
			ItemID:            r.GetString("boq_item"),
			SectionID:         r.GetString("boq_section"),
			UnitRate:          parseNullDecimal(r.GetString("unit_rate")),
			Amount:            parseNullDecimal(r.GetString("amount")),
			NormalizedAmount:  parseNullDecimal(r.GetString("normalized_amount")),
			IsIncludedInTotal: r.GetBool("is_included_in_total"),
			IsNoBid:           r.GetBool("is_no_bid"),
			IsNonComparable:   r.GetBool("is_non_comparable"),
		})
	}

	return snap, nil
}

// ImportSummary reports what SaveImportPlan wrote.
type ImportSummary struct {
	TenderID string `json:"tender_id"`
	BatchID  string `json:"batch_id"`
	Sections int    `json:"sections"`
	Items    int    `json:"items"`
	Warnings int    `json:"warnings"`
}

// SaveImportPlan replaces the tender's sections and items with the plan in a
// single transaction. Pricing attached to the replaced items is removed with
// them.
func SaveImportPlan(app core.App, tenderID string, plan ImportPlan) (ImportSummary, error) {
	summary := ImportSummary{TenderID: tenderID, BatchID: plan.BatchID, Warnings: len(plan.Warnings)}

	err := app.RunInTransaction(func(txApp core.App) error {
		if _, err := FindTender(txApp, tenderID); err != nil {
			return err
		}
		params := map[string]any{"tenderId": tenderID}

		oldItems, err := txApp.FindRecordsByFilter("boq_items", "tender = {:tenderId}", "", 0, 0, params)
		if err != nil {
			return fmt.Errorf("query existing items: %w", err)
		}
		for _, r := range oldItems {
			if err := txApp.Delete(r); err != nil {
				return fmt.Errorf("delete item %s: %w", r.Id, err)
			}
		}
		oldSections, err := txApp.FindRecordsByFilter("boq_sections", "tender = {:tenderId}", "-level", 0, 0, params)
		if err != nil {
			return fmt.Errorf("query existing sections: %w", err)
		}
		for _, r := range oldSections {
			if err := txApp.Delete(r); err != nil {
				return fmt.Errorf("delete section %s: %w", r.Id, err)
			}
		}

		sectionsCol, err := txApp.FindCollectionByNameOrId("boq_sections")
		if err != nil {
			return fmt.Errorf("collection not found: %w", err)
		}
		itemsCol, err := txApp.FindCollectionByNameOrId("boq_items")
		if err != nil {
			return fmt.Errorf("collection not found: %w", err)
		}

		// Plan sections are ordered by level, so parents are saved first.
		sectionIDs := make(map[string]string, len(plan.Sections))
		for _, s := range plan.Sections {
			rec := core.NewRecord(sectionsCol)
			rec.Set("tender", tenderID)
			rec.Set("section_number", s.SectionNumber)
			rec.Set("title", s.Title)
			rec.Set("parent_section", sectionIDs[s.ParentSectionNumber])
			rec.Set("level", s.Level)
			rec.Set("sort_order", s.SortOrder)
			rec.Set("item_count", s.ItemCount)
			rec.Set("import_batch", plan.BatchID)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save section %s: %w", s.SectionNumber, err)
			}
			sectionIDs[s.SectionNumber] = rec.Id
		}

		// Groups precede their sub-items in document order.
		itemIDs := make(map[int]string, len(plan.Items))
		for _, it := range plan.Items {
			rec := core.NewRecord(itemsCol)
			rec.Set("tender", tenderID)
			rec.Set("section", sectionIDs[it.SectionNumber])
			rec.Set("item_number", it.ItemNumber)
			rec.Set("description", it.Description)
			rec.Set("quantity", it.Quantity)
			rec.Set("uom", it.UOM)
			rec.Set("parent_item", itemIDs[it.ParentRowIndex])
			rec.Set("is_group", it.IsGroup)
			rec.Set("hierarchy_role", string(it.Role))
			rec.Set("sort_order", it.SortOrder)
			rec.Set("import_batch", plan.BatchID)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save item row %d: %w", it.RowIndex, err)
			}
			itemIDs[it.RowIndex] = rec.Id
		}

		summary.Sections = len(plan.Sections)
		summary.Items = len(plan.Items)
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}
