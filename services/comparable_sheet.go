package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultMinBidders is the bidder count below which a comparison is flagged.
const DefaultMinBidders = 3

// RowType tags a comparable sheet row.
type RowType string

const (
	RowTypeItem            RowType = "item"
	RowTypeItemGroupHeader RowType = "item_group_header"
	RowTypeItemSubtotal    RowType = "item_subtotal"
	RowTypeBillSubtotal    RowType = "bill_subtotal"
)

type ComparableSheetOptions struct {
	// MinBidders overrides the aggregator's warning threshold when positive.
	MinBidders int
	// BidSubmissionIDs restricts the sheet to these bids when non-empty.
	BidSubmissionIDs []string
}

type ComparableBidder struct {
	BidSubmissionID string          `json:"bid_submission_id"`
	BidderID        string          `json:"bidder_id"`
	BidderName      string          `json:"bidder_name"`
	Rank            int             `json:"rank"`
	Total           decimal.Decimal `json:"total"`
}

// BidderCell is one bidder's entry on a row. On synthesized rows only Amount
// is set.
type BidderCell struct {
	Rate            decimal.NullDecimal `json:"rate"`
	Amount          decimal.NullDecimal `json:"amount"`
	IsNoBid         bool                `json:"is_no_bid"`
	IsNonComparable bool                `json:"is_non_comparable"`
}

// ComparableSheetItemRow is one row of the sheet. Cells align with
// ComparableSheet.Bidders.
type ComparableSheetItemRow struct {
	RowType       RowType             `json:"row_type"`
	NodeID        string              `json:"node_id,omitempty"`
	ItemNumber    string              `json:"item_number"`
	Description   string              `json:"description"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	UOM           string              `json:"uom,omitempty"`
	SectionID     string              `json:"section_id,omitempty"`
	SectionNumber string              `json:"section_number,omitempty"`
	ParentItemID  string              `json:"parent_item_id,omitempty"`
	Cells         []BidderCell        `json:"cells"`
	AverageRate   decimal.NullDecimal `json:"average_rate"`
}

type SectionTotal struct {
	SectionID     string            `json:"section_id"`
	SectionNumber string            `json:"section_number"`
	Title         string            `json:"title"`
	Totals        []decimal.Decimal `json:"totals"`
}

type ComparableSheet struct {
	TenderID        string                   `json:"tender_id"`
	TenderTitle     string                   `json:"tender_title"`
	ReferenceNumber string                   `json:"reference_number"`
	Currency        string                   `json:"currency"`
	PricingLevel    PricingLevel             `json:"pricing_level"`
	Bidders         []ComparableBidder       `json:"bidders"`
	Rows            []ComparableSheetItemRow `json:"rows"`
	SectionTotals   []SectionTotal           `json:"section_totals"`
	GrandTotals     []decimal.Decimal        `json:"grand_totals"`
	Warnings        []string                 `json:"warnings"`
}

// sheetBuilder carries the lookups shared by the per-level row builders.
type sheetBuilder struct {
	snap    *TenderSnapshot
	sheet   *ComparableSheet
	pricing []map[string]BidPricing // per bidder, keyed by item or section id
	section map[string]Section
}

// BuildComparableSheet assembles the bidder comparison for a snapshot.
func BuildComparableSheet(snap *TenderSnapshot, opts ComparableSheetOptions) *ComparableSheet {
	if opts.MinBidders <= 0 {
		opts.MinBidders = DefaultMinBidders
	}
	sheet := &ComparableSheet{
		TenderID:        snap.Tender.ID,
		TenderTitle:     snap.Tender.Title,
		ReferenceNumber: snap.Tender.ReferenceNumber,
		Currency:        snap.Tender.Currency,
		PricingLevel:    snap.Tender.PricingLevel,
		Bidders:         rankBidders(snap, opts.BidSubmissionIDs),
		Rows:            []ComparableSheetItemRow{},
		SectionTotals:   []SectionTotal{},
		Warnings:        []string{},
	}

	b := &sheetBuilder{
		snap:    snap,
		sheet:   sheet,
		section: make(map[string]Section, len(snap.Sections)),
	}
	for _, sec := range snap.Sections {
		b.section[sec.ID] = sec
	}
	for _, bidder := range sheet.Bidders {
		byNode := make(map[string]BidPricing)
		for _, p := range snap.bidPricing(bidder.BidSubmissionID) {
			key := p.ItemID
			if key == "" {
				key = p.SectionID
			}
			if _, dup := byNode[key]; !dup {
				byNode[key] = p
			}
		}
		b.pricing = append(b.pricing, byNode)
	}

	switch snap.Tender.PricingLevel {
	case PricingLevelBill:
		b.buildBillRows()
	case PricingLevelItem:
		b.buildItemRows()
	case PricingLevelSubItem:
		b.buildSubItemRows()
	}

	sheet.GrandTotals = make([]decimal.Decimal, len(sheet.Bidders))
	for i, bidder := range sheet.Bidders {
		sheet.GrandTotals[i] = bidder.Total
	}

	if n := len(sheet.Bidders); n < opts.MinBidders {
		sheet.Warnings = append(sheet.Warnings, fmt.Sprintf(
			"Only %d bidder(s) available; at least %d are needed for a valid commercial comparison", n, opts.MinBidders))
	}
	return sheet
}

// rankBidders keeps imported submissions and orders them by total, lowest
// first. Ties keep bidder name order.
func rankBidders(snap *TenderSnapshot, only []string) []ComparableBidder {
	allowed := make(map[string]bool, len(only))
	for _, id := range only {
		allowed[id] = true
	}

	bidders := []ComparableBidder{}
	for _, sub := range snap.Submissions {
		if sub.Status != BidStatusImported {
			continue
		}
		if len(allowed) > 0 && !allowed[sub.ID] {
			continue
		}
		bidders = append(bidders, ComparableBidder{
			BidSubmissionID: sub.ID,
			BidderID:        sub.BidderID,
			BidderName:      sub.BidderName,
			Total:           snap.GrandTotal(sub.ID),
		})
	}
	sort.SliceStable(bidders, func(i, j int) bool {
		if c := bidders[i].Total.Cmp(bidders[j].Total); c != 0 {
			return c < 0
		}
		return bidders[i].BidderName < bidders[j].BidderName
	})
	for i := range bidders {
		bidders[i].Rank = i + 1
	}
	return bidders
}

// cellsFor builds the bidder cells of a priced node. A bidder without a
// pricing row is a no-bid.
func (b *sheetBuilder) cellsFor(nodeID string) ([]BidderCell, decimal.NullDecimal) {
	cells := make([]BidderCell, len(b.pricing))
	rateSum := decimal.Zero
	rated := 0
	for i, byNode := range b.pricing {
		p, ok := byNode[nodeID]
		if !ok {
			cells[i] = BidderCell{IsNoBid: true}
			continue
		}
		cells[i] = BidderCell{
			Rate:            p.UnitRate,
			Amount:          p.NormalizedAmount,
			IsNoBid:         p.IsNoBid,
			IsNonComparable: p.IsNonComparable,
		}
		if !p.IsNoBid && !p.IsNonComparable && p.UnitRate.Valid {
			rateSum = rateSum.Add(p.UnitRate.Decimal)
			rated++
		}
	}
	if rated == 0 {
		return cells, decimal.NullDecimal{}
	}
	return cells, decimal.NewNullDecimal(rateSum.DivRound(decimal.NewFromInt(int64(rated)), 4))
}

// includedAmounts returns, per bidder, what a node adds to subtotals.
func (b *sheetBuilder) includedAmounts(nodeID string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(b.pricing))
	for i, byNode := range b.pricing {
		if p, ok := byNode[nodeID]; ok && p.IsIncludedInTotal {
			out[i] = p.normalized()
		}
	}
	return out
}

func addInto(acc, v []decimal.Decimal) {
	for i := range acc {
		acc[i] = acc[i].Add(v[i])
	}
}

func (b *sheetBuilder) zeros() []decimal.Decimal {
	out := make([]decimal.Decimal, len(b.pricing))
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}

func amountCells(amounts []decimal.Decimal) []BidderCell {
	cells := make([]BidderCell, len(amounts))
	for i, a := range amounts {
		cells[i] = BidderCell{Amount: decimal.NewNullDecimal(a)}
	}
	return cells
}

func (b *sheetBuilder) itemRow(it Item) ComparableSheetItemRow {
	cells, avg := b.cellsFor(it.ID)
	sec := b.section[it.SectionID]
	return ComparableSheetItemRow{
		RowType:       RowTypeItem,
		NodeID:        it.ID,
		ItemNumber:    it.ItemNumber,
		Description:   it.Description,
		Quantity:      it.Quantity,
		UOM:           it.UOM,
		SectionID:     it.SectionID,
		SectionNumber: sec.SectionNumber,
		ParentItemID:  it.ParentItemID,
		Cells:         cells,
		AverageRate:   avg,
	}
}

// closeSection appends the bill_subtotal row and records the section total.
func (b *sheetBuilder) closeSection(sectionID string, totals []decimal.Decimal) {
	sec, ok := b.section[sectionID]
	title := sec.Title
	if !ok {
		title = unassignedBillTitle
	}
	b.sheet.Rows = append(b.sheet.Rows, ComparableSheetItemRow{
		RowType:       RowTypeBillSubtotal,
		ItemNumber:    sec.SectionNumber,
		Description:   "Total " + title,
		SectionID:     sectionID,
		SectionNumber: sec.SectionNumber,
		Cells:         amountCells(totals),
	})
	b.sheet.SectionTotals = append(b.sheet.SectionTotals, SectionTotal{
		SectionID:     sectionID,
		SectionNumber: sec.SectionNumber,
		Title:         title,
		Totals:        totals,
	})
}

// sectionOrder groups items by section in order of first appearance.
func sectionOrder(items []Item) ([]string, map[string][]Item) {
	var order []string
	bySection := make(map[string][]Item)
	for _, it := range items {
		if _, seen := bySection[it.SectionID]; !seen {
			order = append(order, it.SectionID)
		}
		bySection[it.SectionID] = append(bySection[it.SectionID], it)
	}
	return order, bySection
}

// buildBillRows emits one row per bill; there are no subtotal rows.
func (b *sheetBuilder) buildBillRows() {
	for _, sec := range b.snap.Sections {
		if sec.ParentID != "" {
			continue
		}
		cells, avg := b.cellsFor(sec.ID)
		b.sheet.Rows = append(b.sheet.Rows, ComparableSheetItemRow{
			RowType:       RowTypeItem,
			NodeID:        sec.ID,
			ItemNumber:    sec.SectionNumber,
			Description:   sec.Title,
			SectionID:     sec.ID,
			SectionNumber: sec.SectionNumber,
			Cells:         cells,
			AverageRate:   avg,
		})
		b.sheet.SectionTotals = append(b.sheet.SectionTotals, SectionTotal{
			SectionID:     sec.ID,
			SectionNumber: sec.SectionNumber,
			Title:         sec.Title,
			Totals:        b.includedAmounts(sec.ID),
		})
	}
}

// buildItemRows lists top-level items per section with a section subtotal.
func (b *sheetBuilder) buildItemRows() {
	order, bySection := sectionOrder(b.snap.Items)
	for _, sectionID := range order {
		totals := b.zeros()
		emitted := false
		for _, it := range bySection[sectionID] {
			if it.ParentItemID != "" {
				continue
			}
			b.sheet.Rows = append(b.sheet.Rows, b.itemRow(it))
			addInto(totals, b.includedAmounts(it.ID))
			emitted = true
		}
		if emitted {
			b.closeSection(sectionID, totals)
		}
	}
}

// topGroupOf returns the outermost group above it, following parent links
// through nested groups.
func topGroupOf(it Item, byID map[string]Item) (string, bool) {
	top := ""
	seen := map[string]bool{it.ID: true}
	for cur := it; cur.ParentItemID != "" && !seen[cur.ParentItemID]; {
		parent, ok := byID[cur.ParentItemID]
		if !ok || !parent.IsGroup {
			break
		}
		seen[parent.ID] = true
		top = parent.ID
		cur = parent
	}
	return top, top != ""
}

// buildSubItemRows lists, per section, each group as header, children and
// subtotal, with standalone items in between, then a section subtotal.
// Leaves of nested groups are listed under the outermost group.
func (b *sheetBuilder) buildSubItemRows() {
	byID := make(map[string]Item, len(b.snap.Items))
	children := make(map[string][]Item)
	for _, it := range b.snap.Items {
		byID[it.ID] = it
	}
	for _, it := range b.snap.Items {
		if top, ok := topGroupOf(it, byID); ok && !it.IsGroup {
			children[top] = append(children[top], it)
		}
	}
	isTopLevel := func(it Item) bool {
		_, nested := topGroupOf(it, byID)
		return !nested
	}

	order, bySection := sectionOrder(b.snap.Items)
	for _, sectionID := range order {
		totals := b.zeros()
		emitted := false
		for _, it := range bySection[sectionID] {
			if !isTopLevel(it) {
				continue
			}
			if !it.IsGroup {
				b.sheet.Rows = append(b.sheet.Rows, b.itemRow(it))
				addInto(totals, b.includedAmounts(it.ID))
				emitted = true
				continue
			}

			sec := b.section[it.SectionID]
			b.sheet.Rows = append(b.sheet.Rows, ComparableSheetItemRow{
				RowType:       RowTypeItemGroupHeader,
				NodeID:        it.ID,
				ItemNumber:    it.ItemNumber,
				Description:   it.Description,
				SectionID:     it.SectionID,
				SectionNumber: sec.SectionNumber,
				Cells:         make([]BidderCell, len(b.pricing)),
			})
			groupTotals := b.zeros()
			for _, child := range children[it.ID] {
				b.sheet.Rows = append(b.sheet.Rows, b.itemRow(child))
				addInto(groupTotals, b.includedAmounts(child.ID))
			}
			b.sheet.Rows = append(b.sheet.Rows, ComparableSheetItemRow{
				RowType:       RowTypeItemSubtotal,
				NodeID:        it.ID,
				ItemNumber:    it.ItemNumber,
				Description:   "Subtotal " + it.Description,
				SectionID:     it.SectionID,
				SectionNumber: sec.SectionNumber,
				Cells:         amountCells(groupTotals),
			})
			addInto(totals, groupTotals)
			emitted = true
		}
		if emitted {
			b.closeSection(sectionID, totals)
		}
	}
}
