package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// comparedSnapshot prices the road tender at sub-item level for two bidders.
// Beta skips 1.3 and marks b non-comparable; a third bid is still pending.
func comparedSnapshot() *TenderSnapshot {
	snap := roadSnapshot(PricingLevelSubItem)
	snap.Submissions = append(snap.Submissions,
		BidSubmission{ID: "bC", BidderID: "gamma", BidderName: "Gamma Pending", Status: BidStatusPending})

	nc := priced("bB", "c2", "12", "180")
	nc.IsNonComparable = true
	snap.Pricing = append(subItemPricing(),
		priced("bB", "c1", "9", "90"),
		nc,
		priced("bB", "i4", "10", "20"),
		priced("bB", "i5", "70", "70"),
		priced("bC", "i5", "1", "1"),
	)
	return &snap
}

func rowTypes(rows []ComparableSheetItemRow) []RowType {
	out := make([]RowType, len(rows))
	for i, r := range rows {
		out[i] = r.RowType
	}
	return out
}

func findRow(t *testing.T, sheet *ComparableSheet, rowType RowType, nodeID string) ComparableSheetItemRow {
	t.Helper()
	for _, r := range sheet.Rows {
		if r.RowType == rowType && r.NodeID == nodeID {
			return r
		}
	}
	t.Fatalf("no %s row for %s", rowType, nodeID)
	return ComparableSheetItemRow{}
}

func TestBuildComparableSheet_RanksImportedBidders(t *testing.T) {
	sheet := BuildComparableSheet(comparedSnapshot(), ComparableSheetOptions{})

	require.Len(t, sheet.Bidders, 2, "pending bids are left out")
	assert.Equal(t, "Beta Infra", sheet.Bidders[0].BidderName)
	assert.Equal(t, 1, sheet.Bidders[0].Rank)
	assertDecimal(t, "360", sheet.Bidders[0].Total)
	assert.Equal(t, "Alpha Works", sheet.Bidders[1].BidderName)
	assert.Equal(t, 2, sheet.Bidders[1].Rank)
	assertDecimal(t, "400", sheet.Bidders[1].Total)

	require.Len(t, sheet.GrandTotals, 2)
	assertDecimal(t, "360", sheet.GrandTotals[0])
	assertDecimal(t, "400", sheet.GrandTotals[1])

	assert.Equal(t, "t1", sheet.TenderID)
	assert.Equal(t, "Ring Road", sheet.TenderTitle)
	assert.Equal(t, "INR", sheet.Currency)
}

func TestBuildComparableSheet_TiesRankByName(t *testing.T) {
	snap := roadSnapshot(PricingLevelItem)
	snap.Submissions[0].BidderName = "Zeta"
	snap.Pricing = []BidPricing{priced("bA", "i3", "10", "50"), priced("bB", "i3", "10", "50")}

	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})
	assert.Equal(t, "Beta Infra", sheet.Bidders[0].BidderName)
	assert.Equal(t, "Zeta", sheet.Bidders[1].BidderName)
}

func TestBuildComparableSheet_SubItemRows(t *testing.T) {
	sheet := BuildComparableSheet(comparedSnapshot(), ComparableSheetOptions{})

	assert.Equal(t, []RowType{
		RowTypeItemGroupHeader, RowTypeItem, RowTypeItem, RowTypeItemSubtotal, RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
	}, rowTypes(sheet.Rows))

	header := sheet.Rows[0]
	assert.Equal(t, "1.2", header.ItemNumber)
	assert.Len(t, header.Cells, 2)
	assert.False(t, header.AverageRate.Valid)

	soft := findRow(t, sheet, RowTypeItem, "c1")
	assert.Equal(t, "g1", soft.ParentItemID)
	assert.Equal(t, "1", soft.SectionNumber)
	assertDecimal(t, "9", soft.Cells[0].Rate.Decimal)
	assertDecimal(t, "100", soft.Cells[1].Amount.Decimal)
	assertDecimal(t, "9.5", soft.AverageRate.Decimal)

	subtotal := findRow(t, sheet, RowTypeItemSubtotal, "g1")
	assert.Equal(t, "Subtotal Excavation", subtotal.Description)
	assertDecimal(t, "270", subtotal.Cells[0].Amount.Decimal)
	assertDecimal(t, "250", subtotal.Cells[1].Amount.Decimal)

	bill := sheet.Rows[5]
	assert.Equal(t, "Total Earthworks", bill.Description)
	assertDecimal(t, "270", bill.Cells[0].Amount.Decimal)
	assertDecimal(t, "300", bill.Cells[1].Amount.Decimal)

	require.Len(t, sheet.SectionTotals, 3)
	assert.Equal(t, []string{"1", "1.1", "2"}, []string{
		sheet.SectionTotals[0].SectionNumber, sheet.SectionTotals[1].SectionNumber, sheet.SectionTotals[2].SectionNumber,
	})
	assertDecimal(t, "70", sheet.SectionTotals[2].Totals[0])
}

func TestBuildComparableSheet_NoBidAndNonComparable(t *testing.T) {
	snap := comparedSnapshot()
	noBid := priced("bA", "i4", "", "")
	noBid.IsNoBid = true
	for i, p := range snap.Pricing {
		if p.BidSubmissionID == "bA" && p.ItemID == "i4" {
			snap.Pricing[i] = noBid
		}
	}
	sheet := BuildComparableSheet(snap, ComparableSheetOptions{})

	hard := findRow(t, sheet, RowTypeItem, "c2")
	assert.True(t, hard.Cells[0].IsNonComparable)
	assertDecimal(t, "10", hard.AverageRate.Decimal)

	backfill := findRow(t, sheet, RowTypeItem, "i3")
	assert.True(t, backfill.Cells[0].IsNoBid, "a missing pricing row is a no-bid")
	assert.False(t, backfill.Cells[0].Amount.Valid)
	assertDecimal(t, "10", backfill.AverageRate.Decimal)

	clear := findRow(t, sheet, RowTypeItem, "i4")
	assert.True(t, clear.Cells[1].IsNoBid)
	assertDecimal(t, "10", clear.AverageRate.Decimal)
}

func TestBuildComparableSheet_AverageRateRounding(t *testing.T) {
	snap := roadSnapshot(PricingLevelItem)
	snap.Submissions = append(snap.Submissions, BidSubmission{ID: "bC", BidderName: "Gamma", Status: BidStatusImported})
	snap.Pricing = []BidPricing{
		priced("bA", "i3", "1", "5"),
		priced("bB", "i3", "1", "5"),
		priced("bC", "i3", "2", "10"),
	}
	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

	row := findRow(t, sheet, RowTypeItem, "i3")
	assertDecimal(t, "1.3333", row.AverageRate.Decimal)
	assert.Empty(t, sheet.Warnings)

	unpriced := findRow(t, sheet, RowTypeItem, "i5")
	assert.False(t, unpriced.AverageRate.Valid)
}

func TestBuildComparableSheet_ItemLevel(t *testing.T) {
	snap := roadSnapshot(PricingLevelItem)
	excluded := priced("bB", "i3", "10", "40")
	excluded.IsIncludedInTotal = false
	snap.Pricing = []BidPricing{
		priced("bA", "g1", "", "300"),
		priced("bA", "i3", "10", "50"),
		priced("bB", "g1", "", "310"),
		excluded,
	}
	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

	assert.Equal(t, []RowType{
		RowTypeItem, RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
	}, rowTypes(sheet.Rows))
	for _, r := range sheet.Rows {
		assert.NotEqual(t, "c1", r.NodeID, "sub-items are not listed at item level")
	}

	require.Len(t, sheet.Bidders, 2)
	assert.Equal(t, "Beta Infra", sheet.Bidders[0].BidderName)
	bill := sheet.Rows[2]
	assertDecimal(t, "310", bill.Cells[0].Amount.Decimal)
	assertDecimal(t, "350", bill.Cells[1].Amount.Decimal)

	row := findRow(t, sheet, RowTypeItem, "i3")
	assertDecimal(t, "40", row.Cells[0].Amount.Decimal)
}

func TestBuildComparableSheet_BillLevel(t *testing.T) {
	snap := roadSnapshot(PricingLevelBill)
	snap.Pricing = []BidPricing{
		sectionPriced("bA", "s1", "1000"),
		sectionPriced("bA", "s2", "500"),
		sectionPriced("bB", "s1", "1200"),
	}
	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []RowType{RowTypeItem, RowTypeItem}, rowTypes(sheet.Rows))
	assert.Equal(t, "Earthworks", sheet.Rows[0].Description)
	assert.True(t, sheet.Rows[1].Cells[0].IsNoBid, "Beta did not price bill 2")

	require.Len(t, sheet.SectionTotals, 2)
	assert.Equal(t, "Alpha Works", sheet.Bidders[1].BidderName)
	assertDecimal(t, "1500", sheet.Bidders[1].Total)
	assertDecimal(t, "1200", sheet.Bidders[0].Total)
}

func TestBuildComparableSheet_BidFilterAndWarning(t *testing.T) {
	sheet := BuildComparableSheet(comparedSnapshot(), ComparableSheetOptions{
		BidSubmissionIDs: []string{"bA", "bC"},
		MinBidders:       2,
	})

	require.Len(t, sheet.Bidders, 1, "the filter cannot bring in pending bids")
	assert.Equal(t, "bA", sheet.Bidders[0].BidSubmissionID)
	for _, r := range sheet.Rows {
		assert.Len(t, r.Cells, 1)
	}
	require.Len(t, sheet.Warnings, 1)
	assert.Contains(t, sheet.Warnings[0], "Only 1 bidder(s)")
	assert.Contains(t, sheet.Warnings[0], "at least 2")
}

func TestBuildComparableSheet_NoBidders(t *testing.T) {
	snap := roadSnapshot(PricingLevelSubItem)
	snap.Submissions = nil
	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

	assert.Empty(t, sheet.Bidders)
	assert.Empty(t, sheet.GrandTotals)
	assert.NotEmpty(t, sheet.Rows)
	assert.Len(t, sheet.Warnings, 1)
}

func TestBuildComparableSheet_GrandTotalsMatchSectionTotals(t *testing.T) {
	for _, level := range PricingLevels {
		t.Run(string(level), func(t *testing.T) {
			snap := roadSnapshot(level)
			snap.Pricing = append(subItemPricing(),
				priced("bB", "g1", "", "260"),
				sectionPriced("bB", "s1", "900"),
				sectionPriced("bA", "s2", "40"),
			)
			sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

			for i := range sheet.Bidders {
				sum := dec("0")
				for _, st := range sheet.SectionTotals {
					if st.SectionID != "" {
						sum = sum.Add(st.Totals[i])
					}
				}
				assertDecimal(t, sheet.GrandTotals[i].String(), sum)
			}
		})
	}
}

func TestBuildComparableSheet_NestedGroupLeavesListedUnderTopGroup(t *testing.T) {
	snap := roadSnapshot(PricingLevelSubItem)
	nested := []Item{
		{ID: "g2", SectionID: "s1", ItemNumber: "c", Description: "Rock", IsGroup: true, ParentItemID: "g1", SortOrder: 3},
		{ID: "c3", SectionID: "s1", ItemNumber: "i", Description: "Soft rock", Quantity: nullDec("4"), UOM: "m3", ParentItemID: "g2", SortOrder: 4},
	}
	snap.Items = append(snap.Items[:3:3], append(nested, snap.Items[3:]...)...)
	snap.Pricing = append(subItemPricing(), priced("bA", "c3", "10", "40"))

	sheet := BuildComparableSheet(&snap, ComparableSheetOptions{})

	assert.Equal(t, []RowType{
		RowTypeItemGroupHeader, RowTypeItem, RowTypeItem, RowTypeItem, RowTypeItemSubtotal, RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
		RowTypeItem, RowTypeBillSubtotal,
	}, rowTypes(sheet.Rows))
	for _, r := range sheet.Rows {
		assert.NotEqual(t, "g2", r.NodeID, "nested groups get no rows of their own")
	}
	assert.Equal(t, "g2", findRow(t, sheet, RowTypeItem, "c3").ParentItemID)

	require.Len(t, sheet.Bidders, 2)
	alpha := 1
	require.Equal(t, "Alpha Works", sheet.Bidders[alpha].BidderName)
	assertDecimal(t, "440", sheet.GrandTotals[alpha])
	assertDecimal(t, "290", findRow(t, sheet, RowTypeItemSubtotal, "g1").Cells[alpha].Amount.Decimal)

	sum := dec("0")
	for _, st := range sheet.SectionTotals {
		sum = sum.Add(st.Totals[alpha])
	}
	assertDecimal(t, "440", sum)
}

func TestTopGroupOf(t *testing.T) {
	byID := map[string]Item{
		"g1": {ID: "g1", IsGroup: true},
		"g2": {ID: "g2", IsGroup: true, ParentItemID: "g1"},
		"x":  {ID: "x", ParentItemID: "g2"},
		"p":  {ID: "p"},
		"y":  {ID: "y", ParentItemID: "p"},
		"l1": {ID: "l1", IsGroup: true, ParentItemID: "l2"},
		"l2": {ID: "l2", IsGroup: true, ParentItemID: "l1"},
	}

	top, ok := topGroupOf(byID["x"], byID)
	assert.True(t, ok)
	assert.Equal(t, "g1", top)

	_, ok = topGroupOf(byID["g1"], byID)
	assert.False(t, ok)
	_, ok = topGroupOf(byID["y"], byID)
	assert.False(t, ok, "a non-group parent does not nest")

	_, ok = topGroupOf(byID["l1"], byID)
	assert.True(t, ok, "parent cycles terminate")
}
