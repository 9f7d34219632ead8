package services

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(dec(s))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// priced returns an included pricing row whose normalized amount equals amount.
func priced(bidID, nodeID, rate, amount string) BidPricing {
	return BidPricing{
		ID:                bidID + "-" + nodeID,
		BidSubmissionID:   bidID,
		ItemID:            nodeID,
		UnitRate:          nullDec(rate),
		Amount:            nullDec(amount),
		NormalizedAmount:  nullDec(amount),
		IsIncludedInTotal: true,
	}
}

// sectionPriced is priced for a bill section.
func sectionPriced(bidID, sectionID, amount string) BidPricing {
	p := priced(bidID, "", "", amount)
	p.ID = bidID + "-" + sectionID
	p.SectionID = sectionID
	return p
}

// roadSnapshot is a two-bill tender. Bill 1 holds group 1.2 (subs a and b),
// standalone 1.3 and, through sub-section 1.1, item 1.1.1. Bill 2 holds 2.1.
func roadSnapshot(level PricingLevel) TenderSnapshot {
	return TenderSnapshot{
		Tender: Tender{ID: "t1", Title: "Ring Road", ReferenceNumber: "RR-01", PricingLevel: level, Currency: "INR"},
		Sections: []Section{
			{ID: "s1", SectionNumber: "1", Title: "Earthworks", SortOrder: 0},
			{ID: "s11", SectionNumber: "1.1", Title: "Clearance", ParentID: "s1", Level: 1, SortOrder: 1},
			{ID: "s2", SectionNumber: "2", Title: "Drainage", SortOrder: 2},
		},
		Items: []Item{
			{ID: "g1", SectionID: "s1", ItemNumber: "1.2", Description: "Excavation", IsGroup: true, SortOrder: 0},
			{ID: "c1", SectionID: "s1", ItemNumber: "a", Description: "Soft soil", Quantity: nullDec("10"), UOM: "m3", ParentItemID: "g1", SortOrder: 1},
			{ID: "c2", SectionID: "s1", ItemNumber: "b", Description: "Hard soil", Quantity: nullDec("15"), UOM: "m3", ParentItemID: "g1", SortOrder: 2},
			{ID: "i3", SectionID: "s1", ItemNumber: "1.3", Description: "Backfill", Quantity: nullDec("5"), UOM: "m3", SortOrder: 3},
			{ID: "i4", SectionID: "s11", ItemNumber: "1.1.1", Description: "Clear site", Quantity: nullDec("2"), UOM: "m2", SortOrder: 0},
			{ID: "i5", SectionID: "s2", ItemNumber: "2.1", Description: "Pipes", Quantity: nullDec("1"), UOM: "m", SortOrder: 0},
		},
		Submissions: []BidSubmission{
			{ID: "bA", BidderID: "alpha", BidderName: "Alpha Works", Status: BidStatusImported},
			{ID: "bB", BidderID: "beta", BidderName: "Beta Infra", Status: BidStatusImported},
		},
	}
}
