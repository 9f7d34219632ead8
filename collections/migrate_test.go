package collections_test

import (
	"testing"

	"tenderboq/collections"
	"tenderboq/testhelpers"
)

func TestMigrateNormalizedAmounts_Backfills(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	tender := testhelpers.CreateTestTender(t, app, "Migrate Tender", "item")
	sec := testhelpers.CreateTestSection(t, app, tender.Id, "1", "Bill 1", "", 0)
	item := testhelpers.CreateTestItem(t, app, tender.Id, testhelpers.TestItem{
		SectionID: sec.Id, Number: "1.1", Desc: "Item", Qty: "10", UOM: "m",
	})
	bidder := testhelpers.CreateTestBidder(t, app, "Foreign Bidder")
	sub := testhelpers.CreateTestSubmission(t, app, tender.Id, bidder.Id, "imported")
	sub.Set("fx_rate", "80")
	if err := app.Save(sub); err != nil {
		t.Fatalf("save submission: %v", err)
	}

	p := testhelpers.CreateTestItemPricing(t, app, sub.Id, item.Id, "2.5", "25")
	p.Set("normalized_amount", "")
	if err := app.Save(p); err != nil {
		t.Fatalf("clear normalized_amount: %v", err)
	}

	if err := collections.MigrateNormalizedAmounts(app); err != nil {
		t.Fatalf("MigrateNormalizedAmounts() error: %v", err)
	}

	got, err := app.FindRecordById("bid_pricing", p.Id)
	if err != nil {
		t.Fatalf("reload pricing: %v", err)
	}
	if got.GetString("normalized_amount") != "2000" {
		t.Errorf("normalized_amount = %q, want %q", got.GetString("normalized_amount"), "2000")
	}
}

func TestMigrateNormalizedAmounts_LeavesNormalizedRowsAlone(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	tender := testhelpers.CreateTestTender(t, app, "Untouched Tender", "item")
	sec := testhelpers.CreateTestSection(t, app, tender.Id, "1", "Bill 1", "", 0)
	item := testhelpers.CreateTestItem(t, app, tender.Id, testhelpers.TestItem{
		SectionID: sec.Id, Number: "1.1", Desc: "Item", Qty: "10", UOM: "m",
	})
	bidder := testhelpers.CreateTestBidder(t, app, "Local Bidder")
	sub := testhelpers.CreateTestSubmission(t, app, tender.Id, bidder.Id, "imported")
	p := testhelpers.CreateTestItemPricing(t, app, sub.Id, item.Id, "2.5", "25")

	// Run twice; the second run has nothing to do.
	for i := 0; i < 2; i++ {
		if err := collections.MigrateNormalizedAmounts(app); err != nil {
			t.Fatalf("run %d error: %v", i+1, err)
		}
	}

	got, _ := app.FindRecordById("bid_pricing", p.Id)
	if got.GetString("normalized_amount") != "25" {
		t.Errorf("normalized_amount = %q, want %q", got.GetString("normalized_amount"), "25")
	}
}
