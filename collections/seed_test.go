package collections_test

import (
	"testing"

	"tenderboq/collections"
	"tenderboq/testhelpers"
)

func TestSeedDemo_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.SeedDemo(app); err != nil {
		t.Fatalf("SeedDemo() error: %v", err)
	}

	tender, err := app.FindFirstRecordByData("tenders", "reference_number", collections.DemoReference)
	if err != nil {
		t.Fatalf("demo tender not found: %v", err)
	}
	if tender.GetString("pricing_level") != "sub_item" {
		t.Errorf("pricing_level = %q, want sub_item", tender.GetString("pricing_level"))
	}

	params := map[string]any{"t": tender.Id}
	sections, _ := app.FindRecordsByFilter("boq_sections", "tender = {:t}", "sort_order", 0, 0, params)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].GetString("title") != "Earthworks" {
		t.Errorf("first section title = %q, want Earthworks", sections[0].GetString("title"))
	}

	items, _ := app.FindRecordsByFilter("boq_items", "tender = {:t}", "", 0, 0, params)
	if len(items) != 9 {
		t.Errorf("expected 9 items, got %d", len(items))
	}

	groups, _ := app.FindRecordsByFilter("boq_items", "tender = {:t} && is_group = true", "", 0, 0, params)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group item, got %d", len(groups))
	}
	children, _ := app.FindRecordsByFilter("boq_items", "parent_item = {:g}", "", 0, 0, map[string]any{"g": groups[0].Id})
	if len(children) != 2 {
		t.Errorf("expected 2 sub-items under the group, got %d", len(children))
	}

	submissions, _ := app.FindRecordsByFilter("bid_submissions", "tender = {:t}", "", 0, 0, params)
	if len(submissions) != 3 {
		t.Errorf("expected 3 submissions, got %d", len(submissions))
	}

	pricing, _ := app.FindRecordsByFilter("bid_pricing", "bid_submission.tender = {:t}", "", 0, 0, params)
	if len(pricing) != 7+6+1 {
		t.Errorf("expected 14 pricing rows, got %d", len(pricing))
	}
}

func TestSeedDemo_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.SeedDemo(app); err != nil {
		t.Fatalf("first SeedDemo() error: %v", err)
	}
	if err := collections.SeedDemo(app); err != nil {
		t.Fatalf("second SeedDemo() error: %v", err)
	}

	tenders, err := app.FindAllRecords("tenders")
	if err != nil {
		t.Fatalf("query tenders error: %v", err)
	}
	if len(tenders) != 1 {
		t.Errorf("expected 1 tender after seeding twice, got %d", len(tenders))
	}
}
