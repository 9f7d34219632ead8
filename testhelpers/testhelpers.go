// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

func saveRecord(t *testing.T, app *pocketbase.PocketBase, collection string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", collection, err)
	}

	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test %s record: %v", collection, err)
	}

	return record
}

// CreateTestTender creates a tender at the given pricing level and returns it.
func CreateTestTender(t *testing.T, app *pocketbase.PocketBase, title, pricingLevel string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "tenders", map[string]any{
		"title":            title,
		"reference_number": "REF-" + strings.ToUpper(strings.ReplaceAll(title, " ", "-")),
		"pricing_level":    pricingLevel,
		"currency":         "INR",
	})
}

// CreateTestSection creates a BOQ section. parentID is empty for a bill.
func CreateTestSection(t *testing.T, app *pocketbase.PocketBase, tenderID, number, title, parentID string, sortOrder int) *core.Record {
	t.Helper()
	return saveRecord(t, app, "boq_sections", map[string]any{
		"tender":         tenderID,
		"section_number": number,
		"title":          title,
		"parent_section": parentID,
		"level":          strings.Count(number, "."),
		"sort_order":     sortOrder,
	})
}

// TestItem describes a BOQ item for CreateTestItem.
type TestItem struct {
	SectionID string
	Number    string
	Desc      string
	Qty       string
	UOM       string
	ParentID  string
	IsGroup   bool
	SortOrder int
}

// CreateTestItem creates a BOQ item record linked to a tender.
func CreateTestItem(t *testing.T, app *pocketbase.PocketBase, tenderID string, it TestItem) *core.Record {
	t.Helper()
	role := "standalone"
	switch {
	case it.IsGroup:
		role = "group"
	case it.ParentID != "":
		role = "sub_item"
	}
	return saveRecord(t, app, "boq_items", map[string]any{
		"tender":         tenderID,
		"section":        it.SectionID,
		"item_number":    it.Number,
		"description":    it.Desc,
		"quantity":       it.Qty,
		"uom":            it.UOM,
		"parent_item":    it.ParentID,
		"is_group":       it.IsGroup,
		"hierarchy_role": role,
		"sort_order":     it.SortOrder,
	})
}

// CreateTestBidder creates a bidder with the given name and returns it.
func CreateTestBidder(t *testing.T, app *pocketbase.PocketBase, name string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "bidders", map[string]any{
		"name":          name,
		"contact_email": strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
	})
}

// CreateTestSubmission creates a bid submission with the given status and
// an fx_rate of 1.
func CreateTestSubmission(t *testing.T, app *pocketbase.PocketBase, tenderID, bidderID, status string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "bid_submissions", map[string]any{
		"tender":   tenderID,
		"bidder":   bidderID,
		"status":   status,
		"currency": "INR",
		"fx_rate":  "1",
	})
}

// CreateTestItemPricing prices an item for a submission. The normalized
// amount equals the amount.
func CreateTestItemPricing(t *testing.T, app *pocketbase.PocketBase, submissionID, itemID, rate, amount string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "bid_pricing", map[string]any{
		"bid_submission":       submissionID,
		"boq_item":             itemID,
		"unit_rate":            rate,
		"amount":               amount,
		"normalized_amount":    amount,
		"is_included_in_total": true,
	})
}

// CreateTestSectionPricing prices a bill section for a submission.
func CreateTestSectionPricing(t *testing.T, app *pocketbase.PocketBase, submissionID, sectionID, amount string) *core.Record {
	t.Helper()
	return saveRecord(t, app, "bid_pricing", map[string]any{
		"bid_submission":       submissionID,
		"boq_section":          sectionID,
		"amount":               amount,
		"normalized_amount":    amount,
		"is_included_in_total": true,
	})
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
