package collections

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// DemoReference identifies the demo tender; seeding is skipped once it exists.
const DemoReference = "DEMO-2024-001"

// ── Definition structs ───────────────────────────────────────────────────

type itemDef struct {
	number      string
	description string
	qty         string
	uom         string
	subs        []itemDef // non-empty makes this a group
}

type sectionDef struct {
	number string
	title  string
	items  []itemDef
}

type bidderDef struct {
	name   string
	email  string
	status string
	// rates by item number; a missing entry leaves the item unpriced
	rates         map[string]string
	nonComparable map[string]bool
}

var demoSections = []sectionDef{
	{
		number: "1",
		title:  "Earthworks",
		items: []itemDef{
			{number: "1.1", description: "Site clearance and grubbing", qty: "2500", uom: "m2"},
			{number: "1.2", description: "Excavation in ordinary soil", subs: []itemDef{
				{number: "a", description: "Depth 0 to 1.5 m", qty: "400", uom: "m3"},
				{number: "b", description: "Depth 1.5 to 3.0 m", qty: "150", uom: "m3"},
			}},
			{number: "1.3", description: "Backfilling with approved material", qty: "300", uom: "m3"},
		},
	},
	{
		number: "2",
		title:  "Concrete Works",
		items: []itemDef{
			{number: "2.1", description: "Blinding concrete grade 15", qty: "45", uom: "m3"},
			{number: "2.2", description: "Reinforced concrete grade 30", qty: "120", uom: "m3"},
			{number: "2.3", description: "Formwork to soffits", qty: "1", uom: "item"},
		},
	},
}

var demoBidders = []bidderDef{
	{
		name:   "Apex Builders Ltd",
		email:  "tenders@apex.example",
		status: "imported",
		rates: map[string]string{
			"1.1": "12.50", "a": "18.00", "b": "24.00", "1.3": "9.75",
			"2.1": "95.00", "2.2": "165.00", "2.3": "4200.00",
		},
	},
	{
		name:   "Coastal Civil Contractors",
		email:  "bids@coastal.example",
		status: "imported",
		rates: map[string]string{
			"1.1": "11.00", "a": "19.50", "1.3": "10.25",
			"2.1": "90.00", "2.2": "171.00", "2.3": "3900.00",
		},
		nonComparable: map[string]bool{"2.3": true},
	},
	{
		name:   "Northern Infra JV",
		email:  "commercial@northern.example",
		status: "pending",
		rates:  map[string]string{"1.1": "13.00"},
	},
}

// SeedDemo inserts a sub-item level demo tender with two bills, a grouped
// item and three bidders, one of them still pending. It is safe to call on
// every startup because it returns early once the demo tender exists.
func SeedDemo(app *pocketbase.PocketBase) error {
	_, err := app.FindFirstRecordByData("tenders", "reference_number", DemoReference)
	if err == nil {
		return nil // already seeded
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("seed: could not query tenders: %w", err)
	}

	log.Println("seed: demo tender missing – inserting seed data …")

	return app.RunInTransaction(func(txApp core.App) error {
		cols := make(map[string]*core.Collection)
		for _, name := range []string{"tenders", "boq_sections", "boq_items", "bidders", "bid_submissions", "bid_pricing"} {
			col, err := txApp.FindCollectionByNameOrId(name)
			if err != nil {
				return fmt.Errorf("seed: could not find %s collection: %w", name, err)
			}
			cols[name] = col
		}

		tender := core.NewRecord(cols["tenders"])
		tender.Set("title", "Riverside Pump Station - Civil Works")
		tender.Set("reference_number", DemoReference)
		tender.Set("pricing_level", "sub_item")
		tender.Set("currency", "INR")
		if err := txApp.Save(tender); err != nil {
			return fmt.Errorf("seed: save tender: %w", err)
		}

		// ── BOQ tree ─────────────────────────────────────────────────
		itemIDs := make(map[string]string)
		quantities := make(map[string]string)
		createItem := func(sectionID, parentID string, sortOrder int, d itemDef) (string, error) {
			r := core.NewRecord(cols["boq_items"])
			r.Set("tender", tender.Id)
			r.Set("section", sectionID)
			r.Set("item_number", d.number)
			r.Set("description", d.description)
			r.Set("quantity", d.qty)
			r.Set("uom", d.uom)
			r.Set("parent_item", parentID)
			r.Set("is_group", len(d.subs) > 0)
			r.Set("sort_order", sortOrder)
			switch {
			case len(d.subs) > 0:
				r.Set("hierarchy_role", "group")
			case parentID != "":
				r.Set("hierarchy_role", "sub_item")
			default:
				r.Set("hierarchy_role", "standalone")
			}
			if err := txApp.Save(r); err != nil {
				return "", fmt.Errorf("seed: save item %q: %w", d.number, err)
			}
			if len(d.subs) == 0 {
				itemIDs[d.number] = r.Id
				quantities[d.number] = d.qty
			}
			return r.Id, nil
		}

		for i, s := range demoSections {
			sec := core.NewRecord(cols["boq_sections"])
			sec.Set("tender", tender.Id)
			sec.Set("section_number", s.number)
			sec.Set("title", s.title)
			sec.Set("level", 0)
			sec.Set("sort_order", i)
			if err := txApp.Save(sec); err != nil {
				return fmt.Errorf("seed: save section %q: %w", s.number, err)
			}

			sortOrder := 0
			for _, it := range s.items {
				id, err := createItem(sec.Id, "", sortOrder, it)
				if err != nil {
					return err
				}
				sortOrder++
				for _, sub := range it.subs {
					if _, err := createItem(sec.Id, id, sortOrder, sub); err != nil {
						return err
					}
					sortOrder++
				}
			}
			sec.Set("item_count", sortOrder)
			if err := txApp.Save(sec); err != nil {
				return fmt.Errorf("seed: update section %q: %w", s.number, err)
			}
		}

		// ── Bidders, submissions and pricing ─────────────────────────
		for _, b := range demoBidders {
			bidder := core.NewRecord(cols["bidders"])
			bidder.Set("name", b.name)
			bidder.Set("contact_email", b.email)
			if err := txApp.Save(bidder); err != nil {
				return fmt.Errorf("seed: save bidder %q: %w", b.name, err)
			}

			sub := core.NewRecord(cols["bid_submissions"])
			sub.Set("tender", tender.Id)
			sub.Set("bidder", bidder.Id)
			sub.Set("status", b.status)
			sub.Set("currency", "INR")
			sub.Set("fx_rate", "1")
			if err := txApp.Save(sub); err != nil {
				return fmt.Errorf("seed: save submission for %q: %w", b.name, err)
			}

			for number, rate := range b.rates {
				qty := decimal.RequireFromString(quantities[number])
				amount := decimal.RequireFromString(rate).Mul(qty).StringFixed(2)

				p := core.NewRecord(cols["bid_pricing"])
				p.Set("bid_submission", sub.Id)
				p.Set("boq_item", itemIDs[number])
				p.Set("unit_rate", rate)
				p.Set("amount", amount)
				p.Set("normalized_amount", amount)
				p.Set("is_included_in_total", true)
				p.Set("is_non_comparable", b.nonComparable[number])
				if err := txApp.Save(p); err != nil {
					return fmt.Errorf("seed: save pricing %q for %q: %w", number, b.name, err)
				}
			}
		}

		log.Printf("seed: created demo tender %s", tender.Id)
		return nil
	})
}
