package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// Setup programmatically creates/ensures the tender, BOQ tree and bid
// collections exist.
func Setup(app *pocketbase.PocketBase) {
	tenders := ensureCollection(app, "tenders", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.TextField{Name: "reference_number", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "pricing_level",
			Required:  true,
			Values:    []string{"bill", "item", "sub_item"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "currency", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	sections := ensureCollection(app, "boq_sections", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "tender",
			Required:      true,
			CollectionId:  tenders.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "section_number", Required: true})
		c.Fields.Add(&core.TextField{Name: "title", Required: false})
		// Record id of the parent section; empty for a bill.
		c.Fields.Add(&core.TextField{Name: "parent_section", Required: false})
		c.Fields.Add(&core.NumberField{Name: "level", Required: false})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.NumberField{Name: "item_count", Required: false})
		c.Fields.Add(&core.TextField{Name: "import_batch", Required: false})
	})

	items := ensureCollection(app, "boq_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "tender",
			Required:      true,
			CollectionId:  tenders.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "section",
			Required:      false,
			CollectionId:  sections.Id,
			CascadeDelete: false,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "item_number", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		// Decimal text; empty when the sheet had no quantity.
		c.Fields.Add(&core.TextField{Name: "quantity", Required: false})
		c.Fields.Add(&core.TextField{Name: "uom", Required: false})
		// Record id of the enclosing group item; empty at top level.
		c.Fields.Add(&core.TextField{Name: "parent_item", Required: false})
		c.Fields.Add(&core.BoolField{Name: "is_group"})
		c.Fields.Add(&core.SelectField{
			Name:      "hierarchy_role",
			Required:  false,
			Values:    []string{"group", "sub_item", "standalone"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.TextField{Name: "import_batch", Required: false})
	})

	bidders := ensureCollection(app, "bidders", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "contact_email", Required: false})
	})

	submissions := ensureCollection(app, "bid_submissions", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "tender",
			Required:      true,
			CollectionId:  tenders.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "bidder",
			Required:      true,
			CollectionId:  bidders.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"pending", "imported", "disqualified", "withdrawn"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "currency", Required: false})
		// Decimal text multiplier into the tender currency; empty means 1.
		c.Fields.Add(&core.TextField{Name: "fx_rate", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "bid_pricing", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "bid_submission",
			Required:      true,
			CollectionId:  submissions.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "boq_item",
			Required:      false,
			CollectionId:  items.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "boq_section",
			Required:      false,
			CollectionId:  sections.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		// Money is stored as decimal text; empty means absent.
		c.Fields.Add(&core.TextField{Name: "unit_rate", Required: false})
		c.Fields.Add(&core.TextField{Name: "amount", Required: false})
		c.Fields.Add(&core.TextField{Name: "normalized_amount", Required: false})
		c.Fields.Add(&core.BoolField{Name: "is_included_in_total"})
		c.Fields.Add(&core.BoolField{Name: "is_no_bid"})
		c.Fields.Add(&core.BoolField{Name: "is_non_comparable"})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
