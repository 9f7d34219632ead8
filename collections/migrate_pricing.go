package collections

import (
	"fmt"
	"log"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/shopspring/decimal"
)

// MigrateNormalizedAmounts fills normalized_amount on pricing rows that have
// an amount but were stored before normalization existed. The amount is
// multiplied by the submission's fx_rate; an empty fx_rate counts as 1.
// Safe to call on every startup -- returns early if nothing to migrate.
func MigrateNormalizedAmounts(app *pocketbase.PocketBase) error {
	pricingCol, err := app.FindCollectionByNameOrId("bid_pricing")
	if err != nil {
		return fmt.Errorf("migrate: could not find bid_pricing collection: %w", err)
	}

	pending, err := app.FindRecordsByFilter(
		pricingCol,
		"amount != '' && normalized_amount = ''",
		"",
		0,
		0,
		nil,
	)
	if err != nil {
		return fmt.Errorf("migrate: could not query pricing rows: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("migrate: found %d pricing row(s) without a normalized amount -- backfilling...\n", len(pending))

	if errs := app.ExpandRecords(pending, []string{"bid_submission"}, nil); len(errs) > 0 {
		for key, expandErr := range errs {
			return fmt.Errorf("migrate: expand %s: %w", key, expandErr)
		}
	}

	for _, p := range pending {
		amount, err := decimal.NewFromString(strings.TrimSpace(p.GetString("amount")))
		if err != nil {
			log.Printf("migrate: pricing %s has a malformed amount %q, skipping: %v\n", p.Id, p.GetString("amount"), err)
			continue
		}

		fx := decimal.NewFromInt(1)
		if sub := p.ExpandedOne("bid_submission"); sub != nil {
			if raw := strings.TrimSpace(sub.GetString("fx_rate")); raw != "" {
				rate, err := decimal.NewFromString(raw)
				if err != nil || rate.IsZero() {
					log.Printf("migrate: submission %s has an unusable fx_rate %q, using 1\n", sub.Id, raw)
				} else {
					fx = rate
				}
			}
		}

		p.Set("normalized_amount", amount.Mul(fx).String())
		if err := app.Save(p); err != nil {
			log.Printf("migrate: failed to save pricing %s: %v\n", p.Id, err)
			continue
		}
	}

	log.Println("migrate: normalized amount backfill complete.")
	return nil
}
