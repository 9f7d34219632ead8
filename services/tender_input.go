package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// TenderInput is the payload for creating a tender.
type TenderInput struct {
	Title           string `json:"title"`
	ReferenceNumber string `json:"reference_number"`
	PricingLevel    string `json:"pricing_level"`
	Currency        string `json:"currency"`
}

func (in TenderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.ReferenceNumber, validation.Length(0, 100)),
		validation.Field(&in.PricingLevel, validation.Required, validation.By(func(v any) error {
			_, err := ParsePricingLevel(v.(string))
			return err
		})),
		validation.Field(&in.Currency, validation.Length(0, 3)),
	)
}

// CreateTender validates and stores a tender, returning its id.
func CreateTender(app core.App, in TenderInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	level, _ := ParsePricingLevel(in.PricingLevel)

	col, err := app.FindCollectionByNameOrId("tenders")
	if err != nil {
		return "", fmt.Errorf("collection not found: %w", err)
	}
	rec := core.NewRecord(col)
	rec.Set("title", strings.TrimSpace(in.Title))
	rec.Set("reference_number", strings.TrimSpace(in.ReferenceNumber))
	rec.Set("pricing_level", string(level))
	rec.Set("currency", strings.ToUpper(strings.TrimSpace(in.Currency)))
	if err := app.Save(rec); err != nil {
		return "", fmt.Errorf("save tender: %w", err)
	}
	return rec.Id, nil
}

// PricingInput is one priced node submitted for a bid. Exactly one of ItemID
// and SectionID is set.
type PricingInput struct {
	ItemID            string `json:"item_id"`
	SectionID         string `json:"section_id"`
	UnitRate          string `json:"unit_rate"`
	Amount            string `json:"amount"`
	IsIncludedInTotal *bool  `json:"is_included_in_total"`
	IsNoBid           bool   `json:"is_no_bid"`
	IsNonComparable   bool   `json:"is_non_comparable"`
}

var errNotDecimal = validation.NewError("validation_not_decimal", "must be a decimal number")

func decimalText(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := ParseQuantity(s); !ok {
		return errNotDecimal
	}
	return nil
}

func (in PricingInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ItemID, validation.When(in.SectionID == "", validation.Required.Error("item_id or section_id is required"))),
		validation.Field(&in.SectionID, validation.When(in.ItemID != "", validation.Empty.Error("set either item_id or section_id, not both"))),
		validation.Field(&in.UnitRate, validation.By(decimalText)),
		validation.Field(&in.Amount, validation.By(decimalText)),
	)
}

// SaveBidPricing upserts pricing rows for a bid submission. Amounts are
// normalized into the tender currency with the submission's fx_rate. When no
// amount is given it is derived from the unit rate and the item quantity.
func SaveBidPricing(app core.App, bidSubmissionID string, inputs []PricingInput) (int, error) {
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return 0, fmt.Errorf("pricing row %d: %w", i, err)
		}
	}

	saved := 0
	err := app.RunInTransaction(func(txApp core.App) error {
		sub, err := txApp.FindRecordById("bid_submissions", bidSubmissionID)
		if err != nil {
			return fmt.Errorf("bid submission %s: %w", bidSubmissionID, err)
		}
		fx := decimal.NewFromInt(1)
		if rate, ok := ParseQuantity(sub.GetString("fx_rate")); ok && !rate.IsZero() {
			fx = rate
		}
		col, err := txApp.FindCollectionByNameOrId("bid_pricing")
		if err != nil {
			return fmt.Errorf("collection not found: %w", err)
		}

		for _, in := range inputs {
			filter := "bid_submission = {:bid} && boq_item = {:node}"
			node := in.ItemID
			if node == "" {
				filter = "bid_submission = {:bid} && boq_section = {:node} && boq_item = ''"
				node = in.SectionID
			}

			rec, err := txApp.FindFirstRecordByFilter(col, filter, map[string]any{"bid": bidSubmissionID, "node": node})
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("lookup pricing: %w", err)
				}
				rec = core.NewRecord(col)
				rec.Set("bid_submission", bidSubmissionID)
				rec.Set("is_included_in_total", true)
			}

			var qty decimal.NullDecimal
			if in.ItemID != "" {
				item, err := txApp.FindRecordById("boq_items", in.ItemID)
				if err != nil {
					return fmt.Errorf("boq item %s: %w", in.ItemID, err)
				}
				qty = parseNullDecimal(item.GetString("quantity"))
				rec.Set("boq_item", in.ItemID)
			} else {
				rec.Set("boq_section", in.SectionID)
			}

			rate := parseNullDecimal(in.UnitRate)
			amount := parseNullDecimal(in.Amount)
			if !amount.Valid && rate.Valid && qty.Valid {
				amount = decimal.NewNullDecimal(rate.Decimal.Mul(qty.Decimal))
			}
			normalized := decimal.NullDecimal{}
			if amount.Valid {
				normalized = decimal.NewNullDecimal(amount.Decimal.Mul(fx))
			}

			rec.Set("unit_rate", formatNullDecimal(rate))
			rec.Set("amount", formatNullDecimal(amount))
			rec.Set("normalized_amount", formatNullDecimal(normalized))
			rec.Set("is_no_bid", in.IsNoBid)
			rec.Set("is_non_comparable", in.IsNonComparable)
			if in.IsIncludedInTotal != nil {
				rec.Set("is_included_in_total", *in.IsIncludedInTotal)
			}
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save pricing for %s: %w", node, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}
