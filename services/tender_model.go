package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTenderNotFound is returned when a tender id does not resolve.
var ErrTenderNotFound = errors.New("tender not found")

// ErrBidSubmissionNotFound is returned when a bid id is not part of the tender.
var ErrBidSubmissionNotFound = errors.New("bid submission not found")

// PricingLevel is the depth of the BOQ at which bidders price.
type PricingLevel string

const (
	PricingLevelBill    PricingLevel = "bill"
	PricingLevelItem    PricingLevel = "item"
	PricingLevelSubItem PricingLevel = "sub_item"
)

// PricingLevels lists the valid levels in display order.
var PricingLevels = []PricingLevel{PricingLevelBill, PricingLevelItem, PricingLevelSubItem}

// ParsePricingLevel accepts the stored form and a few spellings of it.
func ParsePricingLevel(s string) (PricingLevel, error) {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(s))) {
	case "bill":
		return PricingLevelBill, nil
	case "item":
		return PricingLevelItem, nil
	case "subitem":
		return PricingLevelSubItem, nil
	}
	return "", fmt.Errorf("unknown pricing level %q", s)
}

// Bid submission statuses.
const (
	BidStatusPending      = "pending"
	BidStatusImported     = "imported"
	BidStatusDisqualified = "disqualified"
	BidStatusWithdrawn    = "withdrawn"
)

type Tender struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	ReferenceNumber string       `json:"reference_number"`
	PricingLevel    PricingLevel `json:"pricing_level"`
	Currency        string       `json:"currency"`
}

// Section is a persisted BOQ section. ParentID is empty for a bill.
type Section struct {
	ID            string `json:"id"`
	SectionNumber string `json:"section_number"`
	Title         string `json:"title"`
	ParentID      string `json:"parent_id,omitempty"`
	Level         int    `json:"level"`
	SortOrder     int    `json:"sort_order"`
}

// Item is a persisted BOQ item. ParentItemID is set for sub-items.
type Item struct {
	ID           string              `json:"id"`
	SectionID    string              `json:"section_id"`
	ItemNumber   string              `json:"item_number"`
	Description  string              `json:"description"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UOM          string              `json:"uom"`
	ParentItemID string              `json:"parent_item_id,omitempty"`
	IsGroup      bool                `json:"is_group"`
	SortOrder    int                 `json:"sort_order"`
}

type BidSubmission struct {
	ID         string `json:"id"`
	BidderID   string `json:"bidder_id"`
	BidderName string `json:"bidder_name"`
	Status     string `json:"status"`
}

// BidPricing is one priced node of a bid: an item, or a section when the
// tender is priced per bill. Absent amounts are invalid NullDecimals.
type BidPricing struct {
	ID                string              `json:"id"`
	BidSubmissionID   string              `json:"bid_submission_id"`
	ItemID            string              `json:"item_id,omitempty"`
	SectionID         string              `json:"section_id,omitempty"`
	UnitRate          decimal.NullDecimal `json:"unit_rate"`
	Amount            decimal.NullDecimal `json:"amount"`
	NormalizedAmount  decimal.NullDecimal `json:"normalized_amount"`
	IsIncludedInTotal bool                `json:"is_included_in_total"`
	IsNoBid           bool                `json:"is_no_bid"`
	IsNonComparable   bool                `json:"is_non_comparable"`
}

// normalized returns the amount that counts toward sums; absent is zero.
func (p BidPricing) normalized() decimal.Decimal {
	if !p.NormalizedAmount.Valid {
		return decimal.Zero
	}
	return p.NormalizedAmount.Decimal
}

// TenderSnapshot is a consistent read of one tender's BOQ tree and bids.
// Sections are in persisted sort order; Items are in query order: grouped by
// section sort order, then item sort order.
type TenderSnapshot struct {
	Tender      Tender          `json:"tender"`
	Sections    []Section       `json:"sections"`
	Items       []Item          `json:"items"`
	Submissions []BidSubmission `json:"submissions"`
	Pricing     []BidPricing    `json:"pricing"`
}

// TenderStore loads tender snapshots. Implementations return an error
// wrapping ErrTenderNotFound for unknown ids.
type TenderStore interface {
	LoadTenderSnapshot(tenderID string) (*TenderSnapshot, error)
}
