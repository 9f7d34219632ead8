package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceableNodes is the set of nodes that may carry a price at the tender's
// pricing level: bill sections at Bill level, items otherwise.
type PriceableNodes struct {
	Level      PricingLevel `json:"level"`
	SectionIDs []string     `json:"section_ids,omitempty"`
	ItemIDs    []string     `json:"item_ids,omitempty"`
}

// Contains reports whether the node id is priceable.
func (p PriceableNodes) Contains(id string) bool {
	ids := p.ItemIDs
	if p.Level == PricingLevelBill {
		ids = p.SectionIDs
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type BillTotal struct {
	SectionID     string          `json:"section_id"`
	SectionNumber string          `json:"section_number"`
	Title         string          `json:"title"`
	Total         decimal.Decimal `json:"total"`
}

type ItemTotal struct {
	ItemID      string          `json:"item_id"`
	ItemNumber  string          `json:"item_number"`
	Description string          `json:"description"`
	IsGroup     bool            `json:"is_group"`
	Total       decimal.Decimal `json:"total"`
}

// unassignedBillTitle labels priced items whose section is not under any bill.
const unassignedBillTitle = "Unassigned"

// PriceableNodes computes the priceable set from the persisted tree.
func (s *TenderSnapshot) PriceableNodes() PriceableNodes {
	nodes := PriceableNodes{Level: s.Tender.PricingLevel}
	switch s.Tender.PricingLevel {
	case PricingLevelBill:
		nodes.SectionIDs = []string{}
		for _, sec := range s.Sections {
			if sec.ParentID == "" {
				nodes.SectionIDs = append(nodes.SectionIDs, sec.ID)
			}
		}
	default:
		nodes.ItemIDs = []string{}
		for _, it := range s.Items {
			if s.isPriceableItem(it) {
				nodes.ItemIDs = append(nodes.ItemIDs, it.ID)
			}
		}
	}
	return nodes
}

func (s *TenderSnapshot) isPriceableItem(it Item) bool {
	switch s.Tender.PricingLevel {
	case PricingLevelItem:
		return it.ParentItemID == ""
	case PricingLevelSubItem:
		return !it.IsGroup
	}
	return false
}

func (s *TenderSnapshot) hasSubmission(bidSubmissionID string) bool {
	for _, sub := range s.Submissions {
		if sub.ID == bidSubmissionID {
			return true
		}
	}
	return false
}

// bidPricing returns the bid's pricing rows.
func (s *TenderSnapshot) bidPricing(bidSubmissionID string) []BidPricing {
	var out []BidPricing
	for _, p := range s.Pricing {
		if p.BidSubmissionID == bidSubmissionID {
			out = append(out, p)
		}
	}
	return out
}

// itemAmounts sums included pricing per item id for a bid.
func (s *TenderSnapshot) itemAmounts(bidSubmissionID string) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, p := range s.bidPricing(bidSubmissionID) {
		if p.ItemID == "" || !p.IsIncludedInTotal {
			continue
		}
		sums[p.ItemID] = sums[p.ItemID].Add(p.normalized())
	}
	return sums
}

// sectionAmounts sums included section-keyed pricing per section id.
func (s *TenderSnapshot) sectionAmounts(bidSubmissionID string) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, p := range s.bidPricing(bidSubmissionID) {
		if p.ItemID != "" || p.SectionID == "" || !p.IsIncludedInTotal {
			continue
		}
		sums[p.SectionID] = sums[p.SectionID].Add(p.normalized())
	}
	return sums
}

// GrandTotal sums the bid's included pricing over the priceable nodes.
func (s *TenderSnapshot) GrandTotal(bidSubmissionID string) decimal.Decimal {
	total := decimal.Zero
	if s.Tender.PricingLevel == PricingLevelBill {
		amounts := s.sectionAmounts(bidSubmissionID)
		for _, sec := range s.Sections {
			if sec.ParentID == "" {
				total = total.Add(amounts[sec.ID])
			}
		}
		return total
	}

	amounts := s.itemAmounts(bidSubmissionID)
	for _, it := range s.Items {
		if s.isPriceableItem(it) {
			total = total.Add(amounts[it.ID])
		}
	}
	return total
}

// descendantSections returns rootID and every section below it, breadth first.
func (s *TenderSnapshot) descendantSections(rootID string) map[string]bool {
	children := make(map[string][]string)
	for _, sec := range s.Sections {
		if sec.ParentID != "" {
			children[sec.ParentID] = append(children[sec.ParentID], sec.ID)
		}
	}

	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return seen
}

// BillTotals returns one total per bill (top-level section) in sort order.
// At Item and SubItem level, priced items outside every bill are reported in
// a trailing Unassigned entry so the totals always add up to GrandTotal.
func (s *TenderSnapshot) BillTotals(bidSubmissionID string) []BillTotal {
	var out []BillTotal
	if s.Tender.PricingLevel == PricingLevelBill {
		amounts := s.sectionAmounts(bidSubmissionID)
		for _, sec := range s.Sections {
			if sec.ParentID != "" {
				continue
			}
			out = append(out, BillTotal{
				SectionID:     sec.ID,
				SectionNumber: sec.SectionNumber,
				Title:         sec.Title,
				Total:         amounts[sec.ID],
			})
		}
		return out
	}

	amounts := s.itemAmounts(bidSubmissionID)
	covered := make(map[string]bool)
	for _, sec := range s.Sections {
		if sec.ParentID != "" {
			continue
		}
		subtree := s.descendantSections(sec.ID)
		total := decimal.Zero
		for _, it := range s.Items {
			if s.isPriceableItem(it) && subtree[it.SectionID] {
				total = total.Add(amounts[it.ID])
				covered[it.ID] = true
			}
		}
		out = append(out, BillTotal{
			SectionID:     sec.ID,
			SectionNumber: sec.SectionNumber,
			Title:         sec.Title,
			Total:         total,
		})
	}

	orphan := decimal.Zero
	hasOrphan := false
	for _, it := range s.Items {
		if !s.isPriceableItem(it) || covered[it.ID] {
			continue
		}
		if amt, ok := amounts[it.ID]; ok {
			orphan = orphan.Add(amt)
			hasOrphan = true
		}
	}
	if hasOrphan {
		out = append(out, BillTotal{Title: unassignedBillTitle, Total: orphan})
	}
	return out
}

// ItemTotals returns one total per top-level item. It is only meaningful at
// SubItem level and is empty otherwise. A group totals its direct priced
// children; a standalone item carries its own pricing.
func (s *TenderSnapshot) ItemTotals(bidSubmissionID string) []ItemTotal {
	out := []ItemTotal{}
	if s.Tender.PricingLevel != PricingLevelSubItem {
		return out
	}

	amounts := s.itemAmounts(bidSubmissionID)
	for _, it := range s.Items {
		if it.ParentItemID != "" {
			continue
		}
		total := decimal.Zero
		if it.IsGroup {
			for _, child := range s.Items {
				if child.ParentItemID == it.ID && !child.IsGroup {
					total = total.Add(amounts[child.ID])
				}
			}
		} else {
			total = amounts[it.ID]
		}
		out = append(out, ItemTotal{
			ItemID:      it.ID,
			ItemNumber:  it.ItemNumber,
			Description: it.Description,
			IsGroup:     it.IsGroup,
			Total:       total,
		})
	}
	return out
}

// Aggregator answers roll-up queries against a TenderStore. Every call reads
// a fresh snapshot; nothing is cached between calls.
type Aggregator struct {
	store      TenderStore
	minBidders int
}

// NewAggregator returns an aggregator. minBidders is the comparable-sheet
// warning threshold; non-positive selects DefaultMinBidders.
func NewAggregator(store TenderStore, minBidders int) *Aggregator {
	if minBidders <= 0 {
		minBidders = DefaultMinBidders
	}
	return &Aggregator{store: store, minBidders: minBidders}
}

func (a *Aggregator) GetPriceableNodeIDs(tenderID string) (PriceableNodes, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return PriceableNodes{}, err
	}
	return snap.PriceableNodes(), nil
}

func (a *Aggregator) CalculateGrandTotal(tenderID, bidSubmissionID string) (decimal.Decimal, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.GrandTotal(bidSubmissionID), nil
}

func (a *Aggregator) CalculateBillTotals(tenderID, bidSubmissionID string) ([]BillTotal, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return nil, err
	}
	return snap.BillTotals(bidSubmissionID), nil
}

func (a *Aggregator) CalculateItemTotals(tenderID, bidSubmissionID string) ([]ItemTotal, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return nil, err
	}
	return snap.ItemTotals(bidSubmissionID), nil
}

// BidTotals bundles every roll-up of one bid, read from a single snapshot.
type BidTotals struct {
	TenderID        string          `json:"tender_id"`
	BidSubmissionID string          `json:"bid_submission_id"`
	PricingLevel    PricingLevel    `json:"pricing_level"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	BillTotals      []BillTotal     `json:"bill_totals"`
	ItemTotals      []ItemTotal     `json:"item_totals"`
}

// CalculateBidTotals fails with ErrBidSubmissionNotFound when the bid does
// not belong to the tender.
func (a *Aggregator) CalculateBidTotals(tenderID, bidSubmissionID string) (BidTotals, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return BidTotals{}, err
	}
	if !snap.hasSubmission(bidSubmissionID) {
		return BidTotals{}, fmt.Errorf("%w: %s", ErrBidSubmissionNotFound, bidSubmissionID)
	}
	return BidTotals{
		TenderID:        tenderID,
		BidSubmissionID: bidSubmissionID,
		PricingLevel:    snap.Tender.PricingLevel,
		GrandTotal:      snap.GrandTotal(bidSubmissionID),
		BillTotals:      snap.BillTotals(bidSubmissionID),
		ItemTotals:      snap.ItemTotals(bidSubmissionID),
	}, nil
}

func (a *Aggregator) BuildComparableSheet(tenderID string, opts ComparableSheetOptions) (*ComparableSheet, error) {
	snap, err := a.store.LoadTenderSnapshot(tenderID)
	if err != nil {
		return nil, err
	}
	if opts.MinBidders <= 0 {
		opts.MinBidders = a.minBidders
	}
	return BuildComparableSheet(snap, opts), nil
}
