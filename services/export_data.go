package services

import "fmt"

// ExportRow represents a single rendered row of the comparable sheet export.
type ExportRow struct {
	Kind        RowType
	Indent      int      // 0 = top level, 1 = sub-item under a group
	Index       string   // item or section number
	Description string
	Qty         string
	UOM         string
	Rates       []string // one per bidder, aligned with ExportData.Bidders
	Amounts     []string // one per bidder
	AverageRate string
}

// ExportData holds all data needed for export, already formatted as text.
type ExportData struct {
	Title           string
	ReferenceNumber string
	CreatedDate     string
	Currency        string
	PricingLevel    string
	Bidders         []string // "#1 Name", lowest bid first
	Rows            []ExportRow
	GrandTotals     []string
	Warnings        []string
}

// noBidText marks a cell whose bidder did not price the node.
const noBidText = "No Bid"

// NewExportData flattens a comparable sheet into display strings shared by
// the Excel, PDF and HTML renderers.
func NewExportData(sheet *ComparableSheet, createdDate string) ExportData {
	data := ExportData{
		Title:           sheet.TenderTitle,
		ReferenceNumber: sheet.ReferenceNumber,
		CreatedDate:     createdDate,
		Currency:        sheet.Currency,
		PricingLevel:    string(sheet.PricingLevel),
		Warnings:        sheet.Warnings,
	}
	for _, b := range sheet.Bidders {
		name := b.BidderName
		if name == "" {
			name = b.BidSubmissionID
		}
		data.Bidders = append(data.Bidders, fmt.Sprintf("#%d %s", b.Rank, name))
	}
	for _, total := range sheet.GrandTotals {
		data.GrandTotals = append(data.GrandTotals, FormatAmount(total, sheet.Currency))
	}

	for _, r := range sheet.Rows {
		row := ExportRow{
			Kind:        r.RowType,
			Index:       r.ItemNumber,
			Description: r.Description,
			Qty:         FormatQuantity(r.Quantity),
			UOM:         r.UOM,
			Rates:       make([]string, len(r.Cells)),
			Amounts:     make([]string, len(r.Cells)),
			AverageRate: FormatNullAmount(r.AverageRate, sheet.Currency),
		}
		if r.RowType == RowTypeItem && r.ParentItemID != "" {
			row.Indent = 1
		}
		for i, cell := range r.Cells {
			row.Rates[i], row.Amounts[i] = cellText(r.RowType, cell, sheet.Currency)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// cellText renders one bidder cell. Only item rows can be no-bid; synthesized
// rows carry an amount alone.
func cellText(kind RowType, cell BidderCell, currency string) (rate, amount string) {
	if kind != RowTypeItem {
		return "", FormatNullAmount(cell.Amount, currency)
	}
	if cell.IsNoBid {
		return noBidText, ""
	}
	rate = FormatNullAmount(cell.Rate, currency)
	amount = FormatNullAmount(cell.Amount, currency)
	if cell.IsNonComparable {
		amount += " (NC)"
	}
	return rate, amount
}
