package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// pdfLayout holds grid widths for one comparable sheet. The grid grows with
// the number of bidders so every bidder keeps a Rate and an Amount column.
type pdfLayout struct {
	grid    int
	index   int
	desc    int
	qty     int
	uom     int
	money   int
	average int
}

func newPDFLayout(bidders int) pdfLayout {
	l := pdfLayout{index: 1, desc: 5, qty: 2, uom: 2, money: 2, average: 2}
	l.grid = l.index + l.desc + l.qty + l.uom + 2*l.money*bidders + l.average
	return l
}

// GenerateComparableSheetPDF renders a comparable sheet as a landscape A4
// PDF using maroto/v2. It returns the raw PDF bytes or an error.
func GenerateComparableSheetPDF(data ExportData) ([]byte, error) {
	layout := newPDFLayout(len(data.Bidders))

	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(layout.grid).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, layout, data)
	addTableHeader(m, layout, data.Bidders)
	for _, r := range data.Rows {
		addTableRow(m, layout, r)
	}
	addSummary(m, layout, data)
	addFooter(m, layout, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// addHeader adds the title, reference number, and date to the PDF.
func addHeader(m core.Maroto, l pdfLayout, data ExportData) {
	half := l.grid / 2
	m.AddRows(
		row.New(12).Add(
			col.New(l.grid).Add(
				text.New("Comparable Statement: "+data.Title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	m.AddRows(
		row.New(8).Add(
			col.New(half).Add(
				text.New(fmt.Sprintf("Reference: %s   Pricing level: %s", data.ReferenceNumber, data.PricingLevel), props.Text{
					Size:  9,
					Align: align.Left,
					Color: grey,
				}),
			),
			col.New(l.grid-half).Add(
				text.New(fmt.Sprintf("Date: %s", data.CreatedDate), props.Text{
					Size:  9,
					Align: align.Right,
					Color: grey,
				}),
			),
		),
	)

	for _, w := range data.Warnings {
		m.AddRows(
			row.New(7).Add(
				col.New(l.grid).Add(
					text.New(w, props.Text{
						Size:  9,
						Style: fontstyle.BoldItalic,
						Align: align.Left,
						Color: &props.Color{Red: 176, Green: 0, Blue: 32},
					}),
				),
			),
		)
	}

	m.AddRows(row.New(4))
}

// addTableHeader adds the bidder name row and the column header row.
func addTableHeader(m core.Maroto, l pdfLayout, bidders []string) {
	headerCell := props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left

	names := []core.Col{col.New(l.index + l.desc + l.qty + l.uom).WithStyle(&headerCell)}
	for _, b := range bidders {
		names = append(names, col.New(2*l.money).Add(text.New(b, headerText)).WithStyle(&headerCell))
	}
	names = append(names, col.New(l.average).WithStyle(&headerCell))
	m.AddRows(row.New(7).Add(names...))

	cols := []core.Col{
		col.New(l.index).Add(text.New("#", headerText)).WithStyle(&headerCell),
		col.New(l.desc).Add(text.New("Description", headerTextLeft)).WithStyle(&headerCell),
		col.New(l.qty).Add(text.New("Qty", headerText)).WithStyle(&headerCell),
		col.New(l.uom).Add(text.New("UOM", headerText)).WithStyle(&headerCell),
	}
	for range bidders {
		cols = append(cols,
			col.New(l.money).Add(text.New("Rate", headerText)).WithStyle(&headerCell),
			col.New(l.money).Add(text.New("Amount", headerText)).WithStyle(&headerCell),
		)
	}
	cols = append(cols, col.New(l.average).Add(text.New("Avg Rate", headerText)).WithStyle(&headerCell))
	m.AddRows(row.New(7).Add(cols...))
}

// addTableRow adds a single data row, styled by row type.
func addTableRow(m core.Maroto, l pdfLayout, r ExportRow) {
	var cellStyle *props.Cell
	textSize := 7.0
	textStyle := fontstyle.Normal
	descPrefix := ""
	if r.Indent > 0 {
		descPrefix = "  "
	}

	switch r.Kind {
	case RowTypeItemGroupHeader:
		textStyle = fontstyle.Bold
		textSize = 8
	case RowTypeItemSubtotal:
		textStyle = fontstyle.Bold
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 245, Blue: 245}}
	case RowTypeBillSubtotal:
		textStyle = fontstyle.Bold
		textSize = 8
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 230, Green: 230, Blue: 230}}
	}

	baseText := props.Text{Size: textSize, Style: textStyle, Align: align.Center}
	leftText := baseText
	leftText.Align = align.Left
	rightText := baseText
	rightText.Align = align.Right

	cols := []core.Col{
		col.New(l.index).Add(text.New(r.Index, baseText)),
		col.New(l.desc).Add(text.New(descPrefix+r.Description, leftText)),
		col.New(l.qty).Add(text.New(r.Qty, rightText)),
		col.New(l.uom).Add(text.New(r.UOM, baseText)),
	}
	for i := range r.Amounts {
		cols = append(cols,
			col.New(l.money).Add(text.New(r.Rates[i], rightText)),
			col.New(l.money).Add(text.New(r.Amounts[i], rightText)),
		)
	}
	cols = append(cols, col.New(l.average).Add(text.New(r.AverageRate, rightText)))

	if cellStyle != nil {
		for i := range cols {
			cols[i] = cols[i].WithStyle(cellStyle)
		}
	}

	m.AddRows(row.New(7).Add(cols...))
}

// addSummary adds the per-bidder grand totals at the bottom of the PDF.
func addSummary(m core.Maroto, l pdfLayout, data ExportData) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	labelStyle := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	cols := []core.Col{
		col.New(l.index + l.desc + l.qty + l.uom).Add(text.New("Grand Total", labelStyle)).WithStyle(summaryCell),
	}
	for _, total := range data.GrandTotals {
		cols = append(cols, col.New(2*l.money).Add(text.New(total, labelStyle)).WithStyle(summaryCell))
	}
	cols = append(cols, col.New(l.average).WithStyle(summaryCell))
	m.AddRows(row.New(8).Add(cols...))
}

// addFooter adds the generated-date line at the bottom.
func addFooter(m core.Maroto, l pdfLayout, data ExportData) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(l.grid).Add(
				text.New(
					fmt.Sprintf("Generated on %s", data.CreatedDate),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}
