package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

// buildComparableExport loads the tender and its comparable sheet, returning
// the display-ready ExportData shared by every renderer.
func buildComparableExport(app *pocketbase.PocketBase, tenderID string, minBidders int, opts services.ComparableSheetOptions) (services.ExportData, error) {
	tenderRecord, err := services.FindTender(app, tenderID)
	if err != nil {
		return services.ExportData{}, err
	}

	sheet, err := newAggregator(app, minBidders).BuildComparableSheet(tenderID, opts)
	if err != nil {
		return services.ExportData{}, err
	}

	createdDate := "-"
	if dt := tenderRecord.GetDateTime("created"); !dt.IsZero() {
		createdDate = dt.Time().Format("02 Jan 2006")
	}

	return services.NewExportData(sheet, createdDate), nil
}

// exportFailure answers a failed export with a plain-text status.
func exportFailure(e *core.RequestEvent, op string, err error) error {
	if errors.Is(err, services.ErrTenderNotFound) {
		return e.String(http.StatusNotFound, "Tender not found")
	}
	e.App.Logger().Error(op+": failed to build comparable sheet", "tender", e.Request.PathValue("id"), "error", err)
	return e.String(http.StatusInternalServerError, "Failed to build comparable sheet")
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, `"`, "")
	return s
}

// HandleComparableSheetExcel returns a handler that downloads the comparable
// sheet as an Excel workbook.
// Route: GET /tenders/{id}/comparable/excel
func HandleComparableSheetExcel(app *pocketbase.PocketBase, minBidders int) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		opts, msg := comparableOptions(e)
		if msg != "" {
			return e.String(http.StatusBadRequest, msg)
		}

		data, err := buildComparableExport(app, e.Request.PathValue("id"), minBidders, opts)
		if err != nil {
			return exportFailure(e, "export_excel", err)
		}

		xlsxBytes, err := services.GenerateComparableSheetExcel(data)
		if err != nil {
			e.App.Logger().Error("export_excel: failed to generate", "tender", e.Request.PathValue("id"), "error", err)
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		filename := fmt.Sprintf("Comparable_%s_%d.xlsx", sanitizeFilename(data.Title), time.Now().Year())

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}

// HandleComparableSheetPDF returns a handler that downloads the comparable
// sheet as a landscape PDF.
// Route: GET /tenders/{id}/comparable/pdf
func HandleComparableSheetPDF(app *pocketbase.PocketBase, minBidders int) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		opts, msg := comparableOptions(e)
		if msg != "" {
			return e.String(http.StatusBadRequest, msg)
		}

		data, err := buildComparableExport(app, e.Request.PathValue("id"), minBidders, opts)
		if err != nil {
			return exportFailure(e, "export_pdf", err)
		}

		pdfBytes, err := services.GenerateComparableSheetPDF(data)
		if err != nil {
			e.App.Logger().Error("export_pdf: failed to generate", "tender", e.Request.PathValue("id"), "error", err)
			return e.String(http.StatusInternalServerError, "Failed to generate PDF file")
		}

		filename := fmt.Sprintf("Comparable_%s_%d.pdf", sanitizeFilename(data.Title), time.Now().Year())

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(pdfBytes)
		return err
	}
}
