package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
	"tenderboq/templates"
)

// comparableOptions reads the "bids" (comma-separated submission ids) and
// "min_bidders" query parameters. A non-empty message rejects the request.
func comparableOptions(e *core.RequestEvent) (services.ComparableSheetOptions, string) {
	var opts services.ComparableSheetOptions
	q := e.Request.URL.Query()

	for _, id := range strings.Split(q.Get("bids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.BidSubmissionIDs = append(opts.BidSubmissionIDs, id)
		}
	}

	if raw := strings.TrimSpace(q.Get("min_bidders")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return opts, "min_bidders must be a positive integer"
		}
		opts.MinBidders = n
	}
	return opts, ""
}

// HandleComparableSheet returns the bidder comparison as JSON.
// Route: GET /tenders/{id}/comparable
func HandleComparableSheet(app *pocketbase.PocketBase, minBidders int) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		opts, msg := comparableOptions(e)
		if msg != "" {
			return badRequest(e, msg)
		}

		sheet, err := newAggregator(app, minBidders).BuildComparableSheet(e.Request.PathValue("id"), opts)
		if err != nil {
			return respondError(e, err)
		}
		return e.JSON(http.StatusOK, sheet)
	}
}

// HandleComparableSheetView renders the bidder comparison as an HTML table.
// HTMX requests get the table fragment only.
// Route: GET /tenders/{id}/comparable/view
func HandleComparableSheetView(app *pocketbase.PocketBase, minBidders int) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		opts, msg := comparableOptions(e)
		if msg != "" {
			return ErrorToast(e, http.StatusBadRequest, msg)
		}

		data, err := buildComparableExport(app, e.Request.PathValue("id"), minBidders, opts)
		if err != nil {
			if errors.Is(err, services.ErrTenderNotFound) {
				return ErrorToast(e, http.StatusNotFound, "Tender not found")
			}
			e.App.Logger().Error("comparable view failed", "tender", e.Request.PathValue("id"), "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Failed to build comparable sheet")
		}

		isHTMX := e.Request.Header.Get("HX-Request") == "true"
		e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
		if isHTMX {
			return templates.ComparableTable(data).Render(e.Request.Context(), e.Response)
		}
		return templates.ComparablePage(data).Render(e.Request.Context(), e.Response)
	}
}
