package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

type pricingRequest struct {
	Rows []services.PricingInput `json:"rows"`
}

// HandleBidPricingSave upserts pricing rows for a bid. Every row must name a
// node that is priceable at the tender's pricing level.
// Route: POST /tenders/{id}/bids/{bidId}/pricing
func HandleBidPricingSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		tender, err := requireTender(app, e)
		if err != nil {
			return respondError(e, err)
		}

		bidID := e.Request.PathValue("bidId")
		sub, err := app.FindRecordById("bid_submissions", bidID)
		if err != nil || sub.GetString("tender") != tender.Id {
			return respondError(e, fmt.Errorf("%w: %s", services.ErrBidSubmissionNotFound, bidID))
		}

		var req pricingRequest
		if err := e.BindBody(&req); err != nil {
			return badRequest(e, "Invalid request body")
		}
		if len(req.Rows) == 0 {
			return badRequest(e, "No pricing rows submitted")
		}

		nodes, err := newAggregator(app, 0).GetPriceableNodeIDs(tender.Id)
		if err != nil {
			return respondError(e, err)
		}
		for i, row := range req.Rows {
			node := row.ItemID
			if node == "" {
				node = row.SectionID
			}
			if node != "" && !nodes.Contains(node) {
				return badRequest(e, fmt.Sprintf("Row %d: %s is not priceable at %s level", i, node, nodes.Level))
			}
		}

		saved, err := services.SaveBidPricing(app, bidID, req.Rows)
		if err != nil {
			return respondError(e, err)
		}

		e.App.Logger().Info("bid pricing saved", "tender", tender.Id, "bid", bidID, "rows", saved)
		return e.JSON(http.StatusOK, map[string]int{"saved": saved})
	}
}
