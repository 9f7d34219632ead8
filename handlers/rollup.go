package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

func newAggregator(app *pocketbase.PocketBase, minBidders int) *services.Aggregator {
	return services.NewAggregator(services.NewPocketBaseTenderStore(app), minBidders)
}

// HandleTenderPriceable lists the nodes bidders may price at the tender's
// pricing level.
// Route: GET /tenders/{id}/priceable
func HandleTenderPriceable(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		nodes, err := newAggregator(app, 0).GetPriceableNodeIDs(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, err)
		}
		return e.JSON(http.StatusOK, nodes)
	}
}

// HandleBidTotals returns the grand, bill and item totals of one bid.
// Route: GET /tenders/{id}/bids/{bidId}/totals
func HandleBidTotals(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		totals, err := newAggregator(app, 0).CalculateBidTotals(
			e.Request.PathValue("id"),
			e.Request.PathValue("bidId"),
		)
		if err != nil {
			return respondError(e, err)
		}
		return e.JSON(http.StatusOK, totals)
	}
}
