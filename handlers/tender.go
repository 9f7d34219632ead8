package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

// HandleTenderCreate creates a tender from a JSON body.
// Route: POST /tenders
func HandleTenderCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var in services.TenderInput
		if err := e.BindBody(&in); err != nil {
			return badRequest(e, "Invalid request body")
		}

		id, err := services.CreateTender(app, in)
		if err != nil {
			return respondError(e, err)
		}

		e.App.Logger().Info("tender created", "tender", id, "pricing_level", in.PricingLevel)
		return e.JSON(http.StatusCreated, map[string]string{"id": id})
	}
}

// HandleTenderView returns the tender with its BOQ tree, bids and pricing.
// Route: GET /tenders/{id}
func HandleTenderView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		snap, err := services.NewPocketBaseTenderStore(app).LoadTenderSnapshot(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, err)
		}
		return e.JSON(http.StatusOK, snap)
	}
}
