package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

type contextKey string

const TenderKey contextKey = "tender"

// GetTender extracts the tender record loaded by TenderMiddleware.
func GetTender(r *http.Request) *core.Record {
	if val, ok := r.Context().Value(TenderKey).(*core.Record); ok {
		return val
	}
	return nil
}

// TenderMiddleware resolves the {id} path value to a tender record and stores
// it in the request context. Unknown tenders end the request with a 404.
func TenderMiddleware(app *pocketbase.PocketBase) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		tenderID := e.Request.PathValue("id")
		if tenderID == "" {
			return e.Next()
		}
		rec, err := services.FindTender(app, tenderID)
		if err != nil {
			return respondError(e, err)
		}
		ctx := context.WithValue(e.Request.Context(), TenderKey, rec)
		e.Request = e.Request.WithContext(ctx)
		return e.Next()
	}
}

// requireTender returns the tender for the request, loading it when the
// middleware did not run.
func requireTender(app *pocketbase.PocketBase, e *core.RequestEvent) (*core.Record, error) {
	if rec := GetTender(e.Request); rec != nil && rec.Id == e.Request.PathValue("id") {
		return rec, nil
	}
	return services.FindTender(app, e.Request.PathValue("id"))
}
