package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

func badRequest(e *core.RequestEvent, message string) error {
	return e.JSON(http.StatusBadRequest, errorBody{Error: message})
}

// respondError maps a service error onto a JSON response. Anything it does
// not recognise is logged and reported as a 500.
func respondError(e *core.RequestEvent, err error) error {
	var fields validation.Errors
	switch {
	case errors.Is(err, services.ErrTenderNotFound):
		return e.JSON(http.StatusNotFound, errorBody{Error: "Tender not found"})
	case errors.Is(err, services.ErrBidSubmissionNotFound):
		return e.JSON(http.StatusNotFound, errorBody{Error: "Bid submission not found"})
	case errors.As(err, &fields):
		return e.JSON(http.StatusBadRequest, errorBody{Error: "Validation failed", Fields: fields})
	case errors.Is(err, services.ErrNoHeaderRow):
		return badRequest(e, err.Error())
	}

	e.App.Logger().Error("request failed",
		"method", e.Request.Method,
		"path", e.Request.URL.Path,
		"error", err,
	)
	return e.JSON(http.StatusInternalServerError, errorBody{Error: "Internal server error"})
}
