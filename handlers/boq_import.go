package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/services"
)

// maxUploadBytes caps a BOQ sheet upload.
const maxUploadBytes = 10 << 20

// readBOQUpload parses the "file" upload (and optional "sheet" name) into
// raw rows. A non-empty message means the upload was rejected.
func readBOQUpload(e *core.RequestEvent) ([]services.RawRow, services.ColumnMapping, string) {
	if err := e.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, services.ColumnMapping{}, "File too large or invalid form data"
	}

	file, header, err := e.Request.FormFile("file")
	if err != nil {
		return nil, services.ColumnMapping{}, "Please select a file to upload"
	}
	defer file.Close()

	rows, mapping, err := services.ReadBOQRows(file, header.Filename, e.Request.FormValue("sheet"))
	if err != nil {
		return nil, services.ColumnMapping{}, err.Error()
	}
	if len(rows) == 0 {
		return nil, services.ColumnMapping{}, "The sheet has no rows below its header"
	}
	return rows, mapping, ""
}

// HandleBOQPreview classifies an uploaded BOQ sheet and returns the import
// plan without writing anything.
// Route: POST /tenders/{id}/boq/preview
func HandleBOQPreview(app *pocketbase.PocketBase, classifier *services.Classifier) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, err := requireTender(app, e); err != nil {
			return respondError(e, err)
		}

		rows, mapping, msg := readBOQUpload(e)
		if msg != "" {
			return badRequest(e, msg)
		}

		plan := services.BuildImportPlan(rows, classifier)
		return e.JSON(http.StatusOK, map[string]any{
			"mapping": mapping,
			"plan":    plan,
		})
	}
}

// HandleBOQImport classifies an uploaded BOQ sheet and replaces the tender's
// sections and items with the result.
// Route: POST /tenders/{id}/boq/import
func HandleBOQImport(app *pocketbase.PocketBase, classifier *services.Classifier) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		tender, err := requireTender(app, e)
		if err != nil {
			return respondError(e, err)
		}

		rows, _, msg := readBOQUpload(e)
		if msg != "" {
			return badRequest(e, msg)
		}

		plan := services.BuildImportPlan(rows, classifier)
		summary, err := services.SaveImportPlan(app, tender.Id, plan)
		if err != nil {
			return respondError(e, err)
		}

		e.App.Logger().Info("boq imported",
			"tender", tender.Id,
			"batch", summary.BatchID,
			"sections", summary.Sections,
			"items", summary.Items,
			"warnings", summary.Warnings,
		)
		SetTrigger(e, "boqImported", summary)
		SetToast(e, "success", fmt.Sprintf("Imported %d items in %d sections", summary.Items, summary.Sections))
		return e.JSON(http.StatusOK, map[string]any{
			"summary":  summary,
			"warnings": plan.Warnings,
		})
	}
}
