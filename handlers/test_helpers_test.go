package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/testhelpers"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// tenderFixture is an item-level tender with one bill, two items and two
// imported bids. Alpha prices both items (total 40); Beta prices only 1.1
// (total 30).
type tenderFixture struct {
	tender  *core.Record
	section *core.Record
	item1   *core.Record
	item2   *core.Record
	alpha   *core.Record
	beta    *core.Record
}

func newTenderFixture(t *testing.T, app *pocketbase.PocketBase) tenderFixture {
	t.Helper()
	f := tenderFixture{}
	f.tender = testhelpers.CreateTestTender(t, app, "Ring Road", "item")
	f.section = testhelpers.CreateTestSection(t, app, f.tender.Id, "1", "Earthworks", "", 0)
	f.item1 = testhelpers.CreateTestItem(t, app, f.tender.Id, testhelpers.TestItem{
		SectionID: f.section.Id, Number: "1.1", Desc: "Excavation", Qty: "10", UOM: "m3", SortOrder: 0,
	})
	f.item2 = testhelpers.CreateTestItem(t, app, f.tender.Id, testhelpers.TestItem{
		SectionID: f.section.Id, Number: "1.2", Desc: "Compaction", Qty: "5", UOM: "m2", SortOrder: 1,
	})

	alphaBidder := testhelpers.CreateTestBidder(t, app, "Alpha Works")
	betaBidder := testhelpers.CreateTestBidder(t, app, "Beta Infra")
	f.alpha = testhelpers.CreateTestSubmission(t, app, f.tender.Id, alphaBidder.Id, "imported")
	f.beta = testhelpers.CreateTestSubmission(t, app, f.tender.Id, betaBidder.Id, "imported")

	testhelpers.CreateTestItemPricing(t, app, f.alpha.Id, f.item1.Id, "2", "20")
	testhelpers.CreateTestItemPricing(t, app, f.alpha.Id, f.item2.Id, "4", "20")
	testhelpers.CreateTestItemPricing(t, app, f.beta.Id, f.item1.Id, "3", "30")
	return f
}

// serve runs handler against a request and returns the recorder.
func serve(t *testing.T, app *pocketbase.PocketBase, handler func(*core.RequestEvent) error, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, target, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
}
