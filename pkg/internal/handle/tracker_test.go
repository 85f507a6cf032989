package handle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/internal/handle"
	"github.com/yeisme/filetally/pkg/internal/router"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(svc *service.TrackerService) *gin.Engine {
	r := gin.New()
	router.RegisterTrackerRoutes(r.Group("/api/v1"), handle.NewTrackerHandlers(svc))

	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := sonic.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}

	return out
}

const reportDoc = `{"chat":{"id":-1001,"title":"ops"},"document":{"file_id":"doc-1","file_name":"report.pdf","file_size":2048}}`

func TestGreeting(t *testing.T) {
	r := newEngine(service.NewTrackerService())

	w := do(t, r, http.MethodGet, "/api/v1/", "")
	if w.Code != http.StatusOK || w.Body.String() != service.Greeting {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestObserveOutcomes(t *testing.T) {
	r := newEngine(service.NewTrackerService())

	w := do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)
	if w.Code != http.StatusCreated {
		t.Fatalf("first observe: %d %s", w.Code, w.Body.String())
	}

	if resp := decode[types.ObserveResponse](t, w); !resp.Recorded || resp.Record == nil || resp.Record.Name != "report.pdf" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)
	if resp := decode[types.ObserveResponse](t, w); w.Code != http.StatusOK || resp.Recorded || resp.Reason != types.ReasonDuplicate {
		t.Fatalf("duplicate: %d %+v", w.Code, resp)
	}

	w = do(t, r, http.MethodPost, "/api/v1/events/files", `{"chat":{"id":5},"text":"hello"}`)
	if resp := decode[types.ObserveResponse](t, w); w.Code != http.StatusOK || resp.Reason != types.ReasonNoMedia {
		t.Fatalf("no media: %d %+v", w.Code, resp)
	}

	w = do(t, r, http.MethodPost, "/api/v1/events/files", `{"chat":{"id":5},"audio":{"file_size":10}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file id: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/v1/events/files", `{"chat":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: %d", w.Code)
	}
}

func TestStats(t *testing.T) {
	r := newEngine(service.NewTrackerService())

	w := do(t, r, http.MethodGet, "/api/v1/stats", "")
	if w.Code != http.StatusOK || w.Body.String() != tracker.NoDataMessage {
		t.Fatalf("empty stats: %d %q", w.Code, w.Body.String())
	}

	do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)

	w = do(t, r, http.MethodGet, "/api/v1/stats?scope=channel", "")
	if body := w.Body.String(); !strings.Contains(body, "ops") || !strings.Contains(body, "Files: 1") {
		t.Fatalf("channel stats: %q", body)
	}

	w = do(t, r, http.MethodGet, "/api/v1/stats?scope=global&format=json", "")
	resp := decode[types.StatsResponse](t, w)

	if resp.Scope != tracker.ScopeGlobal || resp.Snapshot.Totals.Count != 1 || resp.Snapshot.Totals.Size != 2048 {
		t.Fatalf("json stats: %+v", resp)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/stats?scope=galaxy", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad scope: %d", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/stats?format=xml", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad format: %d", w.Code)
	}
}

func TestDeleteByIDAndName(t *testing.T) {
	svc := service.NewTrackerService()
	r := newEngine(svc)

	do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)
	do(t, r, http.MethodPost, "/api/v1/events/files",
		`{"chat":{"id":-1001,"title":"ops"},"video":{"file_id":"vid-1","file_size":100}}`)

	if w := do(t, r, http.MethodDelete, "/api/v1/files?name=missing.pdf", ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete missing name: %d", w.Code)
	}

	if w := do(t, r, http.MethodDelete, "/api/v1/files", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("delete without name: %d", w.Code)
	}

	w := do(t, r, http.MethodDelete, "/api/v1/files?name=report.pdf", "")
	if resp := decode[types.DeleteResponse](t, w); w.Code != http.StatusOK || resp.Removed.FileID != "doc-1" {
		t.Fatalf("delete by name: %d %+v", w.Code, resp)
	}

	if w := do(t, r, http.MethodDelete, "/api/v1/files/vid-1", ""); w.Code != http.StatusOK {
		t.Fatalf("delete by id: %d", w.Code)
	}

	if w := do(t, r, http.MethodDelete, "/api/v1/files/vid-1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: %d", w.Code)
	}

	if st, ok := svc.Tracker().Channel(-1001); !ok || st.Count != 0 || st.Size != 0 {
		t.Fatalf("channel stats after deletes: %+v (found=%v)", st, ok)
	}
}

func TestListAndGetFiles(t *testing.T) {
	r := newEngine(service.NewTrackerService())

	do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)
	do(t, r, http.MethodPost, "/api/v1/events/files",
		`{"chat":{"id":7,"username":"alice"},"audio":{"file_id":"aud-1","file_size":5}}`)

	w := do(t, r, http.MethodGet, "/api/v1/files", "")
	if resp := decode[types.ListFilesResponse](t, w); resp.Total != 2 {
		t.Fatalf("list all: %+v", resp)
	}

	w = do(t, r, http.MethodGet, "/api/v1/files?channel_id=7", "")
	if resp := decode[types.ListFilesResponse](t, w); resp.Total != 1 || resp.Files[0].FileID != "aud-1" {
		t.Fatalf("list channel: %+v", resp)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/files?channel_id=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad channel id: %d", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/files/doc-1", ""); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/files/none", ""); w.Code != http.StatusNotFound {
		t.Fatalf("get missing: %d", w.Code)
	}
}

func TestReconcileEndpoints(t *testing.T) {
	if w := do(t, newEngine(service.NewTrackerService()), http.MethodPost, "/api/v1/reconcile", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("reconcile without probe: %d", w.Code)
	}

	prober := tracker.ProberFunc(func(_ context.Context, id string) (bool, error) { return id != "doc-1", nil })
	r := newEngine(service.NewTrackerService(service.WithProber(prober)))

	if w := do(t, r, http.MethodGet, "/api/v1/reconcile/last", ""); w.Code != http.StatusNotFound {
		t.Fatalf("last before run: %d", w.Code)
	}

	do(t, r, http.MethodPost, "/api/v1/events/files", reportDoc)

	w := do(t, r, http.MethodPost, "/api/v1/reconcile", "")
	if res := decode[tracker.ReconcileResult](t, w); w.Code != http.StatusOK || res.Removed != 1 || res.RemovedBytes != 2048 {
		t.Fatalf("reconcile: %d %+v", w.Code, res)
	}

	w = do(t, r, http.MethodGet, "/api/v1/reconcile/last", "")
	if run := decode[service.ReconcileRun](t, w); run.Trigger != service.TriggerManual || run.Result.Checked != 1 {
		t.Fatalf("last run: %+v", run)
	}

	w = do(t, r, http.MethodGet, "/api/v1/reconcile/pending", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":0`) {
		t.Fatalf("pending: %d %s", w.Code, w.Body.String())
	}

	if w := do(t, r, http.MethodDelete, "/api/v1/reconcile/pending", ""); w.Code != http.StatusOK {
		t.Fatalf("clear pending: %d %s", w.Code, w.Body.String())
	}
}

func TestAuditLogDisabled(t *testing.T) {
	r := newEngine(service.NewTrackerService())

	if w := do(t, r, http.MethodGet, "/api/v1/audit", ""); w.Code != http.StatusNotFound {
		t.Fatalf("audit disabled: %d", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/audit?limit=1000", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("audit limit: %d", w.Code)
	}
}

func TestUnimplementedHandlers(t *testing.T) {
	r := gin.New()
	router.RegisterTrackerRoutes(r.Group("/api/v1"), nil)

	if w := do(t, r, http.MethodGet, "/api/v1/stats", ""); w.Code != http.StatusNotImplemented {
		t.Fatalf("placeholder: %d", w.Code)
	}

	if w := do(t, r, http.MethodDelete, "/api/v1/reconcile/pending", ""); w.Code != http.StatusNotImplemented {
		t.Fatalf("clear placeholder: %d", w.Code)
	}
}
