package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(source SnapshotSource) *gin.Engine {
	router := gin.New()
	NewHandler(newTestService(source), zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doRequest(router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerDashboard(t *testing.T) {
	router := newTestRouter(&fakeSource{events: sampleSnapshot()})

	rec := doRequest(router, http.MethodGet, "/api/v1/dashboard?range=week", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.Selector != SelectorWeek {
		t.Errorf("range = %q, want week", result.Selector)
	}
	if result.Summary.Total != 3 {
		t.Errorf("total = %d, want 3", result.Summary.Total)
	}
}

func TestHandlerDashboardDefaultsToWeek(t *testing.T) {
	router := newTestRouter(&fakeSource{events: sampleSnapshot()})

	rec := doRequest(router, http.MethodGet, "/api/v1/dashboard", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(result.Summary.PerDay) != 7 {
		t.Errorf("len(perDay) = %d, want 7", len(result.Summary.PerDay))
	}
}

func TestHandlerDashboardBadRequests(t *testing.T) {
	router := newTestRouter(&fakeSource{})

	for _, target := range []string{
		"/api/v1/dashboard?range=year",
		"/api/v1/dashboard?range=custom&start=2024-01-01",
		"/api/v1/dashboard?range=custom&start=01/01/2024&end=2024-01-07",
		"/api/v1/dashboard?range=custom&start=0001-01-01&end=9999-12-31",
	} {
		rec := doRequest(router, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandlerDashboardUnavailable(t *testing.T) {
	router := newTestRouter(&fakeSource{err: errors.New("timeout")})

	rec := doRequest(router, http.MethodGet, "/api/v1/dashboard?range=today", nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["retryable"] != true {
		t.Errorf("retryable = %v, want true", body["retryable"])
	}
}

func TestHandlerAggregate(t *testing.T) {
	source := &fakeSource{err: errors.New("must not be called")}
	router := newTestRouter(source)

	payload, err := json.Marshal(aggregateRequest{
		Range:  "custom",
		Start:  "2024-01-01",
		End:    "2024-01-02",
		Events: sampleSnapshot(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := doRequest(router, http.MethodPost, "/api/v1/dashboard/aggregate", payload)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.Summary.Total != 3 || result.Skipped != 1 {
		t.Errorf("total = %d skipped = %d, want 3 and 1", result.Summary.Total, result.Skipped)
	}
	if source.calls.Load() != 0 {
		t.Errorf("snapshot source was called")
	}
}

func TestHandlerAggregateInvalidBody(t *testing.T) {
	router := newTestRouter(&fakeSource{})

	rec := doRequest(router, http.MethodPost, "/api/v1/dashboard/aggregate", []byte("{"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
