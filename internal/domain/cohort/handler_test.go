package cohort

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/platform/export"
	"github.com/nutes/frontdesk/internal/platform/store"
)

func newTestHandler(r RecordReader) *Handler {
	return NewHandler(newTestService(r), nil, zerolog.Nop())
}

func TestHandler_GetDashboard(t *testing.T) {
	m := seed(t, Record{Name: "ANA", Demographics: Demographics{Gender: "Feminino", City: "Recife"}})
	h := newTestHandler(m)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetDashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		TotalCount   int64 `json:"totalCount"`
		Demographics struct {
			TopCities []map[string]interface{} `json:"topCities"`
		} `json:"demographics"`
		Triage map[string]interface{} `json:"triage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.TotalCount != 1 {
		t.Errorf("expected totalCount 1, got %d", body.TotalCount)
	}
	if len(body.Demographics.TopCities) != 1 || body.Demographics.TopCities[0]["_id"] != "Recife" {
		t.Errorf("unexpected top cities: %v", body.Demographics.TopCities)
	}
	if _, ok := body.Triage["topSpecialties"].([]interface{}); !ok {
		t.Errorf("expected topSpecialties to encode as an array, got %v", body.Triage["topSpecialties"])
	}
}

func TestHandler_GetDashboard_StoreFailure(t *testing.T) {
	h := newTestHandler(failingReader{store.NewMemory()})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetDashboard(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected no partial body, got %s", rec.Body.String())
	}
}

func TestHandler_ExportDashboard(t *testing.T) {
	h := newTestHandler(store.NewMemory())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/patients/export", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportDashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != export.ContentType {
		t.Errorf("unexpected content type %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(got, "pacientes-2025-03-10.xlsx") {
		t.Errorf("unexpected content disposition %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("expected a zip payload")
	}
}
