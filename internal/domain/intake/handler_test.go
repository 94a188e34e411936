package intake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/platform/clinic"
)

func newTestHandler(c Clinic) *Handler {
	svc, _ := newTestService(c, nil)
	return NewHandler(svc, zerolog.Nop())
}

func post(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_SubmitAnamnesis(t *testing.T) {
	h := newTestHandler(&fakeClinic{})
	c, rec := post(t, "/api/v1/intake/anamnesis", `{"patientId":"4711","patientName":"Ana","complaint":"dor","painLevel":4}`)

	if err := h.SubmitAnamnesis(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var receipt map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if receipt["patientName"] != "Ana" || receipt["recordId"] == "" {
		t.Errorf("unexpected receipt: %v", receipt)
	}
}

func TestHandler_SubmitAnamnesis_ValidationError(t *testing.T) {
	h := newTestHandler(nil)
	c, _ := post(t, "/api/v1/intake/anamnesis", `{"patientId":"4711","painLevel":12}`)

	err := h.SubmitAnamnesis(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_SubmitAnamnesis_MalformedBody(t *testing.T) {
	h := newTestHandler(nil)
	c, _ := post(t, "/api/v1/intake/anamnesis", `{"patientId":`)

	err := h.SubmitAnamnesis(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Register_ClinicError(t *testing.T) {
	h := newTestHandler(&fakeClinic{err: &clinic.APIError{Op: "create patient", StatusCode: http.StatusConflict}})
	c, _ := post(t, "/api/v1/intake/registrations", `{"name":"Maria","cpf":"12345678901"}`)

	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", httpErr.Code)
	}
}

func TestHandler_Register(t *testing.T) {
	h := newTestHandler(&fakeClinic{})
	c, rec := post(t, "/api/v1/intake/registrations",
		`{"name":"Maria","cpf":"123.456.789-01","isUfpeCommunity":true,"specialties":["Fisioterapia"],"residentsCount":"2"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"patientId":"4711"`) {
		t.Errorf("expected clinic patient id in receipt, got %s", rec.Body.String())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	newTestHandler(nil).RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"POST /api/v1/intake/anamnesis":     false,
		"POST /api/v1/intake/registrations": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
