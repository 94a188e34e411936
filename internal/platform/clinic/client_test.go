package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(Options{
		BaseURL:      url,
		Token:        "svc-token",
		RetryCount:   -1,
		RetryWait:    time.Millisecond,
		RetryMaxWait: time.Millisecond,
	}, zerolog.Nop())
}

func TestCreatePatient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/patients/create", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MARIA DA SILVA", body["name"])
		assert.Equal(t, "12345678901", body["cpf"])
		assert.Nil(t, body["birthName"])
		assert.Equal(t, []any{}, body["kinships"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"patient":{"id":"4711","name":"MARIA DA SILVA"}}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).CreatePatient(context.Background(), PatientPayload{
		Name:     "MARIA DA SILVA",
		CPF:      "12345678901",
		Kinships: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, PatientID("4711"), p.ID)
}

func TestCreatePatient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"cpf invalid"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePatient(context.Background(), PatientPayload{Name: "X"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "cpf invalid")
}

func TestCreatePatient_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePatient(context.Background(), PatientPayload{Name: "X"})
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestSaveDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/patients/4711/ehr/document/save", r.URL.Path)
		var doc Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "Anamnese Remota", doc.Title)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SaveDocument(context.Background(), "4711", Document{Title: "Anamnese Remota", Body: "<div></div>"})
	assert.NoError(t, err)
}

func TestSaveDocument_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, RetryCount: 2, RetryWait: time.Millisecond, RetryMaxWait: time.Millisecond}, zerolog.Nop())
	require.NoError(t, c.SaveDocument(context.Background(), "1", Document{}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSaveDocument_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, RetryCount: 2, RetryWait: time.Millisecond, RetryMaxWait: time.Millisecond}, zerolog.Nop())
	err := c.SaveDocument(context.Background(), "1", Document{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreatePatient_NumericID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"patient":{"id":98123,"name":"JOAO"}}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).CreatePatient(context.Background(), PatientPayload{Name: "JOAO"})
	require.NoError(t, err)
	assert.Equal(t, PatientID("98123"), p.ID)
}

func TestSaveDocument_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestClient(url).SaveDocument(context.Background(), "1", Document{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
