// Package clinic is the client for the external clinic management API that
// owns patient registrations and clinical documents.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	createPatientPath = "/api/patients/create"
	saveDocumentPath  = "/api/patients/{id}/ehr/document/save"
)

// ErrUnavailable wraps transport failures: the clinic could not be reached or
// did not answer in time.
var ErrUnavailable = errors.New("clinic API unavailable")

// APIError is returned for any non-2xx clinic response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clinic %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client. Zero values select the defaults; a negative
// RetryCount disables retries.
type Options struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	switch {
	case opts.RetryCount == 0:
		opts.RetryCount = 3
	case opts.RetryCount < 0:
		opts.RetryCount = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 5 * time.Second
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	// Only transport failures and server errors are retried; a 4xx will not
	// change on a second attempt.
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	return &Client{http: c, logger: logger}
}

// Patient is the clinic's view of a created patient.
type Patient struct {
	ID   PatientID `json:"id"`
	Name string    `json:"name"`
}

type createPatientResponse struct {
	Patient Patient `json:"patient"`
}

// CreatePatient registers a patient and returns the clinic-assigned record.
func (c *Client) CreatePatient(ctx context.Context, p PatientPayload) (*Patient, error) {
	var out createPatientResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&out).
		Post(createPatientPath)
	if err != nil {
		return nil, fmt.Errorf("clinic create patient: %w: %w", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, &APIError{Op: "create patient", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if out.Patient.ID == "" {
		return nil, &APIError{Op: "create patient", StatusCode: resp.StatusCode(), Body: "response without patient id"}
	}
	c.logger.Info().Str("clinic_patient_id", string(out.Patient.ID)).Msg("clinic patient created")
	return &out.Patient, nil
}

// SaveDocument attaches a clinical document to the patient's record.
func (c *Client) SaveDocument(ctx context.Context, patientID string, doc Document) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", patientID).
		SetBody(doc).
		Post(saveDocumentPath)
	if err != nil {
		return fmt.Errorf("clinic save document: %w: %w", ErrUnavailable, err)
	}
	if resp.IsError() {
		return &APIError{Op: "save document", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	c.logger.Info().Str("clinic_patient_id", patientID).Str("title", doc.Title).Msg("clinic document saved")
	return nil
}
