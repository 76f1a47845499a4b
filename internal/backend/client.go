// Package backend is the HTTP client for the clinic's REST API, the
// system of record for patients, appointments and sessions. The
// dashboard never patches its cache from mutation responses; every
// successful mutation is followed by a full refetch.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/patients"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/schedule"
	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

var tracer = otel.Tracer("duofisio.internal.backend")

// ErrSessionExpired is returned before a request is even issued when
// the carried backend token is already past its exp claim.
var ErrSessionExpired = errors.New("backend: session token expired")

// ErrUnauthorized maps 401/403 responses.
var ErrUnauthorized = errors.New("backend: unauthorized")

// Client talks to the clinic backend on behalf of one dashboard
// session, carrying its auth token and CSRF token on every request.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *logging.Logger
	clock  schedule.Clock

	mu    sync.RWMutex
	token string
	csrf  string
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, logger *logging.Logger, clock schedule.Clock) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		base:   base,
		http:   &http.Client{},
		logger: logger,
		clock:  clock,
	}, nil
}

// SetCredentials installs the session's auth and CSRF tokens. The
// dashboard obtains both at login; this layer only forwards them.
// Safe to call while requests are in flight, as on a token renewal.
func (c *Client) SetCredentials(token, csrf string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.csrf = csrf
}

func (c *Client) credentials() (token, csrf string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.csrf
}

type appointmentsResponse struct {
	Appointments []schedule.Appointment `json:"appointments"`
}

// FetchAppointments retrieves the full appointment list. The caller
// replaces its cached copy wholesale with the result.
func (c *Client) FetchAppointments(ctx context.Context) ([]schedule.Appointment, error) {
	ctx, span := tracer.Start(ctx, "backend.fetch_appointments")
	defer span.End()

	var resp appointmentsResponse
	if err := c.do(ctx, http.MethodGet, "/dashboard/appointments", nil, &resp); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("duofisio.appointment_count", len(resp.Appointments)))
	return resp.Appointments, nil
}

type patientsResponse struct {
	Patients []patients.Patient `json:"patients"`
}

// FetchPatients retrieves the full patient list for the search view.
func (c *Client) FetchPatients(ctx context.Context) ([]patients.Patient, error) {
	ctx, span := tracer.Start(ctx, "backend.fetch_patients")
	defer span.End()

	var resp patientsResponse
	if err := c.do(ctx, http.MethodGet, "/patients", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Patients, nil
}

// CreateAppointmentRequest is the payload for scheduling a new
// treatment course. AppointmentDate is the first session's instant,
// RFC3339 UTC like everything else on this wire.
type CreateAppointmentRequest struct {
	PatientID       string                  `json:"patientId"`
	EmployeeID      string                  `json:"employeeId"`
	AppointmentDate string                  `json:"appointmentDate"`
	Duration        int                     `json:"duration"`
	TotalSessions   int                     `json:"totalSessions"`
	Reason          schedule.ClinicalReason `json:"reason"`
}

// CreateAppointment schedules a new treatment course. Like every
// mutation the response body is ignored; the caller refetches.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) error {
	ctx, span := tracer.Start(ctx, "backend.create_appointment")
	defer span.End()
	span.SetAttributes(attribute.String("duofisio.patient_id", req.PatientID))

	return c.do(ctx, http.MethodPost, "/dashboard/appointments", req, nil)
}

// UpdateAppointmentRequest carries the editable fields of a course.
// Zero values are omitted so the backend keeps the current value.
type UpdateAppointmentRequest struct {
	EmployeeID      string `json:"employeeId,omitempty"`
	AppointmentDate string `json:"appointmentDate,omitempty"`
	Duration        int    `json:"duration,omitempty"`
	TotalSessions   int    `json:"totalSessions,omitempty"`
}

// UpdateAppointment edits an existing treatment course.
func (c *Client) UpdateAppointment(ctx context.Context, appointmentID string, req UpdateAppointmentRequest) error {
	ctx, span := tracer.Start(ctx, "backend.update_appointment")
	defer span.End()
	span.SetAttributes(attribute.String("duofisio.appointment_id", appointmentID))

	return c.do(ctx, http.MethodPut, "/dashboard/appointments/"+url.PathEscape(appointmentID), req, nil)
}

// RepeatSessionsRequest extends a course with additional sessions,
// spaced IntervalDays apart from the last scheduled one.
type RepeatSessionsRequest struct {
	Count        int `json:"count"`
	IntervalDays int `json:"intervalDays"`
}

// RepeatSessions appends repeated sessions to an existing course.
func (c *Client) RepeatSessions(ctx context.Context, appointmentID string, req RepeatSessionsRequest) error {
	ctx, span := tracer.Start(ctx, "backend.repeat_sessions")
	defer span.End()
	span.SetAttributes(
		attribute.String("duofisio.appointment_id", appointmentID),
		attribute.Int("duofisio.session_count", req.Count),
	)

	return c.do(ctx, http.MethodPost, "/dashboard/appointments/"+url.PathEscape(appointmentID)+"/repeat", req, nil)
}

// UpdateSessionStatus asks the backend to move a session to a new
// status. The backend is authoritative and may reject the transition
// regardless of what the dashboard offered.
func (c *Client) UpdateSessionStatus(ctx context.Context, sessionID string, to schedule.Status) error {
	ctx, span := tracer.Start(ctx, "backend.update_session_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("duofisio.session_id", sessionID),
		attribute.String("duofisio.status", string(to)),
	)

	body := map[string]string{"status": string(to)}
	return c.do(ctx, http.MethodPatch, "/dashboard/sessions/"+url.PathEscape(sessionID)+"/status", body, nil)
}

// DeleteAppointment removes a whole treatment course.
func (c *Client) DeleteAppointment(ctx context.Context, appointmentID string) error {
	ctx, span := tracer.Start(ctx, "backend.delete_appointment")
	defer span.End()

	return c.do(ctx, http.MethodDelete, "/dashboard/appointments/"+url.PathEscape(appointmentID), nil, nil)
}

// do issues one request. No retries and no timeout beyond the
// transport default: a failure surfaces once and the caller keeps its
// previous cache.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, csrf := c.credentials()
	if token != "" && SessionExpired(token, c.clock) {
		return ErrSessionExpired
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("backend: %s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}
