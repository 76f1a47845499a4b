// Package schedule implements the appointment filtering and calendar
// projection core of the clinic dashboard: named time-window filters,
// session flattening, and the daily/weekly/monthly grid projections.
package schedule

import "time"

// Status is the lifecycle state of a single session, as stored by the
// clinic backend.
type Status string

const (
	StatusSolicitado Status = "SOLICITADO"
	StatusConfirmado Status = "CONFIRMADO"
	StatusCancelado  Status = "CANCELADO"
	StatusFinalizado Status = "FINALIZADO"
)

// Statuses lists every session status in display order. Grid columns
// render all of them, zero counts included.
var Statuses = []Status{StatusSolicitado, StatusConfirmado, StatusCancelado, StatusFinalizado}

// Valid reports whether s is one of the four backend statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSolicitado, StatusConfirmado, StatusCancelado, StatusFinalizado:
		return true
	}
	return false
}

// ClinicTimezone is the fixed timezone every calendar view displays in,
// regardless of where the server runs.
const ClinicTimezone = "America/Sao_Paulo"

var clinicLocation = mustLoadLocation(ClinicTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("schedule: load timezone " + name + ": " + err.Error())
	}
	return loc
}

// Location returns the clinic timezone used for all local-day math.
func Location() *time.Location { return clinicLocation }

// Clock supplies the reference instant for "now"-based boundaries.
// Each resolution reads it exactly once so a computation cannot
// straddle a day boundary mid-flight.
type Clock func() time.Time

// Session is one treatment visit within an appointment.
type Session struct {
	ID string `json:"id"`
	// AppointmentDate is the scheduled instant as sent by the backend,
	// RFC3339 in UTC. Kept as a string so a malformed record degrades
	// to exclusion instead of failing the whole decode.
	AppointmentDate string `json:"appointmentDate"`
	Duration        int    `json:"duration"` // minutes, multiple of 30
	SessionNumber   int    `json:"sessionNumber"`
	Status          Status `json:"status"`
	Progress        string `json:"progress,omitempty"`
}

// Time parses the session's scheduled instant. ok is false for
// malformed dates; callers exclude those defensively.
func (s Session) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s.AppointmentDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LocalTime is Time converted to the clinic timezone.
func (s Session) LocalTime() (time.Time, bool) {
	t, ok := s.Time()
	if !ok {
		return time.Time{}, false
	}
	return t.In(clinicLocation), true
}

// ClinicalReason references the diagnosis backing an appointment.
type ClinicalReason struct {
	CID        string `json:"cid"`
	Allegation string `json:"allegation"`
	Diagnosis  string `json:"diagnosis"`
}

// Appointment is a treatment course: an ordered run of sessions for one
// patient under one responsible employee.
type Appointment struct {
	ID            string         `json:"id"`
	PatientID     string         `json:"patientId"`
	PatientName   string         `json:"patientName"`
	EmployeeID    string         `json:"employeeId"`
	EmployeeName  string         `json:"employeeName"`
	Reason        ClinicalReason `json:"reason"`
	TotalSessions int            `json:"totalSessions"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Sessions      []Session      `json:"sessions"`
}
