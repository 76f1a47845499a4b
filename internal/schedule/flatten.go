package schedule

import (
	"sort"
	"time"
)

// SessionView is the flattened per-session record every calendar view
// consumes: one session plus the denormalized appointment and patient
// metadata the grids display. The dashboard used to re-derive this
// shape in each view; this is now the single place the expansion lives.
type SessionView struct {
	SessionID     string `json:"sessionId"`
	AppointmentID string `json:"appointmentId"`
	PatientID     string `json:"patientId"`
	PatientName   string `json:"patientName"`
	EmployeeName  string `json:"employeeName"`
	// Time is the scheduled instant in the clinic timezone.
	Time          time.Time `json:"time"`
	Duration      int       `json:"duration"`
	SessionNumber int       `json:"sessionNumber"`
	TotalSessions int       `json:"totalSessions"`
	Status        Status    `json:"status"`
	Progress      string    `json:"progress,omitempty"`
}

// Flatten expands appointments into one view record per session with a
// parseable date, ordered by instant. The sort is stable, so sessions
// with identical timestamps keep their input order.
func Flatten(appts []Appointment) []SessionView {
	var views []SessionView
	for _, appt := range appts {
		for _, sess := range appt.Sessions {
			t, ok := sess.LocalTime()
			if !ok {
				continue
			}
			views = append(views, SessionView{
				SessionID:     sess.ID,
				AppointmentID: appt.ID,
				PatientID:     appt.PatientID,
				PatientName:   appt.PatientName,
				EmployeeName:  appt.EmployeeName,
				Time:          t,
				Duration:      sess.Duration,
				SessionNumber: sess.SessionNumber,
				TotalSessions: appt.TotalSessions,
				Status:        sess.Status,
				Progress:      sess.Progress,
			})
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Time.Before(views[j].Time)
	})
	return views
}
