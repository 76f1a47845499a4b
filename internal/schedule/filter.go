package schedule

// FilterAppointments returns the appointments holding at least one
// session inside the interval, each emitted as a shallow copy carrying
// only its matching sessions. Sessions with malformed dates are
// excluded rather than surfaced. Input order is preserved and the
// operation is idempotent: re-filtering a filtered list is a no-op.
func FilterAppointments(appts []Appointment, iv *Interval) []Appointment {
	if len(appts) == 0 || iv == nil {
		return nil
	}
	var out []Appointment
	for _, appt := range appts {
		var kept []Session
		for _, sess := range appt.Sessions {
			t, ok := sess.Time()
			if !ok {
				continue
			}
			if iv.Contains(t) {
				kept = append(kept, sess)
			}
		}
		if len(kept) == 0 {
			continue
		}
		pruned := appt
		pruned.Sessions = kept
		out = append(out, pruned)
	}
	return out
}
