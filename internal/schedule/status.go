package schedule

import "time"

// Session status transitions. SOLICITADO moves to CONFIRMADO, and
// CONFIRMADO to FINALIZADO; CANCELADO is reachable from either
// non-terminal state. FINALIZADO and CANCELADO are terminal. The
// backend is the authority on every transition; these checks only
// decide what the dashboard offers, and any local update stays
// provisional until the next refetch.

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusFinalizado || s == StatusCancelado
}

// CanTransition reports whether from -> to is a legal status move.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusSolicitado:
		return to == StatusConfirmado || to == StatusCancelado
	case StatusConfirmado:
		return to == StatusFinalizado || to == StatusCancelado
	default:
		return false
	}
}

// CanFinalize applies the dashboard guard on top of CanTransition: a
// session is only offered the FINALIZADO transition once its scheduled
// instant is at or before now. Sessions with malformed dates are never
// offered it.
func CanFinalize(sess Session, clock Clock) bool {
	if !CanTransition(sess.Status, StatusFinalizado) {
		return false
	}
	t, ok := sess.Time()
	if !ok {
		return false
	}
	if clock == nil {
		clock = time.Now
	}
	return !t.After(clock())
}
