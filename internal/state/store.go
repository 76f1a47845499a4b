// Package state holds a dashboard session's client state: the cached
// appointment list, the active filter, and the navigation anchors. The
// original dashboard kept all of this in one global singleton every
// component reached into; here it is an explicit store with
// reducer-style transitions, guarded for concurrent HTTP handlers.
package state

import (
	"sync"
	"time"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/schedule"
)

// Snapshot is an immutable copy of the session state at one instant.
type Snapshot struct {
	Appointments []schedule.Appointment `json:"appointments"`
	Filter       schedule.Filter        `json:"filter"`
	Anchors      schedule.Anchors       `json:"anchors"`
	// FetchFailed flags that the last backend fetch errored; the
	// appointment list then still holds the previous successful fetch.
	FetchFailed bool      `json:"fetchFailed"`
	FetchedAt   time.Time `json:"fetchedAt,omitempty"`
}

// Store is the single mutable home of a dashboard session's state.
// All writes are last-write-wins; there is exactly one user behind a
// session, so no merge or conflict resolution applies.
type Store struct {
	mu    sync.RWMutex
	snap  Snapshot
	clock schedule.Clock
}

// NewStore creates a store with the default filter and anchors seeded
// from the clock.
func NewStore(clock schedule.Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		snap: Snapshot{
			Filter:  schedule.DefaultFilter,
			Anchors: schedule.NewAnchors(clock()),
		},
		clock: clock,
	}
}

// Snapshot returns a copy of the current state. The appointment slice
// is shared read-only; callers never mutate cached appointments.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// ReplaceAppointments swaps in a freshly fetched list wholesale and
// clears any fetch-error flag. There is no incremental merge.
func (s *Store) ReplaceAppointments(appts []schedule.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Appointments = appts
	s.snap.FetchFailed = false
	s.snap.FetchedAt = s.clock()
}

// RecordFetchFailure marks the last fetch as failed while leaving the
// previous list in place.
func (s *Store) RecordFetchFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.FetchFailed = true
}

// SetFilter activates a named filter. History bounds only matter for
// the history filter but are stored unconditionally.
func (s *Store) SetFilter(f schedule.Filter, historyStart, historyEnd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Filter = f
	s.snap.Anchors.HistoryStart = historyStart
	s.snap.Anchors.HistoryEnd = historyEnd
}

// Anchor transitions. Each moves one unit and nothing else; switching
// the active filter stays the caller's explicit move.

func (s *Store) AdvanceWeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Anchors = s.snap.Anchors.NextWeek()
}

func (s *Store) RetreatWeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Anchors = s.snap.Anchors.PrevWeek()
}

func (s *Store) AdvanceMonth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Anchors = s.snap.Anchors.NextMonth()
}

func (s *Store) RetreatMonth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Anchors = s.snap.Anchors.PrevMonth()
}

// Restore replaces the whole state, used when warming a new process
// from the snapshot cache.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Filter == "" {
		snap.Filter = schedule.DefaultFilter
	}
	s.snap = snap
}

// Reset discards everything, as on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Filter:  schedule.DefaultFilter,
		Anchors: schedule.NewAnchors(s.clock()),
	}
}

// Filtered recomputes the derived view from the current list, filter
// and anchors. It is never stored: any state change is picked up by
// the next call.
func (s *Store) Filtered() []schedule.Appointment {
	snap := s.Snapshot()
	iv := schedule.ResolveInterval(snap.Filter, snap.Anchors, s.clock)
	return schedule.FilterAppointments(snap.Appointments, iv)
}

// Interval resolves the active filter's window, nil when unresolvable.
func (s *Store) Interval() *schedule.Interval {
	snap := s.Snapshot()
	return schedule.ResolveInterval(snap.Filter, snap.Anchors, s.clock)
}
