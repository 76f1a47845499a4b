// Package dashboard serves the calendar views of the clinic dashboard:
// the cached appointment snapshot, the active filter and anchors, and
// the daily/weekly/monthly projections derived from them.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/backend"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/cache"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/observability/metrics"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/schedule"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/state"
	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

// BackendClient is the slice of the backend API this handler drives.
type BackendClient interface {
	FetchAppointments(ctx context.Context) ([]schedule.Appointment, error)
	CreateAppointment(ctx context.Context, req backend.CreateAppointmentRequest) error
	UpdateAppointment(ctx context.Context, appointmentID string, req backend.UpdateAppointmentRequest) error
	RepeatSessions(ctx context.Context, appointmentID string, req backend.RepeatSessionsRequest) error
	UpdateSessionStatus(ctx context.Context, sessionID string, to schedule.Status) error
	DeleteAppointment(ctx context.Context, appointmentID string) error
}

// SnapshotCache persists the session snapshot across restarts.
// Optional: a nil cache disables warm starts.
type SnapshotCache interface {
	Get(ctx context.Context, sessionID string) (*state.Snapshot, error)
	Set(ctx context.Context, sessionID string, snap state.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// Handler owns one dashboard session's state and serves its views.
type Handler struct {
	store     *state.Store
	backend   BackendClient
	cache     SnapshotCache
	sessionID string
	metrics   *metrics.DashboardMetrics
	logger    *logging.Logger
	clock     schedule.Clock
}

// NewHandler wires the dashboard handler. metrics and cache may be nil.
func NewHandler(store *state.Store, client BackendClient, snapCache SnapshotCache, sessionID string, m *metrics.DashboardMetrics, logger *logging.Logger, clock schedule.Clock) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Handler{
		store:     store,
		backend:   client,
		cache:     snapCache,
		sessionID: sessionID,
		metrics:   m,
		logger:    logger,
		clock:     clock,
	}
}

// WarmStart restores the session snapshot from the cache, if any.
// Called once at boot; a miss just means an empty dashboard until the
// first refresh.
func (h *Handler) WarmStart(ctx context.Context) {
	if h.cache == nil {
		return
	}
	snap, err := h.cache.Get(ctx, h.sessionID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			h.logger.Warn("snapshot warm start failed", "error", err)
		}
		h.metrics.ObserveSnapshot("get", "miss")
		return
	}
	h.store.Restore(*snap)
	h.metrics.ObserveSnapshot("get", "hit")
	h.logger.Info("snapshot restored", "appointments", len(snap.Appointments))
}

// Refresh handles POST /dashboard/refresh: fetch the full list from
// the backend and replace the cached copy wholesale. A failed fetch
// records the error flag and leaves the prior list served.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := h.clock()
	appts, err := h.backend.FetchAppointments(r.Context())
	elapsed := h.clock().Sub(start).Seconds()
	if err != nil {
		h.store.RecordFetchFailure()
		h.metrics.ObserveFetch("error", elapsed)
		h.logger.Error("appointment fetch failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":       "failed to fetch appointments",
			"fetchFailed": true,
		})
		return
	}

	h.store.ReplaceAppointments(appts)
	h.metrics.ObserveFetch("ok", elapsed)
	h.persistSnapshot(r.Context())

	h.logger.Info("appointments refreshed", "count", len(appts))
	writeJSON(w, http.StatusOK, map[string]any{"count": len(appts)})
}

// Appointments handles GET /dashboard/appointments: the raw snapshot,
// unfiltered, plus the fetch-error flag.
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	appts := snap.Appointments
	if appts == nil {
		appts = []schedule.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"fetchFailed":  snap.FetchFailed,
		"fetchedAt":    snap.FetchedAt,
	})
}

type filterRequest struct {
	Filter    schedule.Filter `json:"filter"`
	StartDate string          `json:"startDate,omitempty"`
	EndDate   string          `json:"endDate,omitempty"`
}

var knownFilters = map[schedule.Filter]bool{
	schedule.FilterToday:    true,
	schedule.FilterTomorrow: true,
	schedule.FilterWeek:     true,
	schedule.FilterMonth:    true,
	schedule.FilterHistory:  true,
}

// SetFilter handles PUT /dashboard/filter. Only the filter name is
// validated; missing or malformed history bounds are legal and simply
// resolve to no results.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !knownFilters[req.Filter] {
		http.Error(w, "unknown filter", http.StatusBadRequest)
		return
	}

	h.store.SetFilter(req.Filter, req.StartDate, req.EndDate)
	h.writeFilterState(w)
}

// Navigate handles POST /dashboard/navigate/{unit}/{direction}. Moving
// an anchor also activates the matching filter, the way the weekly and
// monthly screens re-trigger their own view after a navigation click.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")
	direction := chi.URLParam(r, "direction")

	switch {
	case unit == "week" && direction == "next":
		h.store.AdvanceWeek()
		h.store.SetFilter(schedule.FilterWeek, "", "")
	case unit == "week" && direction == "prev":
		h.store.RetreatWeek()
		h.store.SetFilter(schedule.FilterWeek, "", "")
	case unit == "month" && direction == "next":
		h.store.AdvanceMonth()
		h.store.SetFilter(schedule.FilterMonth, "", "")
	case unit == "month" && direction == "prev":
		h.store.RetreatMonth()
		h.store.SetFilter(schedule.FilterMonth, "", "")
	default:
		http.Error(w, "unknown navigation", http.StatusBadRequest)
		return
	}
	h.writeFilterState(w)
}

func (h *Handler) writeFilterState(w http.ResponseWriter) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":   snap.Filter,
		"anchors":  snap.Anchors,
		"interval": h.store.Interval(),
	})
}

// Sessions handles GET /dashboard/sessions: the flattened session
// views for the active filter.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	views := h.flattenedViews()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": views,
		"count":    len(views),
		"filter":   h.store.Snapshot().Filter,
	})
}

// DailyView handles GET /dashboard/views/daily.
func (h *Handler) DailyView(w http.ResponseWriter, r *http.Request) {
	timeline := schedule.ProjectDailyTimeline(h.flattenedViews(), h.clock)
	writeJSON(w, http.StatusOK, timeline)
}

// WeeklyView handles GET /dashboard/views/weekly.
func (h *Handler) WeeklyView(w http.ResponseWriter, r *http.Request) {
	anchors := h.store.Snapshot().Anchors
	cols := schedule.ProjectWeeklyGrid(h.flattenedViews(), anchors.CurrentWeek)
	writeJSON(w, http.StatusOK, map[string]any{
		"weekStart": schedule.StartOfWeek(anchors.CurrentWeek),
		"days":      cols,
	})
}

// MonthlyView handles GET /dashboard/views/monthly.
func (h *Handler) MonthlyView(w http.ResponseWriter, r *http.Request) {
	anchors := h.store.Snapshot().Anchors
	grid := schedule.ProjectMonthlyGrid(h.flattenedViews(), anchors.CurrentMonth)
	writeJSON(w, http.StatusOK, grid)
}

// DayDetailView handles GET /dashboard/views/day/{date}: the monthly
// cell drill-down.
func (h *Handler) DayDetailView(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation(schedule.DateOnly, chi.URLParam(r, "date"), schedule.Location())
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	detail := schedule.ProjectDayDetail(h.flattenedViews(), day)
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) flattenedViews() []schedule.SessionView {
	filtered := h.store.Filtered()
	h.metrics.ObserveFilter(string(h.store.Snapshot().Filter))
	views := schedule.Flatten(filtered)
	if views == nil {
		views = []schedule.SessionView{}
	}
	return views
}

type statusRequest struct {
	Status schedule.Status `json:"status"`
}

// UpdateSessionStatus handles PATCH /dashboard/sessions/{id}/status.
// The transition is checked against what the dashboard may offer, then
// proxied; the backend stays authoritative and a success triggers a
// full refetch rather than a local patch.
func (h *Handler) UpdateSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	sess, found := h.findSession(sessionID)
	if !found {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if !schedule.CanTransition(sess.Status, req.Status) {
		http.Error(w, "transition not allowed", http.StatusConflict)
		return
	}
	if req.Status == schedule.StatusFinalizado && !schedule.CanFinalize(sess, h.clock) {
		http.Error(w, "session not finishable yet", http.StatusConflict)
		return
	}

	if err := h.backend.UpdateSessionStatus(r.Context(), sessionID, req.Status); err != nil {
		h.logger.Error("session status update failed", "session_id", sessionID, "error", err)
		http.Error(w, "backend rejected the update", http.StatusBadGateway)
		return
	}
	h.refetch(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"id": sessionID, "status": string(req.Status)})
}

// CreateAppointment handles POST /dashboard/appointments: schedule a
// new treatment course, then refetch rather than patching the cache.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || req.AppointmentDate == "" {
		http.Error(w, "patientId and appointmentDate are required", http.StatusBadRequest)
		return
	}

	if err := h.backend.CreateAppointment(r.Context(), req); err != nil {
		h.logger.Error("appointment create failed", "patient_id", req.PatientID, "error", err)
		http.Error(w, "backend rejected the appointment", http.StatusBadGateway)
		return
	}
	h.refetch(r.Context())
	w.WriteHeader(http.StatusCreated)
}

// UpdateAppointment handles PUT /dashboard/appointments/{id}.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "id")

	var req backend.UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, found := h.findAppointment(appointmentID); !found {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	if err := h.backend.UpdateAppointment(r.Context(), appointmentID, req); err != nil {
		h.logger.Error("appointment update failed", "appointment_id", appointmentID, "error", err)
		http.Error(w, "backend rejected the update", http.StatusBadGateway)
		return
	}
	h.refetch(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"id": appointmentID})
}

// RepeatSessions handles POST /dashboard/appointments/{id}/repeat:
// append repeated sessions to an existing course.
func (h *Handler) RepeatSessions(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "id")

	var req backend.RepeatSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Count < 1 {
		http.Error(w, "count must be at least 1", http.StatusBadRequest)
		return
	}
	if _, found := h.findAppointment(appointmentID); !found {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}

	if err := h.backend.RepeatSessions(r.Context(), appointmentID, req); err != nil {
		h.logger.Error("session repeat failed", "appointment_id", appointmentID, "error", err)
		http.Error(w, "backend rejected the repeat", http.StatusBadGateway)
		return
	}
	h.refetch(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"id": appointmentID, "added": req.Count})
}

// DeleteAppointment handles DELETE /dashboard/appointments/{id},
// fire-and-refetch like every other mutation.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "id")
	if err := h.backend.DeleteAppointment(r.Context(), appointmentID); err != nil {
		h.logger.Error("appointment delete failed", "appointment_id", appointmentID, "error", err)
		http.Error(w, "backend rejected the delete", http.StatusBadGateway)
		return
	}
	h.refetch(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /dashboard/logout: discard the session state and
// its cached snapshot.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	if h.cache != nil {
		if err := h.cache.Delete(r.Context(), h.sessionID); err != nil {
			h.logger.Warn("snapshot delete failed", "error", err)
			h.metrics.ObserveSnapshot("delete", "error")
		} else {
			h.metrics.ObserveSnapshot("delete", "ok")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// refetch refreshes the cache after a successful mutation. A failure
// here only flags the snapshot; the mutation already succeeded.
func (h *Handler) refetch(ctx context.Context) {
	appts, err := h.backend.FetchAppointments(ctx)
	if err != nil {
		h.store.RecordFetchFailure()
		h.logger.Warn("post-mutation refetch failed", "error", err)
		return
	}
	h.store.ReplaceAppointments(appts)
	h.persistSnapshot(ctx)
}

func (h *Handler) persistSnapshot(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, h.sessionID, h.store.Snapshot()); err != nil {
		h.logger.Warn("snapshot persist failed", "error", err)
		h.metrics.ObserveSnapshot("set", "error")
		return
	}
	h.metrics.ObserveSnapshot("set", "ok")
}

func (h *Handler) findAppointment(appointmentID string) (schedule.Appointment, bool) {
	for _, appt := range h.store.Snapshot().Appointments {
		if appt.ID == appointmentID {
			return appt, true
		}
	}
	return schedule.Appointment{}, false
}

func (h *Handler) findSession(sessionID string) (schedule.Session, bool) {
	for _, appt := range h.store.Snapshot().Appointments {
		for _, sess := range appt.Sessions {
			if sess.ID == sessionID {
				return sess, true
			}
		}
	}
	return schedule.Session{}, false
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ensure the concrete client satisfies the interface.
var _ BackendClient = (*backend.Client)(nil)
