package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/backend"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/cache"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/schedule"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/state"
)

var testNow = time.Date(2024, 6, 10, 14, 30, 0, 0, schedule.Location())

func testClock() schedule.Clock {
	return func() time.Time { return testNow }
}

type fakeBackend struct {
	appts      []schedule.Appointment
	fetchErr   error
	statusErr  error
	mutateErr  error
	fetchCalls int
	statusTo   schedule.Status
	created    *backend.CreateAppointmentRequest
	updatedID  string
	repeated   *backend.RepeatSessionsRequest
}

func (f *fakeBackend) FetchAppointments(context.Context) ([]schedule.Appointment, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.appts, nil
}

func (f *fakeBackend) CreateAppointment(_ context.Context, req backend.CreateAppointmentRequest) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.created = &req
	return nil
}

func (f *fakeBackend) UpdateAppointment(_ context.Context, id string, _ backend.UpdateAppointmentRequest) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.updatedID = id
	return nil
}

func (f *fakeBackend) RepeatSessions(_ context.Context, id string, req backend.RepeatSessionsRequest) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.repeated = &req
	return nil
}

func (f *fakeBackend) UpdateSessionStatus(_ context.Context, _ string, to schedule.Status) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusTo = to
	return nil
}

func (f *fakeBackend) DeleteAppointment(context.Context, string) error { return nil }

type fakeCache struct {
	snaps   map[string]state.Snapshot
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{snaps: map[string]state.Snapshot{}} }

func (f *fakeCache) Get(_ context.Context, id string) (*state.Snapshot, error) {
	snap, ok := f.snaps[id]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return &snap, nil
}

func (f *fakeCache) Set(_ context.Context, id string, snap state.Snapshot) error {
	f.snaps[id] = snap
	return nil
}

func (f *fakeCache) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.snaps, id)
	return nil
}

func testAppointments() []schedule.Appointment {
	return []schedule.Appointment{
		{ID: "appt-1", PatientName: "Ana Souza", TotalSessions: 2, Sessions: []schedule.Session{
			{ID: "s1", AppointmentDate: "2024-06-10T13:00:00Z", Duration: 30, SessionNumber: 1, Status: schedule.StatusConfirmado},
			{ID: "s2", AppointmentDate: "2024-06-17T13:00:00Z", Duration: 30, SessionNumber: 2, Status: schedule.StatusSolicitado},
		}},
	}
}

type fixture struct {
	handler *Handler
	backend *fakeBackend
	cache   *fakeCache
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := &fakeBackend{appts: testAppointments()}
	fc := newFakeCache()
	store := state.NewStore(testClock())
	h := NewHandler(store, be, fc, "sess-1", nil, nil, testClock())

	r := chi.NewRouter()
	r.Post("/dashboard/refresh", h.Refresh)
	r.Get("/dashboard/appointments", h.Appointments)
	r.Post("/dashboard/appointments", h.CreateAppointment)
	r.Put("/dashboard/appointments/{id}", h.UpdateAppointment)
	r.Post("/dashboard/appointments/{id}/repeat", h.RepeatSessions)
	r.Put("/dashboard/filter", h.SetFilter)
	r.Post("/dashboard/navigate/{unit}/{direction}", h.Navigate)
	r.Get("/dashboard/sessions", h.Sessions)
	r.Get("/dashboard/views/daily", h.DailyView)
	r.Get("/dashboard/views/weekly", h.WeeklyView)
	r.Get("/dashboard/views/monthly", h.MonthlyView)
	r.Get("/dashboard/views/day/{date}", h.DayDetailView)
	r.Patch("/dashboard/sessions/{id}/status", h.UpdateSessionStatus)
	r.Delete("/dashboard/appointments/{id}", h.DeleteAppointment)
	r.Post("/dashboard/logout", h.Logout)

	return &fixture{handler: h, backend: be, cache: fc, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestRefreshAndAppointments(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/dashboard/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Appointments []schedule.Appointment `json:"appointments"`
		FetchFailed  bool                   `json:"fetchFailed"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Appointments, 1)
	assert.False(t, resp.FetchFailed)

	// The snapshot also landed in the cache.
	assert.Contains(t, f.cache.snaps, "sess-1")
}

func TestRefreshFailureKeepsPriorSnapshot(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	f.backend.fetchErr = errors.New("backend down")
	rec := f.do(t, http.MethodPost, "/dashboard/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodGet, "/dashboard/appointments", "")
	var resp struct {
		Appointments []schedule.Appointment `json:"appointments"`
		FetchFailed  bool                   `json:"fetchFailed"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Appointments, 1, "prior list stays visible")
	assert.True(t, resp.FetchFailed)
}

func TestSessionsHonorActiveFilter(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	// Default filter today: the 13:00Z session (10:00 local) matches.
	rec := f.do(t, http.MethodGet, "/dashboard/sessions", "")
	var resp struct {
		Count    int                    `json:"count"`
		Sessions []schedule.SessionView `json:"sessions"`
	}
	decode(t, rec, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "s1", resp.Sessions[0].SessionID)

	// Tomorrow on the same date: nothing.
	rec = f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"tomorrow"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/dashboard/sessions", "")
	decode(t, rec, &resp)
	assert.Zero(t, resp.Count)
}

func TestSetFilterRejectsUnknownName(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"fortnight"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryFilterWithMissingBoundsYieldsEmpty(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	rec := f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"history"}`)
	require.Equal(t, http.StatusOK, rec.Code, "missing bounds are not an error")

	var resp struct {
		Count int `json:"count"`
	}
	rec = f.do(t, http.MethodGet, "/dashboard/sessions", "")
	decode(t, rec, &resp)
	assert.Zero(t, resp.Count)
}

func TestNavigateWeekActivatesWeekFilter(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	rec := f.do(t, http.MethodPost, "/dashboard/navigate/week/next", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Filter  schedule.Filter  `json:"filter"`
		Anchors schedule.Anchors `json:"anchors"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, schedule.FilterWeek, resp.Filter)
	assert.Equal(t, 16, resp.Anchors.CurrentWeek.Day(), "anchor moved to June 16")

	// Next week now shows the June 17 session.
	var sessions struct {
		Count    int                    `json:"count"`
		Sessions []schedule.SessionView `json:"sessions"`
	}
	rec = f.do(t, http.MethodGet, "/dashboard/sessions", "")
	decode(t, rec, &sessions)
	require.Equal(t, 1, sessions.Count)
	assert.Equal(t, "s2", sessions.Sessions[0].SessionID)
}

func TestNavigateUnknownUnit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/dashboard/navigate/fortnight/next", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyView(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	rec := f.do(t, http.MethodGet, "/dashboard/views/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var timeline schedule.DailyTimeline
	decode(t, rec, &timeline)
	assert.Len(t, timeline.Slots, 29)
	assert.True(t, timeline.ShowNowMarker)
}

func TestWeeklyView(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"week"}`)

	rec := f.do(t, http.MethodGet, "/dashboard/views/weekly", "")
	var resp struct {
		Days []schedule.DayColumn `json:"days"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Days, 7)
	// June 10 is Monday, column 1.
	assert.Equal(t, 1, resp.Days[1].Total)
}

func TestMonthlyView(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"month"}`)

	rec := f.do(t, http.MethodGet, "/dashboard/views/monthly", "")
	var grid schedule.MonthlyGrid
	decode(t, rec, &grid)
	assert.Len(t, grid.Cells, 30)
	assert.Equal(t, 6, grid.PaddingCells)
	assert.Equal(t, 2, grid.Cells[9].Count+grid.Cells[16].Count, "June 10 and 17 sessions")
}

func TestDayDetailView(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.do(t, http.MethodPut, "/dashboard/filter", `{"filter":"month"}`)

	rec := f.do(t, http.MethodGet, "/dashboard/views/day/2024-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail schedule.DayDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Slots, 1)

	rec = f.do(t, http.MethodGet, "/dashboard/views/day/10-06-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSessionStatus(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.backend.fetchCalls = 0

	// s1 is CONFIRMADO with a past instant: FINALIZADO is allowed.
	rec := f.do(t, http.MethodPatch, "/dashboard/sessions/s1/status", `{"status":"FINALIZADO"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schedule.StatusFinalizado, f.backend.statusTo)
	assert.Equal(t, 1, f.backend.fetchCalls, "mutation triggers a refetch")
}

func TestUpdateSessionStatusGuards(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"unknown session", "/dashboard/sessions/ghost/status", `{"status":"CONFIRMADO"}`, http.StatusNotFound},
		{"invalid status", "/dashboard/sessions/s1/status", `{"status":"AGENDADO"}`, http.StatusBadRequest},
		{"illegal transition", "/dashboard/sessions/s1/status", `{"status":"SOLICITADO"}`, http.StatusConflict},
		// s2 is SOLICITADO on June 17, in the future: FINALIZADO is
		// neither reachable nor offered.
		{"finalize future session", "/dashboard/sessions/s2/status", `{"status":"FINALIZADO"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestUpdateSessionStatusBackendRejection(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	f.backend.statusErr = errors.New("rejected")
	rec := f.do(t, http.MethodPatch, "/dashboard/sessions/s1/status", `{"status":"FINALIZADO"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Cached list untouched by the failed mutation.
	var resp struct {
		Appointments []schedule.Appointment `json:"appointments"`
	}
	rec = f.do(t, http.MethodGet, "/dashboard/appointments", "")
	decode(t, rec, &resp)
	assert.Equal(t, schedule.StatusConfirmado, resp.Appointments[0].Sessions[0].Status)
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.backend.fetchCalls = 0

	body := `{"patientId":"p1","employeeId":"e1","appointmentDate":"2024-06-20T13:00:00Z","duration":30,"totalSessions":3}`
	rec := f.do(t, http.MethodPost, "/dashboard/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, f.backend.created)
	assert.Equal(t, "p1", f.backend.created.PatientID)
	assert.Equal(t, 3, f.backend.created.TotalSessions)
	assert.Equal(t, 1, f.backend.fetchCalls, "mutation triggers a refetch")
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"garbage body", `not json`},
		{"missing patient", `{"appointmentDate":"2024-06-20T13:00:00Z"}`},
		{"missing date", `{"patientId":"p1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/dashboard/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Nil(t, f.backend.created, "rejected requests never reach the backend")
}

func TestUpdateAppointment(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.backend.fetchCalls = 0

	rec := f.do(t, http.MethodPut, "/dashboard/appointments/appt-1", `{"duration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "appt-1", f.backend.updatedID)
	assert.Equal(t, 1, f.backend.fetchCalls)

	rec = f.do(t, http.MethodPut, "/dashboard/appointments/ghost", `{"duration":60}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRepeatSessions(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")
	f.backend.fetchCalls = 0

	rec := f.do(t, http.MethodPost, "/dashboard/appointments/appt-1/repeat", `{"count":4,"intervalDays":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.backend.repeated)
	assert.Equal(t, 4, f.backend.repeated.Count)
	assert.Equal(t, 7, f.backend.repeated.IntervalDays)
	assert.Equal(t, 1, f.backend.fetchCalls)
}

func TestRepeatSessionsGuards(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	rec := f.do(t, http.MethodPost, "/dashboard/appointments/appt-1/repeat", `{"count":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/dashboard/appointments/ghost/repeat", `{"count":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.backend.mutateErr = errors.New("rejected")
	rec = f.do(t, http.MethodPost, "/dashboard/appointments/appt-1/repeat", `{"count":2}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/dashboard/refresh", "")

	rec := f.do(t, http.MethodPost, "/dashboard/logout", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, f.cache.deleted, "sess-1")

	var resp struct {
		Appointments []schedule.Appointment `json:"appointments"`
	}
	rec = f.do(t, http.MethodGet, "/dashboard/appointments", "")
	decode(t, rec, &resp)
	assert.Empty(t, resp.Appointments)
}

func TestWarmStart(t *testing.T) {
	fc := newFakeCache()
	fc.snaps["sess-1"] = state.Snapshot{
		Appointments: testAppointments(),
		Filter:       schedule.FilterWeek,
	}
	store := state.NewStore(testClock())
	h := NewHandler(store, &fakeBackend{}, fc, "sess-1", nil, nil, testClock())

	h.WarmStart(context.Background())
	snap := store.Snapshot()
	assert.Len(t, snap.Appointments, 1)
	assert.Equal(t, schedule.FilterWeek, snap.Filter)
}

func TestStatsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewStatsHandler(reg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		FetchLatency FetchLatencySnapshot `json:"backend_fetch_latency"`
	}
	decode(t, rec, &resp)
	assert.Zero(t, resp.FetchLatency.Total, "empty registry yields an empty snapshot")
}
