package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
	"github.com/BuzzLyutic/minutes-tracker/internal/service"
	"github.com/BuzzLyutic/minutes-tracker/internal/testdb"
	"github.com/BuzzLyutic/minutes-tracker/pkg/respond"
)

type server struct {
	t      *testing.T
	router http.Handler
	clock  *clock.Manual
	fx     testdb.Fixture
}

func setupServer(t *testing.T) *server {
	store := testdb.SQLite(t)
	clk := clock.NewManual(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	tx := service.NewTxRunner(store, time.Second, logger)
	minutes := service.NewMinutesService(store, tx, clk, time.UTC)
	svc := Services{
		Tasks:   service.NewTaskService(store, tx, service.NewRecorder(minutes, clk), clk),
		Minutes: minutes,
		Teams:   service.NewTeamService(store, clk),
	}

	return &server{
		t:      t,
		router: NewRouter(svc, store, logger),
		clock:  clk,
		fx:     testdb.SeedTeam(t, store, "Operations"),
	}
}

type as struct {
	userID string
	role   string
}

func (s *server) admin() as       { return as{s.fx.Admin.ID, "Admin"} }
func (s *server) coordinator() as { return as{s.fx.Coordinator.UserID, "Coordinator"} }
func (s *server) member() as      { return as{s.fx.Member.UserID, "member"} }

func (s *server) do(method, path string, who as, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.send(method, path, who, body, nil)
}

func (s *server) send(method, path string, who as, body any, header http.Header) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.userID != "" {
		req.Header.Set(HeaderUserID, who.userID)
	}
	if who.role != "" {
		req.Header.Set(HeaderUserRole, who.role)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func (s *server) createTask(title string) model.TaskDetails {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/tasks", s.coordinator(), map[string]any{
		"teamId":              s.fx.Team.ID,
		"title":               title,
		"responsibleMemberId": s.fx.Member.ID,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.TaskDetails](s.t, w)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := s.do(http.MethodGet, "/health", as{}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestTaskHandler_Create(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name          string
		who           as
		body          any
		wantCode      int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:     "successful creation",
			who:      s.admin(),
			body:     map[string]any{"teamId": s.fx.Team.ID, "title": "Book room", "priority": "High"},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				task := decode[model.TaskDetails](t, w)
				assert.NotEmpty(t, task.ID)
				assert.Equal(t, model.PriorityHigh, task.Priority)
				assert.Equal(t, model.StatusOpen, task.Status)
				assert.Equal(t, "/api/tasks/"+task.ID, w.Header().Get("Location"))
			},
		},
		{
			name:     "empty body",
			who:      s.admin(),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed json",
			who:      s.admin(),
			body:     `{"title":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "validation error",
			who:      s.admin(),
			body:     map[string]any{"teamId": s.fx.Team.ID, "title": ""},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing user",
			who:      as{role: "Admin"},
			body:     map[string]any{"teamId": s.fx.Team.ID, "title": "x"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown role",
			who:      as{userID: s.fx.Admin.ID, role: "Root"},
			body:     map[string]any{"teamId": s.fx.Team.ID, "title": "x"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "member forbidden",
			who:      s.member(),
			body:     map[string]any{"teamId": s.fx.Team.ID, "title": "x"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown team",
			who:      s.admin(),
			body:     map[string]any{"teamId": "missing", "title": "x"},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/tasks", tt.who, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestTaskHandler_CreateIdempotencyKey(t *testing.T) {
	s := setupServer(t)
	header := http.Header{}
	header.Set(HeaderIdempotencyKey, "retry-1")
	body := map[string]any{"teamId": s.fx.Team.ID, "title": "Book the room"}

	w := s.send(http.MethodPost, "/api/tasks", s.coordinator(), body, header)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[model.TaskDetails](t, w)

	w = s.send(http.MethodPost, "/api/tasks", s.coordinator(), body, header)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode[model.TaskDetails](t, w)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "/api/tasks/"+first.ID, w.Header().Get("Location"))

	w = s.do(http.MethodGet, fmt.Sprintf("/api/teams/%s/minutes", s.fx.Team.ID), as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	minutes := decode[[]model.MinutesWithSnapshots](t, w)
	require.Len(t, minutes, 1)
	assert.Len(t, minutes[0].Snapshots, 1)
}

func TestTaskHandler_Get(t *testing.T) {
	s := setupServer(t)
	task := s.createTask("Agenda")

	w := s.do(http.MethodGet, "/api/tasks/"+task.ID, as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.TaskDetails](t, w)
	assert.Equal(t, "Agenda", got.Title)
	require.NotNil(t, got.ResponsibleMember)
	assert.Equal(t, s.fx.Member.ID, got.ResponsibleMember.ID)

	w = s.do(http.MethodGet, "/api/tasks/missing", as{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "task not found", decode[respond.ErrorBody](t, w).Error)
}

func TestTaskHandler_List(t *testing.T) {
	s := setupServer(t)
	s.createTask("one")
	done := s.createTask("two")
	w := s.do(http.MethodPatch, "/api/tasks/"+done.ID, s.member(), map[string]any{"status": "Done"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/tasks?teamId="+s.fx.Team.ID, as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.TaskDetails](t, w), 1)

	w = s.do(http.MethodGet, "/api/tasks?memberId="+s.fx.Member.ID+"&includeCompleted=true", as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.TaskDetails](t, w), 2)

	w = s.do(http.MethodGet, "/api/tasks", as{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/tasks?teamId=x&includeCompleted=maybe", as{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Update(t *testing.T) {
	s := setupServer(t)
	task := s.createTask("Original")

	tests := []struct {
		name     string
		who      as
		body     any
		wantCode int
		check    func(*testing.T, model.TaskDetails)
	}{
		{
			name:     "member fields are filtered",
			who:      s.member(),
			body:     map[string]any{"title": "Hijack", "status": "Blocked", "notes": "waiting"},
			wantCode: http.StatusOK,
			check: func(t *testing.T, got model.TaskDetails) {
				assert.Equal(t, "Original", got.Title)
				assert.Equal(t, model.StatusBlocked, got.Status)
				assert.Equal(t, "waiting", *got.Notes)
			},
		},
		{
			name:     "member with only disallowed fields",
			who:      s.member(),
			body:     map[string]any{"title": "Hijack"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "member with invalid status",
			who:      s.member(),
			body:     map[string]any{"status": "Someday"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "coordinator clears notes with null",
			who:      s.coordinator(),
			body:     `{"title":"Renamed","notes":null}`,
			wantCode: http.StatusOK,
			check: func(t *testing.T, got model.TaskDetails) {
				assert.Equal(t, "Renamed", got.Title)
				assert.Nil(t, got.Notes)
			},
		},
		{
			name:     "missing user",
			who:      as{role: "Admin"},
			body:     map[string]any{"status": "Done"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "admin with empty patch",
			who:      s.admin(),
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPatch, "/api/tasks/"+task.ID, tt.who, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, decode[model.TaskDetails](t, w))
			}
		})
	}

	w := s.do(http.MethodPatch, "/api/tasks/missing", s.admin(), map[string]any{"status": "Done"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_DeleteAndNotes(t *testing.T) {
	s := setupServer(t)
	task := s.createTask("Short lived")

	s.clock.Advance(time.Minute)
	w := s.do(http.MethodPatch, "/api/tasks/"+task.ID, s.member(), map[string]any{"status": "In-Progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/tasks/"+task.ID, s.member(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.clock.Advance(time.Minute)
	w = s.do(http.MethodDelete, "/api/tasks/"+task.ID, s.coordinator(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/tasks/"+task.ID, as{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	notesPath := fmt.Sprintf("/api/teams/%s/minutes", s.fx.Team.ID)
	w = s.do(http.MethodGet, notesPath, as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode[[]model.MinutesWithSnapshots](t, w)
	require.Len(t, full, 1)
	assert.Equal(t, "2026-02-10", full[0].Date)
	require.Len(t, full[0].Snapshots, 3)
	assert.Equal(t, model.ChangeDeleted, full[0].Snapshots[0].ChangeType)
	assert.Equal(t, "Short lived", full[0].Snapshots[0].Payload.Title)
	assert.Equal(t, 1, full[0].Snapshots[0].Payload.Version)

	w = s.do(http.MethodGet, notesPath+"?view=latest", as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	latest := decode[[]model.MinutesWithSnapshots](t, w)
	require.Len(t, latest[0].Snapshots, 1)
	assert.Equal(t, model.ChangeDeleted, latest[0].Snapshots[0].ChangeType)

	w = s.do(http.MethodGet, notesPath+"?view=weekly", as{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMinutesHandler_Details(t *testing.T) {
	s := setupServer(t)
	path := fmt.Sprintf("/api/teams/%s/minutes/2026-03-01", s.fx.Team.ID)

	w := s.do(http.MethodGet, path, as{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, path, s.member(), map[string]any{"venue": "Cafe"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, s.coordinator(), map[string]any{
		"venue":      "Cafe",
		"attendance": []string{s.fx.Member.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode[model.Minutes](t, w)
	assert.Equal(t, "Cafe", *m.Venue)
	assert.Equal(t, []string{s.fx.Member.ID}, m.Attendance)

	w = s.do(http.MethodGet, path, as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.MinutesWithSnapshots](t, w)
	assert.Equal(t, m.ID, got.ID)
	assert.Empty(t, got.Snapshots)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/teams/%s/minutes/tomorrow", s.fx.Team.ID), s.admin(), map[string]any{"venue": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeamHandler(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodPost, "/api/teams", s.admin(), map[string]any{"name": "Finance", "defaultVenue": "Room 2"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Team](t, w)
	assert.Equal(t, "/api/teams/"+created.ID, w.Header().Get("Location"))

	w = s.do(http.MethodPost, "/api/teams", s.admin(), map[string]any{"name": "Finance"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/teams", s.coordinator(), map[string]any{"name": "Shadow"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/teams", as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Team](t, w), 2)

	w = s.do(http.MethodGet, "/api/teams/"+s.fx.Team.ID, as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode[model.TeamDetails](t, w)
	assert.Equal(t, "Operations", details.Name)
	assert.Len(t, details.Members, 2)

	w = s.do(http.MethodGet, "/api/teams/missing/minutes", as{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeamHandler_Update(t *testing.T) {
	s := setupServer(t)
	path := "/api/teams/" + s.fx.Team.ID

	w := s.do(http.MethodPatch, path, s.coordinator(), map[string]any{"defaultVenue": "Roof"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, path, s.admin(), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/teams/missing", s.admin(), map[string]any{"defaultVenue": "Roof"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, path, s.admin(), map[string]any{"defaultVenue": "Roof"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	team := decode[model.Team](t, w)
	assert.Equal(t, "Operations", team.Name)
	assert.Equal(t, "Roof", *team.DefaultVenue)

	// Minutes created after the change start with the new venue.
	s.createTask("After venue change")
	w = s.do(http.MethodGet, path+"/minutes/2026-02-10", as{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[model.MinutesWithSnapshots](t, w)
	require.NotNil(t, m.Venue)
	assert.Equal(t, "Roof", *m.Venue)
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "validation", err: fmt.Errorf("%w: title is required", service.ErrValidation), wantCode: http.StatusBadRequest, wantMsg: "validation error: title is required"},
		{name: "forbidden", err: service.ErrForbidden, wantCode: http.StatusForbidden, wantMsg: "forbidden"},
		{name: "not found", err: fmt.Errorf("team %w", repo.ErrorNotFound), wantCode: http.StatusNotFound, wantMsg: "team not found"},
		{name: "conflict", err: repo.ErrorConflict, wantCode: http.StatusConflict, wantMsg: "already exists"},
		{name: "storage", err: &repo.StorageError{Op: "insert snapshot", Err: errors.New("password=hunter2")}, wantCode: http.StatusInternalServerError, wantMsg: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleErrors(w, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), tt.err)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantMsg, decode[respond.ErrorBody](t, w).Error)
		})
	}
}
