package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"titan/internal/clock"
	"titan/internal/coach"
	"titan/internal/handler"
	"titan/internal/model"
	"titan/internal/persistence"
	"titan/internal/repository"
	"titan/internal/service/tracker"
	"titan/pkg/trace"
)

type server struct {
	engine  *gin.Engine
	tracker *tracker.Tracker
}

func newServer(t *testing.T, checks map[string]Check) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	local, err := repository.NewLocalStore(filepath.Join(t.TempDir(), "titan.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	clk := &clock.Fixed{At: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	med := persistence.NewMediator(local, nil, nil, zap.NewNop())
	tr := tracker.New(med, clk, nil, zap.NewNop(), tracker.Options{})
	require.NoError(t, tr.Start(context.Background()))

	advisor := coach.NewAdvisor(nil, nil, 0, zap.NewNop())
	r := NewRouter(
		handler.NewTrackerHandler(tr, zap.NewNop()),
		handler.NewCoachHandler(advisor, tr, clk, zap.NewNop()),
		zap.NewNop(),
		checks,
	)
	return &server{engine: r, tracker: tr}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName()))

	w = s.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	failing := newServer(t, map[string]Check{
		"db": func(context.Context) error { return errors.New("down") },
	})
	w = failing.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db_not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, nil)
	s.do(http.MethodGet, "/api/stats", "")

	w := s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "titan_http_request_duration_seconds")
}

func TestHabitLifecycle(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodPost, "/api/habits", `{"name":"Deep work","category":"Work"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		Habit model.Habit `json:"habit"`
	}](t, w)
	assert.Equal(t, model.CategoryWork, created.Habit.Category)

	w = s.do(http.MethodPost, "/api/habits/"+created.Habit.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	toggled := decode[tracker.ToggleResult](t, w)
	assert.True(t, toggled.Completed)
	assert.Equal(t, "2024-03-10", toggled.Day)
	assert.Equal(t, int64(50), toggled.Stats.XP)

	w = s.do(http.MethodGet, "/api/habits", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Habits []model.Habit `json:"habits"`
	}](t, w)
	require.Len(t, list.Habits, 1)
	assert.Equal(t, []string{"2024-03-10"}, list.Habits[0].CompletedDays)

	w = s.do(http.MethodDelete, "/api/habits/"+created.Habit.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.tracker.Habits())
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing name", http.MethodPost, "/api/habits", `{"category":"work"}`, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/habits", `{"name":"Yoga","category":"leisure"}`, http.StatusBadRequest},
		{"blank name", http.MethodPost, "/api/habits", `{"name":"   ","category":"work"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/habits", `{`, http.StatusBadRequest},
		{"toggle unknown", http.MethodPost, "/api/habits/nope/toggle", "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/habits/nope", "", http.StatusNotFound},
		{"zero focus", http.MethodPost, "/api/focus", `{"minutes":0}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestFocus(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodPost, "/api/focus", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, s.tracker.Stats().TotalFocusMinutes)

	w = s.do(http.MethodPost, "/api/focus", `{"minutes":50}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Stats model.UserStats `json:"stats"`
	}](t, w)
	assert.Equal(t, int64(150), got.Stats.XP)
	assert.Equal(t, 2, got.Stats.TotalPomodoros)
}

func TestDashboardAndCoach(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[tracker.Dashboard](t, w)
	assert.Equal(t, "2024-03-10", d.Today)
	assert.Len(t, d.Week, 7)

	w = s.do(http.MethodGet, "/api/coach?review=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, coach.InsightFallback, body["insight"])
	assert.Equal(t, coach.ReviewFallback, body["review"])
}
