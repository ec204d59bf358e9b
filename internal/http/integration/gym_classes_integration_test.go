package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/gymlog/internal/auth"
	"github.com/geocoder89/gymlog/internal/config"
	"github.com/geocoder89/gymlog/internal/domain/gymclass"
	"github.com/geocoder89/gymlog/internal/domain/user"
	apphttp "github.com/geocoder89/gymlog/internal/http"
	"github.com/geocoder89/gymlog/internal/observability"
	"github.com/geocoder89/gymlog/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		StoreDriver:         "memory",
		SessionSecret:       "test-session-secret",
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		RateLimitPerMinute:  1000,
		MaxBodyBytes:        1 << 20,
	}
}

type testApp struct {
	router *gin.Engine
	jwt    *auth.Manager
	users  *memory.UsersRepo
}

func setupTestRouter(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL())
	users := memory.NewUsersRepo()

	router := apphttp.NewRouter(apphttp.Deps{
		Config:     cfg,
		Logger:     logger,
		GymClasses: memory.NewGymClassesRepo(),
		Users:      users,
		JWT:        jwtManager,
		Prom:       observability.NewProm(reg),
		Gatherer:   reg,
	})

	return &testApp{router: router, jwt: jwtManager, users: users}
}

func (a *testApp) tokenFor(t *testing.T, uid string) string {
	t.Helper()

	_, err := a.users.Upsert(context.Background(), user.UpsertUser{ID: uid})
	require.NoError(t, err)

	token, _, err := a.jwt.GenerateAccessToken(uid, "")
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestGymClassFlow(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "user-1")

	w := app.do(t, http.MethodPost, "/api/gym-classes", token, map[string]any{"date": "2024-01-05", "attendance": 12})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created gymclass.GymClass
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "user-1", created.UserID)
	require.Equal(t, "2024-01-05", created.Date)
	require.Equal(t, 12, created.Attendance)
	require.Nil(t, created.Notes)
	require.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	w = app.do(t, http.MethodPatch, "/api/gym-classes/"+created.ID, token, map[string]any{"attendance": 15})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated gymclass.GymClass
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, 15, updated.Attendance)
	require.Equal(t, "2024-01-05", updated.Date)

	w = app.do(t, http.MethodGet, "/api/gym-classes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []gymclass.GymClass
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, 15, list[0].Attendance)

	w = app.do(t, http.MethodDelete, "/api/gym-classes/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodDelete, "/api/gym-classes/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/api/gym-classes/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGymClassValidation(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "user-1")

	bodies := []map[string]any{
		{"attendance": 3},
		{"date": "2024-01-05"},
		{"date": "2024-01-05", "attendance": -1},
		{"date": "2024-01-05", "attendance": 1000},
		{"date": "01/05/2024", "attendance": 3},
	}

	for _, body := range bodies {
		w := app.do(t, http.MethodPost, "/api/gym-classes", token, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
		require.Contains(t, w.Body.String(), `"message":"Invalid data"`)
	}

	w := app.do(t, http.MethodGet, "/api/gym-classes", token, nil)
	require.Equal(t, "[]", w.Body.String(), "failed creates must not persist anything")
}

func TestOwnershipIsolation(t *testing.T) {
	app := setupTestRouter(t)
	alice := app.tokenFor(t, "alice")
	bob := app.tokenFor(t, "bob")

	w := app.do(t, http.MethodPost, "/api/gym-classes", alice, map[string]any{"date": "2024-02-01", "attendance": 4, "notes": "yoga"})
	require.Equal(t, http.StatusCreated, w.Code)

	var g gymclass.GymClass
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))

	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/gym-classes/"+g.ID, bob, nil).Code)
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodPatch, "/api/gym-classes/"+g.ID, bob, map[string]any{"attendance": 0}).Code)
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/api/gym-classes/"+g.ID, bob, nil).Code)

	w = app.do(t, http.MethodGet, "/api/gym-classes", bob, nil)
	require.Equal(t, "[]", w.Body.String())

	w = app.do(t, http.MethodGet, "/api/gym-classes/"+g.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"notes":"yoga"`)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	app := setupTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/user"},
		{http.MethodGet, "/api/gym-classes"},
		{http.MethodPost, "/api/gym-classes"},
		{http.MethodGet, "/api/gym-classes/x"},
		{http.MethodPatch, "/api/gym-classes/x"},
		{http.MethodDelete, "/api/gym-classes/x"},
	} {
		w := app.do(t, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}

	w := app.do(t, http.MethodGet, "/api/gym-classes", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserEndpoint(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "sub-77")

	w := app.do(t, http.MethodGet, "/api/auth/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var u user.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	require.Equal(t, "sub-77", u.ID)
	require.Nil(t, u.Email)

	orphan, _, err := app.jwt.GenerateAccessToken("deleted-user", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/auth/user", orphan, nil).Code)
}

func TestContentTypeIsEnforced(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/gym-classes", bytes.NewBufferString(`{"date":"2024-01-05","attendance":1}`))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	app := setupTestRouter(t)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/healthz", "", nil).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/readyz", "", nil).Code)

	// one request so the http metrics have a sample
	app.do(t, http.MethodGet, "/api/gym-classes", "", nil)

	w := app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "gymlog_http_requests_total")
}

func TestGetGymClassHonoursIfNoneMatch(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "user-1")

	w := app.do(t, http.MethodPost, "/api/gym-classes", token, map[string]any{"date": "2024-01-05", "attendance": 12})
	require.Equal(t, http.StatusCreated, w.Code)

	var g gymclass.GymClass
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))

	w = app.do(t, http.MethodGet, "/api/gym-classes/"+g.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	get := func(ifNoneMatch string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/gym-classes/"+g.ID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("If-None-Match", ifNoneMatch)
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	w = get(etag)
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Empty(t, w.Body.String())
	require.Equal(t, etag, w.Header().Get("ETag"))

	require.Equal(t, http.StatusNotModified, get(`"stale", W/`+etag).Code, "weak and listed validators match")

	// a change produces a new representation
	w = app.do(t, http.MethodPatch, "/api/gym-classes/"+g.ID, token, map[string]any{"attendance": 13})
	require.Equal(t, http.StatusOK, w.Code)

	w = get(etag)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestOversizedBodyIsRejected(t *testing.T) {
	app := setupTestRouter(t)
	token := app.tokenFor(t, "user-1")

	notes := strings.Repeat("x", 2<<20)
	w := app.do(t, http.MethodPost, "/api/gym-classes", token, map[string]any{"date": "2024-01-05", "attendance": 1, "notes": notes})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				JSON  string `json:"json"`
				Limit int64  `json:"limit"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "invalid_request", resp.Error.Code)
	require.Equal(t, "body_too_large", resp.Error.Details.JSON)
	require.Equal(t, testConfig().MaxBodyBytes, resp.Error.Details.Limit)

	w = app.do(t, http.MethodGet, "/api/gym-classes", token, nil)
	require.Equal(t, "[]", w.Body.String(), "nothing is stored from a truncated body")
}
