package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/finboard/config"
	"github.com/oksasatya/finboard/internal/container"
	"github.com/oksasatya/finboard/internal/domain/entity"
	repo "github.com/oksasatya/finboard/internal/domain/repository"
	"github.com/oksasatya/finboard/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

const password = "password123"

type memRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (m *memRepo) find(match func(*entity.User) bool, withSecret bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			out := *u
			if !withSecret {
				out.PasswordHash = ""
			}
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Email == email }, false)
}

func (m *memRepo) FindByEmailWithSecret(_ context.Context, email string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Email == email }, true)
}

func (m *memRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.ID == id }, false)
}

func (m *memRepo) UpsertByEmail(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func newRepo(t *testing.T) *memRepo {
	t.Helper()
	hash, err := helpers.HashPasswordCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	r := &memRepo{users: map[string]*entity.User{}}
	for _, u := range []entity.User{
		{ID: "u-startup", Email: "startup@example.com", Name: "Startup", Role: entity.RoleStartup},
		{ID: "u-sme", Email: "sme@example.com", Name: "Sme", Role: entity.RoleSME},
		{ID: "u-ent", Email: "ent@example.com", Name: "Ent", Role: entity.RoleEnterprise},
		{ID: "u-legacy", Email: "legacy@example.com", Name: "Legacy"},
	} {
		u := u
		u.PasswordHash = hash
		r.users[u.ID] = &u
	}
	return r
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:             "finboard",
		JWTAccessSecret:     "access-test-secret",
		JWTRefreshSecret:    "refresh-test-secret",
		AccessTTL:           time.Hour,
		RefreshTTL:          24 * time.Hour,
		CORSAllowedOrigins:  "http://localhost:3000",
		ESAuditIndex:        "auth-events",
		DebugMetricsEnabled: true,
		LoginRateLimit:      100,
	}
}

type env struct {
	engine *gin.Engine
	repo   *memRepo
	mr     *miniredis.Miniredis
}

func setup(t *testing.T, cfg *config.Config, checks map[string]func(context.Context) error) env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newRepo(t)
	c := container.New(cfg, helpers.NewNopLogger(), container.Infra{Users: r, Redis: rdb, Checks: checks})
	return env{engine: NewEngine(c), repo: r, mr: mr}
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

func (e env) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:5555"
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func login(t *testing.T, e env, email string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	return e.do(http.MethodPost, "/api/login", string(body))
}

func TestLogin_EachRoleGetsItsSession(t *testing.T) {
	e := setup(t, testConfig(), nil)

	cases := map[string]entity.Role{
		"startup@example.com": entity.RoleStartup,
		"sme@example.com":     entity.RoleSME,
		"ent@example.com":     entity.RoleEnterprise,
		"legacy@example.com":  entity.RoleStartup,
	}
	for email, role := range cases {
		t.Run(email, func(t *testing.T) {
			w := login(t, e, email)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var view entity.SessionView
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
			assert.Equal(t, email, view.User.Email)
			assert.Equal(t, role, view.User.Role)
			assert.NotContains(t, w.Body.String(), "password")

			access := cookieNamed(w, helpers.AccessCookie)
			require.NotNil(t, access)
			assert.True(t, access.HttpOnly)
			assert.NotNil(t, cookieNamed(w, helpers.RefreshCookie))
		})
	}
}

func TestLogin_DenialsAreIndistinguishable(t *testing.T) {
	e := setup(t, testConfig(), nil)
	e.repo.users["u-nohash"] = &entity.User{ID: "u-nohash", Email: "nohash@example.com", Name: "NoHash"}

	bodies := []string{
		`{"email":"sme@example.com","password":"wrong-password"}`,
		`{"email":"nobody@example.com","password":"password123"}`,
		`{"email":"nohash@example.com","password":"password123"}`,
		`{"email":"sme@example.com"}`,
		`{"email":"","password":""}`,
		`{}`,
		``,
	}
	var first envelope
	for i, b := range bodies {
		w := e.do(http.MethodPost, "/api/login", b)
		require.Equal(t, http.StatusUnauthorized, w.Code, b)
		assert.Nil(t, cookieNamed(w, helpers.AccessCookie))

		got := decode(t, w)
		got.RequestID = ""
		if i == 0 {
			first = got
			assert.Equal(t, "invalid credentials", got.Message)
			continue
		}
		assert.Equal(t, first, got, b)
	}
}

func TestLogin_MalformedJSON(t *testing.T) {
	e := setup(t, testConfig(), nil)
	w := e.do(http.MethodPost, "/api/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"payload":"invalid json"}`, string(decode(t, w).Error))
}

func TestSessionAndDashboard(t *testing.T) {
	e := setup(t, testConfig(), nil)
	access := cookieNamed(login(t, e, "sme@example.com"), helpers.AccessCookie)
	require.NotNil(t, access)

	w := e.do(http.MethodGet, "/api/session", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	var view entity.SessionView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, entity.SessionUser{ID: "u-sme", Email: "sme@example.com", Name: "Sme", Role: entity.RoleSME}, view.User)

	w = e.do(http.MethodGet, "/api/dashboard", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"sme","view":"/dashboard/sme"}`, string(decode(t, w).Data))

	// bearer header works too
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSession_Unauthenticated(t *testing.T) {
	e := setup(t, testConfig(), nil)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/session", "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/dashboard", "",
		&http.Cookie{Name: helpers.AccessCookie, Value: "not-a-token"}).Code)

	// a refresh token is not an access token
	refresh := cookieNamed(login(t, e, "ent@example.com"), helpers.RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/session", "",
		&http.Cookie{Name: helpers.AccessCookie, Value: refresh.Value}).Code)
}

func TestRefresh(t *testing.T) {
	e := setup(t, testConfig(), nil)
	first := login(t, e, "ent@example.com")
	refresh := cookieNamed(first, helpers.RefreshCookie)
	require.NotNil(t, refresh)

	w := e.do(http.MethodPost, "/api/refresh", "", refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := cookieNamed(w, helpers.AccessCookie)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookieNamed(first, helpers.AccessCookie).Value, rotated.Value)

	// body form for non-browser clients
	w = e.do(http.MethodPost, "/api/refresh", `{"refresh_token":"`+refresh.Value+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// an access token cannot refresh
	access := cookieNamed(first, helpers.AccessCookie)
	w = e.do(http.MethodPost, "/api/refresh", "", &http.Cookie{Name: helpers.RefreshCookie, Value: access.Value})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/refresh", "").Code)
}

func TestRefresh_RemovedUserDenied(t *testing.T) {
	e := setup(t, testConfig(), nil)
	refresh := cookieNamed(login(t, e, "sme@example.com"), helpers.RefreshCookie)
	require.NotNil(t, refresh)

	delete(e.repo.users, "u-sme")
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/refresh", "", refresh).Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	e := setup(t, testConfig(), nil)
	w := e.do(http.MethodPost, "/api/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	access := cookieNamed(w, helpers.AccessCookie)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
	assert.Less(t, access.MaxAge, 0)
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = 2
	e := setup(t, cfg, nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/login", `{}`).Code)
	}
	w := e.do(http.MethodPost, "/api/login", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decode(t, w).Message)
}

func loginFrom(e env, remote, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w.Code
}

func TestLogin_RateLimitIgnoresRotatingForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = 2
	e := setup(t, cfg, nil)

	var codes []int
	for i := 1; i <= 4; i++ {
		codes = append(codes, loginFrom(e, "203.0.113.10:5555", fmt.Sprintf("198.51.100.%d", i)))
	}
	assert.Equal(t, []int{401, 401, 429, 429}, codes)
}

func TestLogin_RateLimitPerClientBehindTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = 1
	cfg.TrustedProxies = "10.0.0.0/8"
	e := setup(t, cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, loginFrom(e, "10.0.0.5:80", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(e, "10.0.0.5:80", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(e, "10.0.0.5:80", "198.51.100.2"))
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	e := setup(t, testConfig(), map[string]func(context.Context) error{"postgres": ok})
	w := e.do(http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"postgres":"up"}`, string(decode(t, w).Data))

	e = setup(t, testConfig(), map[string]func(context.Context) error{"postgres": ok, "redis": down})
	w = e.do(http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"postgres":"up","redis":"down"}`, string(decode(t, w).Error))
}

func TestDebugVars(t *testing.T) {
	e := setup(t, testConfig(), nil)
	login(t, e, "startup@example.com")

	w := e.do(http.MethodGet, "/api/debug/vars", "")
	require.Equal(t, http.StatusOK, w.Code)
	var vars map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vars))
	assert.Contains(t, vars, "auth_login_success")
	assert.Contains(t, vars, "auth_login_failure")

	cfg := testConfig()
	cfg.DebugMetricsEnabled = false
	e = setup(t, cfg, nil)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/debug/vars", "").Code)
}

func TestRequestIDEchoed(t *testing.T) {
	e := setup(t, testConfig(), nil)
	w := e.do(http.MethodGet, "/api/healthz", "")
	rid := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, rid)
	assert.Equal(t, rid, decode(t, w).RequestID)
}

func TestCORSPreflight(t *testing.T) {
	e := setup(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/login", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
