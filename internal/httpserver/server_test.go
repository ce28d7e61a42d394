package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo/backend/internal/config"
	authdomain "todo/backend/internal/domain/auth"
	"todo/backend/internal/infrastructure/hash"
	"todo/backend/internal/infrastructure/memory"
	"todo/backend/internal/infrastructure/token"
	authusecase "todo/backend/internal/usecase/auth"
	taskusecase "todo/backend/internal/usecase/task"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "test-secret"
	testIssuer = "todo-test"
	testTTL    = time.Hour
)

type testEnv struct {
	handler http.Handler
	users   *memory.UserRepository
	tasks   *memory.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()
	authService := authusecase.NewService(users, token.NewJWTManager(testSecret, testTTL, testIssuer), hash.NewBcryptHasher(bcrypt.MinCost))
	srv := NewServer(config.Config{HTTPPort: "0", AllowedOrigins: []string{"*"}}, authService, taskusecase.NewService(tasks), nil)

	return &testEnv{handler: srv.Handler(), users: users, tasks: tasks}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) *authdomain.User {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": password, "name": "Test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		User authdomain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return &out.User
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLogin_IssuesDecodableToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@b.com", "pw")

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.User)
	assert.Equal(t, "a@b.com", out.User.Email)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	claims := &token.Claims{}
	parsed, err := jwt.ParseWithClaims(out.Token, claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, user.ID, claims.UserID)
	assert.WithinDuration(t, claims.IssuedAt.Add(testTTL), claims.ExpiresAt.Time, 0)
	assert.WithinDuration(t, claims.ExpiresAt.Time, out.ExpiresAt, 0)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com", "pw")

	wrongPassword := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "nope"})
	unknownEmail := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "x@y.com", "password": "pw"})
	blank := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "", "password": ""})

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail, blank} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", decodeError(t, rec))
	}
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLogin_BadJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com", "pw")

	dup := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "A@B.com", "password": "pw"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	missing := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "c@d.com"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	tooLong := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "e@f.com", "password": strings.Repeat("x", 73)})
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)
	assert.Contains(t, decodeError(t, tooLong), "72 bytes")
}

func TestAccessGuard_NoTokenHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@b.com", "pw")

	rec := env.do(t, http.MethodPost, "/tasks", "", map[string]string{"title": "sneaky"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	tasks, err := env.tasks.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestAccessGuard_LogsRejectionAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	authService := authusecase.NewService(memory.NewUserRepository(), token.NewJWTManager(testSecret, testTTL, testIssuer), hash.NewBcryptHasher(bcrypt.MinCost))
	srv := NewServer(config.Config{HTTPPort: "0"}, authService, taskusecase.NewService(memory.NewTaskRepository()), zap.New(core).Sugar())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rejected := logs.FilterMessage("rejected GET /tasks: unauthenticated").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zap.DebugLevel, rejected[0].Level)
	assert.NotEmpty(t, rejected[0].ContextMap()["request_id"])
}

func TestAccessGuard_RejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@b.com", "pw")

	expired, err := token.NewJWTManager(testSecret, -time.Minute, testIssuer).Generate(user)
	require.NoError(t, err)
	forged, err := token.NewJWTManager("other-secret", testTTL, testIssuer).Generate(user)
	require.NoError(t, err)

	cases := map[string]string{
		"expired":   "Bearer " + expired.Value,
		"forged":    "Bearer " + forged.Value,
		"malformed": "Bearer not.a.jwt",
		"scheme":    "Token " + env.login(t, "a@b.com", "pw"),
		"empty":     "Bearer ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		})
	}
}

func TestAccessGuard_SchemeIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com", "pw")
	tok := env.login(t, "a@b.com", "pw")

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTasks_CRUD(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com", "pw")
	tok := env.login(t, "a@b.com", "pw")

	rec := env.do(t, http.MethodGet, "/tasks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/tasks", tok, map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/tasks", tok, map[string]string{"title": "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Completed bool   `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.Completed)

	rec = env.do(t, http.MethodPut, "/tasks/"+created.ID, tok, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed":true`)

	rec = env.do(t, http.MethodGet, "/tasks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = env.do(t, http.MethodDelete, "/tasks/"+created.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"Task deleted"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/tasks/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasks_OwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@b.com", "pw")
	env.register(t, "bob@b.com", "pw")
	alice := env.login(t, "alice@b.com", "pw")
	bob := env.login(t, "bob@b.com", "pw")

	rec := env.do(t, http.MethodPost, "/tasks", alice, map[string]string{"title": "alice only"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/tasks/"+created.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/tasks/"+created.ID, bob, map[string]string{"title": "mine"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/tasks/"+created.ID, bob, nil).Code)

	rec = env.do(t, http.MethodGet, "/tasks", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRenewAndMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@b.com", "pw")
	tok := env.login(t, "a@b.com", "pw")

	rec := env.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = env.do(t, http.MethodPost, "/auth/renew", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var renewed loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &renewed))
	assert.NotEmpty(t, renewed.Token)
	assert.Nil(t, renewed.User)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/auth/renew", "", nil).Code)

	expired, err := token.NewJWTManager(testSecret, -time.Minute, testIssuer).Generate(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/auth/renew", expired.Value, nil).Code)

	ghost, err := token.NewJWTManager(testSecret, testTTL, testIssuer).Generate(&authdomain.User{ID: "deleted"})
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/auth/renew", ghost.Value, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestMetrics_CountAuthDecisions(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com", "pw")
	tok := env.login(t, "a@b.com", "pw")

	env.do(t, http.MethodGet, "/tasks", "", nil)
	env.do(t, http.MethodGet, "/tasks", tok, nil)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `auth_decisions_total{outcome="rejected"} 1`)
	assert.Contains(t, body, `auth_decisions_total{outcome="authenticated"} 1`)
	assert.Regexp(t, `http_requests_total\{method="GET",route="/tasks[^"]*",status="401"\} 1`, body)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("BEARER  abc "))
	assert.Equal(t, "", extractBearerToken("Basic abc"))
	assert.Equal(t, "", extractBearerToken("Bearer"))
	assert.Equal(t, "", extractBearerToken(""))
}
