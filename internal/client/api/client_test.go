package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo/backend/internal/client/session"
	authdomain "todo/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore(token)
	state, err := session.NewState(context.Background(), store)
	require.NoError(t, err)
	return New(srv.URL, srv.Client(), state), store
}

func TestLogin_StoresToken(t *testing.T) {
	client, store := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])
		_, _ = w.Write([]byte(`{"token":"fresh","expiresAt":"2030-01-01T00:00:00Z","user":{"id":"u1","email":"a@b.com"}}`))
	}, "")

	user, err := client.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "fresh", client.State().Token())
	persisted, _ := store.Load(context.Background())
	assert.Equal(t, "fresh", persisted)
}

func TestLogin_RejectionIsGeneric(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	}, "old")

	_, err := client.Login(context.Background(), "a@b.com", "bad")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
	assert.Equal(t, "old", client.State().Token(), "a failed login leaves the session alone")
}

func TestProtectedCall_AttachesBearer(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"t1","title":"milk","completed":false,"userId":"u1"}]`))
	}, "tok")

	tasks, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "milk", tasks[0].Title)
}

func TestProtectedCall_401EndsSession(t *testing.T) {
	client, store := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}, "expired")

	_, err := client.CreateTask(context.Background(), "milk")
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.False(t, client.State().LoggedIn())
	persisted, _ := store.Load(context.Background())
	assert.Empty(t, persisted)
}

func TestProtectedCall_WithoutTokenSkipsNetwork(t *testing.T) {
	called := false
	client, _ := newClient(t, func(http.ResponseWriter, *http.Request) { called = true }, "")

	assert.ErrorIs(t, client.DeleteTask(context.Background(), "t1"), ErrSessionEnded)
	assert.False(t, called)
}

func TestOtherErrorsKeepSession(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"task not found"}`))
	}, "tok")

	completed := true
	_, err := client.UpdateTask(context.Background(), "t1", TaskUpdate{Completed: &completed})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "task not found", apiErr.Message)
	assert.True(t, client.State().LoggedIn())
}

func TestRenew_ReplacesToken(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/renew", r.URL.Path)
		assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"token":"new","expiresAt":"2030-01-01T00:00:00Z"}`))
	}, "old")

	exp, err := client.Renew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2030, exp.Year())
	assert.Equal(t, "new", client.State().Token())
}
