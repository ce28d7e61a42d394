package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo/backend/internal/client/api"
	"todo/backend/internal/client/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPrompter struct {
	answers []string
}

func (p *scriptedPrompter) next() (string, error) {
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Prompt(string) (string, error)       { return p.next() }
func (p *scriptedPrompter) PromptSecret(string) (string, error) { return p.next() }

func newAPI(t *testing.T, token string, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	state, err := session.NewState(context.Background(), session.NewMemoryStore(token))
	require.NoError(t, err)
	return api.New(srv.URL, srv.Client(), state)
}

func TestLoginView_SuccessGoesToDashboard(t *testing.T) {
	client := newAPI(t, "", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok","expiresAt":"2030-01-01T00:00:00Z"}`))
	})

	var out bytes.Buffer
	next, err := LoginView{Client: client, Prompter: &scriptedPrompter{answers: []string{"a@b.com", "pw"}}}.Render(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, PathDashboard, next)
	assert.True(t, client.State().LoggedIn())
}

func TestLoginView_FailureShowsGenericMessage(t *testing.T) {
	client := newAPI(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	var out bytes.Buffer
	next, err := LoginView{Client: client, Prompter: &scriptedPrompter{answers: []string{"a@b.com", "bad"}}}.Render(context.Background(), &out)
	assert.Error(t, err)
	assert.Empty(t, next)
	assert.Equal(t, "Invalid credentials\n", out.String())
	assert.False(t, client.State().LoggedIn())
}

func TestDashboardView_SessionEndedRedirectsToLogin(t *testing.T) {
	client := newAPI(t, "expired", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var out bytes.Buffer
	next, err := DashboardView{Client: client}.Render(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, PathLogin, next)
	assert.False(t, client.State().LoggedIn())
}

func TestDashboardView_ListsTasks(t *testing.T) {
	client := newAPI(t, "tok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"t1","title":"milk","completed":true},{"id":"t2","title":"bread"}]`))
	})

	var out bytes.Buffer
	next, err := DashboardView{Client: client}.Render(context.Background(), &out)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Contains(t, out.String(), "[x] t1  milk")
	assert.Contains(t, out.String(), "[ ] t2  bread")
}

func TestRegisterView_HandsOverToLogin(t *testing.T) {
	client := newAPI(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":{"id":"u1"}}`))
	})

	var out bytes.Buffer
	next, err := RegisterView{Client: client, Prompter: &scriptedPrompter{answers: []string{"Ann", "a@b.com", "pw"}}}.Render(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, PathLogin, next)
}
