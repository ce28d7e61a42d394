// Package api is the HTTP client of the task service. It attaches the
// session token to every protected call and ends the session on any 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"todo/backend/internal/client/session"
	authdomain "todo/backend/internal/domain/auth"
	taskdomain "todo/backend/internal/domain/task"
)

// ErrSessionEnded means the server rejected the token, or there was none.
// The local session has been cleared by the time it is returned.
var ErrSessionEnded = errors.New("session ended")

// Error is a non-2xx answer that is not a session failure.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to the task service on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	state   *session.State
}

// New returns a client. A nil httpClient gets a 10s timeout default.
func New(baseURL string, httpClient *http.Client, state *session.State) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient, state: state}
}

// State returns the session the client acts for.
func (c *Client) State() *session.State {
	return c.state
}

type tokenResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      *authdomain.User `json:"user"`
}

// Login exchanges credentials for a token and stores it in the session.
// Every rejection is reported as authdomain.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*authdomain.User, error) {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", false, map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return nil, authdomain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := c.state.Login(ctx, out.Token); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return out.User, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password, name string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", false, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, nil)
}

// Logout ends the session locally; tokens are not tracked server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.state.Logout(ctx)
}

// Me returns the stored profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*authdomain.User, error) {
	var out struct {
		User *authdomain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", true, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Renew swaps the session token for a fresh one with a new expiry.
func (c *Client) Renew(ctx context.Context) (time.Time, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/renew", true, nil, &out); err != nil {
		return time.Time{}, err
	}
	if err := c.state.Login(ctx, out.Token); err != nil {
		return time.Time{}, fmt.Errorf("save session: %w", err)
	}
	return out.ExpiresAt, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]taskdomain.Task, error) {
	var out []taskdomain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, title string) (*taskdomain.Task, error) {
	var out taskdomain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", true, map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskUpdate carries the fields to change; nil leaves a field as is.
type TaskUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (c *Client) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*taskdomain.Task, error) {
	var out taskdomain.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), true, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, authenticated bool, body, out any) error {
	var token string
	if authenticated {
		token = c.state.Token()
		if token == "" {
			return ErrSessionEnded
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if authenticated && resp.StatusCode == http.StatusUnauthorized {
		if err := c.state.Logout(ctx); err != nil {
			return fmt.Errorf("%w: clear session: %v", ErrSessionEnded, err)
		}
		return ErrSessionEnded
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
