package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"todo/backend/internal/client/api"
)

// Prompter reads interactive input.
type Prompter interface {
	Prompt(label string) (string, error)
	PromptSecret(label string) (string, error)
}

// LoginView asks for credentials and logs in. Any failure shows the same
// message.
type LoginView struct {
	Client   *api.Client
	Prompter Prompter
}

func (v LoginView) Render(ctx context.Context, out io.Writer) (string, error) {
	email, err := v.Prompter.Prompt("Email")
	if err != nil {
		return "", err
	}
	password, err := v.Prompter.PromptSecret("Password")
	if err != nil {
		return "", err
	}

	if _, err := v.Client.Login(ctx, email, password); err != nil {
		fmt.Fprintln(out, "Invalid credentials")
		return "", err
	}
	return PathDashboard, nil
}

// RegisterView signs a new user up and sends them to the login view.
type RegisterView struct {
	Client   *api.Client
	Prompter Prompter
}

func (v RegisterView) Render(ctx context.Context, out io.Writer) (string, error) {
	name, err := v.Prompter.Prompt("Name")
	if err != nil {
		return "", err
	}
	email, err := v.Prompter.Prompt("Email")
	if err != nil {
		return "", err
	}
	password, err := v.Prompter.PromptSecret("Password")
	if err != nil {
		return "", err
	}

	if err := v.Client.Register(ctx, email, password, name); err != nil {
		return "", err
	}
	fmt.Fprintln(out, "Registered. Please log in.")
	return PathLogin, nil
}

// DashboardView lists the user's tasks.
type DashboardView struct {
	Client *api.Client
}

func (v DashboardView) Render(ctx context.Context, out io.Writer) (string, error) {
	tasks, err := v.Client.ListTasks(ctx)
	if err != nil {
		if errors.Is(err, api.ErrSessionEnded) {
			fmt.Fprintln(out, "Session ended. Please log in again.")
			return PathLogin, nil
		}
		return "", err
	}

	if user, ok := v.Client.State().CurrentUser(); ok {
		fmt.Fprintf(out, "Tasks of %s\n", user.Email)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks yet.")
		return "", nil
	}
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %s  %s\n", mark, t.ID, strings.TrimSpace(t.Title))
	}
	return "", nil
}

// NotFoundView is shown for unknown paths.
var NotFoundView = ViewFunc(func(_ context.Context, out io.Writer) (string, error) {
	fmt.Fprintln(out, "404: page not found")
	return "", nil
})
