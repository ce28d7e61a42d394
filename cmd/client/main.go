package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"todo/backend/internal/client/api"
	"todo/backend/internal/client/app"
	"todo/backend/internal/client/guard"
	"todo/backend/internal/client/session"
	"todo/backend/internal/config"

	"github.com/spf13/cobra"
)

// env is what every command needs; it is built once in PersistentPreRunE.
type env struct {
	state  *session.State
	client *api.Client
	router *app.Router
}

func main() {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "todo",
		Short:         "Terminal client for the task service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		loginCmd(e),
		registerCmd(e),
		logoutCmd(e),
		whoamiCmd(e),
		renewCmd(e),
		dashboardCmd(e),
		openCmd(e),
		tasksCmd(e),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func (e *env) setup(ctx context.Context) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	state, err := session.NewState(ctx, session.NewFileStore(cfg.TokenFile))
	if err != nil {
		return err
	}
	client := api.New(cfg.APIURL, &http.Client{Timeout: cfg.Timeout}, state)
	prompter := newTerminalPrompter(bufio.NewReader(os.Stdin), os.Stdout)

	router := app.NewRouter(os.Stdout, app.NotFoundView)
	router.Handle(app.PathLogin, func() app.View { return app.LoginView{Client: client, Prompter: prompter} })
	router.Handle(app.PathRegister, func() app.View { return app.RegisterView{Client: client, Prompter: prompter} })
	router.Handle(app.PathDashboard, func() app.View {
		return guard.Protect(state, app.DashboardView{Client: client})
	})

	e.state = state
	e.client = client
	e.router = router
	return nil
}

func loginCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and show your tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.router.Navigate(cmd.Context(), app.PathLogin)
		},
	}
}

func registerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.router.Navigate(cmd.Context(), app.PathRegister)
		},
	}
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.router.Show(cmd.Context(), guard.Protect(e.state, app.ViewFunc(func(ctx context.Context, out io.Writer) (string, error) {
				user, err := e.client.Me(ctx)
				if err != nil {
					return sessionEnded(out, err)
				}
				fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
				if claims, ok := e.state.CurrentUser(); ok && !claims.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "session expires %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
				}
				return "", nil
			})))
		},
	}
}

func renewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Extend the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.router.Show(cmd.Context(), guard.Protect(e.state, app.ViewFunc(func(ctx context.Context, out io.Writer) (string, error) {
				exp, err := e.client.Renew(ctx)
				if err != nil {
					return sessionEnded(out, err)
				}
				fmt.Fprintf(out, "Session renewed until %s\n", exp.Local().Format(time.RFC1123))
				return "", nil
			})))
		},
	}
}

func dashboardCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ls"},
		Short:   "List your tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.router.Navigate(cmd.Context(), app.PathDashboard)
		},
	}
}

func openCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a client route such as /dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.router.Navigate(cmd.Context(), args[0])
		},
	}
}

// sessionEnded turns a rejected token into a hand-over to the login view.
func sessionEnded(out io.Writer, err error) (string, error) {
	if errors.Is(err, api.ErrSessionEnded) {
		fmt.Fprintln(out, "Session ended. Please log in again.")
		return app.PathLogin, nil
	}
	return "", err
}
