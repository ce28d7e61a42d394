package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"todo/backend/internal/client/api"
	"todo/backend/internal/client/app"
	"todo/backend/internal/client/guard"

	"github.com/spf13/cobra"
)

func tasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage your tasks",
	}

	// protected runs action behind the guard and shows the dashboard after it.
	protected := func(cmd *cobra.Command, action func(ctx context.Context, out io.Writer) error) error {
		return e.router.Show(cmd.Context(), guard.Protect(e.state, app.ViewFunc(func(ctx context.Context, out io.Writer) (string, error) {
			if err := action(ctx, out); err != nil {
				return sessionEnded(out, err)
			}
			return app.PathDashboard, nil
		})))
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return protected(cmd, func(ctx context.Context, _ io.Writer) error {
				_, err := e.client.CreateTask(ctx, strings.Join(args, " "))
				return err
			})
		},
	}

	setDone := func(done bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return protected(cmd, func(ctx context.Context, _ io.Writer) error {
				_, err := e.client.UpdateTask(ctx, args[0], api.TaskUpdate{Completed: &done})
				return err
			})
		}
	}

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE:  setDone(true),
	}

	undo := &cobra.Command{
		Use:   "undo <id>",
		Short: "Mark a task not completed",
		Args:  cobra.ExactArgs(1),
		RunE:  setDone(false),
	}

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a task title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return protected(cmd, func(ctx context.Context, _ io.Writer) error {
				_, err := e.client.UpdateTask(ctx, args[0], api.TaskUpdate{Title: &title})
				return err
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return protected(cmd, func(ctx context.Context, out io.Writer) error {
				if err := e.client.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out, "Task deleted")
				return nil
			})
		},
	}

	cmd.AddCommand(add, done, undo, rename, rm)
	return cmd
}
