// Package app is the terminal client's route table: paths resolve to views,
// views render to a writer and may hand over to another path.
package app

import (
	"context"
	"fmt"
	"io"
)

const (
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/dashboard"
)

const maxHops = 8

// View renders itself to out. A non-empty next asks the router to continue
// at that path.
type View interface {
	Render(ctx context.Context, out io.Writer) (next string, err error)
}

// ViewFunc adapts a function to View.
type ViewFunc func(ctx context.Context, out io.Writer) (string, error)

func (f ViewFunc) Render(ctx context.Context, out io.Writer) (string, error) {
	return f(ctx, out)
}

// Redirect renders nothing and sends the router to To.
type Redirect struct {
	To string
}

func (r Redirect) Render(context.Context, io.Writer) (string, error) {
	return r.To, nil
}

// Router maps paths to view factories. Factories run on every visit, so a
// guarded route re-reads auth state each time.
type Router struct {
	routes   map[string]func() View
	notFound View
	out      io.Writer
}

func NewRouter(out io.Writer, notFound View) *Router {
	return &Router{
		routes:   make(map[string]func() View),
		notFound: notFound,
		out:      out,
	}
}

func (r *Router) Handle(path string, factory func() View) {
	r.routes[path] = factory
}

// Resolve returns the view for path, or the not-found view.
func (r *Router) Resolve(path string) View {
	if factory, ok := r.routes[path]; ok {
		return factory()
	}
	return r.notFound
}

// Navigate resolves path and renders it.
func (r *Router) Navigate(ctx context.Context, path string) error {
	return r.Show(ctx, r.Resolve(path))
}

// Show renders view and follows any hand-over it requests.
func (r *Router) Show(ctx context.Context, view View) error {
	for hop := 0; ; hop++ {
		if hop >= maxHops {
			return fmt.Errorf("too many redirects")
		}
		next, err := view.Render(ctx, r.out)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		view = r.Resolve(next)
	}
}
