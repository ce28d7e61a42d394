// Package guard keeps protected views away from users without a session.
package guard

import (
	"todo/backend/internal/client/app"
	"todo/backend/internal/client/session"
)

// Protect returns view when state holds a token and a redirect to the login
// view otherwise. The token is not validated here; the server does that and
// a rejected call ends the session.
func Protect(state *session.State, view app.View) app.View {
	if state == nil || !state.LoggedIn() {
		return app.Redirect{To: app.PathLogin}
	}
	return view
}
