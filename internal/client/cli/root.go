package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/client/services"
)

func (a *App) getStatus() string {
	s := ""
	if a.family != "" {
		s = a.family + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if active := a.engine.ActiveSession(); active != nil {
		s = s + " blocking"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root restores a previous login, then runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {

	printlnFn("Welcome to GophFocus CLI (type 'help' for commands)")

	if a.auth != nil {
		family, err := a.auth.Restore(ctx)
		switch {
		case err == nil:
			a.family = family
		case errors.Is(err, services.ErrNotLoggedIn):
			printlnFn("This device is not linked to a family yet, use 'register' or 'login'.")
		default:
			a.log.Warn(ctx, "restore login failed", "error", err)
		}
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
