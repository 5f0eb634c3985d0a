package cli

import (
	"errors"

	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// describeError turns handler errors into one line for the terminal.
func describeError(err error) string {
	var verrs triggers.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return "Invalid profile: " + verrs.Error()
	case errors.Is(err, common.ErrScanCancelled):
		return "Cancelled."
	case errors.Is(err, common.ErrTokenMismatch):
		return "That tag or code cannot unblock this profile."
	case errors.Is(err, common.ErrStartNotAllowed):
		return "This profile cannot be started that way; check its start triggers."
	case errors.Is(err, common.ErrSyncConflict):
		return "The session is already running on another device; following it."
	case errors.Is(err, common.ErrBudgetExhausted):
		return "No emergency unblocks left in this period."
	case errors.Is(err, common.ErrPolicyBlocked):
		return "Emergency unblock is not allowed right now."
	case errors.Is(err, common.ErrorUnavailable):
		return "Server unavailable, try again later."
	case errors.Is(err, common.ErrorUnauthorized):
		return "Not authorized: " + err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return "Not found: " + err.Error()
	}
	return "Error: " + err.Error()
}
