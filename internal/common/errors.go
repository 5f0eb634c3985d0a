// Package common defines shared constants and sentinel errors used across
// client and server layers of GophFocus. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUnavailable  = errors.New("remote store unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Profile configuration errors. Caught before save.
	ErrValidation = errors.New("validation error")

	// Session lifecycle errors.
	ErrAlreadyActive        = errors.New("session already active")
	ErrAlreadyStopped       = errors.New("session already stopped")
	ErrNoActiveSession      = errors.New("no active session")
	ErrAnotherSessionActive = errors.New("another profile is already blocking")
	ErrTransitionInFlight   = errors.New("another transition is in progress for this profile")
	ErrStartNotAllowed      = errors.New("start trigger is not enabled for this profile")
	ErrStopNotAllowed       = errors.New("stop method is not enabled for this profile")
	ErrBreaksDisabled       = errors.New("breaks are disabled for this profile")
	ErrBreakAlreadyUsed     = errors.New("break already used in this session")
	ErrExtensionUsed        = errors.New("one more minute already used in this session")
	ErrOnBreak              = errors.New("profile is on a break")
	ErrUnknownStrategy      = errors.New("unknown blocking strategy")

	// Handshake errors.
	ErrTokenMismatch = errors.New("not allowed to unblock this profile")
	ErrScanCancelled = errors.New("scan cancelled")

	// Sync errors. ErrSyncConflict is informational: the remote record was adopted.
	ErrSyncConflict = errors.New("session is active on another device")

	// Emergency unblock errors. Reported separately on purpose.
	ErrBudgetExhausted    = errors.New("no emergency unblocks remaining")
	ErrPolicyBlocked      = errors.New("emergency unblock is blocked by policy")
	ErrInvalidResetPeriod = errors.New("reset period must be 2, 4, 6 or 8 weeks")

	// Enforcement errors.
	ErrEnforcementBusy = errors.New("restrictions are already active for another profile")
)
