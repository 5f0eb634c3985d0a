// Package strategy implements the fixed set of blocking strategies. Each
// strategy is a start/stop handshake over a profile; the orchestrator owns
// the session lifecycle around it.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// Kind identifies a strategy variant.
type Kind string

const (
	Manual        Kind = "manual"
	NFCManual     Kind = "nfc_manual"
	NFCTimer      Kind = "nfc_timer"
	QRManual      Kind = "qr_manual"
	QRTimer       Kind = "qr_timer"
	QRCode        Kind = "qr_code"
	NFCTag        Kind = "nfc_tag"
	ShortcutTimer Kind = "shortcut_timer"
)

// DefaultTimerDuration is used when a timer strategy has no configured duration.
const DefaultTimerDuration = 25 * time.Minute

var all = []Kind{Manual, NFCManual, NFCTimer, QRManual, QRTimer, QRCode, NFCTag, ShortcutTimer}

// All lists every strategy kind.
func All() []Kind {
	out := make([]Kind, len(all))
	copy(out, all)
	return out
}

// TokenKind is the physical token a handshake asks for.
type TokenKind string

const (
	TokenNFC TokenKind = "nfc"
	TokenQR  TokenKind = "qr"
)

// Handoff is the interactive side of a handshake. Implementations return
// common.ErrScanCancelled when the user dismisses the prompt.
type Handoff interface {
	ScanToken(ctx context.Context, kind TokenKind, prompt string) (string, error)
	PickDuration(ctx context.Context, def time.Duration) (time.Duration, error)
}

// StartOptions tune a start handshake.
type StartOptions struct {
	// ForceStart skips the interactive handshake entirely.
	ForceStart bool
	// Duration overrides the profile's timer duration for timer strategies.
	Duration time.Duration
}

// StartResult is what a successful start handshake produced.
type StartResult struct {
	Tag          string
	Duration     time.Duration
	ForceStarted bool
}

// Strategy is one blocking strategy.
type Strategy struct {
	kind Kind
}

// New resolves id to a strategy.
func New(id string) (Strategy, error) {
	k := Kind(id)
	for _, known := range all {
		if known == k {
			return Strategy{kind: k}, nil
		}
	}
	return Strategy{}, fmt.Errorf("%w: %q", common.ErrUnknownStrategy, id)
}

func (s Strategy) ID() Kind { return s.kind }

func (s Strategy) Name() string {
	switch s.kind {
	case Manual:
		return "Manual"
	case NFCManual:
		return "NFC + Manual"
	case NFCTimer:
		return "NFC + Timer"
	case QRManual:
		return "QR + Manual"
	case QRTimer:
		return "QR + Timer"
	case QRCode:
		return "QR code"
	case NFCTag:
		return "NFC tag"
	case ShortcutTimer:
		return "Shortcut timer"
	}
	return string(s.kind)
}

// Timed reports whether sessions of this strategy carry a duration.
func (s Strategy) Timed() bool {
	switch s.kind {
	case NFCTimer, QRTimer, ShortcutTimer:
		return true
	}
	return false
}

// StopMethod is how an interactive stop of this strategy arrives.
func (s Strategy) StopMethod() triggers.StopMethod {
	switch s.kind {
	case NFCManual, NFCTimer, NFCTag:
		return triggers.MethodNFC
	case QRManual, QRTimer, QRCode:
		return triggers.MethodQR
	}
	return triggers.MethodManual
}

// Requirements lists the triggers a profile must enable to use s.
func (s Strategy) Requirements() triggers.Requirements {
	manualStart := []models.StartOption{models.StartManual}
	switch s.kind {
	case Manual:
		return triggers.Requirements{Start: manualStart, Stop: []triggers.StopMethod{triggers.MethodManual}}
	case NFCManual:
		return triggers.Requirements{Start: manualStart, Stop: []triggers.StopMethod{triggers.MethodNFC}}
	case NFCTimer:
		return triggers.Requirements{Start: manualStart, Stop: []triggers.StopMethod{triggers.MethodNFC, triggers.MethodTimer}}
	case QRManual:
		return triggers.Requirements{Start: manualStart, Stop: []triggers.StopMethod{triggers.MethodQR}}
	case QRTimer:
		return triggers.Requirements{Start: manualStart, Stop: []triggers.StopMethod{triggers.MethodQR, triggers.MethodTimer}}
	case QRCode:
		return triggers.Requirements{
			Start: []models.StartOption{models.StartAnyQR, models.StartSpecificQR},
			Stop:  []triggers.StopMethod{triggers.MethodQR},
		}
	case NFCTag:
		return triggers.Requirements{
			Start: []models.StartOption{models.StartAnyNFC, models.StartSpecificNFC},
			Stop:  []triggers.StopMethod{triggers.MethodNFC},
		}
	case ShortcutTimer:
		return triggers.Requirements{
			Start: []models.StartOption{models.StartDeepLink, models.StartManual},
			Stop:  []triggers.StopMethod{triggers.MethodTimer, triggers.MethodManual, triggers.MethodDeepLink},
		}
	}
	return triggers.Requirements{}
}

// Validate checks p against the trigger rules and this strategy's requirements.
func (s Strategy) Validate(p models.Profile) error {
	return triggers.ValidateProfile(p, s.Requirements())
}
