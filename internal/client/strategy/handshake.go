package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// Start runs the start handshake for p. It never touches session state.
func (s Strategy) Start(ctx context.Context, p models.Profile, opts StartOptions, h Handoff) (StartResult, error) {
	res := StartResult{Tag: string(s.kind), ForceStarted: opts.ForceStart}

	switch s.kind {
	case Manual, NFCManual, QRManual:
		return res, nil

	case NFCTimer, QRTimer:
		d, err := s.duration(ctx, p, opts, h)
		if err != nil {
			return StartResult{}, err
		}
		res.Duration = d
		return res, nil

	case ShortcutTimer:
		// Never interactive: the duration comes from the caller or the profile.
		res.Duration = firstPositive(opts.Duration, p.TimerDuration, DefaultTimerDuration)
		return res, nil

	case QRCode, NFCTag:
		if opts.ForceStart {
			return res, nil
		}
		token, err := scan(ctx, h, s.tokenKind(), "scan to start "+p.Name)
		if err != nil {
			return StartResult{}, err
		}
		res.Tag = token
		return res, nil
	}

	return StartResult{}, fmt.Errorf("%w: %q", common.ErrUnknownStrategy, s.kind)
}

// Stop runs the stop handshake for an active session of p. A rejected
// token returns common.ErrTokenMismatch and leaves everything unchanged.
func (s Strategy) Stop(ctx context.Context, p models.Profile, session models.Session, h Handoff) error {
	switch s.kind {
	case Manual, ShortcutTimer:
		return nil

	case NFCManual, NFCTimer, QRManual, QRTimer:
		token, err := scan(ctx, h, s.tokenKind(), "scan to stop "+p.Name)
		if err != nil {
			return err
		}
		return verifyToken(p, session, token, false)

	case QRCode, NFCTag:
		token, err := scan(ctx, h, s.tokenKind(), "scan the same token to stop "+p.Name)
		if err != nil {
			return err
		}
		return verifyToken(p, session, token, true)
	}

	return fmt.Errorf("%w: %q", common.ErrUnknownStrategy, s.kind)
}

func (s Strategy) tokenKind() TokenKind {
	switch s.kind {
	case QRManual, QRTimer, QRCode:
		return TokenQR
	}
	return TokenNFC
}

func (s Strategy) duration(ctx context.Context, p models.Profile, opts StartOptions, h Handoff) (time.Duration, error) {
	def := firstPositive(opts.Duration, p.TimerDuration, DefaultTimerDuration)
	if opts.ForceStart || opts.Duration > 0 {
		return def, nil
	}
	if h == nil {
		return 0, fmt.Errorf("%w: duration picker unavailable", common.ErrScanCancelled)
	}
	d, err := h.PickDuration(ctx, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, common.ErrScanCancelled
	}
	return d, nil
}

// verifyToken applies the unblock rule: a pinned token always wins;
// otherwise same-token strategies require the start token unless the
// session was force started.
func verifyToken(p models.Profile, session models.Session, token string, sameAsStart bool) error {
	switch {
	case p.PinnedToken != "":
		if token != p.PinnedToken {
			return common.ErrTokenMismatch
		}
	case sameAsStart && !session.ForceStarted:
		if token != session.Tag {
			return common.ErrTokenMismatch
		}
	}
	return nil
}

func scan(ctx context.Context, h Handoff, kind TokenKind, prompt string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("%w: scanner unavailable", common.ErrScanCancelled)
	}
	token, err := h.ScanToken(ctx, kind, prompt)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", common.ErrScanCancelled
	}
	return token, nil
}

func firstPositive(ds ...time.Duration) time.Duration {
	for _, d := range ds {
		if d > 0 {
			return d
		}
	}
	return 0
}
