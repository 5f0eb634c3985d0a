package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// ToggleBreak starts or ends the session's single break. It returns true
// when the profile is now on a break.
func (o *Orchestrator) ToggleBreak(ctx context.Context, profileID string) (bool, error) {
	e, err := o.lockInteractive(profileID)
	if err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	session, p, _, err := o.loadActive(ctx, profileID)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyStopped) {
			return false, common.ErrNoActiveSession
		}
		return false, err
	}
	if !p.BreaksEnabled {
		return false, common.ErrBreaksDisabled
	}

	if session.IsOnBreak() {
		return false, o.endBreak(ctx, session)
	}
	if session.BreakStart != nil {
		return false, common.ErrBreakAlreadyUsed
	}

	if err := o.d.Enforcer.Suspend(ctx, profileID); err != nil {
		o.emitError(err)
		return false, err
	}
	now := o.d.Clock.Now().UTC()
	session.BreakStart = &now
	if err := o.d.Sessions.Update(ctx, session); err != nil {
		session.BreakStart = nil
		if rerr := o.d.Enforcer.Resume(ctx, profileID); rerr != nil {
			o.log.Error(ctx, "restore restrictions failed", "profile_id", profileID, "error", rerr)
		}
		return false, fmt.Errorf("save session: %w", err)
	}
	o.setState(profileID, OnBreak)
	o.setActive(session)
	if p.BreakDuration > 0 {
		o.timers().Arm(TimerBreak, profileID, now.Add(p.BreakDuration))
	}

	o.log.Info(ctx, "break started", "profile_id", profileID, "duration", p.BreakDuration)
	return true, nil
}

// endBreak restores restrictions before recording the break end. A failed
// step leaves the break running.
func (o *Orchestrator) endBreak(ctx context.Context, session *models.Session) error {
	if err := o.d.Enforcer.Resume(ctx, session.ProfileID); err != nil {
		o.emitError(err)
		return err
	}
	now := o.d.Clock.Now().UTC()
	session.BreakEnd = &now
	if err := o.d.Sessions.Update(ctx, session); err != nil {
		session.BreakEnd = nil
		if serr := o.d.Enforcer.Suspend(ctx, session.ProfileID); serr != nil {
			o.log.Error(ctx, "re-suspend restrictions failed", "profile_id", session.ProfileID, "error", serr)
		}
		return fmt.Errorf("save session: %w", err)
	}
	o.timers().Disarm(TimerBreak, session.ProfileID)
	o.setState(session.ProfileID, Active)
	o.setActive(session)

	o.log.Info(ctx, "break ended", "profile_id", session.ProfileID)
	return nil
}

// ExtendOneMoreMinute lifts restrictions for GraceWindow, once per session.
func (o *Orchestrator) ExtendOneMoreMinute(ctx context.Context, profileID string) error {
	e, err := o.lockInteractive(profileID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	session, _, _, err := o.loadActive(ctx, profileID)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyStopped) {
			return common.ErrNoActiveSession
		}
		return err
	}
	if session.IsOnBreak() {
		return common.ErrOnBreak
	}
	if e.graceUsed {
		return common.ErrExtensionUsed
	}

	if err := o.d.Enforcer.Suspend(ctx, profileID); err != nil {
		return err
	}
	e.graceUsed = true
	o.timers().Arm(TimerGrace, profileID, o.d.Clock.Now().Add(GraceWindow))

	o.log.Info(ctx, "grace window granted", "profile_id", profileID)
	return nil
}

// TimerFired handles a timer callback. It re-checks that an active session
// exists and belongs to profileID before changing anything; stale timers
// are ignored.
func (o *Orchestrator) TimerFired(ctx context.Context, kind TimerKind, profileID string) error {
	if cur := o.ActiveSession(); cur == nil || cur.ProfileID != profileID {
		o.log.Debug(ctx, "stale timer ignored", "kind", kind, "profile_id", profileID)
		return nil
	}

	e := o.lockBackground(profileID)
	defer e.mu.Unlock()

	session, p, _, err := o.loadActive(ctx, profileID)
	if errors.Is(err, common.ErrAlreadyStopped) {
		return nil
	}
	if err != nil {
		return err
	}

	switch kind {
	case TimerStrategy:
		if end, ok := session.PlannedEnd(); !ok || o.d.Clock.Now().Before(end) {
			return nil
		}
		return o.endSession(ctx, e, p, session, triggers.MethodTimer, true)
	case TimerBreak:
		if !session.IsOnBreak() {
			return nil
		}
		return o.endBreak(ctx, session)
	case TimerGrace:
		if session.IsOnBreak() {
			return nil
		}
		return o.d.Enforcer.Resume(ctx, profileID)
	}
	return fmt.Errorf("unknown timer kind %q", kind)
}

// ScheduleStart starts a session for a schedule window. The scheduler has
// already checked the day and the registration age; the profile must still
// enable the schedule start trigger.
func (o *Orchestrator) ScheduleStart(ctx context.Context, profileID string) (*models.Session, error) {
	e := o.lockBackground(profileID)
	defer e.mu.Unlock()

	return o.start(ctx, e, profileID, strategy.StartOptions{ForceStart: true}, via(models.StartSchedule))
}

// ScheduleStop ends the session of profileID when a schedule window (or a
// stop-only schedule) closes. Any other state is left alone.
func (o *Orchestrator) ScheduleStop(ctx context.Context, profileID string) error {
	if cur := o.ActiveSession(); cur == nil || cur.ProfileID != profileID {
		o.log.Debug(ctx, "schedule stop ignored", "profile_id", profileID)
		return nil
	}

	e := o.lockBackground(profileID)
	defer e.mu.Unlock()

	session, p, _, err := o.loadActive(ctx, profileID)
	if errors.Is(err, common.ErrAlreadyStopped) {
		return nil
	}
	if err != nil {
		return err
	}
	return o.endSession(ctx, e, p, session, triggers.MethodSchedule, true)
}
