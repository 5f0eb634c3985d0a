package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/client/syncsvc"
	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// Start runs the profile's start handshake and, on success, creates the
// local session, activates restrictions and records the start remotely.
// Unless forced, one of the strategy's start triggers must be enabled.
// Starting a profile that is already active returns its session.
func (o *Orchestrator) Start(ctx context.Context, profileID string, forceStart bool) (*models.Session, error) {
	e, err := o.lockInteractive(profileID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	var gate startGate = viaStrategy
	if forceStart {
		gate = nil
	}
	return o.start(ctx, e, profileID, strategy.StartOptions{ForceStart: forceStart}, gate)
}

// StartFromBackground starts without any interaction, for intents and
// shortcuts. The profile must enable the deep link start trigger. A
// positive duration overrides the profile's timer length.
func (o *Orchestrator) StartFromBackground(ctx context.Context, profileID string, duration time.Duration) (*models.Session, error) {
	e := o.lockBackground(profileID)
	defer e.mu.Unlock()

	return o.start(ctx, e, profileID, strategy.StartOptions{ForceStart: true, Duration: duration}, via(models.StartDeepLink))
}

// Stop runs the stop handshake of the active session. The strategy's stop
// method must be enabled in the profile's stop conditions; that is checked
// before any scan is requested.
func (o *Orchestrator) Stop(ctx context.Context, profileID string) error {
	e, err := o.lockInteractive(profileID)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	session, p, strat, err := o.loadActive(ctx, profileID)
	if err != nil {
		return err
	}

	if !triggers.StopAllowed(p.StopConditions, strat.StopMethod()) {
		err := fmt.Errorf("%w: %s", common.ErrStopNotAllowed, strat.StopMethod())
		o.emitError(err)
		return err
	}

	prev := o.State(profileID)
	o.setState(profileID, Stopping)
	if err := strat.Stop(ctx, *p, *session, o.d.Handoff); err != nil {
		o.setState(profileID, prev)
		if !errors.Is(err, common.ErrScanCancelled) {
			o.emitError(err)
		}
		return err
	}

	return o.endSession(ctx, e, p, session, triggers.MethodManual, true)
}

// StopFromBackground ends the active session for an intent. Requests for a
// profile that is not the active one are ignored.
func (o *Orchestrator) StopFromBackground(ctx context.Context, profileID string) error {
	if cur := o.ActiveSession(); cur == nil || cur.ProfileID != profileID {
		o.log.Info(ctx, "background stop ignored", "profile_id", profileID)
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
	if !triggers.StopAllowed(p.StopConditions, triggers.MethodDeepLink) {
		return fmt.Errorf("%w: %s", common.ErrStopNotAllowed, triggers.MethodDeepLink)
	}
	return o.endSession(ctx, e, p, session, triggers.MethodDeepLink, true)
}

// startGate returns the start triggers of which the profile must enable at
// least one. A nil gate skips the check.
type startGate func(strategy.Strategy) []models.StartOption

func viaStrategy(s strategy.Strategy) []models.StartOption { return s.Requirements().Start }

func via(opts ...models.StartOption) startGate {
	return func(strategy.Strategy) []models.StartOption { return opts }
}

func (o *Orchestrator) start(ctx context.Context, e *entry, profileID string, opts strategy.StartOptions, gate startGate) (*models.Session, error) {
	if cur := o.ActiveSession(); cur != nil {
		if cur.ProfileID == profileID {
			return cur, nil
		}
		return nil, fmt.Errorf("%w: %s", common.ErrAnotherSessionActive, cur.ProfileID)
	}
	if existing, err := o.d.Sessions.GetActive(ctx, profileID); err == nil {
		return existing, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("load active session: %w", err)
	}

	p, err := o.d.Profiles.Get(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", profileID, err)
	}
	strat, err := strategy.New(p.StrategyID)
	if err != nil {
		return nil, err
	}
	if gate != nil {
		if want := gate(strat); !triggers.AnyStartAllowed(p.StartTriggers, want) {
			err := fmt.Errorf("%w: %v", common.ErrStartNotAllowed, want)
			o.emitError(err)
			return nil, err
		}
	}

	o.setState(profileID, Starting)
	res, err := strat.Start(ctx, *p, opts, o.d.Handoff)
	if err != nil {
		o.setState(profileID, Idle)
		if !errors.Is(err, common.ErrScanCancelled) {
			o.emitError(err)
		}
		return nil, err
	}

	session := &models.Session{
		ID:           o.d.NewID(),
		ProfileID:    profileID,
		Tag:          res.Tag,
		StartTime:    o.d.Clock.Now().UTC(),
		ForceStarted: res.ForceStarted,
		Duration:     res.Duration,
	}
	if err := o.commitStart(ctx, p, session); err != nil {
		o.setState(profileID, Idle)
		o.emitError(err)
		return nil, err
	}
	e.graceUsed = false

	o.syncStart(ctx, p, session)

	if end, ok := session.PlannedEnd(); ok {
		o.timers().Arm(TimerStrategy, profileID, end)
	}

	o.log.Info(ctx, "session started", "profile_id", profileID, "session_id", session.ID,
		"strategy", p.StrategyID, "force", session.ForceStarted)
	o.emitStatus(Status{Kind: Started, Profile: *p, Session: *session})
	return session, nil
}

// commitStart claims the device-wide active slot, applies restrictions and
// persists the session, undoing each step on failure.
func (o *Orchestrator) commitStart(ctx context.Context, p *models.Profile, session *models.Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil && o.active.ProfileID != p.ID {
		return fmt.Errorf("%w: %s", common.ErrAnotherSessionActive, o.active.ProfileID)
	}
	if err := o.d.Enforcer.Activate(ctx, *p); err != nil {
		return err
	}
	if err := o.d.Sessions.Create(ctx, session); err != nil {
		if derr := o.d.Enforcer.Deactivate(ctx, p.ID); derr != nil {
			o.log.Error(ctx, "rollback restrictions failed", "profile_id", p.ID, "error", derr)
		}
		return fmt.Errorf("save session: %w", err)
	}

	cp := *session
	o.active = &cp
	o.states[p.ID] = Active
	return nil
}

// syncStart records the start remotely. Failures keep the local session;
// a later refresh retries. An active record owned by another device is
// adopted as ground truth.
func (o *Orchestrator) syncStart(ctx context.Context, p *models.Profile, session *models.Session) {
	rctx, cancel := o.remoteCtx(ctx)
	defer cancel()

	res, err := o.d.Sync.StartSession(rctx, p.ID, session.StartTime, o.d.DeviceID)
	if err != nil {
		o.log.Warn(ctx, "remote start failed, keeping local session", "profile_id", p.ID, "error", err)
		return
	}

	switch res.Status {
	case syncsvc.Started:
		session.SequenceNumber = res.SequenceNumber
		o.publish(ctx, res.Record)
	case syncsvc.AlreadyActive:
		if res.Record.DeviceID == o.d.DeviceID {
			session.SequenceNumber = res.Record.SequenceNumber
			break
		}
		o.adoptInto(ctx, session, res.Record)
	}

	if err := o.d.Sessions.Update(ctx, session); err != nil {
		o.log.Error(ctx, "persist sync state failed", "session_id", session.ID, "error", err)
	}
	o.setActive(session)
}

// adoptInto rewrites session so that it mirrors a record owned by another
// device. The remote owner decides when it ends, so no local timer runs.
func (o *Orchestrator) adoptInto(ctx context.Context, session *models.Session, rec models.SessionSyncRecord) {
	session.Tag = remoteTag(rec.DeviceID)
	session.ForceStarted = true
	session.SequenceNumber = rec.SequenceNumber
	session.Duration = 0
	if !rec.StartTime.IsZero() {
		session.StartTime = rec.StartTime.UTC()
	}
	o.timers().Disarm(TimerStrategy, session.ProfileID)

	o.log.Info(ctx, "adopted remote session", "profile_id", rec.ProfileID, "owner", rec.DeviceID,
		"seq", rec.SequenceNumber)
	o.emitConflict(rec)
}

func remoteTag(deviceID string) string {
	return "remote:" + deviceID
}

// loadActive returns the active session of profileID together with its
// profile and strategy, or common.ErrAlreadyStopped.
func (o *Orchestrator) loadActive(ctx context.Context, profileID string) (*models.Session, *models.Profile, strategy.Strategy, error) {
	session, err := o.d.Sessions.GetActive(ctx, profileID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil, strategy.Strategy{}, common.ErrAlreadyStopped
	}
	if err != nil {
		return nil, nil, strategy.Strategy{}, fmt.Errorf("load active session: %w", err)
	}
	p, err := o.d.Profiles.Get(ctx, profileID)
	if err != nil {
		return nil, nil, strategy.Strategy{}, fmt.Errorf("load profile %s: %w", profileID, err)
	}
	strat, err := strategy.New(p.StrategyID)
	if err != nil {
		return nil, nil, strategy.Strategy{}, err
	}
	return session, p, strat, nil
}

// endSession terminates session locally and, when writeRemote is set,
// records the stop remotely. The caller holds the profile lock.
func (o *Orchestrator) endSession(ctx context.Context, e *entry, p *models.Profile, session *models.Session,
	method triggers.StopMethod, writeRemote bool) error {
	now := o.d.Clock.Now().UTC()
	if session.IsOnBreak() {
		session.BreakEnd = &now
	}
	session.EndTime = &now

	if err := o.d.Sessions.Update(ctx, session); err != nil {
		session.EndTime = nil
		o.emitError(err)
		return fmt.Errorf("save session: %w", err)
	}

	if err := o.d.Enforcer.Deactivate(ctx, p.ID); err != nil {
		o.log.Error(ctx, "deactivate restrictions failed", "profile_id", p.ID, "error", err)
		o.emitError(err)
	}
	o.disarmAll(p.ID)
	o.clearActive(p.ID)
	o.setState(p.ID, Idle)
	e.graceUsed = false

	if writeRemote {
		o.syncStop(ctx, session, now)
	}

	o.log.Info(ctx, "session ended", "profile_id", p.ID, "session_id", session.ID, "method", method)
	o.emitStatus(Status{Kind: Ended, Profile: *p, Session: *session})
	return nil
}

func (o *Orchestrator) syncStop(ctx context.Context, session *models.Session, end time.Time) {
	rctx, cancel := o.remoteCtx(ctx)
	defer cancel()

	res, err := o.d.Sync.StopSession(rctx, session.ProfileID, end, o.d.DeviceID)
	if err != nil {
		o.log.Warn(ctx, "remote stop failed", "profile_id", session.ProfileID, "error", err)
		return
	}
	if res.Status == syncsvc.AlreadyStopped {
		return
	}

	session.SequenceNumber = res.SequenceNumber
	if err := o.d.Sessions.Update(ctx, session); err != nil {
		o.log.Error(ctx, "persist sync state failed", "session_id", session.ID, "error", err)
	}
	o.publish(ctx, models.SessionSyncRecord{
		ProfileID:      session.ProfileID,
		IsActive:       false,
		SequenceNumber: res.SequenceNumber,
		DeviceID:       o.d.DeviceID,
		StartTime:      session.StartTime,
		EndTime:        &end,
	})
}
