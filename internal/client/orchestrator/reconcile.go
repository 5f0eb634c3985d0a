package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/syncsvc"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/sourcegraph/conc/pool"
)

// Hydrate restores in-memory state from the local store after a restart:
// the active session is re-registered, restrictions re-applied and its
// timers re-armed.
func (o *Orchestrator) Hydrate(ctx context.Context) error {
	active, err := o.d.Sessions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	sort.Slice(active, func(i, j int) bool { return active[i].StartTime.After(active[j].StartTime) })
	keep := active[0]

	// Only one session may be active on the device; older ones are closed
	// locally and left for the remote record to settle.
	for _, stale := range active[1:] {
		now := o.d.Clock.Now().UTC()
		stale.EndTime = &now
		if err := o.d.Sessions.Update(ctx, &stale); err != nil {
			return fmt.Errorf("close stale session %s: %w", stale.ID, err)
		}
		o.log.Warn(ctx, "closed stale active session", "session_id", stale.ID, "profile_id", stale.ProfileID)
	}

	p, err := o.d.Profiles.Get(ctx, keep.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", keep.ProfileID, err)
	}
	if err := o.d.Enforcer.Activate(ctx, *p); err != nil {
		return err
	}

	state := Active
	if keep.IsOnBreak() {
		state = OnBreak
		if err := o.d.Enforcer.Suspend(ctx, p.ID); err != nil {
			return err
		}
		if p.BreakDuration > 0 {
			o.timers().Arm(TimerBreak, p.ID, keep.BreakStart.Add(p.BreakDuration))
		}
	}
	if end, ok := keep.PlannedEnd(); ok {
		o.timers().Arm(TimerStrategy, p.ID, end)
	}

	o.setActive(&keep)
	o.setState(p.ID, state)
	o.log.Info(ctx, "hydrated active session", "profile_id", p.ID, "session_id", keep.ID, "state", state)
	return nil
}

// Refresh reconciles the local state of one profile with the remote record:
//   - remote active on another device while idle here: adopt it;
//   - remote active on another device while active here: mirror the owner;
//   - remote inactive with a newer sequence than ours: end locally only;
//   - our start never reached the store: retry it.
func (o *Orchestrator) Refresh(ctx context.Context, profileID string) error {
	rctx, cancel := o.remoteCtx(ctx)
	res, err := o.d.Sync.FetchSession(rctx, profileID)
	cancel()
	if err != nil {
		return fmt.Errorf("refresh %s: %w", profileID, err)
	}

	e := o.lockBackground(profileID)
	defer e.mu.Unlock()

	local, err := o.d.Sessions.GetActive(ctx, profileID)
	if errors.Is(err, common.ErrorNotFound) {
		local = nil
	} else if err != nil {
		return fmt.Errorf("load active session: %w", err)
	}
	rec := res.Record

	if local == nil {
		if res.Status == syncsvc.Found && rec.IsActive && rec.DeviceID != o.d.DeviceID {
			return o.adoptRemote(ctx, e, rec)
		}
		return nil
	}

	p, err := o.d.Profiles.Get(ctx, profileID)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", profileID, err)
	}

	switch {
	case res.Status == syncsvc.NotFound || local.SequenceNumber == 0:
		o.syncStart(ctx, p, local)

	case !rec.IsActive && rec.SequenceNumber > local.SequenceNumber:
		o.log.Info(ctx, "session ended on another device", "profile_id", profileID,
			"owner", rec.DeviceID, "seq", rec.SequenceNumber)
		local.SequenceNumber = rec.SequenceNumber
		return o.endSession(ctx, e, p, local, "remote", false)

	case rec.IsActive && rec.DeviceID != o.d.DeviceID &&
		(local.SequenceNumber != rec.SequenceNumber || local.Tag != remoteTag(rec.DeviceID)):
		o.adoptInto(ctx, local, rec)
		if err := o.d.Sessions.Update(ctx, local); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		o.setActive(local)

	case rec.IsActive && rec.SequenceNumber > local.SequenceNumber:
		local.SequenceNumber = rec.SequenceNumber
		if err := o.d.Sessions.Update(ctx, local); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		o.setActive(local)
	}
	return nil
}

func (o *Orchestrator) adoptRemote(ctx context.Context, e *entry, rec models.SessionSyncRecord) error {
	if cur := o.ActiveSession(); cur != nil {
		o.log.Warn(ctx, "remote session not adopted, another profile is active",
			"profile_id", rec.ProfileID, "active_profile_id", cur.ProfileID)
		return nil
	}

	p, err := o.d.Profiles.Get(ctx, rec.ProfileID)
	if errors.Is(err, common.ErrorNotFound) {
		o.log.Warn(ctx, "remote session for unknown profile", "profile_id", rec.ProfileID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile %s: %w", rec.ProfileID, err)
	}

	session := &models.Session{
		ID:             o.d.NewID(),
		ProfileID:      rec.ProfileID,
		Tag:            remoteTag(rec.DeviceID),
		StartTime:      rec.StartTime.UTC(),
		ForceStarted:   true,
		SequenceNumber: rec.SequenceNumber,
	}
	if err := o.commitStart(ctx, p, session); err != nil {
		return err
	}
	e.graceUsed = false

	o.log.Info(ctx, "adopted remote session", "profile_id", rec.ProfileID, "owner", rec.DeviceID,
		"seq", rec.SequenceNumber)
	o.emitConflict(rec)
	o.emitStatus(Status{Kind: Started, Profile: *p, Session: *session})
	return nil
}

// RefreshAll refreshes every local profile concurrently and returns the
// joined errors.
func (o *Orchestrator) RefreshAll(ctx context.Context) error {
	profiles, err := o.d.Profiles.List(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	p := pool.New().WithMaxGoroutines(o.d.RefreshConcurrency).WithContext(ctx)
	for _, prof := range profiles {
		id := prof.ID
		p.Go(func(ctx context.Context) error {
			return o.Refresh(ctx, id)
		})
	}
	return p.Wait()
}
