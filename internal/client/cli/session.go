package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// Status prints the active session, if any.
func (a *App) Status(ctx context.Context) error {
	s := a.engine.ActiveSession()
	if s == nil {
		printlnFn("No active session.")
		return nil
	}

	name := s.ProfileID
	if p, err := a.profiles.Get(ctx, s.ProfileID); err == nil {
		name = p.Name
	}

	now := a.clock.Now()
	a.printf("%s: %s for %s", name, a.engine.State(s.ProfileID), now.Sub(s.StartTime).Truncate(time.Second))
	if end, ok := s.PlannedEnd(); ok {
		a.printf(", ends in %s", end.Sub(now).Truncate(time.Second))
	}
	if s.ForceStarted {
		a.printf(", force started")
	}
	a.printf("\n")
	return nil
}

func (a *App) reportStarted(ctx context.Context, p *models.Profile, s *models.Session, err error) error {
	if errors.Is(err, common.ErrSyncConflict) {
		printlnFn(describeError(err))
		return nil
	}
	if err != nil {
		return err
	}
	if end, ok := s.PlannedEnd(); ok {
		a.printf("Blocking %s until %s\n", p.Name, end.Local().Format("15:04"))
		return nil
	}
	a.printf("Blocking %s\n", p.Name)
	return nil
}

// Start runs the start handshake. "start -f <profile>" skips it.
func (a *App) Start(ctx context.Context, args []string) error {
	force := false
	if len(args) > 0 && args[0] == "-f" {
		force, args = true, args[1:]
	}
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	s, err := a.engine.Start(ctx, p.ID, force)
	return a.reportStarted(ctx, p, s, err)
}

// Stop runs the stop handshake of the profile's active session.
func (a *App) Stop(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	if err := a.engine.Stop(ctx, p.ID); err != nil {
		return err
	}
	a.printf("Stopped %s\n", p.Name)
	return nil
}

// Break starts a break, or ends the current one.
func (a *App) Break(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	onBreak, err := a.engine.ToggleBreak(ctx, p.ID)
	if err != nil {
		return err
	}
	if onBreak {
		a.printf("Break started, restrictions return in %s\n", p.BreakDuration)
	} else {
		printlnFn("Break ended")
	}
	return nil
}

// Extend lifts restrictions for one more minute, once per session.
func (a *App) Extend(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	if err := a.engine.ExtendOneMoreMinute(ctx, p.ID); err != nil {
		return err
	}
	printlnFn("One more minute granted")
	return nil
}

// BackgroundStart mimics an intent start: bgstart <profile> [duration].
func (a *App) BackgroundStart(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	var d time.Duration
	if len(args) > 1 {
		if d, err = time.ParseDuration(args[1]); err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid duration %q", common.ErrValidation, args[1])
		}
	}
	s, err := a.engine.StartFromBackground(ctx, p.ID, d)
	return a.reportStarted(ctx, p, s, err)
}

// BackgroundStop mimics an intent stop.
func (a *App) BackgroundStop(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	if err := a.engine.StopFromBackground(ctx, p.ID); err != nil {
		return err
	}
	printlnFn("Stop requested")
	return nil
}

// Refresh reconciles one profile, or all of them, with the remote store.
func (a *App) Refresh(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if err := a.engine.RefreshAll(ctx); err != nil {
			return err
		}
		printlnFn("All profiles refreshed")
		return nil
	}
	p, err := a.resolveProfile(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.engine.Refresh(ctx, p.ID); err != nil {
		return err
	}
	a.printf("%s: %s\n", p.Name, a.engine.State(p.ID))
	return nil
}
