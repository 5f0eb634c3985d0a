package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/orchestrator"
	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/google/uuid"
)

const defaultBreakDuration = 5 * time.Minute

// resolveProfile finds a profile by id or, failing that, by name. When ref
// is empty the user is asked for it.
func (a *App) resolveProfile(ctx context.Context, ref string) (*models.Profile, error) {
	if ref == "" {
		var err error
		ref, err = getSimpleText(a.reader, "Enter profile id or name", a.out)
		if err != nil {
			return nil, err
		}
		if ref == "" {
			return nil, common.ErrScanCancelled
		}
	}

	p, err := a.profiles.Get(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	all, err := a.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q: %w", ref, common.ErrorNotFound)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Profiles lists every profile with its strategy, state and triggers.
func (a *App) Profiles(ctx context.Context) error {
	list, err := a.profiles.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn("No profiles yet, use 'addprofile'.")
		return nil
	}
	for _, p := range list {
		name := p.StrategyID
		if s, err := strategy.New(p.StrategyID); err == nil {
			name = s.Name()
		}
		a.printf("%s  %-16s %-16s %-9s start=%s stop=%s%s\n",
			p.ID, p.Name, name, a.engine.State(p.ID),
			joinOptions(p.StartTriggers.Enabled()), joinOptions(p.StopConditions.Enabled()),
			describeSchedule(p.Schedule))
	}
	return nil
}

func joinOptions[T ~string](opts []T) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = string(o)
	}
	return strings.Join(parts, ",")
}

func describeSchedule(s *models.Schedule) string {
	if s == nil || len(s.Days) == 0 {
		return ""
	}
	days := make([]string, len(s.Days))
	for i, d := range s.Days {
		days[i] = strings.ToLower(d.String()[:3])
	}
	if s.StopOnly {
		return fmt.Sprintf(" schedule=%s stop@%s", strings.Join(days, ","), formatClock(s.EndMinute))
	}
	return fmt.Sprintf(" schedule=%s %s-%s", strings.Join(days, ","), formatClock(s.StartMinute), formatClock(s.EndMinute))
}

// AddProfile builds a profile from answers to a series of prompts. Empty
// trigger answers take the strategy's defaults.
func (a *App) AddProfile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Profile name", a.out)
	if err != nil {
		return err
	}

	kinds := strategy.All()
	opts := make([]string, len(kinds))
	for i, k := range kinds {
		opts[i] = string(k)
	}
	kind, err := getSimpleText(a.reader, "Strategy ("+strings.Join(opts, ", ")+")", a.out)
	if err != nil {
		return err
	}
	strat, err := strategy.New(kind)
	if err != nil {
		return err
	}

	now := a.clock.Now()
	p := &models.Profile{
		ID:         uuid.NewString(),
		Name:       name,
		StrategyID: string(strat.ID()),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if p.Apps, err = GetList(a.reader, "Apps to restrict", a.out); err != nil {
		return err
	}
	if p.Domains, err = GetList(a.reader, "Web domains to restrict", a.out); err != nil {
		return err
	}

	if strat.Timed() {
		if p.TimerDuration, err = a.askDuration("Default session length", strategy.DefaultTimerDuration); err != nil {
			return err
		}
	}

	answer, err := getSimpleText(a.reader, "Allow one break per session? (y/N)", a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "y") {
		p.BreaksEnabled = true
		if p.BreakDuration, err = a.askDuration("Break length", defaultBreakDuration); err != nil {
			return err
		}
	}

	start, err := GetList(a.reader, "Start triggers ("+joinOptions(models.AllStartOptions)+")", a.out)
	if err != nil {
		return err
	}
	stop, err := GetList(a.reader, "Stop conditions ("+joinOptions(models.AllStopOptions)+")", a.out)
	if err != nil {
		return err
	}
	if err := applyTriggers(p, strat, start, stop); err != nil {
		return err
	}

	if p.PinnedToken, err = getSimpleText(a.reader, "Pinned unblock token (empty for none)", a.out); err != nil {
		return err
	}

	if p.Schedule, err = a.askSchedule(); err != nil {
		return err
	}
	if p.Schedule != nil {
		p.ScheduleUpdatedAt = now
	}

	if err := strat.Validate(*p); err != nil {
		return err
	}
	if err := a.profiles.Save(ctx, p); err != nil {
		return err
	}
	a.schedules.RegisterSchedule(*p)

	a.printf("Profile %s created (%s)\n", p.Name, p.ID)
	return nil
}

// applyTriggers enables the listed options, or the strategy defaults when a
// list is empty.
func applyTriggers(p *models.Profile, strat strategy.Strategy, start, stop []string) error {
	req := strat.Requirements()
	if len(start) == 0 && len(req.Start) > 0 {
		start = []string{string(req.Start[0])}
	}
	for _, o := range start {
		if _, err := triggers.SetStartTrigger(p, models.StartOption(o), true); err != nil {
			return err
		}
	}

	if len(stop) == 0 {
		stop = defaultStops(strat)
	}
	for _, o := range stop {
		if err := triggers.SetStopCondition(p, models.StopOption(o), true); err != nil {
			return err
		}
	}
	return nil
}

func defaultStops(strat strategy.Strategy) []string {
	switch strat.ID() {
	case strategy.QRCode:
		return []string{string(models.StopSameQR)}
	case strategy.NFCTag:
		return []string{string(models.StopSameNFC)}
	}
	var out []string
	for _, m := range strat.Requirements().Stop {
		switch m {
		case triggers.MethodManual:
			out = append(out, string(models.StopManual))
		case triggers.MethodTimer:
			out = append(out, string(models.StopTimer))
		case triggers.MethodNFC:
			out = append(out, string(models.StopAnyNFC))
		case triggers.MethodQR:
			out = append(out, string(models.StopAnyQR))
		}
	}
	return out
}

func (a *App) askDuration(prompt string, def time.Duration) (time.Duration, error) {
	answer, err := getSimpleText(a.reader, fmt.Sprintf("%s (default %s)", prompt, def), a.out)
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	d, err := time.ParseDuration(answer)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid duration %q", common.ErrValidation, answer)
	}
	return d, nil
}

func (a *App) askSchedule() (*models.Schedule, error) {
	dayList, err := GetList(a.reader, "Schedule days (mon..sun)", a.out)
	if err != nil || len(dayList) == 0 {
		return nil, err
	}
	s := &models.Schedule{}
	for _, d := range dayList {
		wd, err := parseWeekday(d)
		if err != nil {
			return nil, err
		}
		s.Days = append(s.Days, wd)
	}

	startAt, err := getSimpleText(a.reader, "Window start HH:MM (empty for a stop-only schedule)", a.out)
	if err != nil {
		return nil, err
	}
	if startAt == "" {
		s.StopOnly = true
	} else if s.StartMinute, err = parseClock(startAt); err != nil {
		return nil, err
	}

	endAt, err := getSimpleText(a.reader, "Window end HH:MM", a.out)
	if err != nil {
		return nil, err
	}
	if s.EndMinute, err = parseClock(endAt); err != nil {
		return nil, err
	}
	return s, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		if d, ok := weekdays[s[:3]]; ok {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", common.ErrValidation, s)
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if ok {
		h, herr := strconv.Atoi(hh)
		m, merr := strconv.Atoi(mm)
		if herr == nil && merr == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return h*60 + m, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time %q, want HH:MM", common.ErrValidation, s)
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Trigger toggles one start trigger or stop condition:
//
//	trigger <profile> start|stop <option> on|off
//
// Turning a start trigger off also clears stop conditions that depended on
// it. The result must still be a valid profile for its strategy.
func (a *App) Trigger(ctx context.Context, args []string) error {
	if len(args) != 4 || (args[1] != "start" && args[1] != "stop") || (args[3] != "on" && args[3] != "off") {
		printlnFn("Usage: trigger <profile> start|stop <option> on|off")
		return nil
	}
	p, err := a.resolveProfile(ctx, args[0])
	if err != nil {
		return err
	}
	strat, err := strategy.New(p.StrategyID)
	if err != nil {
		return err
	}
	enabled := args[3] == "on"

	if args[1] == "start" {
		cleared, err := triggers.SetStartTrigger(p, models.StartOption(args[2]), enabled)
		if err != nil {
			return err
		}
		if len(cleared) > 0 {
			a.printf("Also cleared: %s\n", joinOptions(cleared))
		}
		if models.StartOption(args[2]) == models.StartSchedule {
			p.ScheduleUpdatedAt = a.clock.Now()
		}
	} else {
		if err := triggers.SetStopCondition(p, models.StopOption(args[2]), enabled); err != nil {
			return err
		}
	}

	if err := strat.Validate(*p); err != nil {
		return err
	}
	p.UpdatedAt = a.clock.Now()
	if err := a.profiles.Save(ctx, p); err != nil {
		return err
	}
	a.schedules.RegisterSchedule(*p)

	a.printf("%s: start=%s stop=%s\n", p.Name, joinOptions(p.StartTriggers.Enabled()), joinOptions(p.StopConditions.Enabled()))
	return nil
}

// DeleteProfile removes an idle profile and its schedule.
func (a *App) DeleteProfile(ctx context.Context, args []string) error {
	p, err := a.resolveProfile(ctx, firstArg(args))
	if err != nil {
		return err
	}
	if a.engine.State(p.ID) != orchestrator.Idle {
		return common.ErrAlreadyActive
	}
	if err := a.profiles.Delete(ctx, p.ID); err != nil {
		return err
	}
	a.schedules.Unregister(p.ID)
	a.printf("Profile %s deleted\n", p.Name)
	return nil
}
