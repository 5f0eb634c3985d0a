// Package scheduler runs the device's timed activities: daily schedule
// windows, stop-only schedules, break ends, strategy durations and grace
// windows. Every callback goes back through the orchestrator, which
// re-checks the active session before acting.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/orchestrator"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
)

// MinScheduleAge is how long a schedule must have been registered before
// its start window may fire.
const MinScheduleAge = time.Minute

// Target receives fired activities.
type Target interface {
	TimerFired(ctx context.Context, kind orchestrator.TimerKind, profileID string) error
	ScheduleStart(ctx context.Context, profileID string) (*models.Session, error)
	ScheduleStop(ctx context.Context, profileID string) error
}

// Stopper is satisfied by *time.Timer.
type Stopper interface {
	Stop() bool
}

// AfterFunc arms f to run after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func systemAfter(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

type activity string

const (
	activityScheduleStart activity = "schedule_start"
	activityScheduleEnd   activity = "schedule_end"
)

type registration struct {
	schedule     models.Schedule
	registeredAt time.Time
	gen          uint64
}

type Runner struct {
	ctx    context.Context
	target Target
	clock  timex.Clock
	after  AfterFunc
	log    logging.Logger

	mu        sync.Mutex
	timers    map[string]Stopper
	schedules map[string]registration
	gen       uint64
	closed    bool
}

type Option func(*Runner)

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(f AfterFunc) Option { return func(r *Runner) { r.after = f } }

func WithClock(c timex.Clock) Option { return func(r *Runner) { r.clock = c } }

func WithLogger(l logging.Logger) Option { return func(r *Runner) { r.log = l } }

// New returns a Runner whose callbacks run under ctx.
func New(ctx context.Context, target Target, opts ...Option) *Runner {
	r := &Runner{
		ctx:       ctx,
		target:    target,
		clock:     timex.SystemClock{},
		after:     systemAfter,
		timers:    make(map[string]Stopper),
		schedules: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logging.OrNop(r.log).With("module", "scheduler")
	return r
}

func key(kind string, profileID string) string { return kind + "/" + profileID }

// Arm implements orchestrator.Timers.
func (r *Runner) Arm(kind orchestrator.TimerKind, profileID string, at time.Time) {
	r.arm(key(string(kind), profileID), at, func() { r.fireTimer(kind, profileID) })
}

// Disarm implements orchestrator.Timers.
func (r *Runner) Disarm(kind orchestrator.TimerKind, profileID string) {
	r.disarm(key(string(kind), profileID))
}

func (r *Runner) arm(k string, at time.Time, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if t, ok := r.timers[k]; ok {
		t.Stop()
	}
	r.timers[k] = r.after(at.Sub(r.clock.Now()), f)
}

func (r *Runner) disarm(k string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[k]; ok {
		t.Stop()
		delete(r.timers, k)
	}
}

func (r *Runner) forget(k string) {
	r.mu.Lock()
	delete(r.timers, k)
	r.mu.Unlock()
}

func (r *Runner) fireTimer(kind orchestrator.TimerKind, profileID string) {
	r.forget(key(string(kind), profileID))
	if err := r.target.TimerFired(r.ctx, kind, profileID); err != nil {
		r.log.Error(r.ctx, "timer callback failed", "kind", kind, "profile_id", profileID, "error", err)
	}
}

// RegisterSchedule (re)arms the daily windows of p. Profiles without a
// schedule are unregistered.
func (r *Runner) RegisterSchedule(p models.Profile) {
	if p.Schedule == nil || (!p.StartTriggers.Schedule && !p.StopConditions.Schedule) {
		r.Unregister(p.ID)
		return
	}

	sched := *p.Schedule
	if !p.StartTriggers.Schedule {
		sched.StopOnly = true
	}

	r.mu.Lock()
	r.gen++
	r.schedules[p.ID] = registration{schedule: sched, registeredAt: r.clock.Now(), gen: r.gen}
	r.mu.Unlock()

	if !sched.StopOnly {
		r.armScheduleStart(p.ID, sched)
	} else {
		r.disarm(key(string(activityScheduleStart), p.ID))
	}
	r.armScheduleEnd(p.ID, sched)
	r.log.Info(r.ctx, "schedule registered", "profile_id", p.ID, "stop_only", sched.StopOnly)
}

// Unregister removes the schedule windows of profileID.
func (r *Runner) Unregister(profileID string) {
	r.mu.Lock()
	delete(r.schedules, profileID)
	r.mu.Unlock()
	r.disarm(key(string(activityScheduleStart), profileID))
	r.disarm(key(string(activityScheduleEnd), profileID))
}

func (r *Runner) armScheduleStart(profileID string, s models.Schedule) {
	at := NextOccurrence(r.clock.Now(), s.Days, s.StartMinute)
	r.arm(key(string(activityScheduleStart), profileID), at, func() { r.handleIntervalStart(profileID) })
}

func (r *Runner) armScheduleEnd(profileID string, s models.Schedule) {
	at := NextOccurrence(r.clock.Now(), EndDays(s), s.EndMinute)
	r.arm(key(string(activityScheduleEnd), profileID), at, func() { r.handleIntervalEnd(profileID) })
}

func (r *Runner) registration(profileID string) (registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.schedules[profileID]
	return reg, ok
}

// rearm arms the next window of the profile's current registration. A
// schedule replaced or removed while a callback ran is left to whoever
// changed it.
func (r *Runner) rearm(profileID string, seen registration, arm func(string, models.Schedule)) {
	cur, ok := r.registration(profileID)
	if !ok || cur.gen != seen.gen {
		return
	}
	arm(profileID, cur.schedule)
}

func (r *Runner) handleIntervalStart(profileID string) {
	r.forget(key(string(activityScheduleStart), profileID))
	reg, ok := r.registration(profileID)
	if !ok {
		return
	}
	defer r.rearm(profileID, reg, r.armScheduleStart)

	now := r.clock.Now()
	if now.Sub(reg.registeredAt) < MinScheduleAge {
		r.log.Info(r.ctx, "schedule start skipped, registered too recently", "profile_id", profileID)
		return
	}
	if !reg.schedule.OnDay(now.Weekday()) {
		r.log.Info(r.ctx, "schedule start skipped, not a scheduled day", "profile_id", profileID)
		return
	}
	if _, err := r.target.ScheduleStart(r.ctx, profileID); err != nil {
		r.log.Warn(r.ctx, "schedule start failed", "profile_id", profileID, "error", err)
	}
}

func (r *Runner) handleIntervalEnd(profileID string) {
	r.forget(key(string(activityScheduleEnd), profileID))
	reg, ok := r.registration(profileID)
	if !ok {
		return
	}
	defer r.rearm(profileID, reg, r.armScheduleEnd)

	if err := r.target.ScheduleStop(r.ctx, profileID); err != nil {
		r.log.Warn(r.ctx, "schedule stop failed", "profile_id", profileID, "error", err)
	}
}

// Close stops every pending timer; later Arm calls are ignored.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.timers {
		t.Stop()
		delete(r.timers, k)
	}
	r.closed = true
}

// Pending returns how many timers are armed.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
