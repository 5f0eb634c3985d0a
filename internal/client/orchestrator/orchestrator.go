// Package orchestrator is the session state machine. Every start, stop,
// break, grace and emergency path (interactive, background intent, timer
// or remote refresh) goes through one Orchestrator, which serialises
// transitions per profile and keeps at most one session active on the
// device.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/budget"
	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/client/syncsvc"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
	"github.com/google/uuid"
)

// State of one profile.
type State int

const (
	Idle State = iota
	Starting
	Active
	OnBreak
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case OnBreak:
		return "on_break"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// GraceWindow is how long "one more minute" lifts restrictions.
const GraceWindow = time.Minute

type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, s *models.Session) error
	GetActive(ctx context.Context, profileID string) (*models.Session, error)
	ListActive(ctx context.Context) ([]models.Session, error)
}

type SyncService interface {
	FetchSession(ctx context.Context, profileID string) (syncsvc.FetchResult, error)
	StartSession(ctx context.Context, profileID string, startTime time.Time, deviceID string) (syncsvc.StartResult, error)
	StopSession(ctx context.Context, profileID string, endTime time.Time, deviceID string) (syncsvc.StopResult, error)
}

// Enforcer is the single restriction resource.
type Enforcer interface {
	Activate(ctx context.Context, p models.Profile) error
	Deactivate(ctx context.Context, profileID string) error
	Suspend(ctx context.Context, profileID string) error
	Resume(ctx context.Context, profileID string) error
}

type Budget interface {
	Remaining(ctx context.Context) (int, error)
	Consume(ctx context.Context) (models.EmergencyUnblockBudget, error)
	Refund(ctx context.Context) error
	SetResetPeriodWeeks(ctx context.Context, weeks int) error
}

// Notifier announces accepted remote writes to other devices.
type Notifier interface {
	Publish(ctx context.Context, rec models.SessionSyncRecord) error
}

type TimerKind string

const (
	TimerStrategy TimerKind = "strategy"
	TimerBreak    TimerKind = "break"
	TimerGrace    TimerKind = "grace"
)

// Timers arms one-shot callbacks that come back through TimerFired.
type Timers interface {
	Arm(kind TimerKind, profileID string, at time.Time)
	Disarm(kind TimerKind, profileID string)
}

type StatusKind int

const (
	Started StatusKind = iota
	Ended
)

// Status is reported through Callbacks.OnSessionCreation.
type Status struct {
	Kind    StatusKind
	Profile models.Profile
	Session models.Session
}

// Callbacks are invoked synchronously while the profile is locked; they
// must not call back into the Orchestrator for the same profile.
type Callbacks struct {
	OnSessionCreation func(Status)
	OnErrorMessage    func(msg string)
	OnSyncConflict    func(rec models.SessionSyncRecord)
}

// Deps wires an Orchestrator. Profiles, Sessions, Sync and Enforcer are
// required; everything else has a usable default.
type Deps struct {
	Profiles ProfileStore
	Sessions SessionStore
	Sync     SyncService
	Enforcer Enforcer
	Budget   Budget
	Policy   budget.Policy
	Handoff  strategy.Handoff
	Timers   Timers
	Notifier Notifier
	Clock    timex.Clock
	Log      logging.Logger

	DeviceID      string
	RemoteTimeout time.Duration
	// RefreshConcurrency bounds RefreshAll fan-out; defaults to 4.
	RefreshConcurrency int

	Callbacks Callbacks
	NewID     func() string
}

type entry struct {
	// mu serialises transitions of one profile.
	mu sync.Mutex
	// Guarded by mu.
	graceUsed bool
}

type Orchestrator struct {
	d   Deps
	log logging.Logger

	mu      sync.Mutex
	entries map[string]*entry
	states  map[string]State
	active  *models.Session
}

func New(d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if d.Policy == nil {
		d.Policy = budget.AllowAll{}
	}
	if d.Timers == nil {
		d.Timers = nopTimers{}
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.RefreshConcurrency <= 0 {
		d.RefreshConcurrency = 4
	}
	return &Orchestrator{
		d:       d,
		log:     logging.OrNop(d.Log).With("module", "orchestrator"),
		entries: make(map[string]*entry),
		states:  make(map[string]State),
	}
}

// SetTimers replaces the timer backend. The scheduler needs the
// Orchestrator to exist first, so it is attached after construction.
func (o *Orchestrator) SetTimers(t Timers) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t == nil {
		t = nopTimers{}
	}
	o.d.Timers = t
}

func (o *Orchestrator) timers() Timers {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.d.Timers
}

func (o *Orchestrator) entry(profileID string) *entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[profileID]
	if !ok {
		e = &entry{}
		o.entries[profileID] = e
	}
	return e
}

// lockInteractive refuses to queue behind a transition already in flight.
func (o *Orchestrator) lockInteractive(profileID string) (*entry, error) {
	e := o.entry(profileID)
	if !e.mu.TryLock() {
		return nil, common.ErrTransitionInFlight
	}
	return e, nil
}

// lockBackground waits for any in-flight transition.
func (o *Orchestrator) lockBackground(profileID string) *entry {
	e := o.entry(profileID)
	e.mu.Lock()
	return e
}

func (o *Orchestrator) setState(profileID string, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s == Idle {
		delete(o.states, profileID)
		return
	}
	o.states[profileID] = s
}

// State returns the current state of a profile.
func (o *Orchestrator) State(profileID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[profileID]
}

// IsBlocking reports whether any session is active on this device.
func (o *Orchestrator) IsBlocking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// ActiveSession returns a copy of the active session, or nil.
func (o *Orchestrator) ActiveSession() *models.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return nil
	}
	s := *o.active
	return &s
}

func (o *Orchestrator) setActive(s *models.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s == nil {
		o.active = nil
		return
	}
	cp := *s
	o.active = &cp
}

func (o *Orchestrator) clearActive(profileID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && o.active.ProfileID == profileID {
		o.active = nil
	}
}

func (o *Orchestrator) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.d.RemoteTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.d.RemoteTimeout)
}

func (o *Orchestrator) emitStatus(s Status) {
	if o.d.Callbacks.OnSessionCreation != nil {
		o.d.Callbacks.OnSessionCreation(s)
	}
}

func (o *Orchestrator) emitError(err error) {
	if err != nil && o.d.Callbacks.OnErrorMessage != nil {
		o.d.Callbacks.OnErrorMessage(err.Error())
	}
}

func (o *Orchestrator) emitConflict(rec models.SessionSyncRecord) {
	if o.d.Callbacks.OnSyncConflict != nil {
		o.d.Callbacks.OnSyncConflict(rec)
	}
}

func (o *Orchestrator) publish(ctx context.Context, rec models.SessionSyncRecord) {
	if o.d.Notifier == nil {
		return
	}
	if err := o.d.Notifier.Publish(ctx, rec); err != nil {
		o.log.Warn(ctx, "publish session change failed", "profile_id", rec.ProfileID, "error", err)
	}
}

type nopTimers struct{}

func (nopTimers) Arm(TimerKind, string, time.Time) {}
func (nopTimers) Disarm(TimerKind, string)         {}

func (o *Orchestrator) disarmAll(profileID string) {
	t := o.timers()
	for _, k := range []TimerKind{TimerStrategy, TimerBreak, TimerGrace} {
		t.Disarm(k, profileID)
	}
}
