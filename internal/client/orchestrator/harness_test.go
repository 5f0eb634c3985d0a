package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/budget"
	"github.com/dmitrijs2005/gophfocus/internal/client/enforcement"
	"github.com/dmitrijs2005/gophfocus/internal/client/migrations"
	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/client/syncsvc"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var epoch = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type scriptedHandoff struct {
	mu       sync.Mutex
	tokens   []string
	duration time.Duration
	err      error
	gate     chan struct{}
	entered  chan struct{}
	scans    int
}

func (h *scriptedHandoff) ScanToken(ctx context.Context, _ strategy.TokenKind, _ string) (string, error) {
	h.mu.Lock()
	h.scans++
	gate, entered := h.gate, h.entered
	h.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	if len(h.tokens) == 0 {
		return "", common.ErrScanCancelled
	}
	t := h.tokens[0]
	h.tokens = h.tokens[1:]
	return t, nil
}

func (h *scriptedHandoff) PickDuration(_ context.Context, def time.Duration) (time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	if h.duration > 0 {
		return h.duration, nil
	}
	return def, nil
}

func (h *scriptedHandoff) scanCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scans
}

type recordingTimers struct {
	mu    sync.Mutex
	armed map[string]time.Time
}

func newRecordingTimers() *recordingTimers {
	return &recordingTimers{armed: map[string]time.Time{}}
}

func timerKey(kind TimerKind, profileID string) string { return string(kind) + "/" + profileID }

func (r *recordingTimers) Arm(kind TimerKind, profileID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[timerKey(kind, profileID)] = at
}

func (r *recordingTimers) Disarm(kind TimerKind, profileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armed, timerKey(kind, profileID))
}

func (r *recordingTimers) at(kind TimerKind, profileID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.armed[timerKey(kind, profileID)]
	return t, ok
}

type recordingNotifier struct {
	mu   sync.Mutex
	recs []models.SessionSyncRecord
}

func (n *recordingNotifier) Publish(_ context.Context, rec models.SessionSyncRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recs = append(n.recs, rec)
	return nil
}

type denyPolicy struct{}

func (denyPolicy) EmergencyUnblockAllowed(context.Context) (bool, error) { return false, nil }

// flakyStore fails every call while down is set.
type flakyStore struct {
	mu    sync.Mutex
	inner syncsvc.RemoteStore
	down  bool
}

func (f *flakyStore) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyStore) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyStore) Get(ctx context.Context, id string) (models.SessionSyncRecord, error) {
	if f.isDown() {
		return models.SessionSyncRecord{}, common.ErrorUnavailable
	}
	return f.inner.Get(ctx, id)
}

func (f *flakyStore) Put(ctx context.Context, rec models.SessionSyncRecord) error {
	if f.isDown() {
		return common.ErrorUnavailable
	}
	return f.inner.Put(ctx, rec)
}

type harness struct {
	t        *testing.T
	o        *Orchestrator
	db       *sql.DB
	deviceID string
	profiles *profiles.SQLiteRepository
	sessions *sessions.SQLiteRepository
	remote   syncsvc.RemoteStore
	engine   *enforcement.LogEngine
	guard    *enforcement.Guard
	budget   *budget.Manager
	clock    *timex.ManualClock
	timers   *recordingTimers
	handoff  *scriptedHandoff
	notifier *recordingNotifier

	mu        sync.Mutex
	statuses  []Status
	errs      []string
	conflicts []models.SessionSyncRecord
}

type harnessOption func(*Deps)

func withPolicy(p budget.Policy) harnessOption { return func(d *Deps) { d.Policy = p } }

func withFailingConsume(err error) harnessOption {
	return func(d *Deps) { d.Budget = failingConsume{Budget: d.Budget, err: err} }
}

// withFlakyEnforcer wraps the harness guard so tests can fail single calls.
func withFlakyEnforcer(f *flakyEnforcer) harnessOption {
	return func(d *Deps) {
		f.Enforcer = d.Enforcer
		d.Enforcer = f
	}
}

type flakyEnforcer struct {
	Enforcer

	mu         sync.Mutex
	suspendErr error
	resumeErr  error
}

func (f *flakyEnforcer) fail(suspend, resume error) {
	f.mu.Lock()
	f.suspendErr, f.resumeErr = suspend, resume
	f.mu.Unlock()
}

func (f *flakyEnforcer) Suspend(ctx context.Context, profileID string) error {
	f.mu.Lock()
	err := f.suspendErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Enforcer.Suspend(ctx, profileID)
}

func (f *flakyEnforcer) Resume(ctx context.Context, profileID string) error {
	f.mu.Lock()
	err := f.resumeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Enforcer.Resume(ctx, profileID)
}

// flakySessions fails Update while updateErr is set.
type flakySessions struct {
	SessionStore

	mu        sync.Mutex
	updateErr error
}

func withFlakySessions(f *flakySessions) harnessOption {
	return func(d *Deps) {
		f.SessionStore = d.Sessions
		d.Sessions = f
	}
}

func (f *flakySessions) failUpdates(err error) {
	f.mu.Lock()
	f.updateErr = err
	f.mu.Unlock()
}

func (f *flakySessions) Update(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.SessionStore.Update(ctx, s)
}

// failingConsume delegates to a real budget but fails Consume.
type failingConsume struct {
	Budget
	err error
}

func (f failingConsume) Consume(context.Context) (models.EmergencyUnblockBudget, error) {
	return models.EmergencyUnblockBudget{}, f.err
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func newHarness(t *testing.T, deviceID string, remote syncsvc.RemoteStore, opts ...harnessOption) *harness {
	t.Helper()
	if remote == nil {
		remote = syncsvc.NewMemoryStore()
	}

	h := &harness{
		t:        t,
		db:       openDB(t),
		deviceID: deviceID,
		remote:   remote,
		clock:    timex.NewManualClock(epoch),
		timers:   newRecordingTimers(),
		handoff:  &scriptedHandoff{},
		notifier: &recordingNotifier{},
	}
	h.profiles = profiles.NewSQLiteRepository(h.db)
	h.sessions = sessions.NewSQLiteRepository(h.db)
	h.engine = enforcement.NewLogEngine(nil)
	h.guard = enforcement.NewGuard(h.engine, nil)
	h.budget = budget.NewManager(metadata.NewSQLiteRepository(h.db), h.clock, 3)

	var seq atomic.Int64
	d := Deps{
		Profiles: h.profiles,
		Sessions: h.sessions,
		Sync:     syncsvc.NewService(remote, nil),
		Enforcer: h.guard,
		Budget:   h.budget,
		Handoff:  h.handoff,
		Timers:   h.timers,
		Notifier: h.notifier,
		Clock:    h.clock,
		DeviceID: deviceID,
		NewID: func() string {
			return fmt.Sprintf("%s-s%d", deviceID, seq.Add(1))
		},
		Callbacks: Callbacks{
			OnSessionCreation: func(s Status) { h.mu.Lock(); h.statuses = append(h.statuses, s); h.mu.Unlock() },
			OnErrorMessage:    func(m string) { h.mu.Lock(); h.errs = append(h.errs, m); h.mu.Unlock() },
			OnSyncConflict: func(r models.SessionSyncRecord) {
				h.mu.Lock()
				h.conflicts = append(h.conflicts, r)
				h.mu.Unlock()
			},
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	h.o = New(d)
	return h
}

func (h *harness) save(p models.Profile) models.Profile {
	h.t.Helper()
	require.NoError(h.t, h.profiles.Save(context.Background(), &p))
	return p
}

func (h *harness) remoteRecord(profileID string) (models.SessionSyncRecord, bool) {
	h.t.Helper()
	rec, err := h.remote.Get(context.Background(), profileID)
	if err != nil {
		return models.SessionSyncRecord{}, false
	}
	return rec, true
}

func (h *harness) activeCount() int {
	h.t.Helper()
	active, err := h.sessions.ListActive(context.Background())
	require.NoError(h.t, err)
	return len(active)
}

func manualProfile(id string) models.Profile {
	return models.Profile{
		ID:             id,
		Name:           "Profile " + id,
		StrategyID:     string(strategy.Manual),
		Apps:           []string{"com.example.social"},
		StartTriggers:  models.StartTriggers{Manual: true, DeepLink: true},
		StopConditions: models.StopConditions{Manual: true, DeepLink: true},
		BreaksEnabled:  true,
		BreakDuration:  5 * time.Minute,
	}
}
