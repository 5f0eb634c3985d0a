package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/orchestrator"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
)

// ---- output capture ----

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func stubInputs(t *testing.T, family string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return family, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return append([]byte(nil), password...), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

// ---- fake engine ----

type fakeEngine struct {
	mu     sync.Mutex
	calls  []string
	errs   map[string]error
	states map[string]orchestrator.State
	active *models.Session

	remaining  int
	lastForce  bool
	lastDur    time.Duration
	lastWeeks  int
	breakState bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{errs: map[string]error{}, states: map[string]orchestrator.State{}, remaining: 3}
}

func (f *fakeEngine) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[strings.Fields(call)[0]]
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Start(_ context.Context, id string, force bool) (*models.Session, error) {
	f.lastForce = force
	if err := f.record("start " + id); err != nil {
		return nil, err
	}
	f.active = &models.Session{ID: "s1", ProfileID: id, StartTime: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	f.states[id] = orchestrator.Active
	return f.active, nil
}

func (f *fakeEngine) StartFromBackground(_ context.Context, id string, d time.Duration) (*models.Session, error) {
	f.lastDur = d
	if err := f.record("bgstart " + id); err != nil {
		return nil, err
	}
	f.active = &models.Session{ID: "s1", ProfileID: id, StartTime: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), Duration: d, ForceStarted: true}
	f.states[id] = orchestrator.Active
	return f.active, nil
}

func (f *fakeEngine) Stop(_ context.Context, id string) error {
	if err := f.record("stop " + id); err != nil {
		return err
	}
	f.active = nil
	delete(f.states, id)
	return nil
}

func (f *fakeEngine) StopFromBackground(_ context.Context, id string) error {
	return f.record("bgstop " + id)
}

func (f *fakeEngine) ToggleBreak(_ context.Context, id string) (bool, error) {
	if err := f.record("break " + id); err != nil {
		return false, err
	}
	f.breakState = !f.breakState
	return f.breakState, nil
}

func (f *fakeEngine) ExtendOneMoreMinute(_ context.Context, id string) error {
	return f.record("extend " + id)
}

func (f *fakeEngine) EmergencyUnblock(context.Context) error {
	if err := f.record("emergency"); err != nil {
		return err
	}
	f.remaining--
	return nil
}

func (f *fakeEngine) RemainingEmergencyUnblocks(context.Context) (int, error) {
	return f.remaining, f.errs["remaining"]
}

func (f *fakeEngine) SetResetPeriodWeeks(_ context.Context, weeks int) error {
	f.lastWeeks = weeks
	if !models.IsAllowedResetPeriod(weeks) {
		return common.ErrInvalidResetPeriod
	}
	return f.record("period")
}

func (f *fakeEngine) Refresh(_ context.Context, id string) error { return f.record("refresh " + id) }

func (f *fakeEngine) RefreshAll(context.Context) error { return f.record("refreshall") }

func (f *fakeEngine) State(id string) orchestrator.State { return f.states[id] }

func (f *fakeEngine) ActiveSession() *models.Session { return f.active }

// ---- profile store ----

type memProfiles struct {
	byID map[string]models.Profile
}

func newMemProfiles(ps ...models.Profile) *memProfiles {
	m := &memProfiles{byID: map[string]models.Profile{}}
	for _, p := range ps {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProfiles) Get(_ context.Context, id string) (*models.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (m *memProfiles) List(context.Context) ([]models.Profile, error) {
	out := make([]models.Profile, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProfiles) Save(_ context.Context, p *models.Profile) error {
	m.byID[p.ID] = *p
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

type fakeSchedules struct {
	registered   []string
	unregistered []string
}

func (f *fakeSchedules) RegisterSchedule(p models.Profile) { f.registered = append(f.registered, p.ID) }
func (f *fakeSchedules) Unregister(id string)             { f.unregistered = append(f.unregistered, id) }

type fakeBudget struct {
	b models.EmergencyUnblockBudget
}

func (f fakeBudget) Budget(context.Context) (models.EmergencyUnblockBudget, error) { return f.b, nil }

// ---- fake auth ----

type fakeAuth struct {
	regFamily string
	regPass   []byte
	regErr    error

	loginFamily string
	loginPass   []byte
	loginErr    error

	restoreFamily string
	restoreErr    error

	logoutCalled bool
	pingErr      error
	closed       bool
}

func (f *fakeAuth) Register(_ context.Context, family string, pw []byte) error {
	f.regFamily, f.regPass = family, append([]byte(nil), pw...)
	return f.regErr
}
func (f *fakeAuth) Login(_ context.Context, family string, pw []byte) error {
	f.loginFamily, f.loginPass = family, append([]byte(nil), pw...)
	return f.loginErr
}
func (f *fakeAuth) Restore(context.Context) (string, error) { return f.restoreFamily, f.restoreErr }
func (f *fakeAuth) SaveTokens(context.Context, string, string) error {
	return nil
}
func (f *fakeAuth) Logout(context.Context) error { f.logoutCalled = true; return nil }
func (f *fakeAuth) Ping(context.Context) error   { return f.pingErr }
func (f *fakeAuth) Close(context.Context) error  { f.closed = true; return nil }

// ---- app builder ----

type testApp struct {
	*App
	engine    *fakeEngine
	profiles  *memProfiles
	schedules *fakeSchedules
	out       *bytes.Buffer
}

var testNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T, input string, auth *fakeAuth, ps ...models.Profile) *testApp {
	t.Helper()
	ta := &testApp{
		engine:    newFakeEngine(),
		profiles:  newMemProfiles(ps...),
		schedules: &fakeSchedules{},
		out:       &bytes.Buffer{},
	}
	d := Deps{
		Engine:    ta.engine,
		Profiles:  ta.profiles,
		Schedules: ta.schedules,
		Budget: fakeBudget{b: models.EmergencyUnblockBudget{
			Remaining: 3, Allowance: 3, ResetPeriodWeeks: 4, LastReset: testNow,
		}},
		Clock:  timex.NewManualClock(testNow),
		Reader: bufio.NewReader(strings.NewReader(input)),
		Out:    ta.out,
	}
	if auth != nil {
		d.Auth = auth
	}
	ta.App = NewApp(d)
	return ta
}

func manualProfile() models.Profile {
	return models.Profile{
		ID:             "p1",
		Name:           "Evenings",
		StrategyID:     "manual",
		StartTriggers:  models.StartTriggers{Manual: true},
		StopConditions: models.StopConditions{Manual: true},
		BreaksEnabled:  true,
		BreakDuration:  5 * time.Minute,
	}
}
