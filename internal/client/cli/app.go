package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/orchestrator"
	"github.com/dmitrijs2005/gophfocus/internal/client/services"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	ModeLocal   Mode = "local"
)

// engine is the orchestrator surface the commands drive.
type engine interface {
	Start(ctx context.Context, profileID string, forceStart bool) (*models.Session, error)
	StartFromBackground(ctx context.Context, profileID string, duration time.Duration) (*models.Session, error)
	Stop(ctx context.Context, profileID string) error
	StopFromBackground(ctx context.Context, profileID string) error
	ToggleBreak(ctx context.Context, profileID string) (bool, error)
	ExtendOneMoreMinute(ctx context.Context, profileID string) error
	EmergencyUnblock(ctx context.Context) error
	RemainingEmergencyUnblocks(ctx context.Context) (int, error)
	SetResetPeriodWeeks(ctx context.Context, weeks int) error
	Refresh(ctx context.Context, profileID string) error
	RefreshAll(ctx context.Context) error
	State(profileID string) orchestrator.State
	ActiveSession() *models.Session
}

type profileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, id string) error
}

type scheduleRegistrar interface {
	RegisterSchedule(p models.Profile)
	Unregister(profileID string)
}

type budgetView interface {
	Budget(ctx context.Context) (models.EmergencyUnblockBudget, error)
}

// Deps wires an App. Auth is nil when the sync backend needs no account.
type Deps struct {
	Engine    engine
	Profiles  profileStore
	Schedules scheduleRegistrar
	Budget    budgetView
	Auth      services.AuthService
	Clock     timex.Clock
	Log       logging.Logger

	Reader *bufio.Reader
	Out    io.Writer
}

type App struct {
	engine    engine
	profiles  profileStore
	schedules scheduleRegistrar
	budget    budgetView
	auth      services.AuthService
	clock     timex.Clock
	log       logging.Logger

	family string
	Mode   Mode
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(d Deps) *App {
	a := &App{
		engine:    d.Engine,
		profiles:  d.Profiles,
		schedules: d.Schedules,
		budget:    d.Budget,
		auth:      d.Auth,
		clock:     d.Clock,
		log:       logging.OrNop(d.Log).With("module", "cli"),
		reader:    d.Reader,
		out:       d.Out,
		Mode:      ModeLocal,
	}
	if a.clock == nil {
		a.clock = timex.SystemClock{}
	}
	if a.auth != nil {
		a.Mode = ModeOffline
	}
	return a
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

// Run serves the REPL until the user exits or ctx is cancelled. A pending
// terminal read is abandoned on cancellation.
func (a *App) Run(ctx context.Context) {
	if a.auth != nil {
		defer a.auth.Close(ctx)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Root(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.log.Info(ctx, "interrupted")
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth == nil || a.family != ""
}

// StartBackgroundSync pings the server and reconciles every profile with
// the remote store once per interval until ctx is done.
func (a *App) StartBackgroundSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.syncOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) syncOnce(ctx context.Context) {
	if a.auth != nil {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.auth.Ping(pctx)
		cancel()

		if err != nil {
			a.setMode(ctx, ModeOffline)
			return
		}
		a.setMode(ctx, ModeOnline)
		if !a.isLoggedIn() {
			return
		}
	}

	if err := a.engine.RefreshAll(ctx); err != nil {
		a.log.Warn(ctx, "background refresh failed", "error", err)
	}
}
