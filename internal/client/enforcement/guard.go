// Package enforcement wraps the device restriction engine as a single,
// non-reentrant resource owned by at most one profile at a time.
package enforcement

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
)

// Snapshot is what the engine needs to restrict a profile.
type Snapshot struct {
	ProfileID string
	Name      string
	Apps      []string
	Domains   []string
}

func SnapshotOf(p models.Profile) Snapshot {
	return Snapshot{
		ProfileID: p.ID,
		Name:      p.Name,
		Apps:      append([]string(nil), p.Apps...),
		Domains:   append([]string(nil), p.Domains...),
	}
}

// Engine applies restrictions. Calls are synchronous and idempotent.
type Engine interface {
	Activate(ctx context.Context, s Snapshot) error
	Deactivate(ctx context.Context) error
}

// Guard serialises access to an Engine and remembers which profile owns it.
type Guard struct {
	mu        sync.Mutex
	engine    Engine
	log       logging.Logger
	owner     *Snapshot
	suspended bool
}

func NewGuard(engine Engine, log logging.Logger) *Guard {
	return &Guard{engine: engine, log: logging.OrNop(log).With("module", "enforcement")}
}

// Activate restricts p. Activating the current owner again is a no-op;
// activating another profile while one is owned fails with
// common.ErrEnforcementBusy.
func (g *Guard) Activate(ctx context.Context, p models.Profile) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner != nil {
		if g.owner.ProfileID != p.ID {
			return fmt.Errorf("%w: owned by %s", common.ErrEnforcementBusy, g.owner.ProfileID)
		}
		if !g.suspended {
			return nil
		}
	}

	snap := SnapshotOf(p)
	if err := g.engine.Activate(ctx, snap); err != nil {
		return fmt.Errorf("activate restrictions: %w", err)
	}
	g.owner = &snap
	g.suspended = false
	g.log.Info(ctx, "restrictions activated", "profile_id", p.ID)
	return nil
}

// Deactivate releases the engine if profileID owns it; otherwise it does nothing.
func (g *Guard) Deactivate(ctx context.Context, profileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner == nil || g.owner.ProfileID != profileID {
		return nil
	}
	if !g.suspended {
		if err := g.engine.Deactivate(ctx); err != nil {
			return fmt.Errorf("deactivate restrictions: %w", err)
		}
	}
	g.owner = nil
	g.suspended = false
	g.log.Info(ctx, "restrictions deactivated", "profile_id", profileID)
	return nil
}

// Suspend lifts restrictions for profileID while keeping ownership.
func (g *Guard) Suspend(ctx context.Context, profileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner == nil || g.owner.ProfileID != profileID {
		return fmt.Errorf("suspend %s: %w", profileID, common.ErrNoActiveSession)
	}
	if g.suspended {
		return nil
	}
	if err := g.engine.Deactivate(ctx); err != nil {
		return fmt.Errorf("suspend restrictions: %w", err)
	}
	g.suspended = true
	g.log.Info(ctx, "restrictions suspended", "profile_id", profileID)
	return nil
}

// Resume re-applies the owner's restrictions after Suspend.
func (g *Guard) Resume(ctx context.Context, profileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.owner == nil || g.owner.ProfileID != profileID {
		return fmt.Errorf("resume %s: %w", profileID, common.ErrNoActiveSession)
	}
	if !g.suspended {
		return nil
	}
	if err := g.engine.Activate(ctx, *g.owner); err != nil {
		return fmt.Errorf("resume restrictions: %w", err)
	}
	g.suspended = false
	g.log.Info(ctx, "restrictions resumed", "profile_id", profileID)
	return nil
}

// Owner returns the owning profile id, if any.
func (g *Guard) Owner() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == nil {
		return "", false
	}
	return g.owner.ProfileID, true
}

// Enforcing reports whether restrictions are currently applied.
func (g *Guard) Enforcing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner != nil && !g.suspended
}
