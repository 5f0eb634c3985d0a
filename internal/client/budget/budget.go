// Package budget persists and enforces the emergency unblock allowance.
package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
)

const metadataKey = "emergency_budget"

// Store is the key/value persistence the budget lives in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Policy is an external authority that may forbid emergency unblocks.
type Policy interface {
	EmergencyUnblockAllowed(ctx context.Context) (bool, error)
}

// AllowAll never forbids.
type AllowAll struct{}

func (AllowAll) EmergencyUnblockAllowed(context.Context) (bool, error) { return true, nil }

// Manager applies the budget rules. The reset is applied lazily whenever
// the budget is read.
type Manager struct {
	mu        sync.Mutex
	store     Store
	clock     timex.Clock
	allowance int
}

func NewManager(store Store, clock timex.Clock, allowance int) *Manager {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	if allowance <= 0 {
		allowance = models.DefaultEmergencyUnblocks
	}
	return &Manager{store: store, clock: clock, allowance: allowance}
}

// Budget returns the current budget after applying any due reset.
func (m *Manager) Budget(ctx context.Context) (models.EmergencyUnblockBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// Remaining returns how many emergency unblocks are left.
func (m *Manager) Remaining(ctx context.Context) (int, error) {
	b, err := m.Budget(ctx)
	if err != nil {
		return 0, err
	}
	return b.Remaining, nil
}

// Consume uses one unblock or fails with common.ErrBudgetExhausted.
func (m *Manager) Consume(ctx context.Context) (models.EmergencyUnblockBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.load(ctx)
	if err != nil {
		return b, err
	}
	if b.Remaining <= 0 {
		return b, fmt.Errorf("%w until %s", common.ErrBudgetExhausted, b.NextReset().Format("2006-01-02"))
	}
	b.Remaining--
	return b, m.save(ctx, b)
}

// Refund gives back one unblock taken by Consume, never above the allowance.
func (m *Manager) Refund(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.load(ctx)
	if err != nil {
		return err
	}
	if b.Remaining >= b.Allowance {
		return nil
	}
	b.Remaining++
	return m.save(ctx, b)
}

// SetResetPeriodWeeks changes the reset period; weeks must be 2, 4, 6 or 8.
func (m *Manager) SetResetPeriodWeeks(ctx context.Context, weeks int) error {
	if !models.IsAllowedResetPeriod(weeks) {
		return fmt.Errorf("%w: got %d", common.ErrInvalidResetPeriod, weeks)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.load(ctx)
	if err != nil {
		return err
	}
	b.ResetPeriodWeeks = weeks
	return m.save(ctx, b)
}

func (m *Manager) load(ctx context.Context) (models.EmergencyUnblockBudget, error) {
	now := m.clock.Now()

	raw, err := m.store.Get(ctx, metadataKey)
	if err != nil {
		return models.EmergencyUnblockBudget{}, fmt.Errorf("load budget: %w", err)
	}
	if raw == nil {
		b := models.NewEmergencyUnblockBudget(m.allowance, now)
		return b, m.save(ctx, b)
	}

	var b models.EmergencyUnblockBudget
	if err := json.Unmarshal(raw, &b); err != nil {
		return models.EmergencyUnblockBudget{}, fmt.Errorf("decode budget: %w", err)
	}
	if !models.IsAllowedResetPeriod(b.ResetPeriodWeeks) {
		b.ResetPeriodWeeks = models.DefaultResetPeriodWeeks
	}
	if b.Allowance <= 0 {
		b.Allowance = m.allowance
	}

	if b.ResetDue(now) {
		b.Remaining = b.Allowance
		b.LastReset = now
		if err := m.save(ctx, b); err != nil {
			return b, err
		}
	}
	return b, nil
}

func (m *Manager) save(ctx context.Context, b models.EmergencyUnblockBudget) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode budget: %w", err)
	}
	if err := m.store.Set(ctx, metadataKey, raw); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}
