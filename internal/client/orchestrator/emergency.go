package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/client/triggers"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// EmergencyUnblock ends the active session ignoring its stop conditions.
// Budget exhaustion is checked before the policy. A unit is consumed before
// the session ends and refunded if ending it fails.
func (o *Orchestrator) EmergencyUnblock(ctx context.Context) error {
	cur := o.ActiveSession()
	if cur == nil {
		return common.ErrNoActiveSession
	}
	if o.d.Budget == nil {
		return common.ErrBudgetExhausted
	}

	remaining, err := o.d.Budget.Remaining(ctx)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		o.emitError(common.ErrBudgetExhausted)
		return common.ErrBudgetExhausted
	}

	allowed, err := o.d.Policy.EmergencyUnblockAllowed(ctx)
	if err != nil {
		return fmt.Errorf("policy check: %w", err)
	}
	if !allowed {
		o.emitError(common.ErrPolicyBlocked)
		return common.ErrPolicyBlocked
	}

	e := o.lockBackground(cur.ProfileID)
	defer e.mu.Unlock()

	session, p, _, err := o.loadActive(ctx, cur.ProfileID)
	if err != nil {
		return err
	}

	b, err := o.d.Budget.Consume(ctx)
	if err != nil {
		if errors.Is(err, common.ErrBudgetExhausted) {
			o.emitError(err)
		}
		return fmt.Errorf("consume emergency unblock: %w", err)
	}
	if err := o.endSession(ctx, e, p, session, triggers.MethodEmergency, true); err != nil {
		if rerr := o.d.Budget.Refund(ctx); rerr != nil {
			o.log.Error(ctx, "refund emergency unblock failed", "profile_id", p.ID, "error", rerr)
		}
		return err
	}
	o.log.Info(ctx, "emergency unblock", "profile_id", p.ID, "remaining", b.Remaining)
	return nil
}

func (o *Orchestrator) RemainingEmergencyUnblocks(ctx context.Context) (int, error) {
	if o.d.Budget == nil {
		return 0, nil
	}
	return o.d.Budget.Remaining(ctx)
}

// SetResetPeriodWeeks accepts 2, 4, 6 or 8.
func (o *Orchestrator) SetResetPeriodWeeks(ctx context.Context, weeks int) error {
	if o.d.Budget == nil {
		return common.ErrInvalidResetPeriod
	}
	return o.d.Budget.SetResetPeriodWeeks(ctx, weeks)
}
