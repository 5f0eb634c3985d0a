package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// Emergency ends the active session regardless of its stop conditions,
// after confirmation, consuming one unblock from the budget.
func (a *App) Emergency(ctx context.Context) error {
	remaining, err := a.engine.RemainingEmergencyUnblocks(ctx)
	if err != nil {
		return err
	}
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Use an emergency unblock? %d left (y/N)", remaining), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		return common.ErrScanCancelled
	}
	if err := a.engine.EmergencyUnblock(ctx); err != nil {
		return err
	}
	left, err := a.engine.RemainingEmergencyUnblocks(ctx)
	if err != nil {
		return err
	}
	a.printf("Unblocked. %d emergency unblocks left.\n", left)
	return nil
}

// Budget shows remaining emergency unblocks and the next reset.
func (a *App) Budget(ctx context.Context) error {
	remaining, err := a.engine.RemainingEmergencyUnblocks(ctx)
	if err != nil {
		return err
	}
	b, err := a.budget.Budget(ctx)
	if err != nil {
		return err
	}
	a.printf("%d of %d emergency unblocks left, resets every %d weeks (next %s)\n",
		remaining, b.Allowance, b.ResetPeriodWeeks, b.NextReset().Local().Format("2006-01-02"))
	return nil
}

// Period sets the budget reset period: period <2|4|6|8>.
func (a *App) Period(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: period <2|4|6|8>")
		return nil
	}
	weeks, err := strconv.Atoi(args[0])
	if err != nil {
		return common.ErrInvalidResetPeriod
	}
	if err := a.engine.SetResetPeriodWeeks(ctx, weeks); err != nil {
		return err
	}
	a.printf("Emergency budget now resets every %d weeks\n", weeks)
	return nil
}
