package models

import "time"

const (
	DefaultEmergencyUnblocks = 3
	DefaultResetPeriodWeeks  = 4
)

// AllowedResetPeriods are the reset periods, in weeks, a user may choose.
var AllowedResetPeriods = []int{2, 4, 6, 8}

// EmergencyUnblockBudget limits how often a session may be ended
// bypassing its stop conditions.
type EmergencyUnblockBudget struct {
	Remaining        int       `json:"remaining"`
	Allowance        int       `json:"allowance"`
	ResetPeriodWeeks int       `json:"reset_period_weeks"`
	LastReset        time.Time `json:"last_reset"`
}

func NewEmergencyUnblockBudget(allowance int, now time.Time) EmergencyUnblockBudget {
	if allowance <= 0 {
		allowance = DefaultEmergencyUnblocks
	}
	return EmergencyUnblockBudget{
		Remaining:        allowance,
		Allowance:        allowance,
		ResetPeriodWeeks: DefaultResetPeriodWeeks,
		LastReset:        now,
	}
}

func (b EmergencyUnblockBudget) NextReset() time.Time {
	return b.LastReset.AddDate(0, 0, 7*b.ResetPeriodWeeks)
}

// ResetDue reports whether now has reached the next reset time.
func (b EmergencyUnblockBudget) ResetDue(now time.Time) bool {
	return !now.Before(b.NextReset())
}

// IsAllowedResetPeriod reports whether weeks is one of AllowedResetPeriods.
func IsAllowedResetPeriod(weeks int) bool {
	for _, w := range AllowedResetPeriods {
		if w == weeks {
			return true
		}
	}
	return false
}
