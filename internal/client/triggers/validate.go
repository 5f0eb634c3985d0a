package triggers

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// ValidationError is a single rejected profile field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

func (e ValidationErrors) Unwrap() error { return common.ErrValidation }

// Requirements describe what a blocking strategy needs from a profile.
// Start is the trigger the strategy starts with; Stop lists the methods
// it can end a session with, at least one of which must be enabled.
type Requirements struct {
	Start []models.StartOption
	Stop  []StopMethod
}

// ValidateProfile checks p against the trigger invariants and req. It
// returns nil or a ValidationErrors.
func ValidateProfile(p models.Profile, req Requirements) error {
	var errs ValidationErrors

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "must not be empty"})
	}
	if !p.StartTriggers.Any() {
		errs = append(errs, ValidationError{Field: "start_triggers", Message: "at least one start trigger is required"})
	}
	if !p.StopConditions.Any() {
		errs = append(errs, ValidationError{Field: "stop_conditions", Message: "at least one stop condition is required"})
	}

	for _, opt := range p.StopConditions.Enabled() {
		if reason := UnavailabilityReason(opt, p.StartTriggers); reason != "" {
			errs = append(errs, ValidationError{Field: "stop_conditions." + string(opt), Value: true, Message: reason})
		}
	}

	if len(req.Start) > 0 && !p.StartTriggers.Schedule && !anyStart(p.StartTriggers, req.Start) {
		errs = append(errs, ValidationError{
			Field:   "start_triggers",
			Value:   p.StrategyID,
			Message: fmt.Sprintf("strategy requires one of: %s", joinStart(req.Start)),
		})
	}
	if len(req.Stop) > 0 && !anyStop(p.StopConditions, req.Stop) {
		errs = append(errs, ValidationError{
			Field:   "stop_conditions",
			Value:   p.StrategyID,
			Message: fmt.Sprintf("strategy can only stop via: %s", joinStop(req.Stop)),
		})
	}

	if (p.StartTriggers.Schedule || p.StopConditions.Schedule) && p.Schedule == nil {
		errs = append(errs, ValidationError{Field: "schedule", Message: "schedule trigger enabled without a schedule"})
	}
	if p.Schedule != nil {
		errs = append(errs, validateSchedule(*p.Schedule)...)
	}
	if p.BreaksEnabled && p.BreakDuration <= 0 {
		errs = append(errs, ValidationError{Field: "break_duration", Value: p.BreakDuration, Message: "must be positive when breaks are enabled"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

const minutesPerDay = 24 * 60

func validateSchedule(s models.Schedule) []ValidationError {
	var errs []ValidationError
	if len(s.Days) == 0 {
		errs = append(errs, ValidationError{Field: "schedule.days", Message: "at least one day is required"})
	}
	if s.EndMinute < 0 || s.EndMinute >= minutesPerDay {
		errs = append(errs, ValidationError{Field: "schedule.end_minute", Value: s.EndMinute, Message: "must be within a day"})
	}
	if !s.StopOnly {
		if s.StartMinute < 0 || s.StartMinute >= minutesPerDay {
			errs = append(errs, ValidationError{Field: "schedule.start_minute", Value: s.StartMinute, Message: "must be within a day"})
		} else if s.StartMinute == s.EndMinute {
			errs = append(errs, ValidationError{Field: "schedule", Message: "start and end must differ"})
		}
	}
	return errs
}

func anyStart(st models.StartTriggers, opts []models.StartOption) bool {
	for _, o := range opts {
		if st.Has(o) {
			return true
		}
	}
	return false
}

func anyStop(sc models.StopConditions, methods []StopMethod) bool {
	for _, m := range methods {
		if StopAllowed(sc, m) {
			return true
		}
	}
	return false
}

func joinStart(opts []models.StartOption) string {
	s := make([]string, len(opts))
	for i, o := range opts {
		s[i] = string(o)
	}
	return strings.Join(s, ", ")
}

func joinStop(methods []StopMethod) string {
	s := make([]string, len(methods))
	for i, m := range methods {
		s[i] = string(m)
	}
	return strings.Join(s, ", ")
}
