// Package triggers holds the pure rules tying start triggers to stop
// conditions: which stop options are selectable, how dependent flags are
// repaired after a start trigger changes, which stop methods a profile
// permits, and whole-profile validation.
package triggers

import (
	"github.com/dmitrijs2005/gophfocus/internal/client/models"
)

type requirement struct {
	satisfied func(models.StartTriggers) bool
	reason    string
}

// Stop options missing from this table are always available.
var dependencies = map[models.StopOption]requirement{
	models.StopSameNFC: {
		satisfied: models.StartTriggers.NFC,
		reason:    "requires an NFC start trigger (any or specific tag)",
	},
	models.StopSameQR: {
		satisfied: models.StartTriggers.QR,
		reason:    "requires a QR start trigger (any or specific code)",
	},
}

// IsStopOptionAvailable reports whether opt may be selected given st.
func IsStopOptionAvailable(opt models.StopOption, st models.StartTriggers) bool {
	req, ok := dependencies[opt]
	return !ok || req.satisfied(st)
}

// UnavailabilityReason explains why opt is not selectable, or returns ""
// when it is.
func UnavailabilityReason(opt models.StopOption, st models.StartTriggers) string {
	req, ok := dependencies[opt]
	if !ok || req.satisfied(st) {
		return ""
	}
	return req.reason
}

// RepairStopConditions clears every stop flag that is no longer available
// under st and returns the options it cleared.
func RepairStopConditions(st models.StartTriggers, sc *models.StopConditions) []models.StopOption {
	var cleared []models.StopOption
	for _, opt := range models.AllStopOptions {
		if sc.Has(opt) && !IsStopOptionAvailable(opt, st) {
			sc.Set(opt, false)
			cleared = append(cleared, opt)
		}
	}
	return cleared
}

// SetStartTrigger changes one start trigger on p and synchronously repairs
// its stop conditions. It returns the stop options that were cleared.
func SetStartTrigger(p *models.Profile, opt models.StartOption, enabled bool) ([]models.StopOption, error) {
	if !p.StartTriggers.Set(opt, enabled) {
		return nil, ValidationErrors{{Field: "start_triggers", Value: opt, Message: "unknown start trigger"}}
	}
	return RepairStopConditions(p.StartTriggers, &p.StopConditions), nil
}

// SetStopCondition enables or disables a stop condition, refusing to
// enable one that is unavailable.
func SetStopCondition(p *models.Profile, opt models.StopOption, enabled bool) error {
	if enabled {
		if reason := UnavailabilityReason(opt, p.StartTriggers); reason != "" {
			return ValidationErrors{{Field: "stop_conditions." + string(opt), Value: enabled, Message: reason}}
		}
	}
	if !p.StopConditions.Set(opt, enabled) {
		return ValidationErrors{{Field: "stop_conditions", Value: opt, Message: "unknown stop condition"}}
	}
	return nil
}
