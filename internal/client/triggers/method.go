package triggers

import "github.com/dmitrijs2005/gophfocus/internal/client/models"

// StopMethod is how a stop request reached the device.
type StopMethod string

const (
	MethodManual   StopMethod = "manual"
	MethodTimer    StopMethod = "timer"
	MethodNFC      StopMethod = "nfc"
	MethodQR       StopMethod = "qr"
	MethodSchedule StopMethod = "schedule"
	MethodDeepLink StopMethod = "deep_link"

	// MethodEmergency bypasses stop conditions; StopAllowed never grants it.
	MethodEmergency StopMethod = "emergency"
)

// StopAllowed reports whether sc permits ending a session via m.
func StopAllowed(sc models.StopConditions, m StopMethod) bool {
	switch m {
	case MethodManual:
		return sc.Manual
	case MethodTimer:
		return sc.Timer
	case MethodNFC:
		return sc.AnyNFC || sc.SpecificNFC || sc.SameNFC
	case MethodQR:
		return sc.AnyQR || sc.SpecificQR || sc.SameQR
	case MethodSchedule:
		return sc.Schedule
	case MethodDeepLink:
		return sc.DeepLink
	}
	return false
}

// StartAllowed reports whether st permits starting via o.
func StartAllowed(st models.StartTriggers, o models.StartOption) bool {
	return st.Has(o)
}

// AnyStartAllowed reports whether st enables at least one of opts.
func AnyStartAllowed(st models.StartTriggers, opts []models.StartOption) bool {
	for _, o := range opts {
		if StartAllowed(st, o) {
			return true
		}
	}
	return false
}
