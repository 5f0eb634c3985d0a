// Package models defines the device-side data model: profiles with their
// trigger configuration, local focus sessions, the remote sync record and
// the emergency unblock budget.
package models

import (
	"time"
)

// StartOption names one start trigger flag.
type StartOption string

const (
	StartManual      StartOption = "manual"
	StartAnyNFC      StartOption = "any_nfc"
	StartSpecificNFC StartOption = "specific_nfc"
	StartAnyQR       StartOption = "any_qr"
	StartSpecificQR  StartOption = "specific_qr"
	StartSchedule    StartOption = "schedule"
	StartDeepLink    StartOption = "deep_link"
)

// AllStartOptions lists start options in display order.
var AllStartOptions = []StartOption{
	StartManual, StartAnyNFC, StartSpecificNFC, StartAnyQR, StartSpecificQR, StartSchedule, StartDeepLink,
}

// StopOption names one stop condition flag.
type StopOption string

const (
	StopManual      StopOption = "manual"
	StopTimer       StopOption = "timer"
	StopAnyNFC      StopOption = "any_nfc"
	StopSpecificNFC StopOption = "specific_nfc"
	StopSameNFC     StopOption = "same_nfc"
	StopAnyQR       StopOption = "any_qr"
	StopSpecificQR  StopOption = "specific_qr"
	StopSameQR      StopOption = "same_qr"
	StopSchedule    StopOption = "schedule"
	StopDeepLink    StopOption = "deep_link"
)

// AllStopOptions lists stop options in display order.
var AllStopOptions = []StopOption{
	StopManual, StopTimer, StopAnyNFC, StopSpecificNFC, StopSameNFC,
	StopAnyQR, StopSpecificQR, StopSameQR, StopSchedule, StopDeepLink,
}

// StartTriggers is the set of events allowed to start a session.
type StartTriggers struct {
	Manual      bool `json:"manual"`
	AnyNFC      bool `json:"any_nfc"`
	SpecificNFC bool `json:"specific_nfc"`
	AnyQR       bool `json:"any_qr"`
	SpecificQR  bool `json:"specific_qr"`
	Schedule    bool `json:"schedule"`
	DeepLink    bool `json:"deep_link"`
}

func (t *StartTriggers) flag(o StartOption) *bool {
	switch o {
	case StartManual:
		return &t.Manual
	case StartAnyNFC:
		return &t.AnyNFC
	case StartSpecificNFC:
		return &t.SpecificNFC
	case StartAnyQR:
		return &t.AnyQR
	case StartSpecificQR:
		return &t.SpecificQR
	case StartSchedule:
		return &t.Schedule
	case StartDeepLink:
		return &t.DeepLink
	}
	return nil
}

// Has reports whether o is enabled. Unknown options are never enabled.
func (t StartTriggers) Has(o StartOption) bool {
	if f := t.flag(o); f != nil {
		return *f
	}
	return false
}

// Set toggles o and reports whether o is a known option. Callers that
// mutate start triggers must repair stop conditions afterwards.
func (t *StartTriggers) Set(o StartOption, v bool) bool {
	f := t.flag(o)
	if f == nil {
		return false
	}
	*f = v
	return true
}

// Any reports whether at least one trigger is enabled.
func (t StartTriggers) Any() bool {
	for _, o := range AllStartOptions {
		if t.Has(o) {
			return true
		}
	}
	return false
}

// NFC reports whether any NFC start trigger is enabled.
func (t StartTriggers) NFC() bool { return t.AnyNFC || t.SpecificNFC }

// QR reports whether any QR start trigger is enabled.
func (t StartTriggers) QR() bool { return t.AnyQR || t.SpecificQR }

// Enabled returns the enabled options in display order.
func (t StartTriggers) Enabled() []StartOption {
	var out []StartOption
	for _, o := range AllStartOptions {
		if t.Has(o) {
			out = append(out, o)
		}
	}
	return out
}

// StopConditions is the set of events allowed to end a session.
type StopConditions struct {
	Manual      bool `json:"manual"`
	Timer       bool `json:"timer"`
	AnyNFC      bool `json:"any_nfc"`
	SpecificNFC bool `json:"specific_nfc"`
	SameNFC     bool `json:"same_nfc"`
	AnyQR       bool `json:"any_qr"`
	SpecificQR  bool `json:"specific_qr"`
	SameQR      bool `json:"same_qr"`
	Schedule    bool `json:"schedule"`
	DeepLink    bool `json:"deep_link"`
}

func (c *StopConditions) flag(o StopOption) *bool {
	switch o {
	case StopManual:
		return &c.Manual
	case StopTimer:
		return &c.Timer
	case StopAnyNFC:
		return &c.AnyNFC
	case StopSpecificNFC:
		return &c.SpecificNFC
	case StopSameNFC:
		return &c.SameNFC
	case StopAnyQR:
		return &c.AnyQR
	case StopSpecificQR:
		return &c.SpecificQR
	case StopSameQR:
		return &c.SameQR
	case StopSchedule:
		return &c.Schedule
	case StopDeepLink:
		return &c.DeepLink
	}
	return nil
}

func (c StopConditions) Has(o StopOption) bool {
	if f := c.flag(o); f != nil {
		return *f
	}
	return false
}

func (c *StopConditions) Set(o StopOption, v bool) bool {
	f := c.flag(o)
	if f == nil {
		return false
	}
	*f = v
	return true
}

func (c StopConditions) Any() bool {
	for _, o := range AllStopOptions {
		if c.Has(o) {
			return true
		}
	}
	return false
}

func (c StopConditions) Enabled() []StopOption {
	var out []StopOption
	for _, o := range AllStopOptions {
		if c.Has(o) {
			out = append(out, o)
		}
	}
	return out
}

// Schedule is a daily window, in minutes since local midnight, on the
// listed weekdays. A StopOnly schedule never starts a session; only
// EndMinute is used.
type Schedule struct {
	Days        []time.Weekday `json:"days"`
	StartMinute int            `json:"start_minute"`
	EndMinute   int            `json:"end_minute"`
	StopOnly    bool           `json:"stop_only"`
}

// OnDay reports whether d is a scheduled day.
func (s Schedule) OnDay(d time.Weekday) bool {
	for _, day := range s.Days {
		if day == d {
			return true
		}
	}
	return false
}

// Profile is a named blocking policy.
type Profile struct {
	ID         string
	Name       string
	StrategyID string

	// Restricted apps and web domains handed to the enforcement engine.
	Apps    []string
	Domains []string

	StartTriggers  StartTriggers
	StopConditions StopConditions

	// PinnedToken, when set, is the only tag/code that may unblock the profile.
	PinnedToken string

	BreaksEnabled bool
	BreakDuration time.Duration

	// TimerDuration is the default for timer-based strategies.
	TimerDuration time.Duration

	Schedule *Schedule

	// ScheduleUpdatedAt is when the schedule was last (re)registered.
	ScheduleUpdatedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
