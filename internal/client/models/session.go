package models

import "time"

// Session is one contiguous period of enforcement for a profile on this device.
type Session struct {
	ID        string
	ProfileID string

	// Tag is the tag/code value that started the session, the strategy id
	// for manual starts, or "remote:<deviceId>" for adopted sessions.
	Tag string

	StartTime time.Time
	EndTime   *time.Time

	BreakStart *time.Time
	BreakEnd   *time.Time

	// ForceStarted marks sessions created without trigger matching.
	ForceStarted bool

	// Duration is the planned length for timer strategies, zero otherwise.
	Duration time.Duration

	// SequenceNumber is the last remote sequence written or adopted for this
	// session, zero when the remote write failed or never happened.
	SequenceNumber int64
}

func (s *Session) IsActive() bool {
	return s != nil && s.EndTime == nil
}

func (s *Session) IsOnBreak() bool {
	return s.IsActive() && s.BreakStart != nil && s.BreakEnd == nil
}

// BreakUsed reports whether a break was already taken and ended.
func (s *Session) BreakUsed() bool {
	return s.BreakStart != nil && s.BreakEnd != nil
}

// PlannedEnd returns StartTime+Duration and false when no duration is set.
func (s *Session) PlannedEnd() (time.Time, bool) {
	if s.Duration <= 0 {
		return time.Time{}, false
	}
	return s.StartTime.Add(s.Duration), true
}

// SessionSyncRecord is the remote, per-profile record shared by all devices
// of a family. It is created on first start and only ever updated.
type SessionSyncRecord struct {
	ProfileID      string     `json:"profileId"`
	IsActive       bool       `json:"isActive"`
	SequenceNumber int64      `json:"sequenceNumber"`
	DeviceID       string     `json:"deviceId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
}
