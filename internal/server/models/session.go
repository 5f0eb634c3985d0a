package models

import "time"

// SessionRecord is the last written sync record of a profile, keyed by
// (FamilyID, ProfileID).
type SessionRecord struct {
	FamilyID       string
	ProfileID      string
	IsActive       bool
	SequenceNumber int64
	DeviceID       string
	StartTime      *time.Time
	EndTime        *time.Time
	UpdatedAt      time.Time
}
