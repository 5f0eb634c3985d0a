package models

import "time"

type RefreshToken struct {
	ID        string
	FamilyID  string
	DeviceID  string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
