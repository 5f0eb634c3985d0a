// Package models defines server-side data models persisted in the database.
package models

import "time"

// Family is the account shared by all devices of one household.
type Family struct {
	ID        string
	Name      string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
