// Package sessions stores the latest session sync record of every profile
// of a family.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophfocus/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the profile has no record.
	Get(ctx context.Context, familyID, profileID string) (*models.SessionRecord, error)

	// Put overwrites the record unconditionally. Ordering between devices is
	// the clients' concern, expressed through the sequence number.
	Put(ctx context.Context, rec *models.SessionRecord) error
}
