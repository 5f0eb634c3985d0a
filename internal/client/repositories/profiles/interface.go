// Package profiles persists blocking profiles.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
)

type Repository interface {
	// Save inserts or replaces a profile by id.
	Save(ctx context.Context, p *models.Profile) error
	// Get returns common.ErrorNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Delete(ctx context.Context, id string) error
}
