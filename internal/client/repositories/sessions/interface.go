// Package sessions persists local focus sessions.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
)

// Repository stores sessions. Lookups of a missing session return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetActive(ctx context.Context, profileID string) (*models.Session, error)
	ListActive(ctx context.Context) ([]models.Session, error)
	ListRecent(ctx context.Context, profileID string, limit int) ([]models.Session, error)
}
