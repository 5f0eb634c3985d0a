// Package families declares the server-side repository contract for family
// accounts.
package families

import (
	"context"

	"github.com/dmitrijs2005/gophfocus/internal/server/models"
)

type Repository interface {
	// Create inserts the family and fills in its generated ID. A taken name
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, family *models.Family) (*models.Family, error)

	// GetByName returns common.ErrorNotFound when no family has that name.
	GetByName(ctx context.Context, name string) (*models.Family, error)
}
