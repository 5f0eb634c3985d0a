// Package refreshtokens declares the server-side repository contract for
// refresh tokens issued to family devices.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/server/models"
)

type Repository interface {
	// Create stores a token for one device of a family, expiring at now+validity.
	Create(ctx context.Context, familyID, deviceID, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error
}
