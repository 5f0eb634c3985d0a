package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
	"github.com/dmitrijs2005/gophfocus/internal/server/repositories/repomanager"
)

// SessionService stores the shared per-profile records. It performs no
// compare-and-set: the last write wins and devices reconcile by reading.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager) *SessionService {
	return &SessionService{db: db, repomanager: m}
}

func (s *SessionService) Get(ctx context.Context, familyID, profileID string) (*models.SessionRecord, error) {
	if profileID == "" {
		return nil, fmt.Errorf("%w: profile id is required", common.ErrValidation)
	}
	return s.repomanager.Sessions(s.db).Get(ctx, familyID, profileID)
}

// Put writes rec for familyID. A record without a device id is attributed
// to the calling device.
func (s *SessionService) Put(ctx context.Context, familyID, deviceID string, rec *models.SessionRecord) error {
	if rec.ProfileID == "" {
		return fmt.Errorf("%w: profile id is required", common.ErrValidation)
	}
	if rec.SequenceNumber < 0 {
		return fmt.Errorf("%w: negative sequence number", common.ErrValidation)
	}
	rec.FamilyID = familyID
	if rec.DeviceID == "" {
		rec.DeviceID = deviceID
	}
	return s.repomanager.Sessions(s.db).Put(ctx, rec)
}
