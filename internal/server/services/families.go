package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/cryptox"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
	"github.com/dmitrijs2005/gophfocus/internal/server/auth"
	"github.com/dmitrijs2005/gophfocus/internal/server/config"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
	"github.com/dmitrijs2005/gophfocus/internal/server/repositories/repomanager"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// FamilyService registers families and issues device tokens.
type FamilyService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewFamilyService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *FamilyService {
	return &FamilyService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func (s *FamilyService) Register(ctx context.Context, name string, salt, verifier []byte) (*models.Family, error) {
	if name == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, fmt.Errorf("%w: family name, salt and verifier are required", common.ErrValidation)
	}

	family, err := s.repomanager.Families(s.db).Create(ctx, &models.Family{
		Name:     name,
		Salt:     salt,
		Verifier: verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating family: %w", err)
	}

	return family, nil
}

// GetSalt returns a random salt for unknown families so callers cannot
// tell which names exist.
func (s *FamilyService) GetSalt(ctx context.Context, name string) ([]byte, error) {
	family, err := s.repomanager.Families(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return cryptox.NewSalt(), nil
		}
		return nil, common.ErrorInternal
	}

	return family.Salt, nil
}

func (s *FamilyService) Login(ctx context.Context, name, deviceID string, verifierCandidate []byte) (*TokenPair, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", common.ErrValidation)
	}

	family, err := s.repomanager.Families(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if subtle.ConstantTimeCompare(family.Verifier, verifierCandidate) != 1 {
		return nil, common.ErrorUnauthorized
	}

	return s.generateTokenPair(ctx, s.db, family.ID, deviceID)
}

// RefreshToken rotates a refresh token: the old one is deleted and a new
// pair is issued for the same family device.
func (s *FamilyService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		p, err := s.generateTokenPair(ctx, tx, token.FamilyID, token.DeviceID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

func (s *FamilyService) generateTokenPair(ctx context.Context, db dbx.DBTX, familyID, deviceID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(familyID, deviceID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, familyID, deviceID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
