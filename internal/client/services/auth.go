// Package services contains application services for the GophFocus client.
// This file defines the family authentication service: register, login,
// session restore on start-up and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfocus/internal/client/client"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/cryptox"
	"github.com/dmitrijs2005/gophfocus/internal/dbx"
)

// ErrNotLoggedIn is returned by Restore when no tokens are stored.
var ErrNotLoggedIn = errors.New("device is not linked to a family")

// AuthService links this device to a family account on the sync server.
//
// Contract:
//   - Register: create a family with a salt and password verifier.
//   - Login: authenticate this device and persist family and tokens.
//   - Restore: reinstall persisted tokens into the client.
//   - SaveTokens: persist a refreshed token pair.
//   - Logout: forget family and tokens; device id and budget survive.
//   - Ping / Close: liveness and teardown of the underlying client.
type AuthService interface {
	Register(ctx context.Context, family string, password []byte) error
	Login(ctx context.Context, family string, password []byte) error
	Restore(ctx context.Context) (string, error)
	SaveTokens(ctx context.Context, access, refresh string) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// Register generates a random salt, derives the master key from the
// password and sends salt and verifier to the server.
func (a *authService) Register(ctx context.Context, family string, password []byte) error {
	if family == "" || len(password) == 0 {
		return common.ErrValidation
	}
	salt := cryptox.NewSalt()
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	if err := a.client.Register(ctx, family, salt, verifier); err != nil {
		return err
	}
	return nil
}

// Login fetches the family salt, proves knowledge of the password and
// stores family, salt and the issued tokens in one transaction.
func (a *authService) Login(ctx context.Context, family string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, family)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	verifier := cryptox.MakeVerifier(cryptox.DeriveMasterKey(password, salt))

	if err := a.client.Login(ctx, family, verifier); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	access, refresh := a.client.Tokens()
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyFamily, []byte(family)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeySalt, salt); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyAccessToken, []byte(access)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyRefreshToken, []byte(refresh))
	})
}

// Restore returns the stored family name after installing its tokens.
func (a *authService) Restore(ctx context.Context) (string, error) {
	repo := a.getMetadataRepo(a.db)

	family, err := metadata.GetString(ctx, repo, metadata.KeyFamily)
	if err != nil {
		return "", err
	}
	access, err := metadata.GetString(ctx, repo, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	refresh, err := metadata.GetString(ctx, repo, metadata.KeyRefreshToken)
	if err != nil {
		return "", err
	}
	if family == "" || refresh == "" {
		return "", ErrNotLoggedIn
	}

	a.client.SetTokens(access, refresh)
	return family, nil
}

func (a *authService) SaveTokens(ctx context.Context, access, refresh string) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyAccessToken, []byte(access)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyRefreshToken, []byte(refresh))
	})
}

func (a *authService) Logout(ctx context.Context) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		for _, k := range []string{metadata.KeyFamily, metadata.KeySalt, metadata.KeyAccessToken, metadata.KeyRefreshToken} {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.client.SetTokens("", "")
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
