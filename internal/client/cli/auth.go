package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophfocus/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNoAccounts = errors.New("the configured sync backend has no accounts")

func (a *App) readCredentials() (string, []byte, error) {
	family, err := getSimpleText(a.reader, "Enter family name", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return family, password, nil
}

// Register prompts for a family name and password and creates the family
// on the server.
func (a *App) Register(ctx context.Context) error {
	if a.auth == nil {
		return errNoAccounts
	}
	family, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, family, password); err != nil {
		return err
	}

	printlnFn("Success! Now 'login' to link this device.")
	return nil
}

// Login links this device to a family. On success the remote state of all
// profiles is fetched right away.
func (a *App) Login(ctx context.Context) error {
	if a.auth == nil {
		return errNoAccounts
	}
	family, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, family, password); err != nil {
		if errors.Is(err, common.ErrorUnavailable) {
			a.setMode(ctx, ModeOffline)
		}
		return err
	}

	a.family = family
	a.setMode(ctx, ModeOnline)
	printlnFn("Login successful")

	if err := a.engine.RefreshAll(ctx); err != nil {
		a.log.Warn(ctx, "refresh after login failed", "error", err)
	}
	return nil
}

// Logout unlinks the device. Local profiles and sessions are kept.
func (a *App) Logout(ctx context.Context) error {
	if a.auth == nil {
		return errNoAccounts
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.family = ""
	return nil
}
