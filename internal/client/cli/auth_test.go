package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	lines := capturePrintln(t)
	stubInputs(t, "smiths", []byte("secret"))
	auth := &fakeAuth{}
	a := newTestApp(t, "", auth)

	require.NoError(t, a.Register(context.Background()))

	assert.Equal(t, "smiths", auth.regFamily)
	assert.Equal(t, []byte("secret"), auth.regPass)
	assert.Contains(t, *lines, "Success! Now 'login' to link this device.")
	assert.Empty(t, a.family)
}

func TestRegister_Error(t *testing.T) {
	capturePrintln(t)
	stubInputs(t, "smiths", []byte("secret"))
	a := newTestApp(t, "", &fakeAuth{regErr: common.ErrorAlreadyExists})

	err := a.Register(context.Background())
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestLogin(t *testing.T) {
	lines := capturePrintln(t)
	stubInputs(t, "smiths", []byte("secret"))
	auth := &fakeAuth{}
	a := newTestApp(t, "", auth)

	require.NoError(t, a.Login(context.Background()))

	assert.Equal(t, "smiths", auth.loginFamily)
	assert.Equal(t, "smiths", a.family)
	assert.Equal(t, ModeOnline, a.Mode)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, []string{"refreshall"}, a.engine.Calls())
	assert.Contains(t, *lines, "Login successful")
}

func TestLogin_Unavailable(t *testing.T) {
	capturePrintln(t)
	stubInputs(t, "smiths", []byte("secret"))
	a := newTestApp(t, "", &fakeAuth{loginErr: common.ErrorUnavailable})
	a.Mode = ModeOnline

	err := a.Login(context.Background())

	assert.ErrorIs(t, err, common.ErrorUnavailable)
	assert.Equal(t, ModeOffline, a.Mode)
	assert.Empty(t, a.family)
	assert.Empty(t, a.engine.Calls())
}

func TestLogin_RefreshFailureStillLogsIn(t *testing.T) {
	capturePrintln(t)
	stubInputs(t, "smiths", []byte("secret"))
	a := newTestApp(t, "", &fakeAuth{})
	a.engine.errs["refreshall"] = errors.New("remote down")

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "smiths", a.family)
}

func TestLogout(t *testing.T) {
	capturePrintln(t)
	auth := &fakeAuth{}
	a := newTestApp(t, "", auth)
	a.family = "smiths"

	require.NoError(t, a.Logout(context.Background()))

	assert.True(t, auth.logoutCalled)
	assert.Empty(t, a.family)
	assert.False(t, a.isLoggedIn())
}

func TestAccountCommands_NoAccounts(t *testing.T) {
	capturePrintln(t)
	a := newTestApp(t, "", nil)
	ctx := context.Background()

	assert.ErrorIs(t, a.Register(ctx), errNoAccounts)
	assert.ErrorIs(t, a.Login(ctx), errNoAccounts)
	assert.ErrorIs(t, a.Logout(ctx), errNoAccounts)
}
