package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophfocus/internal/client/migrations"
	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/cryptox"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) string {
	t.Helper()
	v, err := metadata.NewSQLiteRepository(db).Get(context.Background(), k)
	require.NoError(t, err)
	return string(v)
}

// ---- fake client ----

type fakeClient struct {
	CloseErr    error
	RegisterErr error

	GetSaltRet []byte
	GetSaltErr error

	LoginErr    error
	LoginTokens [2]string

	PingErr error

	access, refresh string

	LastRegisterFamily   string
	LastRegisterSalt     []byte
	LastRegisterVerifier []byte

	LastGetSaltFamily string

	LastLoginFamily   string
	LastLoginVerifier []byte
}

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) Register(ctx context.Context, family string, salt []byte, verifier []byte) error {
	f.LastRegisterFamily = family
	f.LastRegisterSalt = append([]byte(nil), salt...)
	f.LastRegisterVerifier = append([]byte(nil), verifier...)
	return f.RegisterErr
}

func (f *fakeClient) GetSalt(ctx context.Context, family string) ([]byte, error) {
	f.LastGetSaltFamily = family
	return append([]byte(nil), f.GetSaltRet...), f.GetSaltErr
}

func (f *fakeClient) Login(ctx context.Context, family string, verifier []byte) error {
	f.LastLoginFamily = family
	f.LastLoginVerifier = append([]byte(nil), verifier...)
	if f.LoginErr == nil {
		f.access, f.refresh = f.LoginTokens[0], f.LoginTokens[1]
	}
	return f.LoginErr
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) SetTokens(access, refresh string) { f.access, f.refresh = access, refresh }

func (f *fakeClient) Tokens() (string, string) { return f.access, f.refresh }

func (f *fakeClient) HasSession() bool { return f.refresh != "" }

func (f *fakeClient) Get(ctx context.Context, profileID string) (models.SessionSyncRecord, error) {
	return models.SessionSyncRecord{}, common.ErrorNotFound
}

func (f *fakeClient) Put(ctx context.Context, rec models.SessionSyncRecord) error { return nil }

// ---- TESTS ----

func TestRegister_SendsSaltAndVerifier(t *testing.T) {
	fc := &fakeClient{}
	svc := NewAuthService(fc, setupDB(t))

	require.NoError(t, svc.Register(context.Background(), "smiths", []byte("pw")))
	require.Equal(t, "smiths", fc.LastRegisterFamily)
	require.Len(t, fc.LastRegisterSalt, cryptox.SaltSize)

	want := cryptox.MakeVerifier(cryptox.DeriveMasterKey([]byte("pw"), fc.LastRegisterSalt))
	require.Equal(t, want, fc.LastRegisterVerifier)
}

func TestRegister_Validation(t *testing.T) {
	fc := &fakeClient{}
	svc := NewAuthService(fc, setupDB(t))

	require.ErrorIs(t, svc.Register(context.Background(), "", []byte("pw")), common.ErrValidation)
	require.ErrorIs(t, svc.Register(context.Background(), "smiths", nil), common.ErrValidation)
	require.Empty(t, fc.LastRegisterFamily)
}

func TestRegister_PropagatesClientError(t *testing.T) {
	fc := &fakeClient{RegisterErr: common.ErrorAlreadyExists}
	svc := NewAuthService(fc, setupDB(t))
	require.ErrorIs(t, svc.Register(context.Background(), "smiths", []byte("pw")), common.ErrorAlreadyExists)
}

func TestLogin_PersistsFamilyAndTokens(t *testing.T) {
	db := setupDB(t)
	salt := []byte("0123456789abcdef0123456789abcdef")
	fc := &fakeClient{GetSaltRet: salt, LoginTokens: [2]string{"A", "R"}}
	svc := NewAuthService(fc, db)

	require.NoError(t, svc.Login(context.Background(), "smiths", []byte("pw")))

	require.Equal(t, "smiths", fc.LastGetSaltFamily)
	require.Equal(t, cryptox.MakeVerifier(cryptox.DeriveMasterKey([]byte("pw"), salt)), fc.LastLoginVerifier)
	require.Equal(t, "smiths", getMeta(t, db, metadata.KeyFamily))
	require.Equal(t, string(salt), getMeta(t, db, metadata.KeySalt))
	require.Equal(t, "A", getMeta(t, db, metadata.KeyAccessToken))
	require.Equal(t, "R", getMeta(t, db, metadata.KeyRefreshToken))
}

func TestLogin_Errors(t *testing.T) {
	db := setupDB(t)

	fc := &fakeClient{GetSaltErr: errors.New("down")}
	err := NewAuthService(fc, db).Login(context.Background(), "smiths", []byte("pw"))
	require.ErrorContains(t, err, "get salt error")

	fc = &fakeClient{GetSaltRet: []byte("s"), LoginErr: common.ErrorUnauthorized}
	err = NewAuthService(fc, db).Login(context.Background(), "smiths", []byte("pw"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.Empty(t, getMeta(t, db, metadata.KeyFamily))
}

func TestRestore(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	_, err := svc.Restore(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	repo := metadata.NewSQLiteRepository(db)
	require.NoError(t, repo.Set(ctx, metadata.KeyFamily, []byte("smiths")))
	require.NoError(t, svc.SaveTokens(ctx, "A", "R"))

	family, err := svc.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, "smiths", family)
	require.True(t, fc.HasSession())
	a, r := fc.Tokens()
	require.Equal(t, "A", a)
	require.Equal(t, "R", r)
}

func TestLogout_KeepsDeviceID(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{GetSaltRet: []byte("s"), LoginTokens: [2]string{"A", "R"}}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	repo := metadata.NewSQLiteRepository(db)
	require.NoError(t, repo.Set(ctx, metadata.KeyDeviceID, []byte("dev-1")))
	require.NoError(t, svc.Login(ctx, "smiths", []byte("pw")))

	require.NoError(t, svc.Logout(ctx))
	require.False(t, fc.HasSession())
	require.Empty(t, getMeta(t, db, metadata.KeyFamily))
	require.Empty(t, getMeta(t, db, metadata.KeyRefreshToken))
	require.Equal(t, "dev-1", getMeta(t, db, metadata.KeyDeviceID))
}

func TestPingAndClose_Proxy(t *testing.T) {
	fc := &fakeClient{PingErr: common.ErrorUnavailable, CloseErr: errors.New("close")}
	svc := NewAuthService(fc, setupDB(t))
	require.ErrorIs(t, svc.Ping(context.Background()), common.ErrorUnavailable)
	require.EqualError(t, svc.Close(context.Background()), "close")
}
