package client

import (
	"context"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
)

// Client is the family sync server as seen by a device.
type Client interface {
	Close() error
	Register(ctx context.Context, family string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, family string) ([]byte, error)
	Login(ctx context.Context, family string, verifier []byte) error
	Ping(ctx context.Context) error
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	HasSession() bool

	Get(ctx context.Context, profileID string) (models.SessionSyncRecord, error)
	Put(ctx context.Context, rec models.SessionSyncRecord) error
}

var _ Client = (*GRPCClient)(nil)
