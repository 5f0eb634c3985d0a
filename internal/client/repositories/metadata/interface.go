// Package metadata stores small device-level values (device id, auth
// state, emergency budget) in a key/value table.
package metadata

import (
	"context"
)

// Repository is a key/value store. Get returns (nil, nil) for missing keys.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys.
const (
	KeyDeviceID     = "device_id"
	KeyFamily       = "family"
	KeySalt         = "salt"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// GetString is Get for text values; missing keys yield "".
func GetString(ctx context.Context, r Repository, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
