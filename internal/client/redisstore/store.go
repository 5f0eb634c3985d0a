// Package redisstore keeps session sync records in Redis, one JSON value per
// profile under a family-scoped key prefix.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/go-redis/redis/v8"
)

// KV is the subset of *redis.Client the store needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(o Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
}

func Ping(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

type Store struct {
	kv     KV
	prefix string
}

func NewStore(kv KV, prefix string) *Store {
	if prefix == "" {
		prefix = "gophfocus"
	}
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) key(profileID string) string {
	return s.prefix + ":session:" + profileID
}

func (s *Store) Get(ctx context.Context, profileID string) (models.SessionSyncRecord, error) {
	val, err := s.kv.Get(ctx, s.key(profileID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.SessionSyncRecord{}, common.ErrorNotFound
		}
		return models.SessionSyncRecord{}, fmt.Errorf("%w: redis get: %v", common.ErrorUnavailable, err)
	}

	var rec models.SessionSyncRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.SessionSyncRecord{}, fmt.Errorf("decode record %s: %w", profileID, err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, rec models.SessionSyncRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ProfileID, err)
	}
	if err := s.kv.Set(ctx, s.key(rec.ProfileID), string(b), 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", common.ErrorUnavailable, err)
	}
	return nil
}
