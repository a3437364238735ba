// Package cache holds the Redis-backed student lookup cache.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "tutorcenter:lookup:"

// Lookup maps lookup tokens (nic, email, id) to student ids in Redis.
// Failures are logged and treated as misses.
type Lookup struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewLookup returns a cache with entries that expire after ttl.
func NewLookup(client *redis.Client, ttl time.Duration, log *zap.Logger) *Lookup {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lookup{client: client, ttl: ttl, log: log}
}

// key normalises the token so emails hit regardless of case.
func key(token string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(token))
}

func (l *Lookup) Get(ctx context.Context, token string) (string, bool) {
	id, err := l.client.Get(ctx, key(token)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.log.Warn("lookup cache get", zap.Error(err))
		}
		return "", false
	}
	return id, true
}

func (l *Lookup) Set(ctx context.Context, token, studentID string) {
	if err := l.client.Set(ctx, key(token), studentID, l.ttl).Err(); err != nil {
		l.log.Warn("lookup cache set", zap.Error(err))
	}
}

func (l *Lookup) Delete(ctx context.Context, token string) {
	if err := l.client.Del(ctx, key(token)).Err(); err != nil {
		l.log.Warn("lookup cache delete", zap.Error(err))
	}
}
