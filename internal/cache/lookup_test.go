package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeyNormalises(t *testing.T) {
	assert.Equal(t, "tutorcenter:lookup:nimal@example.com", key("  Nimal@Example.COM "))
	assert.Equal(t, key("200012345678"), key("200012345678 "))
}

// An unreachable server degrades to cache misses without panicking.
func TestLookupUnreachableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewLookup(client, time.Minute, nil)
	ctx := context.Background()
	l.Set(ctx, "111", "s-1")
	_, ok := l.Get(ctx, "111")
	assert.False(t, ok)
	l.Delete(ctx, "111")
}
