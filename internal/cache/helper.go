package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FeedStatsKey = "feed:stats"

	FeedStatsTTL = 30 * time.Second
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss or a Redis failure it calls fetch, which
// must populate dest, then stores dest with ttl on a best-effort basis.
//
// The store runs under WATCH on the key's generation counter. If Invalidate
// bumps the generation while fetch is reading, the write is dropped so a slow
// read cannot put back a value older than a finished write.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}
	if client == nil {
		return fetch()
	}

	fetched := false
	var fetchErr error
	_ = client.Watch(ctx, func(tx *redis.Tx) error {
		fetched = true
		if fetchErr = fetch(); fetchErr != nil {
			return fetchErr
		}
		b, err := json.Marshal(dest)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, generationKey(key))

	if !fetched {
		return fetch()
	}
	return fetchErr
}

// Invalidate bumps the key's generation and deletes it. Failures are ignored
// and the TTL bounds staleness.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
}

// InvalidateFeedStats drops the cached feed aggregates.
func InvalidateFeedStats(ctx context.Context) {
	Invalidate(ctx, FeedStatsKey)
}

func generationKey(key string) string {
	return key + ":gen"
}
