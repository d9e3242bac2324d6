package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

const summaryKeyPrefix = "rollcall:summary:"

// CacheSummary stores the daily attendance summary JSON under a short TTL
// so repeated summary reads skip the event-log query.
func (r *Redis) CacheSummary(ctx context.Context, day string, v any, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, summaryKeyPrefix+day, payload, ttl).Err()
}

// CachedSummary loads a cached summary into out. Returns false on a miss
// or any redis error; callers fall back to the database.
func (r *Redis) CachedSummary(ctx context.Context, day string, out any) bool {
	if r == nil || r.Client == nil {
		return false
	}
	payload, err := r.Client.Get(ctx, summaryKeyPrefix+day).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, out) == nil
}
