package pause

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var getFlagDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "effigy_pause_flag_read_duration_ms",
	Help:    "Latency of halt-flag reads in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const pauseFlagKey = "effigy:pause"

// RedisStore shares the halt flag across registry instances. This is the
// production-recommended implementation for multi-instance deployments:
// pause() on one instance must halt transfers everywhere.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed halt flag store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get reads the flag. A missing key means unpaused, matching the flag's
// default-false semantics.
func (s *RedisStore) Get(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		getFlagDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	val, err := s.client.Get(ctx, pauseFlagKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// Set writes the flag. The key is deleted rather than set to "0" on unpause
// so a fresh deployment and an unpaused one look identical.
func (s *RedisStore) Set(ctx context.Context, paused bool) error {
	if paused {
		return s.client.Set(ctx, pauseFlagKey, "1", 0).Err()
	}
	return s.client.Del(ctx, pauseFlagKey).Err()
}
