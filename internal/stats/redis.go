package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder keeps a cumulative hash of outcomes plus one hash per day,
// so counters survive restarts and are shared between replicas.
type RedisRecorder struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type RedisOption func(*RedisRecorder)

func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) { r.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry of the daily hashes. The total never expires.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

func NewRedisRecorder(rdb *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "cafe:submissions",
		ttl:    30 * 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRecorder) totalKey() string {
	return r.prefix + ":total"
}

func (r *RedisRecorder) Record(ctx context.Context, outcome Outcome) error {
	dayKey := fmt.Sprintf("%s:day:%s", r.prefix, r.now().UTC().Format("20060102"))

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.totalKey(), string(outcome), 1)
	pipe.HIncrBy(ctx, dayKey, string(outcome), 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, dayKey, r.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRecorder) Counts(ctx context.Context) (map[Outcome]int64, error) {
	raw, err := r.rdb.HGetAll(ctx, r.totalKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read submission counts: %w", err)
	}

	out := make(map[Outcome]int64, len(raw))
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse count %s: %w", field, err)
		}
		out[Outcome(field)] = n
	}
	return out, nil
}
