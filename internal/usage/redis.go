package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"weatherproxy/internal/models"
)

const bucketLayout = "200601021504"

// RedisRecorder keeps per-minute counters in Redis hashes. Each bucket key
// holds "<endpoint>|<outcome>:count" and "...:duration_us" fields and expires
// after ttl, so Summary can only look back as far as ttl.
type RedisRecorder struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = ttl }
}

// NewRedisRecorder wraps an existing client. The caller keeps ownership of
// rdb only until Close, which closes it.
func NewRedisRecorder(rdb *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "weatherproxy:usage",
		ttl:    48 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRecorder) bucketKey(t time.Time) string {
	return fmt.Sprintf("%s:minute:%s", r.prefix, t.UTC().Format(bucketLayout))
}

func (r *RedisRecorder) Record(ctx context.Context, ev models.UsageEvent) error {
	at := ev.OccurredAt
	if at.IsZero() {
		at = r.now()
	}
	field := ev.Endpoint + "|" + ev.Outcome

	key := r.bucketKey(at)
	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, field+":count", 1)
	pipe.HIncrBy(ctx, key, field+":duration_us", ev.Duration.Microseconds())
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// Summary reads every minute bucket from since until now. since is clamped
// to the retention window. Buckets are whole minutes, so the result also
// includes events up to 59s older than since, unlike the memory and SQL
// recorders.
func (r *RedisRecorder) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	now := r.now().UTC()
	if r.ttl > 0 && now.Sub(since) > r.ttl {
		since = now.Add(-r.ttl)
	}

	pipe := r.rdb.Pipeline()
	var cmds []*redis.MapStringStringCmd
	for t := since.UTC().Truncate(time.Minute); !t.After(now); t = t.Add(time.Minute) {
		cmds = append(cmds, pipe.HGetAll(ctx, r.bucketKey(t)))
	}
	if len(cmds) == 0 {
		return []models.UsageSummary{}, nil
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read usage buckets: %w", err)
	}

	agg := aggregate{}
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			continue
		}
		for name, raw := range fields {
			pair, metric, ok := strings.Cut(name, ":")
			if !ok {
				continue
			}
			endpoint, outcome, ok := strings.Cut(pair, "|")
			if !ok {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			switch metric {
			case "count":
				agg.add(endpoint, outcome, n, 0)
			case "duration_us":
				agg.add(endpoint, outcome, 0, time.Duration(n)*time.Microsecond)
			}
		}
	}
	return agg.summaries(), nil
}

func (r *RedisRecorder) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRecorder) Close() error {
	return r.rdb.Close()
}
