package rates

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedConverter keeps spot rates in redis for a TTL so checkout does not
// hit the FX upstream on every payment-intent request. Cache errors fall
// through to the upstream fetch.
type CachedConverter struct {
	rdb      *redis.Client
	upstream Converter
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCachedConverter(rdb *redis.Client, upstream Converter, ttl time.Duration, logger *slog.Logger) *CachedConverter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedConverter{rdb: rdb, upstream: upstream, ttl: ttl, logger: logger}
}

func (c *CachedConverter) GetRate(ctx context.Context, base, target string) (float64, error) {
	key := "fx:" + base + ":" + target

	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if rate, perr := strconv.ParseFloat(v, 64); perr == nil && rate > 0 {
			return rate, nil
		}
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "rate cache read failed", "key", key, "err", err)
	}

	rate, err := c.upstream.GetRate(ctx, base, target)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "rate cache write failed", "key", key, "err", err)
	}
	return rate, nil
}
