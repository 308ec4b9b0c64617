package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"tagmark/internal/domain"
)

// cacheClient is the subset of *redis.Client used by CachedFetcher.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedFetcher is a read-through Redis cache in front of another Fetcher.
// Cache failures are logged and bypassed.
type CachedFetcher struct {
	next   Fetcher
	cache  cacheClient
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedFetcher(next Fetcher, cache cacheClient, ttl time.Duration, logger *logrus.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return "tweet:" + id
}

func (f *CachedFetcher) Fetch(ctx context.Context, id string) (*domain.Tweet, error) {
	key := cacheKey(id)

	raw, err := f.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tweet domain.Tweet
		if err := json.Unmarshal(raw, &tweet); err == nil {
			return &tweet, nil
		}
		f.logger.WithField("key", key).Warn("discarding undecodable cached tweet")
	case !errors.Is(err, redis.Nil):
		f.logger.WithError(err).WithField("key", key).Warn("tweet cache read")
	}

	tweet, err := f.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(tweet)
	if err != nil {
		return tweet, nil
	}
	if err := f.cache.Set(ctx, key, encoded, f.ttl).Err(); err != nil {
		f.logger.WithError(err).WithField("key", key).Warn("tweet cache write")
	}
	return tweet, nil
}

var _ Fetcher = (*CachedFetcher)(nil)
