package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
)

const pendingKeyPrefix = "anima:selection:"

// RedisStore shares pending choices between server instances. Expiry is the
// key TTL and Take uses GETDEL so a choice is consumed once.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, userID id.UserID, siteID id.SiteID, ttl time.Duration) error {
	if err := s.client.Set(ctx, pendingKeyPrefix+userID.String(), siteID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store pending selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, userID id.UserID) (id.SiteID, error) {
	raw, err := s.client.GetDel(ctx, pendingKeyPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return id.SiteID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return id.SiteID{}, fmt.Errorf("take pending selection: %w", err)
	}
	siteID, err := id.ParseSiteID(raw)
	if err != nil {
		return id.SiteID{}, fmt.Errorf("corrupt pending selection: %w", err)
	}
	return siteID, nil
}
