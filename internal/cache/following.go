package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// FolloweeLoader is the source of truth for who a user follows.
type FolloweeLoader interface {
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

// FollowingIndex caches the followee id set of each user in a Redis set.
// A nil client turns it into a pass-through to the loader.
type FollowingIndex struct {
	cache  *redis.Client
	loader FolloweeLoader
	ttl    time.Duration
}

func NewFollowingIndex(cache *redis.Client, loader FolloweeLoader, ttl time.Duration) *FollowingIndex {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FollowingIndex{cache: cache, loader: loader, ttl: ttl}
}

func followingKey(userID string) string {
	return fmt.Sprintf("following:index:%s", userID)
}

// versionKey is bumped by every Invalidate; a load that started under an older
// version must not write its result back.
func versionKey(userID string) string {
	return fmt.Sprintf("following:version:%s", userID)
}

const versionTTL = 24 * time.Hour

// IDs returns the ids followed by userID. Redis errors degrade to the loader.
func (f *FollowingIndex) IDs(ctx context.Context, userID string) ([]string, error) {
	if f.cache == nil {
		return f.loader.ListFolloweeIDs(ctx, userID)
	}

	key := followingKey(userID)
	ids, err := f.cache.SMembers(ctx, key).Result()
	if err == nil && len(ids) > 0 {
		metrics.FollowingCacheLookups.WithLabelValues("hit").Inc()
		return ids, nil
	}
	if err != nil {
		metrics.FollowingCacheLookups.WithLabelValues("error").Inc()
		logger.Warn("following index read failed", zap.String("user", userID), zap.Error(err))
	} else {
		metrics.FollowingCacheLookups.WithLabelValues("miss").Inc()
	}

	version, verr := f.version(ctx, f.cache, userID)

	ids, err = f.loader.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	// 空集合不缓存，下次仍回源；版本读取失败时不回写
	if len(ids) > 0 && verr == nil {
		if werr := f.writeBack(ctx, userID, version, ids); werr != nil && !errors.Is(werr, errStaleLoad) {
			logger.Warn("following index write failed", zap.String("user", userID), zap.Error(werr))
		}
	}
	return ids, nil
}

var errStaleLoad = errors.New("following index changed during load")

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (f *FollowingIndex) version(ctx context.Context, c getter, userID string) (int64, error) {
	v, err := c.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// writeBack stores ids only if no Invalidate happened since the load began.
func (f *FollowingIndex) writeBack(ctx context.Context, userID string, version int64, ids []string) error {
	key := followingKey(userID)
	return f.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := f.version(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SAdd(ctx, key, interfaceSlice(ids)...)
			pipe.Expire(ctx, key, f.ttl)
			return nil
		})
		return err
	}, versionKey(userID))
}

// Invalidate drops the cached set after a follow graph mutation.
func (f *FollowingIndex) Invalidate(ctx context.Context, userID string) {
	if f.cache == nil {
		return
	}
	_, err := f.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), versionTTL)
		pipe.Del(ctx, followingKey(userID))
		return nil
	})
	if err != nil {
		logger.Warn("following index invalidate failed", zap.String("user", userID), zap.Error(err))
	}
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
