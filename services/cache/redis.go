// Package cachesvc caches built week views in Redis, falling back to no caching when Redis is unavailable.
package cachesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/week"
)

const (
	DefaultWeekTTL = 10 * time.Minute

	invalidateTimeout = 2 * time.Second

	keyWeek = "cronograma:cache:week:" // + owner_id:gen:monday:today
	keyGen  = "cronograma:cache:gen:"  // + owner_id
)

// RedisCache is a schedule.WeekCache on Redis.
// With disableOnError, the first Redis error disables it until restart.
type RedisCache struct {
	client         *redis.Client
	ttl            time.Duration
	disableOnError bool
	logger         core.Logger

	mu       sync.RWMutex
	disabled bool
}

var _ schedule.WeekCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis. When the ping fails, the returned cache is disabled.
func NewRedisCache(conf *core.Config, logger core.Logger) *RedisCache {
	ttl := conf.Redis.WeekTTL
	if ttl <= 0 {
		ttl = DefaultWeekTTL
	}
	c := &RedisCache{ttl: ttl, disableOnError: conf.Redis.DisableOnError, logger: logger}
	if !conf.Redis.Enabled {
		c.disabled = true
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn(fmt.Sprintf("redis cache unavailable, running without caching: %v", err))
		_ = client.Close()
		c.disabled = true
		return c
	}

	logger.Info("redis cache initialized on " + conf.Redis.Addr)
	c.client = client
	return c
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *RedisCache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError ignores misses and errors of aborted requests.
func (c *RedisCache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if !c.disableOnError {
		c.logger.Warn(fmt.Sprintf("redis cache %s error: %v", operation, err), errors.WithStack(err))
		return
	}

	c.mu.Lock()
	wasDisabled := c.disabled
	c.disabled = true
	c.mu.Unlock()
	if !wasDisabled {
		c.logger.Warn(fmt.Sprintf("disabling redis cache after %s error: %v", operation, err), errors.WithStack(err))
	}
}

func genKey(ownerID string) string {
	return keyGen + ownerID
}

func weekKey(ownerID string, gen int64, monday, today week.Date) string {
	return keyWeek + ownerID + ":" + strconv.FormatInt(gen, 10) + ":" + monday.String() + ":" + today.String()
}

// Generation returns 0 for owners that were never invalidated.
func (c *RedisCache) Generation(ctx context.Context, ownerID string) int64 {
	if !c.IsAvailable() {
		return 0
	}

	gen, err := c.client.Get(ctx, genKey(ownerID)).Int64()
	if err != nil {
		c.handleError(err, "generation")
		return 0
	}
	return gen
}

func (c *RedisCache) GetWeek(ctx context.Context, ownerID string, gen int64, monday, today week.Date) (schedule.WeekView, bool) {
	if !c.IsAvailable() {
		return schedule.WeekView{}, false
	}

	data, err := c.client.Get(ctx, weekKey(ownerID, gen, monday, today)).Bytes()
	if err != nil {
		c.handleError(err, "get")
		return schedule.WeekView{}, false
	}
	var view schedule.WeekView
	if err := json.Unmarshal(data, &view); err != nil {
		c.logger.Debug(fmt.Sprintf("unmarshaling cached week: %v", err))
		return schedule.WeekView{}, false
	}
	return view, true
}

func (c *RedisCache) SetWeek(ctx context.Context, ownerID string, gen int64, view schedule.WeekView) {
	if !c.IsAvailable() {
		return
	}

	data, err := json.Marshal(view)
	if err != nil {
		c.logger.Error(fmt.Sprintf("marshaling week: %v", err), err)
		return
	}
	if err := c.client.Set(ctx, weekKey(ownerID, gen, view.Monday, view.Today), data, c.ttl).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// InvalidateOwner bumps the owner's generation, then deletes its weeks with SCAN,
// which does not block Redis like KEYS.
func (c *RedisCache) InvalidateOwner(ctx context.Context, ownerID string) {
	if !c.IsAvailable() {
		return
	}
	// the write already happened: finish even if the request is aborted
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := c.client.Incr(ctx, genKey(ownerID)).Err(); err != nil {
		c.handleError(err, "incr")
		return
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyWeek+ownerID+":*", 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete")
				return
			}
		}
		if cursor = next; cursor == 0 {
			return
		}
	}
}
