package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskhub/taskhub/internal/domain/task"
)

// TaskListCache keeps recent task list pages in redis. Invalidation is by a
// per-user version counter baked into every key: any task write bumps the
// counter, orphaning the old keys (they expire on their own TTL). A nil
// *TaskListCache is a no-op, so callers don't branch on whether redis is
// configured.
type TaskListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewTaskListCache(cfg Config) *TaskListCache {
	if cfg.Addr == "" {
		return nil
	}

	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &TaskListCache{rdb: rdb, ttl: cfg.TTL}
}

func (c *TaskListCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}

	return c.rdb.Ping(ctx).Err()
}

func (c *TaskListCache) Close() error {
	if c == nil {
		return nil
	}

	return c.rdb.Close()
}

func (c *TaskListCache) Get(ctx context.Context, ownerID string, filter task.ListTasksFilter) (task.ListResult, bool) {
	if c == nil {
		return task.ListResult{}, false
	}

	key, err := c.listKey(ctx, ownerID, filter)

	if err != nil {
		return task.ListResult{}, false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()

	if err != nil {
		return task.ListResult{}, false
	}

	var res task.ListResult

	if err := json.Unmarshal(raw, &res); err != nil {
		return task.ListResult{}, false
	}

	return res, true
}

func (c *TaskListCache) Set(ctx context.Context, ownerID string, filter task.ListTasksFilter, res task.ListResult) {
	if c == nil {
		return
	}

	key, err := c.listKey(ctx, ownerID, filter)

	if err != nil {
		return
	}

	raw, err := json.Marshal(res)

	if err != nil {
		return
	}

	// best effort; a miss next time just hits the repo
	c.rdb.Set(ctx, key, raw, c.ttl)
}

// Invalidate bumps the owner's version so every cached page for that user
// stops matching. Call it after any task write.
func (c *TaskListCache) Invalidate(ctx context.Context, ownerID string) {
	if c == nil {
		return
	}

	c.rdb.Incr(ctx, versionKey(ownerID))
}

func (c *TaskListCache) listKey(ctx context.Context, ownerID string, filter task.ListTasksFilter) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey(ownerID)).Int64()

	if err != nil && err != redis.Nil {
		return "", err
	}

	status := ""

	if filter.Status != nil {
		status = string(*filter.Status)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	return fmt.Sprintf("tasks:list:v%d:u=%s:page=%d:limit=%d:status=%s:q=%s",
		ver, ownerID, filter.Page, filter.Limit, status, search), nil
}

func versionKey(ownerID string) string {
	return "tasks:ver:u=" + ownerID
}
