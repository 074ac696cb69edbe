package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tasktrail/domain"
)

// Cache wraps a Backend with Redis-backed caching of the board reads issued
// on bootstrap. Every write for a user evicts that user's entries.
type Cache struct {
	Backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Backend: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.load(ctx, tasksCacheKey(userID), &tasks) {
		return tasks, nil
	}
	tasks, err := c.Backend.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasksCacheKey(userID), tasks)
	return tasks, nil
}

func (c *Cache) ListStatuses(ctx context.Context, userID string) ([]domain.Status, error) {
	var statuses []domain.Status
	if c.load(ctx, statusesCacheKey(userID), &statuses) {
		return statuses, nil
	}
	statuses, err := c.Backend.ListStatuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, statusesCacheKey(userID), statuses)
	return statuses, nil
}

func (c *Cache) EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error) {
	statuses, err := c.Backend.EnsureDefaultStatuses(ctx, userID, names)
	if err != nil {
		return nil, err
	}
	c.store(ctx, statusesCacheKey(userID), statuses)
	return statuses, nil
}

func (c *Cache) CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	t, err := c.Backend.CreateTask(ctx, userID, in)
	c.evict(ctx, userID)
	return t, err
}

func (c *Cache) CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error) {
	tasks, err := c.Backend.CreateTasks(ctx, userID, in)
	c.evict(ctx, userID)
	return tasks, err
}

func (c *Cache) UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error) {
	t, err := c.Backend.UpdateTask(ctx, userID, taskID, upd)
	c.evict(ctx, userID)
	return t, err
}

func (c *Cache) DeleteTask(ctx context.Context, userID, taskID string) error {
	err := c.Backend.DeleteTask(ctx, userID, taskID)
	c.evict(ctx, userID)
	return err
}

func (c *Cache) CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error) {
	s, err := c.Backend.CreateStatus(ctx, userID, name, order)
	c.evict(ctx, userID)
	return s, err
}

func (c *Cache) UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error) {
	s, err := c.Backend.UpdateStatus(ctx, userID, statusID, upd)
	c.evict(ctx, userID)
	return s, err
}

func (c *Cache) DeleteStatus(ctx context.Context, userID, statusID string) error {
	err := c.Backend.DeleteStatus(ctx, userID, statusID)
	c.evict(ctx, userID)
	return err
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// evict also follows failed writes, which may have been applied.
func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(userID), statusesCacheKey(userID)).Result()
}

func tasksCacheKey(userID string) string {
	return "tasks:" + userID
}

func statusesCacheKey(userID string) string {
	return "statuses:" + userID
}
