package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"linkedin-pipeline/internal/domain"
)

// RedisLocker реализует domain.RunLocker через SetNX.
type RedisLocker struct {
	client *redis.Client
}

var _ domain.RunLocker = (*RedisLocker)(nil)

// NewRedisLocker создаёт локер.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire захватывает блокировку; false — ключ уже занят.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

// Release освобождает блокировку.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// Once выполняет функцию, если ключ ещё не задан. Используется
// планировщиком для идемпотентности слотов расписания.
func (l *RedisLocker) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := fn(); err != nil {
		_ = l.client.Del(ctx, key).Err()
		return err
	}
	return nil
}
