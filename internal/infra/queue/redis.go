package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"linkedin-pipeline/internal/domain"
)

// RedisWorkflowQueue реализует очередь задач на базе Redis lists.
type RedisWorkflowQueue struct {
	client *redis.Client
	key    string
}

var _ domain.WorkflowQueue = (*RedisWorkflowQueue)(nil)

// NewRedisWorkflowQueue создаёт очередь по указанному ключу.
func NewRedisWorkflowQueue(client *redis.Client, key string) *RedisWorkflowQueue {
	return &RedisWorkflowQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisWorkflowQueue) Enqueue(ctx context.Context, job domain.WorkflowJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisWorkflowQueue) Pop(ctx context.Context) (domain.WorkflowJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.WorkflowJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.WorkflowJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.WorkflowJob{}, err
		}
		if len(res) != 2 {
			return domain.WorkflowJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.WorkflowJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.WorkflowJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
