package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultQueueKey = "queue:notify"

type TaskType string

const (
	TaskInvoiceEmail TaskType = "invoice_email"
	TaskCancelEmail  TaskType = "cancel_email"
)

// Task is one queued side-effect job. Side effects run strictly after the
// appointment write commits, so a lost or failed task never affects
// appointment state.
type Task struct {
	Type          TaskType  `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Attempt       int       `json:"attempt"`
}

// TaskQueue is the producer side used by the appointment service.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
}

// RedisTaskQueue is a Redis list used as a work queue: LPUSH to enqueue,
// BRPOP to consume.
type RedisTaskQueue struct {
	client *redis.Client
	key    string
}

func NewRedisTaskQueue(client *redis.Client, key string) *RedisTaskQueue {
	if key == "" {
		key = defaultQueueKey
	}
	return &RedisTaskQueue{client: client, key: key}
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Dequeue blocks up to the given duration for the next task. Returns
// (nil, nil) when the wait times out with an empty queue.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, block time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, block, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("dequeue task: unexpected BRPOP reply of length %d", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// Len reports the number of pending tasks, used by health reporting.
func (q *RedisTaskQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
