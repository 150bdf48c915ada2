package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	readyKey   = "logjobs:ready"
	delayedKey = "logjobs:delayed"

	// popTimeout bounds each blocking pop so Dequeue can promote due
	// delayed jobs and observe context cancellation between waits.
	popTimeout = time.Second
)

// RedisConfig configures the Redis queue backend.
type RedisConfig struct {
	Address  string
	Password string
	Database int
}

// RedisQueue is a durable job queue on Redis: a ready list consumed
// with blocking pops plus a sorted set of delayed jobs scored by their
// due time.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client}, nil
}

// Close releases the Redis connection pool.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue makes the job immediately available to workers.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, readyKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// EnqueueAfter schedules the job to become available once delay has
// elapsed.
func (q *RedisQueue) EnqueueAfter(ctx context.Context, job Job, delay time.Duration) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, delayedKey, redis.Z{Score: due, Member: payload}).Err(); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available or the context ends. Due
// delayed jobs are promoted to the ready list before each wait.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		if err := q.promoteDue(ctx); err != nil {
			return Job{}, err
		}

		result, err := q.client.BRPop(ctx, popTimeout, readyKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return Job{}, fmt.Errorf("failed to dequeue job: %w", err)
		}

		// BRPop returns [key, payload].
		return decodeJob(result[1])
	}
}

func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	for _, payload := range due {
		removed, err := q.client.ZRem(ctx, delayedKey, payload).Result()
		if err != nil {
			return fmt.Errorf("failed to promote delayed job: %w", err)
		}
		// Another worker may have promoted it first.
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, readyKey, payload).Err(); err != nil {
			return fmt.Errorf("failed to promote delayed job: %w", err)
		}
	}

	return nil
}
