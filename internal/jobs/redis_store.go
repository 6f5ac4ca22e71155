package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "job:"

// RedisStore keeps job records in Redis with a fixed expiry. The expiry is
// refreshed on every update, so a job disappears only after it has been idle
// for the full TTL. Reads of expired records report ErrNotFound, same as for
// ids that never existed.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	// Per-id mutexes serialize the read-modify-write in Update. This process
	// is the only writer for its jobs, so local locking is sufficient.
	locks sync.Map
}

// NewRedisStore creates a store backed by the given Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create job in redis: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job from redis: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*Job) error) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := mutate(job); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write job to redis: %w", err)
	}

	s.logger.Debug("Job record written to redis",
		slog.String("job_id", id),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

func (s *RedisStore) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}
