package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/task"
)

const resultPrefix = "genqueue:result:"

// Store keeps terminal task results in Redis. The live queue is never
// persisted; only finished outcomes survive a restart.
type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, r *task.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := s.client.Set(ctx, key(r.TaskID), data, 0).Err(); err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*task.Result, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: id %d", queue.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	var r task.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &r, nil
}

func key(id int64) string {
	return resultPrefix + strconv.FormatInt(id, 10)
}
