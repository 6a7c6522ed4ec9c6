// internal/movelog/movelog.go

// Package movelog pushes accepted moves onto a Redis list so the offline
// game-logging/training pipeline can drain them at its own pace.
package movelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lanegames/gamesvc/internal/session"
)

// DefaultQueueName is the Redis list the move records are pushed to.
const DefaultQueueName = "game_moves"

// Recorder implements session.MoveLogger on top of a Redis list.
type Recorder struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes the Redis client and verifies the connection.
func Connect(addr string, db int, queue string) (*Recorder, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Recorder{rdb: rdb, queue: queue}, nil
}

// RecordMove serializes the record to JSON and pushes it onto the queue.
// This only blocks for the duration of one network send.
func (r *Recorder) RecordMove(ctx context.Context, rec session.MoveRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal move record: %w", err)
	}
	if err := r.rdb.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("rpush to redis list %q: %w", r.queue, err)
	}
	return nil
}

func (r *Recorder) Close() error { return r.rdb.Close() }
