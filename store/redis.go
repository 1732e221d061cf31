package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/chatflow/core"
)

// Redis is a ThreadStore backed by Redis. It uses a simple key structure:
//
//	<prefix>thread:<id>  => JSON-encoded record payload
//	<prefix>idx:threads  => SET of all thread ids
//
// The index is best-effort; List filters out ids whose payload has vanished.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ core.ThreadStore = (*Redis)(nil)

// RedisOptions configure the Redis store.
type RedisOptions struct {
	// Prefix namespaces every key. Defaults to "chatflow:".
	Prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, optFns ...func(o *RedisOptions)) *Redis {
	opts := RedisOptions{
		Prefix: "chatflow:",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Redis{
		client: client,
		prefix: opts.Prefix,
	}
}

// redisThreadPayload is the stored wire form. Kept separate from
// core.ThreadRecord so the Redis layout can evolve independently.
type redisThreadPayload struct {
	ThreadID  string          `json:"thread_id"`
	Workflow  string          `json:"workflow"`
	State     json.RawMessage `json:"state"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

func (r *Redis) keyThread(id string) string {
	return r.prefix + "thread:" + id
}

func (r *Redis) keyIndex() string {
	return r.prefix + "idx:threads"
}

// Get implements core.ThreadStore.
func (r *Redis) Get(ctx context.Context, threadID string) (*core.ThreadRecord, error) {
	data, err := r.client.Get(ctx, r.keyThread(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	return decodeRedisPayload(data)
}

// Upsert implements core.ThreadStore. The creation timestamp of an existing
// record survives replacement.
func (r *Redis) Upsert(ctx context.Context, rec core.ThreadRecord) error {
	now := time.Now().UTC().UnixNano()

	payload := redisThreadPayload{
		ThreadID:  rec.ThreadID,
		Workflow:  rec.Workflow,
		State:     rec.State,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := r.Get(ctx, rec.ThreadID); err == nil {
		payload.CreatedAt = existing.CreatedAt.UnixNano()
	} else if !errors.Is(err, core.ErrThreadNotFound) {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", rec.ThreadID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keyThread(rec.ThreadID), data, 0)
	pipe.SAdd(ctx, r.keyIndex(), rec.ThreadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert thread %s: %w", rec.ThreadID, err)
	}

	return nil
}

// List implements core.ThreadStore. Records are ordered by thread id.
func (r *Redis) List(ctx context.Context) ([]core.ThreadRecord, error) {
	ids, err := r.client.SMembers(ctx, r.keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var records []core.ThreadRecord
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrThreadNotFound) {
				continue // stale index entry
			}
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, nil
}

// Ping implements core.ThreadStore.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements core.ThreadStore.
func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeRedisPayload(data []byte) (*core.ThreadRecord, error) {
	var payload redisThreadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode thread payload: %w", err)
	}

	return &core.ThreadRecord{
		ThreadID:  payload.ThreadID,
		Workflow:  payload.Workflow,
		State:     payload.State,
		CreatedAt: time.Unix(0, payload.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, payload.UpdatedAt).UTC(),
	}, nil
}
