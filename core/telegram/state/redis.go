package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/intakebot/core/logger"
)

const (
	redisKeyPrefix  = "intake:session:"
	redisMaxRetries = 8
)

// ErrConflict is returned when an optimistic Redis update keeps losing races.
var ErrConflict = errors.New("state: concurrent session update")

// RedisStore keeps sessions as JSON values. Updates use WATCH/MULTI so a
// concurrent writer aborts the transaction and the callback is retried.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A positive ttl expires idle sessions.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(chatID int64) string {
	return redisKeyPrefix + strconv.FormatInt(chatID, 10)
}

// Get returns the stored session or an idle one.
func (r *RedisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	return r.load(ctx, r.client, chatID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, cmd stringGetter, chatID int64) (Session, error) {
	raw, err := cmd.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("state: redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("state: decode session: %w", err)
	}
	return sess.Clone(), nil
}

// Update applies fn under WATCH and retries when the key changes underneath.
func (r *RedisStore) Update(ctx context.Context, chatID int64, fn func(*Session) error) error {
	key := redisKey(chatID)
	txf := func(tx *redis.Tx) error {
		sess, err := r.load(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		var payload []byte
		if !sess.Empty() {
			if payload, err = json.Marshal(sess); err != nil {
				return fmt.Errorf("state: encode session: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= redisMaxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil, errors.Is(err, ErrUnchanged):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			logger.Store.Debug("session update retry",
				slog.String("event", "store.retry"),
				slog.String("driver", "redis"),
				slog.Int64("chat_id", chatID),
				slog.Int("attempt", attempt),
			)
			continue
		default:
			return err
		}
	}
	return ErrConflict
}

// Clear deletes the session key.
func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, redisKey(chatID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
