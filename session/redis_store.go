package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "session:"
	redisSessionIndex  = "sessions:index"
)

// RedisStore is a Redis-backed Store, for sharing session state across
// multiple processes running the same client identifier (e.g. a pool of
// worker processes taking turns holding one MQTT connection). Session
// records are marshaled as JSON; PebbleStore uses cbor instead since its
// records never leave the local process.
type RedisStore struct {
	client *redis.Client
	mu     sync.RWMutex
	closed bool
	ttl    time.Duration
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Options  *redis.Options
}

// NewRedisStore dials addr (or uses Options if given) and verifies
// connectivity with a PING before returning.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	var client *redis.Client
	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: config.TTL}, nil
}

func makeRedisKey(clientID string) string { return redisSessionPrefix + clientID }

func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	value, err := json.Marshal(sessionToData(sess))
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	key := makeRedisKey(sess.GetClientID())
	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, value, r.ttl)
	pipe.SAdd(ctx, redisSessionIndex, sess.GetClientID())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, clientID string) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	value, err := r.client.Get(ctx, makeRedisKey(clientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return dataToSession(&data), nil
}

func (r *RedisStore) Delete(ctx context.Context, clientID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, makeRedisKey(clientID))
	pipe.SRem(ctx, redisSessionIndex, clientID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false, ErrStoreClosed
	}
	count, err := r.client.Exists(ctx, makeRedisKey(clientID)).Result()
	if err != nil {
		return false, fmt.Errorf("session: exists: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}
	members, err := r.client.SMembers(ctx, redisSessionIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	return members, nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrStoreClosed
	}
	r.closed = true
	return r.client.Close()
}

func (r *RedisStore) Count(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return 0, ErrStoreClosed
	}
	count, err := r.client.SCard(ctx, redisSessionIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("session: count: %w", err)
	}
	return count, nil
}

func (r *RedisStore) CountByState(ctx context.Context, state State) (int64, error) {
	clientIDs, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, clientID := range clientIDs {
		sess, err := r.Load(ctx, clientID)
		if err != nil {
			continue
		}
		if sess.GetState() == state {
			count++
		}
	}
	return count, nil
}

// Flush removes every session this store knows about. Intended for test
// setup/teardown, not production use.
func (r *RedisStore) Flush(ctx context.Context) error {
	clientIDs, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(clientIDs) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, clientID := range clientIDs {
		pipe.Del(ctx, makeRedisKey(clientID))
	}
	pipe.Del(ctx, redisSessionIndex)
	_, err = pipe.Exec(ctx)
	return err
}
