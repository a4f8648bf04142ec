package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const (
	defaultRedisPrefix = "storefront:session"
	redisOpTimeout     = 3 * time.Second
)

// RedisStore keeps each session as a Redis hash with TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(addr, password string, ttl time.Duration) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("session redis addr is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: defaultRedisPrefix,
		ttl:    ttl,
	}, nil
}

// Get loads a session. A missing or expired key is reported as not found.
func (s *RedisStore) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	vals, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domain.Session{}, false, err
	}
	if len(vals) == 0 {
		return domain.Session{}, false, nil
	}
	return domain.Session{
		ID:       id,
		Token:    vals["token"],
		Username: vals["username"],
	}, true, nil
}

// Save writes token and username and refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, sess domain.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	key := s.key(sess.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "token", sess.Token, "username", sess.Username)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Clear removes the whole session record.
func (s *RedisStore) Clear(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}
