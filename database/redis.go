package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "problem-relay/errors"
	"problem-relay/web/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires idle sessions; zero keeps them forever.
	TTL time.Duration
}

// RedisStore keeps each session as one JSON string value.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.WrapErrorf(apperrors.ErrServiceUnavailable, "redis ping %s: %v", opts.Addr, err)
	}
	logger.Info("Connected to redis session store", zap.String("addr", opts.Addr))
	return newRedisStoreWithClient(client, opts, logger), nil
}

func newRedisStoreWithClient(client *redis.Client, opts RedisOptions, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: opts.KeyPrefix,
		ttl:    opts.TTL,
		logger: logger,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, messages []types.Message) error {
	if sessionID == "" {
		return nil
	}
	data, err := json.Marshal(emptyIfNil(messages))
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "redis set %s: %v", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]types.Message, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []types.Message{}, nil
		}
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "redis get %s: %v", sessionID, err)
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "decode session %s: %v", sessionID, err)
	}
	return emptyIfNil(messages), nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "redis del %s: %v", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
