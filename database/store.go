package database

import (
	"context"
	"fmt"
	"time"

	"problem-relay/config"
	"problem-relay/web/types"

	"go.uber.org/zap"
)

// SessionStore persists the message history of a chat session. Each call is
// atomic on its own; concurrent writers to one session resolve last-write-wins.
type SessionStore interface {
	// Save replaces the stored history. An empty sessionID is ignored.
	Save(ctx context.Context, sessionID string, messages []types.Message) error
	// Load returns the stored history, or an empty list when none exists.
	// On a read or decode failure the list is still empty and non-nil.
	Load(ctx context.Context, sessionID string) ([]types.Message, error)
	// Clear deletes the session. Clearing an absent session is not an error.
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Pruner is implemented by stores that can drop sessions by age.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Open builds the store selected by SESSION_BACKEND.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SessionStore, error) {
	switch cfg.SessionBackend {
	case config.BackendFile:
		return NewFileStore(cfg.SessionsDir, logger), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.SessionRetentionAge,
		}, logger)
	case config.BackendPostgres:
		store, err := NewPostgresStore(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func emptyIfNil(messages []types.Message) []types.Message {
	if messages == nil {
		return []types.Message{}
	}
	return messages
}
