package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "problem-relay/errors"
	"problem-relay/web/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore keeps sessions in a single JSONB table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	if connStr == "" {
		return nil, fmt.Errorf("%w: POSTGRES_DSN is empty", apperrors.ErrInvalidInput)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.WrapErrorf(apperrors.ErrServiceUnavailable, "postgres ping: %v", err)
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the required table if it does not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
            id TEXT PRIMARY KEY,
            messages JSONB NOT NULL DEFAULT '[]'::jsonb,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated_at ON chat_sessions(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, sessionID string, messages []types.Message) error {
	if sessionID == "" {
		return nil
	}
	data, err := json.Marshal(emptyIfNil(messages))
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}

	query := `
        INSERT INTO chat_sessions (id, messages, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at
    `
	if _, err := s.pool.Exec(ctx, query, sessionID, data); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "save session %s: %v", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) ([]types.Message, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT messages FROM chat_sessions WHERE id = $1`, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []types.Message{}, nil
		}
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "load session %s: %v", sessionID, err)
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "decode session %s: %v", sessionID, err)
	}
	return emptyIfNil(messages), nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "clear session %s: %v", sessionID, err)
	}
	return nil
}

// PruneOlderThan deletes sessions not written since cutoff.
func (s *PostgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
