package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "problem-relay/errors"
	"problem-relay/web/types"

	"go.uber.org/zap"
)

// FileStore keeps one pretty-printed JSON file per session.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *FileStore) Save(ctx context.Context, sessionID string, messages []types.Message) error {
	if sessionID == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "create sessions dir: %v", err)
	}

	data, err := json.MarshalIndent(emptyIfNil(messages), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}

	// write-then-rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, sessionID+".*.tmp")
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "create temp file: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.WrapErrorf(apperrors.ErrStorage, "write session %s: %v", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.WrapErrorf(apperrors.ErrStorage, "close session %s: %v", sessionID, err)
	}
	if err := os.Rename(tmpName, s.path(sessionID)); err != nil {
		os.Remove(tmpName)
		return apperrors.WrapErrorf(apperrors.ErrStorage, "rename session %s: %v", sessionID, err)
	}

	s.logger.Debug("Session saved",
		zap.String("session_id", sessionID),
		zap.Int("messages", len(messages)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, sessionID string) ([]types.Message, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []types.Message{}, nil
		}
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "read session %s: %v", sessionID, err)
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return []types.Message{}, apperrors.WrapErrorf(apperrors.ErrStorage, "decode session %s: %v", sessionID, err)
	}
	return emptyIfNil(messages), nil
}

func (s *FileStore) Clear(ctx context.Context, sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.WrapErrorf(apperrors.ErrStorage, "remove session %s: %v", sessionID, err)
	}
	return nil
}

// PruneOlderThan removes session files last written before cutoff.
func (s *FileStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("list sessions dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn("Failed to remove stale session file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }
