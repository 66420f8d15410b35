package web

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"problem-relay/config"
	"problem-relay/database"
	"problem-relay/web/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type plainStore struct{ database.SessionStore }

func TestCleanupStaleSessions(t *testing.T) {
	dir := t.TempDir()
	store := database.NewFileStore(dir, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", []types.Message{{Role: "user", Content: "x"}}))
	require.NoError(t, store.Save(ctx, "fresh", nil))

	past := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.json"), past, past))

	cs := NewCleanupService(store, zap.NewNop())
	deleted, err := cs.CleanupStaleSessions(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestCleanupSkipsStoresWithoutPruner(t *testing.T) {
	cs := NewCleanupService(plainStore{}, zap.NewNop())
	deleted, err := cs.CleanupStaleSessions(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStartSessionCleanupStopsOnCancel(t *testing.T) {
	cfg := &config.Config{CleanupEnabled: true, CleanupInterval: time.Hour, SessionRetentionAge: time.Hour}
	cs := NewCleanupService(database.NewFileStore(t.TempDir(), zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartSessionCleanup(ctx, cfg, cs, zap.NewNop())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
