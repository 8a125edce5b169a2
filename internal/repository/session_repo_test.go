package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockbridge/server/internal/db"
	"github.com/sockbridge/server/internal/model"
)

func TestSessionRepository(t *testing.T) {
	database, err := db.InitDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	repo := NewSessionRepository(database)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	record := &model.Session{
		ID:        "abc-123",
		Transport: "xhr-polling",
		Status:    model.SessionStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, repo.Create(ctx, record))

	got, err := repo.GetByID(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", got.ID)
	assert.Equal(t, "xhr-polling", got.Transport)
	assert.Equal(t, model.SessionStatusOpen, got.Status)
	assert.Nil(t, got.ClosedAt)

	count, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.MarkClosed(ctx, "abc-123", model.CloseReasonIdle))

	got, err = repo.GetByID(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, got.Status)
	assert.Equal(t, model.CloseReasonIdle, got.CloseReason)
	require.NotNil(t, got.ClosedAt)

	count, err = repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sessions)
}

func TestGetByIDNotFound(t *testing.T) {
	// InitDB is process-wide; this returns the connection opened by the
	// first test to run.
	database, err := db.InitDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	repo := NewSessionRepository(database)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestMarkClosedNotFound(t *testing.T) {
	database, err := db.InitDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	repo := NewSessionRepository(database)
	err = repo.MarkClosed(context.Background(), "missing", model.CloseReasonStopped)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}
