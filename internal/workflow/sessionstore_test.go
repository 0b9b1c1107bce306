package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/llmcompass/compass/internal/ranking"
)

func openSessionStore(t *testing.T) *GormSessionStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sessions.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := NewGormSessionStore(db)
	require.NoError(t, err)
	return store
}

func TestGormSessionStore_RoundTrip(t *testing.T) {
	store := openSessionStore(t)
	ctx := context.Background()

	st := &State{
		SessionID:          "s1",
		Query:              "summarize contracts\n[Clarification]: in german",
		ClarificationCount: 1,
		IORatio:            ranking.IORatio{Input: 0.8, Output: 0.2},
		SearchQueries:      []string{"a", "b", "c"},
		Stage:              StageAwaitingClarification,
	}
	st.enter(StageAwaitingClarification, "which language?", map[string]any{"clarification_count": 1})
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, st.Query, got.Query)
	require.Equal(t, 1, got.ClarificationCount)
	require.Equal(t, StageAwaitingClarification, got.Stage)
	require.Len(t, got.Trace, 1)
}

func TestGormSessionStore_SaveOverwrites(t *testing.T) {
	store := openSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &State{SessionID: "s1", Stage: StageAwaitingClarification}))
	require.NoError(t, store.Save(ctx, &State{SessionID: "s1", Stage: StageDone}))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, StageDone, got.Stage)
}

func TestGormSessionStore_Missing(t *testing.T) {
	store := openSessionStore(t)

	_, err := store.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_CopiesOnSave(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	st := &State{SessionID: "s1", Stage: StageDone, SearchQueries: []string{"a"}}
	require.NoError(t, store.Save(ctx, st))

	// Mutating the original must not leak into the stored snapshot.
	st.SearchQueries[0] = "mutated"

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got.SearchQueries)
}
