package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLiteSaveRepository {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "empire.db"), 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteSaveRepository(db)
}

// saveRepoContract runs the behaviour every SaveRepository must share.
func saveRepoContract(t *testing.T, repo SaveRepository) {
	ctx := context.Background()

	_, err := repo.Load(ctx, "default")
	assert.ErrorIs(t, err, ErrSaveNotFound)

	require.NoError(t, repo.Save(ctx, "default", []byte(`{"data":1}`)))
	require.NoError(t, repo.Save(ctx, "default", []byte(`{"data":2}`)))
	require.NoError(t, repo.Save(ctx, "other", []byte(`{"data":3}`)))

	got, err := repo.Load(ctx, "default")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":2}`, string(got))

	require.NoError(t, repo.Delete(ctx, "default"))
	require.NoError(t, repo.Delete(ctx, "default"), "deleting twice is fine")
	_, err = repo.Load(ctx, "default")
	assert.ErrorIs(t, err, ErrSaveNotFound)

	got, err = repo.Load(ctx, "other")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":3}`, string(got))
}

func TestSaveRepositories(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		saveRepoContract(t, newSQLite(t))
	})
	t.Run("file", func(t *testing.T) {
		repo, err := NewFileSaveRepository(t.TempDir())
		require.NoError(t, err)
		saveRepoContract(t, repo)
	})
	t.Run("memory", func(t *testing.T) {
		saveRepoContract(t, NewMemorySaveRepository())
	})
}

func TestFileSaveRepository_RejectsPathSlots(t *testing.T) {
	repo, err := NewFileSaveRepository(t.TempDir())
	require.NoError(t, err)

	for _, slot := range []string{"", "..", "../escape", `a\b`} {
		assert.ErrorIs(t, repo.Save(context.Background(), slot, []byte("{}")), ErrInvalidSlot, slot)
	}
}

// eventRepoContract runs the behaviour every EventRepository must share.
func eventRepoContract(t *testing.T, repo EventRepository) {
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)
	events := []GameEvent{
		{ID: "1", Slot: "default", Timestamp: base, EventType: "ENTITY_HIRED", ActorID: "PLAYER", TargetID: "tech1", Payload: map[string]interface{}{"cost": 25.0}},
		{ID: "2", Slot: "default", Timestamp: base.Add(time.Minute), EventType: "FEATURE_UNLOCKED", ActorID: "SYSTEM", Payload: map[string]interface{}{"feature": "managersPanel"}},
		{ID: "3", Slot: "other", Timestamp: base.Add(time.Minute), EventType: "GAME_RESET", ActorID: "PLAYER", Payload: map[string]interface{}{}},
	}
	for _, e := range events {
		require.NoError(t, repo.Append(ctx, e))
	}

	all, err := repo.GetBySlot(ctx, "default")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, 25.0, all[0].Payload["cost"])
	assert.True(t, base.Equal(all[0].Timestamp))

	byActor, err := repo.GetByActorID(ctx, "default", "SYSTEM")
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "2", byActor[0].ID)

	byType, err := repo.GetByEventType(ctx, "other", "GAME_RESET")
	require.NoError(t, err)
	assert.Len(t, byType, 1)

	since, err := repo.GetSince(ctx, "default", base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "2", since[0].ID)

	require.NoError(t, repo.DeleteSlot(ctx, "default"))
	all, err = repo.GetBySlot(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, all)
	other, err := repo.GetBySlot(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestEventRepositories(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := InitSQLite(filepath.Join(t.TempDir(), "empire.db"), 1, 1)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		eventRepoContract(t, NewSQLiteEventRepository(db))
	})
	t.Run("memory", func(t *testing.T) {
		eventRepoContract(t, NewMemoryEventRepository())
	})
}

func TestRecap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepository()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, GameEvent{ID: "a", Slot: "s", Timestamp: now.Add(-2 * time.Hour), EventType: "ENTITY_HIRED", TargetID: "tech1", Payload: map[string]interface{}{"cost": 2500.0}}))
	require.NoError(t, repo.Append(ctx, GameEvent{ID: "b", Slot: "s", Timestamp: now.Add(-time.Hour), EventType: "OFFLINE_PROGRESS", Payload: map[string]interface{}{"amount": 15000.0}}))
	require.NoError(t, repo.Append(ctx, GameEvent{ID: "c", Slot: "s", Timestamp: now.Add(-time.Minute), EventType: "GAME_RESET"}))

	recap := NewRecap(repo)
	recap.now = func() time.Time { return now }

	t.Run("summaries", func(t *testing.T) {
		got, err := recap.Generate(ctx, "s", time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Hired tech1 for 2,500 GB.", got[0].Summary)
		assert.Equal(t, "2 hours ago", got[0].Ago)
		assert.Equal(t, "Generated 15,000 GB while you were away.", got[1].Summary)
		assert.Equal(t, "POSITIVE", got[1].Impact)
		assert.Equal(t, "NEGATIVE", got[2].Impact)
	})

	t.Run("limit keeps the newest", func(t *testing.T) {
		got, err := recap.Generate(ctx, "s", time.Time{}, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "GAME_RESET", got[0].EventType)
	})

	t.Run("offline total", func(t *testing.T) {
		total, err := recap.OfflineTotal(ctx, "s", now.Add(-90*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 15000.0, total)
	})
}
