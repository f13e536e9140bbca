package implementation

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"studyhub-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *NoteCanvasSQLiteRepository {
	t.Helper()
	repo, err := OpenNoteCanvasSQLite(filepath.Join(t.TempDir(), "canvas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_FindMissing(t *testing.T) {
	repo := openSQLite(t)

	got, err := repo.FindByUserID(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_UpsertIsLastWriteWins(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &entity.NoteCanvasState{UserId: "u1", Data: json.RawMessage(`{"nextId":1}`)})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	second, err := repo.Upsert(ctx, &entity.NoteCanvasState{UserId: "u1", Data: json.RawMessage(`{"nextId":7}`)})
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.JSONEq(t, `{"nextId":7}`, string(second.Data))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteRepository_EmptyDataStoredAsObject(t *testing.T) {
	repo := openSQLite(t)

	got, err := repo.Upsert(context.Background(), &entity.NoteCanvasState{UserId: "u1"})

	require.NoError(t, err)
	assert.Equal(t, "{}", string(got.Data))
}

func TestSQLiteRepository_ListAndDelete(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		_, err := repo.Upsert(ctx, &entity.NoteCanvasState{UserId: u, Data: json.RawMessage(`{}`)})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].UserId)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].UserId)

	require.NoError(t, repo.DeleteByUserID(ctx, "b"))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Ping(ctx))
}
