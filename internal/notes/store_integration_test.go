package notes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-api/internal/errs"
	"github.com/kuitang/notes-api/internal/notes"
	"github.com/kuitang/notes-api/internal/testdb"
)

func TestStore_PostgresLifecycle(t *testing.T) {
	store := notes.NewStore(testdb.Open(t))
	ctx := context.Background()

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	var ids []int64
	for _, title := range []string{"first", "second", "third"} {
		n, err := store.Create(ctx, notes.NoteInput{Title: title, Content: "body"})
		require.NoError(t, err)
		assert.False(t, n.CreatedAt.IsZero())
		ids = append(ids, n.ID)
	}
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])

	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{list[0].ID, list[1].ID, list[2].ID})

	before, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	updated, err := store.Update(ctx, ids[0], notes.NoteInput{Title: "renamed", Content: "changed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, before.CreatedAt.Equal(updated.CreatedAt))

	require.NoError(t, store.Delete(ctx, ids[0]))
	assert.True(t, errs.Is(store.Delete(ctx, ids[0]), errs.NotFound))
	_, err = store.Get(ctx, ids[0])
	assert.True(t, errs.Is(err, errs.NotFound))

	// Deleted ids are never reissued.
	n, err := store.Create(ctx, notes.NoteInput{Title: "fourth", Content: "body"})
	require.NoError(t, err)
	assert.Greater(t, n.ID, ids[2])
}
