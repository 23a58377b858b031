package notes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkin/zametki/internal/errs"
)

func TestStore_InsertAndGet(t *testing.T) {
	t.Parallel()
	svc, database := newTestService(t)
	store := svc.store
	author := mustCreateUser(t, database, "author")

	note := &Note{Title: "First", Text: "body", Slug: "first", AuthorID: author.ID}
	id, err := store.Insert(ctxb(), note)
	require.NoError(t, err)
	assert.Equal(t, id, note.ID)
	assert.False(t, note.CreatedAt.IsZero())

	byID, err := store.GetByID(ctxb(), id)
	require.NoError(t, err)
	assert.Equal(t, "First", byID.Title)
	assert.Equal(t, "body", byID.Text)
	assert.Equal(t, author.ID, byID.AuthorID)

	bySlug, err := store.GetBySlug(ctxb(), "first")
	require.NoError(t, err)
	assert.Equal(t, id, bySlug.ID)

	holderID, taken, err := store.FindIDBySlug(ctxb(), "first")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.Equal(t, id, holderID)

	_, taken, err = store.FindIDBySlug(ctxb(), "missing")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestStore_InsertDuplicateSlug(t *testing.T) {
	t.Parallel()
	svc, database := newTestService(t)
	store := svc.store
	author := mustCreateUser(t, database, "author")

	_, err := store.Insert(ctxb(), &Note{Title: "First", Slug: "dup", AuthorID: author.ID})
	require.NoError(t, err)

	// The UNIQUE constraint is the backstop behind the policy pre-check and
	// reports the same conflict message.
	_, err = store.Insert(ctxb(), &Note{Title: "Second", Slug: "dup", AuthorID: author.ID})
	require.Error(t, err)
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))
	assert.Equal(t, "dup"+SlugWarning, errs.MessageOf(err))

	count, err := store.CountAll(ctxb())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_ListOrdering(t *testing.T) {
	t.Parallel()
	svc, database := newTestService(t)
	store := svc.store
	author := mustCreateUser(t, database, "author")
	other := mustCreateUser(t, database, "other")

	// Interleave two authors; per-author listings must still come back in
	// ascending id order.
	for i := 0; i < 15; i++ {
		owner := author
		if i%3 == 0 {
			owner = other
		}
		_, err := store.Insert(ctxb(), &Note{
			Title:    fmt.Sprintf("Note %d", i),
			Slug:     fmt.Sprintf("note-%d", i),
			AuthorID: owner.ID,
		})
		require.NoError(t, err)
	}

	listed, err := store.ListByAuthor(ctxb(), author.ID)
	require.NoError(t, err)
	require.Len(t, listed, 10)
	for i := 1; i < len(listed); i++ {
		assert.Less(t, listed[i-1].ID, listed[i].ID)
		assert.Equal(t, author.ID, listed[i].AuthorID)
	}

	all, err := store.ListAll(ctxb())
	require.NoError(t, err)
	require.Len(t, all, 15)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestStore_Update(t *testing.T) {
	t.Parallel()
	svc, database := newTestService(t)
	store := svc.store
	author := mustCreateUser(t, database, "author")

	note := &Note{Title: "Original", Text: "old", Slug: "original", AuthorID: author.ID}
	_, err := store.Insert(ctxb(), note)
	require.NoError(t, err)
	_, err = store.Insert(ctxb(), &Note{Title: "Taken", Slug: "taken", AuthorID: author.ID})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctxb(), note.ID, "Changed", "new", "changed"))

	updated, err := store.GetByID(ctxb(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.Title)
	assert.Equal(t, "new", updated.Text)
	assert.Equal(t, "changed", updated.Slug)
	assert.Equal(t, author.ID, updated.AuthorID)

	// Moving onto another note's slug conflicts and leaves the row alone.
	err = store.Update(ctxb(), note.ID, "Changed", "new", "taken")
	require.Error(t, err)
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))

	unchanged, err := store.GetByID(ctxb(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", unchanged.Slug)

	// Updating a missing id is not-found.
	err = store.Update(ctxb(), 9999, "x", "y", "z")
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	svc, database := newTestService(t)
	store := svc.store
	author := mustCreateUser(t, database, "author")

	note := &Note{Title: "Doomed", Slug: "doomed", AuthorID: author.ID}
	_, err := store.Insert(ctxb(), note)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctxb(), note.ID))

	_, err = store.GetByID(ctxb(), note.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	err = store.Delete(ctxb(), note.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}
