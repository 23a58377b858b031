package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/errs"
)

func TestGuard_Authenticated(t *testing.T) {
	t.Parallel()
	guard := NewGuard()

	err := guard.Authenticated(nil)
	require.Error(t, err)
	assert.Equal(t, errs.Unauthenticated, errs.CodeOf(err))

	assert.NoError(t, guard.Authenticated(&auth.User{ID: 1}))
}

func TestGuard_Authorize(t *testing.T) {
	t.Parallel()
	guard := NewGuard()
	owner := &auth.User{ID: 1}
	reader := &auth.User{ID: 2}
	note := &Note{ID: 10, AuthorID: owner.ID}

	// Unauthenticated wins over everything, even a nil note.
	assert.Equal(t, errs.Unauthenticated, errs.CodeOf(guard.Authorize(nil, note)))
	assert.Equal(t, errs.Unauthenticated, errs.CodeOf(guard.Authorize(nil, nil)))

	// The owner is allowed.
	assert.NoError(t, guard.Authorize(owner, note))

	// A non-owner gets the same not-found as a missing note.
	nonOwnerErr := guard.Authorize(reader, note)
	missingErr := guard.Authorize(reader, nil)
	assert.Equal(t, errs.NotFound, errs.CodeOf(nonOwnerErr))
	assert.Equal(t, errs.NotFound, errs.CodeOf(missingErr))
	assert.Equal(t, errs.MessageOf(missingErr), errs.MessageOf(nonOwnerErr))
}

func TestGuard_FilterOwned(t *testing.T) {
	t.Parallel()
	guard := NewGuard()
	owner := &auth.User{ID: 1}

	all := []Note{
		{ID: 1, AuthorID: 1},
		{ID: 2, AuthorID: 2},
		{ID: 3, AuthorID: 1},
		{ID: 4, AuthorID: 3},
	}

	owned := guard.FilterOwned(owner, all)
	require.Len(t, owned, 2)
	assert.Equal(t, int64(1), owned[0].ID)
	assert.Equal(t, int64(3), owned[1].ID)

	assert.Nil(t, guard.FilterOwned(nil, all))
}
