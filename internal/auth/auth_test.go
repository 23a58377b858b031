package auth

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkin/zametki/internal/db"
	"github.com/avelkin/zametki/internal/testdb"
)

var testCounter atomic.Int64

func newTestDB(t testing.TB) *db.DB {
	t.Helper()
	database, err := testdb.NewInMemory(fmt.Sprintf("auth-test-%d", testCounter.Add(1)))
	require.NoError(t, err)
	return database
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()
	users := NewUserService(newTestDB(t))
	ctx := context.Background()

	user, err := users.Register(ctx, "  alice  ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotZero(t, user.ID)

	got, err := users.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Wrong password and unknown user are indistinguishable.
	_, err = users.Authenticate(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = users.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_RegisterValidation(t *testing.T) {
	t.Parallel()
	users := NewUserService(newTestDB(t))
	ctx := context.Background()

	_, err := users.Register(ctx, "bob", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = users.Register(ctx, "bob", "long enough password")
	require.NoError(t, err)

	_, err = users.Register(ctx, "bob", "another password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSessionService_Lifecycle(t *testing.T) {
	t.Parallel()
	database := newTestDB(t)
	users := NewUserService(database)
	sessions := NewSessionService(database, time.Hour, false)
	ctx := context.Background()

	user, err := users.Register(ctx, "carol", "long enough password")
	require.NoError(t, err)

	sessionID, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	userID, err := sessions.Validate(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	require.NoError(t, sessions.Delete(ctx, sessionID))
	_, err = sessions.Validate(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Expiry(t *testing.T) {
	t.Parallel()
	database := newTestDB(t)
	users := NewUserService(database)
	// Negative duration makes every session already expired.
	sessions := NewSessionService(database, -time.Minute, false)
	ctx := context.Background()

	user, err := users.Register(ctx, "dave", "long enough password")
	require.NoError(t, err)

	sessionID, err := sessions.Create(ctx, user.ID)
	require.NoError(t, err)

	_, err = sessions.Validate(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Cleanup removes the expired row entirely.
	require.NoError(t, sessions.Cleanup(ctx))
	var count int
	require.NoError(t, database.DB().QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count))
	assert.Zero(t, count)
}
