package notes

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/db"
	"github.com/avelkin/zametki/internal/testdb"
)

// testCounter provides unique names for in-memory databases so parallel
// tests never share state.
var testCounter atomic.Int64

type fataler interface {
	Fatalf(format string, args ...interface{})
}

// newTestService creates a Service backed by a fresh in-memory database.
func newTestService(t fataler) (*Service, *db.DB) {
	testID := testCounter.Add(1)
	database, err := testdb.NewInMemory(fmt.Sprintf("notes-test-%d", testID))
	if err != nil {
		t.Fatalf("failed to create in-memory database: %v", err)
	}

	store := NewStore(database)
	svc := NewService(store, NewSlugPolicy(store, nil), NewGuard())
	return svc, database
}

// mustCreateUser inserts a user row directly so tests do not pay bcrypt cost.
func mustCreateUser(t fataler, database *db.DB, username string) *auth.User {
	res, err := database.DB().Exec(
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, "not-a-real-hash", time.Now().Unix(),
	)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get user id: %v", err)
	}
	return &auth.User{ID: id, Username: username}
}

func ctxb() context.Context {
	return context.Background()
}

func mustCount(t fataler, svc *Service) int64 {
	count, err := svc.store.CountAll(ctxb())
	if err != nil {
		t.Fatalf("failed to count notes: %v", err)
	}
	return count
}
