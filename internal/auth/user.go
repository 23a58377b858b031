// Package auth provides user accounts, sessions, and authentication middleware.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/avelkin/zametki/internal/db"
)

// Errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// User represents a user account. Identity is the numeric id; the notes core
// compares actors by id only and never creates or destroys users.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// UserService handles user management operations.
type UserService struct {
	db *db.DB
}

// NewUserService creates a new user service.
func NewUserService(database *db.DB) *UserService {
	return &UserService{db: database}
}

// Register creates a new account with username/password.
// Returns ErrUsernameTaken if the username is already in use.
func (s *UserService) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.DB().ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, string(hash), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &User{ID: id, Username: username, CreatedAt: now}, nil
}

// Authenticate verifies username/password and returns the user on success.
// Returns ErrInvalidCredentials for both unknown users and wrong passwords so
// callers cannot distinguish the two.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var (
		user User
		hash string
		ts   int64
	)
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username),
	).Scan(&user.ID, &user.Username, &hash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway to keep timing comparable.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.CreatedAt = time.Unix(ts, 0).UTC()
	return &user, nil
}

// GetByID returns the user with the given id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*User, error) {
	var (
		user User
		ts   int64
	)
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Username, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	user.CreatedAt = time.Unix(ts, 0).UTC()
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
