package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avelkin/zametki/internal/db"
	"github.com/avelkin/zametki/internal/errs"
)

// Store is the SQL-backed note repository. All listing queries order by
// ascending id; that ordering is a public contract, not an implementation
// detail. The UNIQUE constraint on notes.slug makes validate-then-insert
// atomic: a concurrent create that slips past the pre-check still fails at
// commit and is reported as the same conflict.
type Store struct {
	db *db.DB
}

// NewStore creates a new note store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Insert stores a new note and returns its assigned id.
// Returns a conflict error carrying the slug warning when the slug is taken.
func (s *Store) Insert(ctx context.Context, note *Note) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.DB().ExecContext(ctx,
		`INSERT INTO notes (title, text, slug, author_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		note.Title, note.Text, note.Slug, note.AuthorID, now.Unix(),
	)
	if err != nil {
		if isSlugViolation(err) {
			return 0, slugConflict(note.Slug)
		}
		return 0, fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	note.ID = id
	note.CreatedAt = now
	return id, nil
}

// GetByID retrieves a note by id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Note, error) {
	return s.scanOne(s.db.DB().QueryRowContext(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE id = ?`, id))
}

// GetBySlug retrieves a note by its unique slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Note, error) {
	return s.scanOne(s.db.DB().QueryRowContext(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE slug = ?`, slug))
}

// FindIDBySlug returns the id of the note holding the given slug, or
// (0, false) when the slug is free.
func (s *Store) FindIDBySlug(ctx context.Context, slug string) (int64, bool, error) {
	var id int64
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT id FROM notes WHERE slug = ?`, slug,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup slug: %w", err)
	}
	return id, true, nil
}

// ListAll returns all notes ordered by ascending id.
func (s *Store) ListAll(ctx context.Context) ([]Note, error) {
	return s.list(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes ORDER BY id ASC`)
}

// ListByAuthor returns the author's notes ordered by ascending id.
func (s *Store) ListByAuthor(ctx context.Context, authorID int64) ([]Note, error) {
	return s.list(ctx,
		`SELECT id, title, text, slug, author_id, created_at FROM notes WHERE author_id = ? ORDER BY id ASC`,
		authorID)
}

// Update applies title, text, and slug to an existing note. Id and author are
// never touched. Returns the slug conflict error when the new slug collides
// with a different note.
func (s *Store) Update(ctx context.Context, id int64, title, text, slug string) error {
	res, err := s.db.DB().ExecContext(ctx,
		`UPDATE notes SET title = ?, text = ?, slug = ? WHERE id = ?`,
		title, text, slug, id,
	)
	if err != nil {
		if isSlugViolation(err) {
			return slugConflict(slug)
		}
		return fmt.Errorf("update note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return errs.New(errs.NotFound, "note not found")
	}
	return nil
}

// Delete removes a note by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.DB().ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return errs.New(errs.NotFound, "note not found")
	}
	return nil
}

// CountAll returns the total number of notes.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Note, error) {
	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var result []Note
	for rows.Next() {
		var (
			n  Note
			ts int64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &ts); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = time.Unix(ts, 0).UTC()
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return result, nil
}

func (s *Store) scanOne(row *sql.Row) (*Note, error) {
	var (
		n  Note
		ts int64
	)
	err := row.Scan(&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "note not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	n.CreatedAt = time.Unix(ts, 0).UTC()
	return &n, nil
}

func isSlugViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: notes.slug")
}
