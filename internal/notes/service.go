package notes

import (
	"context"
	"strings"

	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/errs"
)

// Service orchestrates note operations using the store, the slug policy, and
// the authorization guard. It is the composition root consumed by the web
// layer; every method takes the actor explicitly rather than reading it from
// ambient state.
type Service struct {
	store *Store
	slugs *SlugPolicy
	guard *Guard
}

// NewService creates a new notes service.
func NewService(store *Store, slugs *SlugPolicy, guard *Guard) *Service {
	return &Service{store: store, slugs: slugs, guard: guard}
}

// SlugPolicy exposes the slug policy for form-level validation.
func (s *Service) SlugPolicy() *SlugPolicy {
	return s.slugs
}

// Create makes a new note owned by the actor. The slug is derived from the
// title when absent and always validated for global uniqueness; a conflict
// leaves the store unchanged. The UNIQUE constraint on the slug column turns
// a concurrent create racing past the validation into the same conflict.
func (s *Service) Create(ctx context.Context, actor *auth.User, params CreateParams) (*Note, error) {
	if err := s.guard.Authenticated(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.New(errs.InvalidArgument, "title is required")
	}

	slug := params.Slug
	if slug == "" {
		slug = s.slugs.Derive(params.Title)
	}
	if err := s.slugs.ValidateUnique(ctx, slug, 0); err != nil {
		return nil, err
	}

	note := &Note{
		Title:    params.Title,
		Text:     params.Text,
		Slug:     slug,
		AuthorID: actor.ID,
	}
	if _, err := s.store.Insert(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Edit applies title, text, and slug updates to a note the actor owns. The
// ownership decision is made before the store is touched; a failed check
// never mutates anything. The note's own slug is excluded from uniqueness
// validation so resubmitting it unchanged is not a conflict.
func (s *Service) Edit(ctx context.Context, actor *auth.User, id int64, params EditParams) (*Note, error) {
	note, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.New(errs.InvalidArgument, "title is required")
	}

	slug := params.Slug
	if slug == "" {
		slug = s.slugs.Derive(params.Title)
	}
	if err := s.slugs.ValidateUnique(ctx, slug, id); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, params.Title, params.Text, slug); err != nil {
		return nil, err
	}

	note.Title = params.Title
	note.Text = params.Text
	note.Slug = slug
	return note, nil
}

// Delete removes a note the actor owns.
func (s *Service) Delete(ctx context.Context, actor *auth.User, id int64) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ListForActor returns the actor's own notes ordered by ascending id.
// Requires authentication only, not ownership of anything. The guard filter
// is the authority on what the actor sees; the SQL predicate is an
// index-backed pre-scope of the same set.
func (s *Service) ListForActor(ctx context.Context, actor *auth.User) ([]Note, error) {
	if err := s.guard.Authenticated(actor); err != nil {
		return nil, err
	}
	owned, err := s.store.ListByAuthor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.guard.FilterOwned(actor, owned), nil
}

// GetDetail returns a note the actor owns.
func (s *Service) GetDetail(ctx context.Context, actor *auth.User, id int64) (*Note, error) {
	return s.getOwned(ctx, actor, id)
}

// GetBySlugForActor resolves a slug to a note the actor owns. The web layer
// addresses notes by slug; the same merged not-found covers both a missing
// slug and another user's note.
func (s *Service) GetBySlugForActor(ctx context.Context, actor *auth.User, slug string) (*Note, error) {
	if err := s.guard.Authenticated(actor); err != nil {
		return nil, err
	}
	note, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, note); err != nil {
		return nil, err
	}
	return note, nil
}

// getOwned loads a note and runs the full guard decision. Authentication is
// checked before the store lookup so an anonymous request never observes
// whether the id exists.
func (s *Service) getOwned(ctx context.Context, actor *auth.User, id int64) (*Note, error) {
	if err := s.guard.Authenticated(actor); err != nil {
		return nil, err
	}
	note, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, note); err != nil {
		return nil, err
	}
	return note, nil
}
