package notes

import (
	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/errs"
)

// Guard decides, per request, whether an operation on a note is permitted.
// It is a pure decision with three terminal outcomes: unauthenticated,
// not-found, or allowed. A non-owner gets the same not-found as a missing
// note so the existence of other users' notes never leaks; the merged result
// is produced here, once, rather than mapped later in the web layer.
type Guard struct{}

// NewGuard creates the authorization guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Authenticated fails when the actor has no verified identity. This is the
// only check for author-independent operations (list, create).
func (g *Guard) Authenticated(actor *auth.User) error {
	if actor == nil {
		return errs.New(errs.Unauthenticated, "authentication required")
	}
	return nil
}

// Authorize decides whether the actor may operate on the note. Ownership is
// only evaluated for authenticated actors; the unauthenticated case always
// wins so the two failures stay distinguishable to the web layer (redirect
// vs 404) but nothing about the note itself is revealed in either.
func (g *Guard) Authorize(actor *auth.User, note *Note) error {
	if err := g.Authenticated(actor); err != nil {
		return err
	}
	if note == nil || note.AuthorID != actor.ID {
		return errs.New(errs.NotFound, "note not found")
	}
	return nil
}

// FilterOwned scopes a listing down to notes owned by the actor, preserving
// order.
func (g *Guard) FilterOwned(actor *auth.User, all []Note) []Note {
	if actor == nil {
		return nil
	}
	var owned []Note
	for _, n := range all {
		if n.AuthorID == actor.ID {
			owned = append(owned, n)
		}
	}
	return owned
}
