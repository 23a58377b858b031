// Package notes implements the ownership-scoped notes core: the store, the
// slug policy, the authorization guard, and the service that orchestrates them.
package notes

import (
	"time"
)

// Note represents a user's note. ID is assigned by the store on creation and
// is monotonically increasing in creation order; AuthorID is set at creation
// and never reassigned.
type Note struct {
	ID        int64
	Title     string
	Text      string
	Slug      string
	AuthorID  int64
	CreatedAt time.Time
}

// CreateParams contains parameters for creating a note.
// Slug may be empty, in which case one is derived from the title.
type CreateParams struct {
	Title string
	Text  string
	Slug  string
}

// EditParams contains parameters for editing a note. Only title, text, and
// slug may change; id and author are frozen.
type EditParams struct {
	Title string
	Text  string
	Slug  string
}
