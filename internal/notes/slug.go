package notes

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/avelkin/zametki/internal/errs"
)

// SlugWarning is the fixed suffix of the slug uniqueness error. The full
// message shown to users is the candidate slug followed by this text; the
// exact wording is part of the external contract.
const SlugWarning = " - такой slug уже существует, придумайте уникальное значение!"

// MaxSlugLength caps derived slugs; explicit slugs are validated against the
// same limit by the web form.
const MaxSlugLength = 100

// Transliterator maps a non-Latin string to a Latin-script approximation.
// It is a pure function dependency of the slug policy so tests can swap it.
type Transliterator func(string) string

// cyrillicTable maps Russian letters to their Latin transliteration.
var cyrillicTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "ju", 'я': "ja",
}

// DefaultTransliterator converts Cyrillic letters to Latin and strips
// combining marks from accented Latin characters (é → e).
func DefaultTransliterator(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if latin, ok := cyrillicTable[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}

	// Decompose and drop combining marks to fold diacritics.
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		b.String(),
	)
	if err != nil {
		return b.String()
	}
	return stripped
}

// SlugPolicy derives URL-safe identifiers from titles and validates their
// global uniqueness against the store.
type SlugPolicy struct {
	store    *Store
	translit Transliterator
}

// NewSlugPolicy creates a slug policy backed by the given store. A nil
// transliterator falls back to DefaultTransliterator.
func NewSlugPolicy(store *Store, translit Transliterator) *SlugPolicy {
	if translit == nil {
		translit = DefaultTransliterator
	}
	return &SlugPolicy{store: store, translit: translit}
}

// Derive turns a title into a URL-safe slug candidate: transliterated,
// lowercased, with non-alphanumeric runs collapsed to single hyphens.
// Deterministic: the same title always derives the same candidate.
func (p *SlugPolicy) Derive(title string) string {
	lowered := strings.ToLower(p.translit(title))

	var b strings.Builder
	lastSep := true // suppress a leading separator
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteByte('-')
				lastSep = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.Trim(slug[:MaxSlugLength], "-")
	}
	return slug
}

// ValidateUnique fails with a conflict when another note already holds the
// candidate slug. The note with id excludeID is ignored so edits can resubmit
// their own slug; pass 0 when creating.
func (p *SlugPolicy) ValidateUnique(ctx context.Context, candidate string, excludeID int64) error {
	holderID, taken, err := p.store.FindIDBySlug(ctx, candidate)
	if err != nil {
		return err
	}
	if taken && holderID != excludeID {
		return slugConflict(candidate)
	}
	return nil
}

func slugConflict(slug string) error {
	return errs.New(errs.Conflict, slug+SlugWarning)
}
