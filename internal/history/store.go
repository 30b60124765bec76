// Package history keeps the append-only version log of builder pages.
//
// A Store is selected once at start-up. When no persistence backend is
// configured the NoneStore is used: writes report ErrUnavailable and callers
// treat missing history as a normal, non-fatal condition.
package history

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultAuthor = "system"

	// maxAppendAttempts stops a runaway retry loop. A writer only loses a
	// version number to another writer that succeeded, so it retries at most
	// once per concurrent rival; the caller's context bounds the total wait.
	maxAppendAttempts = 100
)

var (
	ErrUnavailable     = errors.New("version history is not available")
	ErrNotFound        = errors.New("version not found")
	ErrVersionConflict = errors.New("could not assign a version number")
)

type Store interface {
	// Available reports whether a persistence backend is configured.
	Available() bool
	Append(ctx context.Context, in AppendInput) (*models.PageVersion, error)
	// ListByPage returns versions newest first.
	ListByPage(ctx context.Context, pageID, shop string) ([]models.PageVersion, error)
	Get(ctx context.Context, pageID, shop string, version int) (*models.PageVersion, error)
	// DeleteAllForPage is idempotent.
	DeleteAllForPage(ctx context.Context, pageID, shop string) error
}

type AppendInput struct {
	PageID  string
	Shop    string
	Title   string
	Content models.PageContent
	Comment string
	Author  string
	// DefaultComment builds the comment from the assigned version number
	// when Comment is empty.
	DefaultComment func(version int) string
}

var textPolicy = bluemonday.StrictPolicy()

// sanitizePasses bounds how many layers of entity encoding are peeled off
// before giving up on decoding.
const sanitizePasses = 8

// sanitizeText strips markup from free text kept alongside a version. The
// policy escapes entities, so its output is decoded and sanitized again until
// nothing changes; encoded markup never comes back out as tags. Input that
// is still changing after sanitizePasses is stored in its escaped form.
func sanitizeText(input string) string {
	text := input
	for i := 0; i < sanitizePasses; i++ {
		next := html.UnescapeString(textPolicy.Sanitize(text))
		if next == text {
			return strings.TrimSpace(text)
		}
		text = next
	}
	return strings.TrimSpace(textPolicy.Sanitize(text))
}

// build fills in defaults for a record about to be written with the given
// version number.
func (in AppendInput) build(version int, now time.Time) models.PageVersion {
	comment := sanitizeText(in.Comment)
	if comment == "" {
		if in.DefaultComment != nil {
			comment = in.DefaultComment(version)
		} else {
			comment = VersionComment(version)
		}
	}

	author := sanitizeText(in.Author)
	if author == "" {
		author = DefaultAuthor
	}

	return models.PageVersion{
		PageID:    in.PageID,
		Shop:      in.Shop,
		Version:   version,
		Title:     in.Title,
		Content:   in.Content,
		Comment:   comment,
		CreatedBy: author,
		CreatedAt: now.UTC(),
	}
}
