package builder

import (
	"html"
	"regexp"
	"strings"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a Shopify handle from a page title: "My New Page!" becomes
// "my-new-page".
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// NewElementID returns an id for a freshly created canvas element.
func NewElementID() string {
	return "el-" + uuid.NewString()
}

// StarterContent is the content a new page gets when none is supplied: a
// heading with the page title followed by a placeholder paragraph.
func StarterContent(title string) models.PageContent {
	return models.ElementsContent(
		models.Element{
			ID:      NewElementID(),
			Type:    "heading",
			Content: "<h1>" + html.EscapeString(title) + "</h1>",
			Styles:  models.Styles{"textAlign": "center"},
		},
		models.Element{
			ID:      NewElementID(),
			Type:    "text",
			Content: "<p>Start building your page by dragging elements from the sidebar.</p>",
		},
	)
}
