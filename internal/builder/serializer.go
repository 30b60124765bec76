// Package builder turns the page model produced by the editor canvas into
// the HTML stored in a Shopify page's body_html.
package builder

import (
	"html"
	"strings"

	"github.com/Kyz7/kingsbuilder/internal/models"
)

const (
	PageClass    = "kings-builder-page"
	ElementClass = "kings-builder-element"
	TypePrefix   = "kings-builder-"
)

// PageCSS is appended once after the element wrappers.
const PageCSS = `<style>
.kings-builder-page { max-width: 1200px; margin: 0 auto; padding: 20px; box-sizing: border-box; }
.kings-builder-element { margin-bottom: 20px; }
.kings-builder-element img { max-width: 100%; height: auto; }
.kings-builder-element .btn, .kings-builder-button button { display: inline-block; padding: 12px 24px; border: none; border-radius: 4px; background: #000; color: #fff; cursor: pointer; }
.kings-builder-divider hr { border: 0; border-top: 1px solid #e1e3e5; }
.kings-builder-columns > * { display: flex; flex-wrap: wrap; gap: 20px; }
@media (max-width: 768px) { .kings-builder-page { padding: 12px; } .kings-builder-columns > * { flex-direction: column; } }
</style>`

type renderer func(el models.Element) string

// legacyRenderers covers the element types the old bare-array format knew
// about. Everything else falls through to renderRaw.
var legacyRenderers = map[string]renderer{
	"heading": wrapWith("<h2>", "</h2>"),
	"text":    wrapWith("<p>", "</p>"),
	"button":  wrapWith(`<button class="btn">`, "</button>"),
}

func wrapWith(openTag, closeTag string) renderer {
	return func(el models.Element) string {
		return openTag + el.Content + closeTag
	}
}

func renderRaw(el models.Element) string {
	return el.Content
}

// Serialize renders page content to HTML. It is pure: the same input always
// yields the same bytes. Fragments are emitted verbatim and never sanitized.
func Serialize(content models.PageContent) string {
	switch content.Kind {
	case models.ContentHTML:
		return content.HTML
	case models.ContentElements:
		return serializeElements(content.Elements)
	case models.ContentLegacy:
		return serializeLegacy(content.Elements)
	default:
		return ""
	}
}

func serializeElements(elements []models.Element) string {
	var b strings.Builder
	b.WriteString(`<div class="` + PageClass + `">`)
	for _, el := range elements {
		b.WriteString("\n")
		b.WriteString(`<div class="` + ElementClass + " " + TypeClass(el.Type) + `">`)
		b.WriteString(el.Content)
		b.WriteString("</div>")
	}
	b.WriteString("\n</div>\n")
	b.WriteString(PageCSS)
	return b.String()
}

func serializeLegacy(elements []models.Element) string {
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		if el.HTML != "" {
			parts = append(parts, el.HTML)
			continue
		}
		render, ok := legacyRenderers[el.Type]
		if !ok {
			render = renderRaw
		}
		parts = append(parts, render(el))
	}
	return strings.Join(parts, "\n")
}

// TypeClass is the per-element class derived from the element type.
func TypeClass(elementType string) string {
	return TypePrefix + html.EscapeString(elementType)
}
