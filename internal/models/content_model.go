package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// ContentKind tells which of the accepted page content shapes was decoded.
type ContentKind int

const (
	ContentEmpty    ContentKind = iota // null or an unrecognized shape
	ContentHTML                        // bare HTML string
	ContentElements                    // {"elements": [...]}
	ContentLegacy                      // bare array of elements
)

func (k ContentKind) String() string {
	switch k {
	case ContentHTML:
		return "html"
	case ContentElements:
		return "elements"
	case ContentLegacy:
		return "legacy"
	default:
		return "empty"
	}
}

// Element is a single widget dropped on the builder canvas.
type Element struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	HTML    string `json:"html,omitempty"`
	Styles  Styles `json:"styles,omitempty"`
}

// Styles maps CSS property names (camelCase as sent by the editor) to values.
// Empty values are dropped on decode and never encoded.
type Styles map[string]string

func (s *Styles) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("styles must be an object: %w", err)
	}

	out := make(Styles, len(raw))
	for k, v := range raw {
		var str string
		switch val := v.(type) {
		case nil:
			continue
		case string:
			str = val
		case float64:
			str = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			str = strconv.FormatBool(val)
		default:
			continue
		}
		if str == "" {
			continue
		}
		out[k] = str
	}
	*s = out
	return nil
}

func (s Styles) MarshalJSON() ([]byte, error) {
	clean := make(map[string]string, len(s))
	for k, v := range s {
		if v != "" {
			clean[k] = v
		}
	}
	return json.Marshal(clean)
}

// PageContent is the page model emitted by the builder. It accepts the
// current {"elements": [...]} form as well as the legacy bare HTML string and
// bare element array. The original bytes are kept so that content stored in
// version history reloads exactly as it was sent, including fields this
// package does not model. Once the decoded fields are changed the bytes are
// no longer used and the value is encoded from its fields.
type PageContent struct {
	Kind     ContentKind
	HTML     string
	Elements []Element

	source *decodedSource
}

// decodedSource pairs the decoded bytes with a private copy of the fields they
// decoded to.
type decodedSource struct {
	raw      json.RawMessage
	kind     ContentKind
	html     string
	elements []Element
}

func (d *decodedSource) unchanged(c PageContent) bool {
	return d != nil &&
		c.Kind == d.kind &&
		c.HTML == d.html &&
		reflect.DeepEqual(c.Elements, d.elements)
}

func cloneElements(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	out := make([]Element, len(elements))
	for i, el := range elements {
		if el.Styles != nil {
			styles := make(Styles, len(el.Styles))
			for k, v := range el.Styles {
				styles[k] = v
			}
			el.Styles = styles
		}
		out[i] = el
	}
	return out
}

func HTMLContent(html string) PageContent {
	return PageContent{Kind: ContentHTML, HTML: html}
}

func ElementsContent(elements ...Element) PageContent {
	return PageContent{Kind: ContentElements, Elements: elements}
}

func LegacyContent(elements ...Element) PageContent {
	return PageContent{Kind: ContentLegacy, Elements: elements}
}

func (c PageContent) IsEmpty() bool {
	return c.Kind == ContentEmpty
}

// UnmarshalJSON never fails on an unexpected shape; it decodes to
// ContentEmpty instead. Only malformed JSON is reported.
func (c *PageContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*c = PageContent{}
	if len(trimmed) == 0 {
		return nil
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("page content is not valid JSON")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		c.Kind = ContentHTML
		c.HTML = s
	case '[':
		elements, ok := decodeElements(trimmed)
		if !ok {
			return nil
		}
		c.Kind = ContentLegacy
		c.Elements = elements
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil
		}
		rawElements, ok := wrapper["elements"]
		if !ok {
			return nil
		}
		rawElements = bytes.TrimSpace(rawElements)
		if len(rawElements) == 0 || rawElements[0] != '[' {
			return nil
		}
		elements, ok := decodeElements(rawElements)
		if !ok {
			return nil
		}
		c.Kind = ContentElements
		c.Elements = elements
	default:
		return nil
	}

	c.source = &decodedSource{
		raw:      append(json.RawMessage(nil), trimmed...),
		kind:     c.Kind,
		html:     c.HTML,
		elements: cloneElements(c.Elements),
	}
	return nil
}

// decodeElements decodes an element array item by item. Items that are not
// objects are skipped rather than failing the whole page.
func decodeElements(data []byte) ([]Element, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}

	elements := make([]Element, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var el Element
		if err := json.Unmarshal(item, &el); err != nil {
			el = looseElement(item)
		}
		elements = append(elements, el)
	}
	return elements, true
}

// looseElement salvages the string fields of an element whose other fields
// have unexpected types.
func looseElement(item []byte) Element {
	var fields map[string]interface{}
	_ = json.Unmarshal(item, &fields)

	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}
	return Element{ID: str("id"), Type: str("type"), Content: str("content"), HTML: str("html")}
}

func (c PageContent) MarshalJSON() ([]byte, error) {
	if c.source.unchanged(c) {
		return c.source.raw, nil
	}
	switch c.Kind {
	case ContentHTML:
		return json.Marshal(c.HTML)
	case ContentElements:
		elements := c.Elements
		if elements == nil {
			elements = []Element{}
		}
		return json.Marshal(struct {
			Elements []Element `json:"elements"`
		}{elements})
	case ContentLegacy:
		elements := c.Elements
		if elements == nil {
			elements = []Element{}
		}
		return json.Marshal(elements)
	default:
		return []byte("null"), nil
	}
}
