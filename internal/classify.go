package internal

import (
	"encoding/json"
	"strings"
)

// FormatTag identifies the rendering strategy for a block of assistant text
type FormatTag string

const (
	FormatJSON     FormatTag = "json"
	FormatXML      FormatTag = "xml"
	FormatHTML     FormatTag = "html"
	FormatMarkdown FormatTag = "markdown"
	FormatText     FormatTag = "text"
)

// Classify decides which rendering strategy applies to a block of
// assistant-generated text. It is a pure function: the input is never
// mutated and the same input always yields the same tag.
//
// The checks run in priority order because the categories overlap:
//  1. A trimmed "{...}" block that parses as JSON is json.
//  2. Tag-like content (starts with "<", has ">" and a closing "</")
//     is html when it opens with an HTML document prefix, xml otherwise.
//  3. Everything else is markdown. The markdown renderer degrades
//     gracefully on plain prose, so there is no separate text branch
//     here; FormatText is only ever assigned by the renderer itself
//     when it cannot produce output.
func Classify(text string) FormatTag {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if json.Valid([]byte(trimmed)) {
			return FormatJSON
		}
		// Invalid JSON falls through to the remaining checks.
	}

	if isTagLike(trimmed) {
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<!doctype") {
			return FormatHTML
		}
		return FormatXML
	}

	return FormatMarkdown
}

// isTagLike reports whether text looks like markup: it must start with
// "<", contain ">", and contain a closing tag sequence "</". A leading
// "<" with no closing tag is not markup and falls through to markdown.
func isTagLike(text string) bool {
	return strings.HasPrefix(text, "<") &&
		strings.Contains(text, ">") &&
		strings.Contains(text, "</")
}
