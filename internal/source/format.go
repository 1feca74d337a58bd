package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxDeepChars caps the deep rendering of any variant, in characters.
const MaxDeepChars = 2000

// Ellipsis marks a truncated deep rendering.
const Ellipsis = "..."

// Format renders a source for inclusion in a scoring or compression prompt.
// The four shallow lines are always present; deep appends the variant's
// content dump, truncated to MaxDeepChars.
func Format(s Source, deep bool) string {
	lines := formatShallow(s)
	if deep && s.Content != nil {
		lines = append(lines, s.Content.renderDeep())
	}
	return strings.Join(lines, "\n")
}

// FormatAll renders every source with the same deep flag.
func FormatAll(sources []Source, deep bool) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = Format(s, deep)
	}
	return out
}

func formatShallow(s Source) []string {
	return []string{
		"ID: " + s.ID,
		"Title: " + s.Title,
		"Description: " + s.Description,
		"Keypoints: " + strings.Join(s.Keypoints, "; "),
	}
}

func (d Document) renderDeep() string {
	return "Content: " + Truncate(d.Text, MaxDeepChars)
}

func (l List) renderDeep() string {
	return "Content:\n" + Truncate(strings.Join(l.Items, "\n"), MaxDeepChars)
}

func (c Collection) renderDeep() string {
	return "Content:\n" + Truncate(Canonical(c.Data), MaxDeepChars)
}

// Canonical pretty-prints structured data as indented JSON with markup left
// unescaped. Values json cannot encode fall back to their Go formatting.
func Canonical(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Truncate keeps the first max characters of s and appends Ellipsis when s
// is longer than max. Characters are counted as runes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// Text is the raw text of a source: the document text, the list items one
// per line, or the collection as indented JSON. It is not truncated.
func Text(s Source) string {
	switch c := s.Content.(type) {
	case Document:
		return c.Text
	case List:
		return strings.Join(c.Items, "\n")
	case Collection:
		return Canonical(c.Data)
	}
	return ""
}
