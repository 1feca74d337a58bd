// Package source defines the ingested content units the relevance pipeline
// works on and renders them into bounded text blocks for model prompts.
package source

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Kind discriminates the Source content variants.
type Kind string

const (
	KindDocument   Kind = "document"
	KindList       Kind = "list"
	KindCollection Kind = "collection"
)

// AllKinds returns every supported source kind.
func AllKinds() []Kind {
	return []Kind{KindDocument, KindList, KindCollection}
}

// Content is the variant-specific payload of a Source. The set of variants is
// closed: each one must supply its own deep renderer to satisfy the interface.
type Content interface {
	Kind() Kind
	renderDeep() string
}

// Document is a single text blob.
type Document struct {
	Text string
}

// List is an ordered sequence of text items.
type List struct {
	Items []string
}

// Collection is a structured payload of unknown shape (nested maps, slices,
// scalars), typically decoded from JSON or YAML.
type Collection struct {
	Data any
}

func (Document) Kind() Kind   { return KindDocument }
func (List) Kind() Kind       { return KindList }
func (Collection) Kind() Kind { return KindCollection }

// Source is an ingested content unit with shallow metadata and a payload.
// IDs must be unique within any set handed to the assessor or composer.
type Source struct {
	ID          string
	Title       string
	Description string
	// Keypoints are ordered most-important first.
	Keypoints []string
	// Path is where the content was ingested from, if anywhere.
	Path    string
	Content Content
}

// Type returns the variant kind, or "" when no content is attached.
func (s Source) Type() Kind {
	if s.Content == nil {
		return ""
	}
	return s.Content.Kind()
}

// NewDocument builds a document source.
func NewDocument(id, title, description string, keypoints []string, text string) Source {
	return Source{ID: id, Title: title, Description: description, Keypoints: keypoints, Content: Document{Text: text}}
}

// NewList builds a list source.
func NewList(id, title, description string, keypoints []string, items []string) Source {
	return Source{ID: id, Title: title, Description: description, Keypoints: keypoints, Content: List{Items: items}}
}

// NewCollection builds a collection source.
func NewCollection(id, title, description string, keypoints []string, data any) Source {
	return Source{ID: id, Title: title, Description: description, Keypoints: keypoints, Content: Collection{Data: data}}
}

// wireSource is the JSON shape of a Source.
type wireSource struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Keypoints   []string        `json:"keypoints"`
	Path        string          `json:"path,omitempty"`
	Type        Kind            `json:"type"`
	Content     json.RawMessage `json:"content"`
}

// MarshalJSON encodes the source with its kind as the "type" discriminator.
func (s Source) MarshalJSON() ([]byte, error) {
	var payload any
	switch c := s.Content.(type) {
	case Document:
		payload = c.Text
	case List:
		payload = c.Items
	case Collection:
		payload = c.Data
	case nil:
		return nil, eris.Errorf("source: %s has no content", s.ID)
	default:
		return nil, eris.Errorf("source: %s has unsupported content %T", s.ID, c)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "source: marshal content %s", s.ID)
	}

	keypoints := s.Keypoints
	if keypoints == nil {
		keypoints = []string{}
	}

	return json.Marshal(wireSource{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Keypoints:   keypoints,
		Path:        s.Path,
		Type:        s.Type(),
		Content:     raw,
	})
}

// UnmarshalJSON decodes a source, rejecting unknown types.
func (s *Source) UnmarshalJSON(data []byte) error {
	var w wireSource
	if err := json.Unmarshal(data, &w); err != nil {
		return eris.Wrap(err, "source: decode")
	}

	var content Content
	switch w.Type {
	case KindDocument:
		var text string
		if err := json.Unmarshal(w.Content, &text); err != nil {
			return eris.Wrapf(err, "source: decode document content %s", w.ID)
		}
		content = Document{Text: text}
	case KindList:
		var items []string
		if err := json.Unmarshal(w.Content, &items); err != nil {
			return eris.Wrapf(err, "source: decode list content %s", w.ID)
		}
		content = List{Items: items}
	case KindCollection:
		var v any
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &v); err != nil {
				return eris.Wrapf(err, "source: decode collection content %s", w.ID)
			}
		}
		content = Collection{Data: v}
	default:
		return eris.Errorf("source: unknown type %q for %s", w.Type, w.ID)
	}

	*s = Source{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Keypoints:   w.Keypoints,
		Path:        w.Path,
		Content:     content,
	}
	return nil
}

// CheckUnique returns an error naming the first id that appears twice.
func CheckUnique(sources []Source) error {
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.ID]; ok {
			return eris.Errorf("source: duplicate id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
