package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/llm"
)

// MaxMetadataChars caps how much content is shown to the metadata model.
const MaxMetadataChars = 4000

// Metadata is the shallow description generated for a source.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keypoints   []string `json:"keypoints"`
}

// MetadataGenerator derives metadata from content. path is where the
// content came from and may be used to name it.
type MetadataGenerator interface {
	Generate(ctx context.Context, content, path string) (*Metadata, error)
}

// PlaceholderMetadata produces fixed metadata from the file name without a
// model call.
type PlaceholderMetadata struct{}

// Generate returns placeholder metadata named after the file.
func (PlaceholderMetadata) Generate(_ context.Context, _ string, path string) (*Metadata, error) {
	name := fileName(path)
	return &Metadata{
		Title:       "Title: " + name,
		Description: fmt.Sprintf("Lorem ipsum description for %s. This is a placeholder that will be replaced with LLM-generated content.", name),
		Keypoints: []string{
			"Lorem ipsum keypoint 1",
			"Lorem ipsum keypoint 2",
			"Lorem ipsum keypoint 3",
		},
	}, nil
}

const metadataSystemPrompt = `You catalogue source material for an AI agent's context library.
Reply with a single JSON object and nothing else.`

const metadataPromptTmpl = `Analyze the following content and generate:
- a concise title
- a brief description (1-2 sentences)
- 3-5 key points, most important first

Return JSON of this exact shape:
{"title": "...", "description": "...", "keypoints": ["...", "..."]}

File: %s

Content:
%s`

// maxKeypoints bounds how many keypoints are kept from a reply.
const maxKeypoints = 5

// LLMMetadata generates metadata with one model call per source.
type LLMMetadata struct {
	gen llm.Generator
}

// NewLLMMetadata creates a MetadataGenerator backed by gen.
func NewLLMMetadata(gen llm.Generator) *LLMMetadata {
	return &LLMMetadata{gen: gen}
}

// Generate asks the model for a title, description and keypoints. A reply
// without a title falls back to the file name.
func (m *LLMMetadata) Generate(ctx context.Context, content, path string) (*Metadata, error) {
	resp, err := m.gen.Generate(ctx, llm.Request{
		System: metadataSystemPrompt,
		Prompt: fmt.Sprintf(metadataPromptTmpl, fileName(path), head(content, MaxMetadataChars)),
		JSON:   true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: llm metadata %s", path)
	}

	var md Metadata
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Text)), &md); err != nil {
		zap.L().Warn("ingest: failed to parse metadata json", zap.String("path", path), zap.Error(err))
		return nil, eris.Wrapf(err, "ingest: parse metadata json %s", path)
	}

	md.Title = strings.TrimSpace(md.Title)
	if md.Title == "" {
		md.Title = fileName(path)
	}
	md.Description = strings.TrimSpace(md.Description)

	kps := make([]string, 0, len(md.Keypoints))
	for _, kp := range md.Keypoints {
		if kp = strings.TrimSpace(kp); kp != "" {
			kps = append(kps, kp)
		}
	}
	if len(kps) > maxKeypoints {
		kps = kps[:maxKeypoints]
	}
	md.Keypoints = kps
	return &md, nil
}

// generatorName identifies a generator in the metadata cache so entries
// from one generator are not served for another.
func generatorName(g MetadataGenerator) string {
	switch g.(type) {
	case PlaceholderMetadata, *PlaceholderMetadata:
		return "placeholder"
	case *LLMMetadata:
		return "llm"
	}
	return fmt.Sprintf("%T", g)
}

func fileName(path string) string {
	if path == "" {
		return "unknown"
	}
	return filepath.Base(path)
}

// head returns the first n runes of s.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

var (
	_ MetadataGenerator = PlaceholderMetadata{}
	_ MetadataGenerator = (*LLMMetadata)(nil)
)
