// Package citation converts vector store match metadata into structured,
// renderable provenance records.
package citation

import (
	"strings"
	"unicode/utf8"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// Builder constructs Citations from match metadata. It never fails on
// malformed upstream metadata; missing fields degrade to defaults.
type Builder struct {
	excerptMaxLength int
}

// NewBuilder creates a citation builder. A non-positive excerpt length
// selects the default.
func NewBuilder(excerptMaxLength int) *Builder {
	if excerptMaxLength <= 0 {
		excerptMaxLength = config.DefaultExcerptMaxLength
	}
	return &Builder{excerptMaxLength: excerptMaxLength}
}

// Build projects one matched chunk into a Citation.
func (b *Builder) Build(metadata map[string]any, matchedText string, confidence, relevance float64) schema.Citation {
	return schema.Citation{
		Title:            titleOrDefault(metadata),
		Authors:          authorsOrDefault(metadata),
		Source:           schema.MetaString(metadata, schema.KeySource),
		PublicationDate:  schema.MetaString(metadata, schema.KeyPublicationDate),
		DOI:              schema.MetaString(metadata, schema.KeyDOI),
		URL:              schema.MetaString(metadata, schema.KeyURL),
		DocumentType:     schema.MetaString(metadata, schema.KeyDocumentType),
		MedicalSpecialty: schema.MetaString(metadata, schema.KeyMedicalSpecialty),
		Section:          schema.MetaString(metadata, schema.KeySection),
		ConfidenceScore:  clamp01(confidence),
		RelevanceScore:   clamp01(relevance),
		Excerpt:          b.excerpt(matchedText),
	}
}

func titleOrDefault(metadata map[string]any) string {
	if title := schema.MetaString(metadata, schema.KeyTitle); title != "" {
		return title
	}
	return "Untitled"
}

// authorsOrDefault extracts the JSON-encoded author list, defaulting to
// the unknown sentinel on parse failure or emptiness.
func authorsOrDefault(metadata map[string]any) []string {
	authors := schema.DecodeStringList(metadata[schema.KeyAuthors])
	cleaned := make([]string, 0, len(authors))
	for _, a := range authors {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return []string{schema.UnknownAuthor}
	}
	return cleaned
}

// excerpt trims matched text to a bounded, human-readable snippet. Cuts
// prefer a sentence end past 70% of the limit, then a word boundary past
// 80%, then a hard cut with an ellipsis.
func (b *Builder) excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= b.excerptMaxLength {
		return text
	}
	cut := b.excerptMaxLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	trimmed := text[:cut]

	if idx := strings.LastIndexAny(trimmed, ".!?"); idx > int(float64(b.excerptMaxLength)*0.7) {
		return trimmed[:idx+1]
	}
	if idx := strings.LastIndexByte(trimmed, ' '); idx > int(float64(b.excerptMaxLength)*0.8) {
		return trimmed[:idx] + "..."
	}
	return trimmed + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
