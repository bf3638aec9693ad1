package chunker

import "strings"

// SectionDetector decides whether a line of text opens a new named
// section. The default heuristic matches short lines against a fixed
// vocabulary; stricter structural parsers can be substituted without
// touching the rest of the chunker.
type SectionDetector interface {
	// Detect returns the canonical section label opened by line, or
	// ("", false) when the line is ordinary content.
	Detect(line string) (string, bool)
}

// DefaultSection labels content that precedes any detected header, and
// all content in simple mode.
const DefaultSection = "main"

// maxHeaderLength bounds candidate header lines; longer lines are body text.
const maxHeaderLength = 100

// sectionVocabulary lists the headers recognized in research-paper-shaped
// documents, in canonical lowercase form.
var sectionVocabulary = []string{
	"abstract",
	"introduction",
	"methods",
	"results",
	"discussion",
	"conclusion",
	"background",
	"objective",
	"findings",
	"limitations",
	"clinical implications",
	"recommendations",
	"summary",
}

// KeywordDetector matches short lines against the section vocabulary with
// a case-insensitive substring test.
type KeywordDetector struct {
	vocabulary []string
}

// NewKeywordDetector returns the default section detection strategy.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{vocabulary: sectionVocabulary}
}

func (d *KeywordDetector) Detect(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) >= maxHeaderLength {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	for _, keyword := range d.vocabulary {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}
