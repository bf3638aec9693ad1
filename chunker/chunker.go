// Package chunker splits medical source documents into retrieval-sized
// passages, preserving named sections for research-paper-shaped input.
package chunker

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// sentenceLookahead bounds how far past the nominal chunk boundary the
// splitter scans for a sentence terminator.
const sentenceLookahead = 100

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// tokenCount returns the cl100k_base token count of text, or 0 when the
// encoding is unavailable.
func tokenCount(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return 0
	}
	return len(encoding.Encode(text, nil, nil))
}

// DocumentChunker produces chunks and parallel chunk metadata from raw
// document content.
type DocumentChunker struct {
	chunkSize        int
	chunkOverlap     int
	preserveSections bool
	minSectionLength int
	detector         SectionDetector
}

// NewDocumentChunker creates a chunker from splitter configuration.
func NewDocumentChunker(cfg config.SplitterConfig) (*DocumentChunker, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = config.DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	minSection := cfg.MinSectionLength
	if minSection <= 0 {
		minSection = config.DefaultMinSectionLength
	}
	return &DocumentChunker{
		chunkSize:        size,
		chunkOverlap:     overlap,
		preserveSections: cfg.PreserveSections,
		minSectionLength: minSection,
		detector:         NewKeywordDetector(),
	}, nil
}

// WithDetector substitutes the section detection strategy.
func (c *DocumentChunker) WithDetector(d SectionDetector) *DocumentChunker {
	if d != nil {
		c.detector = d
	}
	return c
}

type section struct {
	label string
	text  string
}

// Chunk splits content into passages. Research papers are chunked per
// detected section when section preservation is enabled; everything else
// is split by size directly. Empty content yields zero chunks.
//
// The returned slices are parallel: chunk i is described by metadata i.
func (c *DocumentChunker) Chunk(content string, meta schema.DocumentMetadata) ([]string, []schema.ChunkMetadata) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var sections []section
	if meta.DocumentType == schema.TypeResearchPaper && c.preserveSections {
		sections = c.detectSections(content)
	} else {
		sections = []section{{label: DefaultSection, text: content}}
	}

	var chunks []string
	var metadata []schema.ChunkMetadata
	for _, sec := range sections {
		parts := c.splitBySize(sec.text)
		for _, part := range parts {
			metadata = append(metadata, schema.ChunkMetadata{
				Section:       sec.label,
				ChunkIndex:    len(chunks),
				SectionChunks: len(parts),
				CharCount:     len(part),
				TokenCount:    tokenCount(part),
			})
			chunks = append(chunks, part)
		}
	}
	for i := range metadata {
		metadata[i].TotalChunks = len(chunks)
	}
	return chunks, metadata
}

// detectSections scans content line by line, accumulating lines into the
// current section until the next header. Sections whose accumulated text
// is shorter than the minimum length are discarded as noise.
func (c *DocumentChunker) detectSections(content string) []section {
	var out []section
	current := DefaultSection
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if len(text) >= c.minSectionLength {
			out = append(out, section{label: current, text: text})
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if label, ok := c.detector.Detect(line); ok {
			flush()
			current = label
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()

	if len(out) == 0 {
		// No section survived the noise filter; fall back to simple mode.
		return []section{{label: DefaultSection, text: content}}
	}
	return out
}

// splitBySize splits text into fixed-size windows with overlap, extending
// each window to the nearest sentence terminator within the lookahead so
// chunks avoid cutting mid-sentence.
func (c *DocumentChunker) splitBySize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var chunks []string
	start := 0
	for start < len(text) {
		remaining := len(text) - start
		if remaining <= c.chunkSize {
			chunks = append(chunks, text[start:])
			break
		}
		end := start + c.chunkSize
		limit := end + sentenceLookahead
		if limit > len(text) {
			limit = len(text)
		}
		for i := end; i < limit; i++ {
			if isSentenceEnd(text[i]) {
				end = i + 1
				break
			}
		}
		for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			end = start + c.chunkSize
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}
		}
		chunks = append(chunks, text[start:end])
		next := end - c.chunkOverlap
		for next > start && next < len(text) && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			// Overlap would stall the scan; move past the window instead.
			next = end
		}
		start = next
	}
	return chunks
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
