package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

func mustChunker(t *testing.T, cfg config.SplitterConfig) *DocumentChunker {
	t.Helper()
	c, err := NewDocumentChunker(cfg)
	if err != nil {
		t.Fatalf("NewDocumentChunker failed: %v", err)
	}
	return c
}

func genericMeta() schema.DocumentMetadata {
	return schema.DocumentMetadata{Source: schema.SourceManual, DocumentType: schema.TypeGeneric}
}

func paperMeta() schema.DocumentMetadata {
	return schema.DocumentMetadata{Source: schema.SourcePubMed, DocumentType: schema.TypeResearchPaper}
}

func TestNewDocumentChunkerRejectsOverlap(t *testing.T) {
	_, err := NewDocumentChunker(config.SplitterConfig{ChunkSize: 100, ChunkOverlap: 100})
	if err == nil {
		t.Fatal("expected error when overlap equals chunk size")
	}
}

func TestChunkEmptyContent(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{})
	for _, content := range []string{"", "   ", "\n\t\n"} {
		chunks, meta := c.Chunk(content, genericMeta())
		if len(chunks) != 0 || len(meta) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", content, len(chunks))
		}
	}
}

func TestChunkShortContentSingleChunk(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{ChunkSize: 1000, ChunkOverlap: 200})
	content := "Cognitive behavioral therapy is effective for anxiety disorders."

	chunks, meta := c.Chunk(content, genericMeta())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != content {
		t.Errorf("chunk = %q, want original content", chunks[0])
	}
	if meta[0].Section != DefaultSection {
		t.Errorf("section = %q, want %q", meta[0].Section, DefaultSection)
	}
	if meta[0].CharCount != len(content) {
		t.Errorf("char count = %d, want %d", meta[0].CharCount, len(content))
	}
}

func TestChunkParallelMetadata(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{ChunkSize: 120, ChunkOverlap: 30})
	content := strings.Repeat("Patients showed measurable improvement after twelve weeks. ", 40)

	chunks, meta := c.Chunk(content, genericMeta())
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	if len(chunks) != len(meta) {
		t.Fatalf("len(chunks)=%d len(meta)=%d, want equal", len(chunks), len(meta))
	}
	for i, m := range meta {
		if m.ChunkIndex != i {
			t.Errorf("meta[%d].ChunkIndex = %d", i, m.ChunkIndex)
		}
		if m.TotalChunks != len(chunks) {
			t.Errorf("meta[%d].TotalChunks = %d, want %d", i, m.TotalChunks, len(chunks))
		}
		if m.CharCount != len(chunks[i]) {
			t.Errorf("meta[%d].CharCount = %d, want %d", i, m.CharCount, len(chunks[i]))
		}
	}
}

func TestChunkOverlapContinuity(t *testing.T) {
	overlap := 25
	c := mustChunker(t, config.SplitterConfig{ChunkSize: 150, ChunkOverlap: overlap})
	content := strings.Repeat("The trial enrolled adults with major depressive disorder. ", 30)

	chunks, _ := c.Chunk(content, genericMeta())
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not begin with the %d-char tail of its predecessor", i, overlap)
		}
	}
}

func TestChunkKeepsRunesIntact(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{ChunkSize: 101, ChunkOverlap: 20})

	// Two-byte runes with no sentence terminators force hard cuts at
	// odd byte offsets.
	content := strings.Repeat("ü", 200)
	chunks, _ := c.Chunk(content, genericMeta())
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d contains a split rune", i)
		}
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(content, last) {
		t.Error("final chunk does not end the original content")
	}
}

func TestChunkCoverage(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	content := strings.TrimSpace(strings.Repeat("Sertraline reduced symptom severity in the treatment arm. ", 25))

	chunks, _ := c.Chunk(content, genericMeta())

	// Stitching chunks back together after dropping each overlap must
	// reproduce the original text exactly.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		rebuilt.WriteString(chunks[i][20:])
	}
	if rebuilt.String() != content {
		t.Error("stitched chunks do not reproduce the original content")
	}
}

func TestChunkDetectsSections(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{
		ChunkSize:        1000,
		ChunkOverlap:     100,
		PreserveSections: true,
		MinSectionLength: 20,
	})
	content := "This opening paragraph precedes any recognized header and is long enough to keep.\n" +
		"Abstract\n" +
		"We examined treatment outcomes across three cohorts of patients with generalized anxiety.\n" +
		"Methods\n" +
		"Participants were randomized to either intervention or waitlist control conditions.\n"

	chunks, meta := c.Chunk(content, paperMeta())
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantSections := []string{"main", "abstract", "methods"}
	for i, want := range wantSections {
		if meta[i].Section != want {
			t.Errorf("meta[%d].Section = %q, want %q", i, meta[i].Section, want)
		}
	}
}

func TestChunkDiscardsShortSections(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{
		ChunkSize:        1000,
		ChunkOverlap:     100,
		PreserveSections: true,
		MinSectionLength: 50,
	})
	content := "Abstract\n" +
		"Too short.\n" +
		"Results\n" +
		"The intervention group showed a significant reduction in symptom scores at follow-up.\n"

	chunks, meta := c.Chunk(content, paperMeta())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if meta[0].Section != "results" {
		t.Errorf("section = %q, want %q", meta[0].Section, "results")
	}
}

func TestChunkSectionsIgnoredForGenericDocuments(t *testing.T) {
	c := mustChunker(t, config.SplitterConfig{
		ChunkSize:        1000,
		ChunkOverlap:     100,
		PreserveSections: true,
		MinSectionLength: 20,
	})
	content := "Abstract\n" +
		"Fact sheets are split by size regardless of any header-shaped lines inside them.\n"

	_, meta := c.Chunk(content, genericMeta())
	if len(meta) != 1 || meta[0].Section != DefaultSection {
		t.Errorf("generic document should produce a single %q section", DefaultSection)
	}
}

func TestKeywordDetector(t *testing.T) {
	d := NewKeywordDetector()
	tests := []struct {
		line  string
		label string
		ok    bool
	}{
		{"Abstract", "abstract", true},
		{"1. INTRODUCTION", "introduction", true},
		{"Clinical Implications", "clinical implications", true},
		{"", "", false},
		{"The patient reported no adverse events during the study period, and follow-up visits at weeks four and eight confirmed this.", "", false},
	}
	for _, tt := range tests {
		label, ok := d.Detect(tt.line)
		if label != tt.label || ok != tt.ok {
			t.Errorf("Detect(%q) = (%q, %v), want (%q, %v)", tt.line, label, ok, tt.label, tt.ok)
		}
	}
}
