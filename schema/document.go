package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Source identifies where a document was fetched from. The set is closed:
// unknown values are rejected at the ingestion boundary instead of being
// carried through scoring and citation logic.
type Source string

const (
	SourcePubMed Source = "pubmed"
	SourceWHO    Source = "who"
	SourceCDC    Source = "cdc"
	SourceManual Source = "manual"
)

// DocumentType classifies the shape of a source document.
type DocumentType string

const (
	TypeResearchPaper DocumentType = "research-paper"
	TypeGuideline     DocumentType = "guideline"
	TypeFactSheet     DocumentType = "fact-sheet"
	TypeGeneric       DocumentType = "generic"
)

// UnknownAuthor is the sentinel used when a document carries no usable
// author information.
const UnknownAuthor = "unknown"

// ParseSource validates a raw source string against the closed enumeration.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourcePubMed, SourceWHO, SourceCDC, SourceManual:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// ParseDocumentType validates a raw document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case TypeResearchPaper, TypeGuideline, TypeFactSheet, TypeGeneric:
		return DocumentType(s), nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// DocumentMetadata describes the provenance of one ingested document.
// It is validated once at the ingestion boundary and treated as immutable
// afterwards.
type DocumentMetadata struct {
	Source             Source       `json:"source"`
	DocumentType       DocumentType `json:"document_type"`
	Title              string       `json:"title"`
	Authors            []string     `json:"authors"`
	PublicationDate    string       `json:"publication_date,omitempty"` // ISO date, e.g. 2023-05-01
	DOI                string       `json:"doi,omitempty"`
	URL                string       `json:"url,omitempty"`
	MedicalSpecialty   string       `json:"medical_specialty,omitempty"`
	Keywords           []string     `json:"keywords,omitempty"`
	Language           string       `json:"language"`
	ConfidenceBaseline float64      `json:"confidence_score"`
	IngestionTimestamp time.Time    `json:"ingestion_timestamp"`
}

// Validate checks the closed enumerations and fills defaults for the
// optional fields.
func (m *DocumentMetadata) Validate() error {
	if _, err := ParseSource(string(m.Source)); err != nil {
		return err
	}
	if _, err := ParseDocumentType(string(m.DocumentType)); err != nil {
		return err
	}
	if len(m.Authors) == 0 {
		m.Authors = []string{UnknownAuthor}
	}
	if m.Language == "" {
		m.Language = "en"
	}
	if m.ConfidenceBaseline <= 0 {
		m.ConfidenceBaseline = 1.0
	}
	if m.IngestionTimestamp.IsZero() {
		m.IngestionTimestamp = time.Now().UTC()
	}
	return nil
}

// ChunkMetadata records the position of one chunk within its document.
// The citation builder uses Section to report provenance.
type ChunkMetadata struct {
	Section       string `json:"section"`
	ChunkIndex    int    `json:"chunk_index"`
	SectionChunks int    `json:"section_chunks"`
	TotalChunks   int    `json:"total_chunks"`
	CharCount     int    `json:"char_count"`
	TokenCount    int    `json:"token_count,omitempty"`
}

// ProcessedDocument is one ingested document after chunking, owned by the
// ingestion pipeline until handed to the vector store.
//
// Invariant: len(Chunks) == len(ChunkMetadata). DocumentHash depends only
// on Content, so re-ingesting identical content is a no-op.
type ProcessedDocument struct {
	Content       string           `json:"content"`
	Metadata      DocumentMetadata `json:"metadata"`
	Chunks        []string         `json:"chunks"`
	ChunkMetadata []ChunkMetadata  `json:"chunk_metadata"`
	DocumentHash  string           `json:"document_hash"`
}

// HashContent derives the deterministic idempotency key for document content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Document is the unit stored in the vector store: one chunk of text with
// its flattened metadata and embedding vector.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Vector    []float32      `json:"vector,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}
