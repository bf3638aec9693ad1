package schema

import (
	"encoding/json"
	"strconv"
)

// Metadata keys stored alongside each chunk in the vector store. Values
// are primitive scalars; list-valued fields are JSON-encoded strings.
const (
	KeySource             = "source"
	KeyDocumentType       = "document_type"
	KeyTitle              = "title"
	KeyAuthors            = "authors"
	KeyPublicationDate    = "publication_date"
	KeyDOI                = "doi"
	KeyURL                = "url"
	KeyMedicalSpecialty   = "medical_specialty"
	KeyKeywords           = "keywords"
	KeyLanguage           = "language"
	KeySection            = "section"
	KeyChunkIndex         = "chunk_index"
	KeySectionChunks      = "section_chunks"
	KeyTotalChunks        = "total_chunks"
	KeyDocumentHash       = "document_hash"
	KeyConfidenceBaseline = "confidence_score"
	KeyIngestedAt         = "ingestion_timestamp"
)

// FlattenMetadata maps validated document and chunk metadata onto the
// scalar key/value shape the vector store accepts.
func FlattenMetadata(doc DocumentMetadata, chunk ChunkMetadata, documentHash string) map[string]any {
	m := map[string]any{
		KeySource:             string(doc.Source),
		KeyDocumentType:       string(doc.DocumentType),
		KeyTitle:              doc.Title,
		KeyAuthors:            EncodeStringList(doc.Authors),
		KeyLanguage:           doc.Language,
		KeySection:            chunk.Section,
		KeyChunkIndex:         chunk.ChunkIndex,
		KeySectionChunks:      chunk.SectionChunks,
		KeyTotalChunks:        chunk.TotalChunks,
		KeyDocumentHash:       documentHash,
		KeyConfidenceBaseline: doc.ConfidenceBaseline,
	}
	if doc.PublicationDate != "" {
		m[KeyPublicationDate] = doc.PublicationDate
	}
	if doc.DOI != "" {
		m[KeyDOI] = doc.DOI
	}
	if doc.URL != "" {
		m[KeyURL] = doc.URL
	}
	if doc.MedicalSpecialty != "" {
		m[KeyMedicalSpecialty] = doc.MedicalSpecialty
	}
	if len(doc.Keywords) > 0 {
		m[KeyKeywords] = EncodeStringList(doc.Keywords)
	}
	if !doc.IngestionTimestamp.IsZero() {
		m[KeyIngestedAt] = doc.IngestionTimestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return m
}

// EncodeStringList JSON-encodes a string list for scalar metadata storage.
func EncodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeStringList extracts a string list from a metadata value that may
// be a JSON-encoded string, a []string, or a []any from deserialization.
// Malformed values degrade to nil, never an error.
func DecodeStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// MetaString reads a string-valued metadata field, tolerating missing
// keys and foreign types.
func MetaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// MetaInt reads an integer-valued metadata field across the numeric types
// JSON round trips produce.
func MetaInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
