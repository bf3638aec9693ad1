// Package vectordb abstracts the content-addressable vector index behind
// a provider interface. The engine never assumes a distance metric beyond
// the similarity = max(0, 1-distance) conversion applied by callers.
package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// VectorStoreProvider defines the operations the engine consumes.
type VectorStoreProvider interface {
	// AddDocs writes a batch of documents in a single call; all chunks of
	// one document are expected to arrive in one batch so a cancelled
	// ingestion never exposes a partially written document.
	AddDocs(ctx context.Context, docs []schema.Document) error
	// SearchDocs performs similarity search, optionally restricted by a
	// metadata filter.
	SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error)
	// GetDocs retrieves documents by metadata filter only.
	GetDocs(ctx context.Context, filter map[string]any, limit int) ([]schema.Document, error)
	// DeleteDocs removes all documents matching the filter.
	DeleteDocs(ctx context.Context, filter map[string]any) error
	Close() error
}

// NewVectorDBProvider creates a vector store provider from configuration.
func NewVectorDBProvider(cfg *config.VectorDBConfig, dim int) (VectorStoreProvider, error) {
	switch cfg.Provider {
	case "milvus":
		return newMilvusProvider(cfg, dim)
	case "memory":
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported vectordb provider %q", cfg.Provider)
	}
}

// filterExpr renders a metadata filter as a boolean expression over the
// JSON metadata field, with deterministic key order.
func filterExpr(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	terms := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := filter[k].(type) {
		case string:
			terms = append(terms, fmt.Sprintf("metadata[%q] == %q", k, v))
		case bool:
			terms = append(terms, fmt.Sprintf("metadata[%q] == %t", k, v))
		default:
			terms = append(terms, fmt.Sprintf("metadata[%q] == %v", k, v))
		}
	}
	return strings.Join(terms, " and ")
}
