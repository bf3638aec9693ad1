package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// MemoryProvider is a brute-force cosine similarity store. It backs unit
// tests and single-node deployments that do not warrant a Milvus cluster.
type MemoryProvider struct {
	mu   sync.RWMutex
	docs []schema.Document
}

// NewMemoryProvider creates an empty in-memory store.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (p *MemoryProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document id is required")
		}
	}
	// The whole batch lands under one lock so concurrent readers never
	// observe a partially written document.
	p.docs = append(p.docs, docs...)
	return nil
}

func (p *MemoryProvider) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topK := 10
	var filter map[string]any
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		filter = opts.Filter
		threshold = opts.Threshold
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	results := make([]schema.SearchResult, 0, len(p.docs))
	for _, doc := range p.docs {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		similarity := cosineSimilarity(doc.Vector, vector)
		if threshold > 0 && similarity < threshold {
			continue
		}
		results = append(results, schema.SearchResult{
			Document: doc,
			Score:    similarity,
			Distance: 1 - similarity,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (p *MemoryProvider) GetDocs(ctx context.Context, filter map[string]any, limit int) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []schema.Document
	for _, doc := range p.docs {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		out = append(out, doc)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (p *MemoryProvider) DeleteDocs(ctx context.Context, filter map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(filter) == 0 {
		return fmt.Errorf("delete requires a non-empty filter")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.docs[:0]
	for _, doc := range p.docs {
		if !matchesFilter(doc.Metadata, filter) {
			kept = append(kept, doc)
		}
	}
	p.docs = kept
	return nil
}

func (p *MemoryProvider) Close() error { return nil }

// Len reports the number of stored documents.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs)
}

func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares scalars across the numeric widenings JSON round
// trips introduce.
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
