// Package searcher coordinates vector store queries, confidence scoring
// and citation assembly into ranked, cited search results.
package searcher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/cache"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/citation"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/common/logger"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/embedding"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/metrics"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/scoring"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/vectordb"
)

// overFetchFactor widens vector store queries so enough candidates
// survive confidence filtering.
const overFetchFactor = 2

// recentPoolFactor widens the candidate pool for recent-research queries
// before the client-side year filter.
const recentPoolFactor = 3

// Options controls one search call.
type Options struct {
	// Filters restricts candidates by metadata equality.
	Filters map[string]any
	// MaxResults caps the returned result count; non-positive selects the
	// configured default.
	MaxResults int
	// IncludeLowConfidence bypasses the confidence threshold filter.
	IncludeLowConfidence bool
}

// Searcher is the engine's public query entry point. It holds no mutable
// state across calls beyond the store handle and scoring configuration,
// so concurrent use needs no extra locking.
type Searcher struct {
	store     vectordb.VectorStoreProvider
	embedder  embedding.Provider
	scorer    *scoring.ConfidenceScorer
	citations *citation.Builder
	threshold float64
	topK      int
	l1        cache.ResultCache
	cacheTTL  time.Duration
}

// New creates a searcher with explicit dependencies.
func New(cfg *config.Config, store vectordb.VectorStoreProvider, embedder embedding.Provider) *Searcher {
	threshold := cfg.Engine.ConfidenceThreshold
	if threshold <= 0 {
		threshold = config.DefaultConfidenceThreshold
	}
	topK := cfg.Engine.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	s := &Searcher{
		store:     store,
		embedder:  embedder,
		scorer:    scoring.NewConfidenceScorer(cfg.Scoring),
		citations: citation.NewBuilder(cfg.Engine.ExcerptMaxLength),
		threshold: threshold,
		topK:      topK,
	}
	if cfg.Cache != nil && cfg.Cache.Enable {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 2 * time.Minute
		}
		capacity := cfg.Cache.MaxEntries
		if capacity <= 0 {
			capacity = 500
		}
		s.l1 = cache.NewLRU(capacity, ttl)
		s.cacheTTL = ttl
	}
	return s
}

// Threshold reports the configured confidence threshold.
func (s *Searcher) Threshold() float64 { return s.threshold }

// Search retrieves scored, cited passages for a natural-language query.
// Upstream failures are degraded to an empty result carrying the error in
// SearchMetadata["error"]; Search never returns an error to the caller.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) *schema.RAGSearchResult {
	start := time.Now()
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.topK
	}

	cacheKey := ""
	if s.l1 != nil && !opts.IncludeLowConfidence {
		cacheKey = s.buildCacheKey(query, opts.Filters, maxResults)
		if cached, ok := s.l1.Get(cacheKey); ok {
			metrics.IncCacheHit()
			logger.Debugf("searcher: cache hit for query %q", query)
			// Callers own their result; hand out a copy so mutation
			// never reaches the cached entry.
			return cloneResult(cached)
		}
	}

	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		logger.Errorf("searcher: embed query failed: %v", err)
		metrics.IncSearchError()
		return schema.EmptyResult(query, fmt.Sprintf("embed query failed: %v", err))
	}

	candidates, err := s.store.SearchDocs(ctx, vector, &schema.SearchOptions{
		TopK:   overFetchFactor * maxResults,
		Filter: opts.Filters,
	})
	if err != nil {
		logger.Errorf("searcher: vector store query failed: %v", err)
		metrics.IncSearchError()
		return schema.EmptyResult(query, fmt.Sprintf("vector store query failed: %v", err))
	}

	result := &schema.RAGSearchResult{
		Query:            query,
		Documents:        []string{},
		Citations:        []schema.Citation{},
		ConfidenceScores: []float64{},
		SearchTimestamp:  time.Now().UTC(),
	}
	filtered := 0
	for _, cand := range candidates {
		similarity := similarityOf(cand)
		confidence := s.scorer.Score(similarity, cand.Document.Metadata, query)
		if !opts.IncludeLowConfidence && confidence < s.threshold {
			filtered++
			continue
		}
		cit := s.citations.Build(cand.Document.Metadata, cand.Document.Content, confidence, similarity)
		result.Documents = append(result.Documents, cand.Document.Content)
		result.Citations = append(result.Citations, cit)
		result.ConfidenceScores = append(result.ConfidenceScores, confidence)
	}
	// Truncate preserving the store's relative order: similarity order is
	// the primary rank, confidence is a filter, not a sort key.
	if len(result.Documents) > maxResults {
		result.Documents = result.Documents[:maxResults]
		result.Citations = result.Citations[:maxResults]
		result.ConfidenceScores = result.ConfidenceScores[:maxResults]
	}
	result.TotalResults = len(result.Documents)
	result.SearchMetadata = map[string]any{
		"query_id":               uuid.NewString(),
		"elapsed_ms":             time.Since(start).Milliseconds(),
		"filters_applied":        opts.Filters,
		"threshold":              s.threshold,
		"include_low_confidence": opts.IncludeLowConfidence,
		"candidate_count":        len(candidates),
	}
	metrics.ObserveSearch(start, len(candidates))
	metrics.AddFiltered(filtered)

	if cacheKey != "" && result.TotalResults > 0 {
		s.l1.Set(cacheKey, cloneResult(result), s.cacheTTL)
	}
	return result
}

// SearchBySpecialty scopes a search to one medical specialty.
func (s *Searcher) SearchBySpecialty(ctx context.Context, query, specialty string, maxResults int) *schema.RAGSearchResult {
	return s.Search(ctx, query, Options{
		Filters:    map[string]any{schema.KeyMedicalSpecialty: specialty},
		MaxResults: maxResults,
	})
}

// SearchBySource scopes a search to one document source.
func (s *Searcher) SearchBySource(ctx context.Context, query string, source schema.Source, maxResults int) *schema.RAGSearchResult {
	return s.Search(ctx, query, Options{
		Filters:    map[string]any{schema.KeySource: string(source)},
		MaxResults: maxResults,
	})
}

// RecentResearch searches research papers and re-filters client-side by
// publication year. Documents with absent or unparsable dates are kept so
// missing metadata never silently drops valid evidence.
func (s *Searcher) RecentResearch(ctx context.Context, query string, maxResults, minYear int) *schema.RAGSearchResult {
	if maxResults <= 0 {
		maxResults = s.topK
	}
	result := s.Search(ctx, query, Options{
		Filters:    map[string]any{schema.KeyDocumentType: string(schema.TypeResearchPaper)},
		MaxResults: recentPoolFactor * maxResults,
	})
	if minYear <= 0 {
		return truncateResult(result, maxResults)
	}

	kept := &schema.RAGSearchResult{
		Query:            result.Query,
		Documents:        []string{},
		Citations:        []schema.Citation{},
		ConfidenceScores: []float64{},
		SearchMetadata:   make(map[string]any, len(result.SearchMetadata)+1),
		SearchTimestamp:  result.SearchTimestamp,
	}
	for k, v := range result.SearchMetadata {
		kept.SearchMetadata[k] = v
	}
	for i, cit := range result.Citations {
		if year, ok := publicationYear(cit.PublicationDate); ok && year < minYear {
			continue
		}
		kept.Documents = append(kept.Documents, result.Documents[i])
		kept.Citations = append(kept.Citations, cit)
		kept.ConfidenceScores = append(kept.ConfidenceScores, result.ConfidenceScores[i])
	}
	kept.SearchMetadata["min_year"] = minYear
	return truncateResult(kept, maxResults)
}

// AuthoritativeSources returns deduplicated, confidence-ranked citations
// for a topic. Duplicate (title, source) pairs collapse to their first
// occurrence.
func (s *Searcher) AuthoritativeSources(ctx context.Context, topic string, maxSources int) []schema.Citation {
	if maxSources <= 0 {
		maxSources = s.topK
	}
	result := s.Search(ctx, topic, Options{MaxResults: recentPoolFactor * maxSources})

	seen := make(map[string]struct{}, len(result.Citations))
	unique := make([]schema.Citation, 0, len(result.Citations))
	for _, cit := range result.Citations {
		key := strings.ToLower(cit.Title) + "|" + cit.Source
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if cit.ConfidenceScore < s.threshold {
			continue
		}
		unique = append(unique, cit)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].ConfidenceScore != unique[j].ConfidenceScore {
			return unique[i].ConfidenceScore > unique[j].ConfidenceScore
		}
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})
	if len(unique) > maxSources {
		unique = unique[:maxSources]
	}
	return unique
}

// similarityOf converts a store distance to similarity via max(0, 1-d).
func similarityOf(res schema.SearchResult) float64 {
	sim := 1 - res.Distance
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func publicationYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0, false
		}
		year = year*10 + int(r-'0')
	}
	return year, true
}

// cloneResult deep-copies a result so cached entries and caller-held
// results never share slices or the metadata map.
func cloneResult(r *schema.RAGSearchResult) *schema.RAGSearchResult {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Documents = append([]string(nil), r.Documents...)
	clone.Citations = append([]schema.Citation(nil), r.Citations...)
	clone.ConfidenceScores = append([]float64(nil), r.ConfidenceScores...)
	clone.SearchMetadata = make(map[string]any, len(r.SearchMetadata))
	for k, v := range r.SearchMetadata {
		clone.SearchMetadata[k] = v
	}
	return &clone
}

func truncateResult(result *schema.RAGSearchResult, maxResults int) *schema.RAGSearchResult {
	if len(result.Documents) > maxResults {
		result.Documents = result.Documents[:maxResults]
		result.Citations = result.Citations[:maxResults]
		result.ConfidenceScores = result.ConfidenceScores[:maxResults]
	}
	result.TotalResults = len(result.Documents)
	return result
}

func (s *Searcher) buildCacheKey(query string, filters map[string]any, maxResults int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	base := fmt.Sprintf("%s|%s|%g|%d", normalized, filtersSignature(filters), s.threshold, maxResults)
	hash := sha1.Sum([]byte(base))
	return hex.EncodeToString(hash[:])
}

func filtersSignature(filters map[string]any) string {
	if len(filters) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fmt.Sprintf("%v", filters[k]))
		b.WriteByte(';')
	}
	return b.String()
}
