package searcher

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) GetProviderType() string { return "fake" }

type fakeStore struct {
	results  []schema.SearchResult
	err      error
	lastOpts *schema.SearchOptions
	searches int
}

func (f *fakeStore) AddDocs(ctx context.Context, docs []schema.Document) error { return nil }

func (f *fakeStore) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	f.searches++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeStore) GetDocs(ctx context.Context, filter map[string]any, limit int) ([]schema.Document, error) {
	return nil, nil
}

func (f *fakeStore) DeleteDocs(ctx context.Context, filter map[string]any) error { return nil }
func (f *fakeStore) Close() error                                                { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// richMeta yields metadata whose non-similarity factors sum to 0.50 under
// the default weights for queries that share no tokens with the title, so
// confidence is 0.4*similarity + 0.50.
func richMeta(title string) map[string]any {
	return map[string]any{
		schema.KeySource:          string(schema.SourcePubMed),
		schema.KeyDocumentType:    string(schema.TypeResearchPaper),
		schema.KeyTitle:           title,
		schema.KeyAuthors:         schema.EncodeStringList([]string{"A. Smith"}),
		schema.KeyPublicationDate: "2023-01-01",
		schema.KeyDOI:             "10.1/x",
		schema.KeyURL:             "https://example.org/x",
	}
}

func candidate(id, title string, similarity float64) schema.SearchResult {
	return schema.SearchResult{
		Document: schema.Document{
			ID:       id,
			Content:  "passage " + id,
			Metadata: richMeta(title),
		},
		Score:    similarity,
		Distance: 1 - similarity,
	}
}

func fiveCandidates() []schema.SearchResult {
	return []schema.SearchResult{
		candidate("a", "Alpha", 0.90), // confidence 0.86
		candidate("b", "Beta", 0.85),  // confidence 0.84
		candidate("c", "Gamma", 0.60), // confidence 0.74
		candidate("d", "Delta", 0.40), // confidence 0.66
		candidate("e", "Zeta", 0.30),  // confidence 0.62
	}
}

func TestSearchFiltersAndTruncates(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.Search(context.Background(), "sleep quality", Options{MaxResults: 2})

	if result.TotalResults != 2 {
		t.Fatalf("TotalResults = %d, want 2", result.TotalResults)
	}
	if result.Documents[0] != "passage a" || result.Documents[1] != "passage b" {
		t.Errorf("documents = %v, want store order preserved", result.Documents)
	}
	if store.lastOpts.TopK != 4 {
		t.Errorf("store TopK = %d, want 2x requested", store.lastOpts.TopK)
	}
	for _, conf := range result.ConfidenceScores {
		if conf < s.Threshold() {
			t.Errorf("kept confidence %v below threshold %v", conf, s.Threshold())
		}
	}
}

func TestSearchParallelArrays(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.Search(context.Background(), "sleep quality", Options{MaxResults: 10})

	if len(result.Documents) != len(result.Citations) || len(result.Documents) != len(result.ConfidenceScores) {
		t.Fatalf("arrays not parallel: %d docs, %d citations, %d scores",
			len(result.Documents), len(result.Citations), len(result.ConfidenceScores))
	}
	for i, cit := range result.Citations {
		if cit.ConfidenceScore != result.ConfidenceScores[i] {
			t.Errorf("citation %d confidence %v != score %v", i, cit.ConfidenceScore, result.ConfidenceScores[i])
		}
	}
}

func TestSearchIncludeLowConfidence(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.Search(context.Background(), "sleep quality", Options{MaxResults: 10, IncludeLowConfidence: true})
	if result.TotalResults != 5 {
		t.Errorf("TotalResults = %d, want all 5 when low confidence is included", result.TotalResults)
	}
}

func TestSearchMetadataPopulated(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.Search(context.Background(), "sleep quality", Options{MaxResults: 2})
	meta := result.SearchMetadata
	if meta["query_id"] == "" || meta["query_id"] == nil {
		t.Error("query_id missing")
	}
	if meta["candidate_count"] != 5 {
		t.Errorf("candidate_count = %v, want 5", meta["candidate_count"])
	}
	if meta["threshold"] != s.Threshold() {
		t.Errorf("threshold = %v, want %v", meta["threshold"], s.Threshold())
	}
	if result.SearchTimestamp.IsZero() {
		t.Error("search timestamp not set")
	}
}

func TestSearchDegradesOnEmbedError(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{err: errors.New("quota exhausted")})

	result := s.Search(context.Background(), "sleep quality", Options{})
	if result.TotalResults != 0 || len(result.Documents) != 0 {
		t.Errorf("degraded result should be empty, got %d results", result.TotalResults)
	}
	if result.SearchMetadata["error"] == nil {
		t.Error("degraded result should carry the error in metadata")
	}
	if store.searches != 0 {
		t.Error("store should not be queried after an embedding failure")
	}
}

func TestSearchDegradesOnStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.Search(context.Background(), "sleep quality", Options{})
	if result.TotalResults != 0 {
		t.Errorf("degraded result should be empty, got %d results", result.TotalResults)
	}
	if result.SearchMetadata["error"] == nil {
		t.Error("degraded result should carry the error in metadata")
	}
}

func TestSearchBySpecialtyAndSourceSetFilters(t *testing.T) {
	store := &fakeStore{results: fiveCandidates()}
	s := New(testConfig(), store, &fakeEmbedder{})

	s.SearchBySpecialty(context.Background(), "panic attacks", "psychiatry", 5)
	if got := store.lastOpts.Filter[schema.KeyMedicalSpecialty]; got != "psychiatry" {
		t.Errorf("specialty filter = %v", got)
	}

	s.SearchBySource(context.Background(), "panic attacks", schema.SourceWHO, 5)
	if got := store.lastOpts.Filter[schema.KeySource]; got != "who" {
		t.Errorf("source filter = %v", got)
	}
}

func TestRecentResearchYearFilter(t *testing.T) {
	recent := candidate("a", "Alpha", 0.90)
	old := candidate("b", "Beta", 0.85)
	old.Document.Metadata[schema.KeyPublicationDate] = "2010-01-01"
	undated := candidate("c", "Gamma", 0.80)
	delete(undated.Document.Metadata, schema.KeyPublicationDate)

	store := &fakeStore{results: []schema.SearchResult{recent, old, undated}}
	s := New(testConfig(), store, &fakeEmbedder{})

	result := s.RecentResearch(context.Background(), "sleep quality", 10, 2015)

	if got := store.lastOpts.Filter[schema.KeyDocumentType]; got != string(schema.TypeResearchPaper) {
		t.Errorf("document type filter = %v", got)
	}
	if result.TotalResults != 2 {
		t.Fatalf("TotalResults = %d, want 2 (recent plus undated)", result.TotalResults)
	}
	for _, cit := range result.Citations {
		if cit.PublicationDate == "2010-01-01" {
			t.Error("pre-cutoff document survived the year filter")
		}
	}
}

func TestAuthoritativeSourcesDedupes(t *testing.T) {
	store := &fakeStore{results: []schema.SearchResult{
		candidate("a1", "Alpha", 0.90),
		candidate("a2", "Alpha", 0.85), // same title and source as a1
		candidate("b", "Beta", 0.80),
	}}
	s := New(testConfig(), store, &fakeEmbedder{})

	citations := s.AuthoritativeSources(context.Background(), "sleep quality", 10)
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2 after dedupe", len(citations))
	}
	if citations[0].Title != "Alpha" || citations[1].Title != "Beta" {
		t.Errorf("titles = [%s, %s]", citations[0].Title, citations[1].Title)
	}
	if citations[0].ConfidenceScore < citations[1].ConfidenceScore {
		t.Error("citations not sorted by confidence")
	}
	// First occurrence wins: Alpha keeps the 0.90-similarity confidence.
	if math.Abs(citations[0].ConfidenceScore-(0.4*0.90+0.50)) > 1e-6 {
		t.Errorf("dedupe kept the wrong duplicate: confidence %v", citations[0].ConfidenceScore)
	}
}

func TestSearchCacheEntriesAreIsolated(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = &config.CacheConfig{Enable: true, MaxEntries: 10, TTLSeconds: 60}
	store := &fakeStore{results: fiveCandidates()}
	s := New(cfg, store, &fakeEmbedder{})

	// Same filters and widened pool as RecentResearch(query, 2, ...) so
	// both calls resolve to one cache key.
	opts := Options{
		Filters:    map[string]any{schema.KeyDocumentType: string(schema.TypeResearchPaper)},
		MaxResults: 6,
	}
	first := s.Search(context.Background(), "sleep quality", opts)
	if first.TotalResults != 3 {
		t.Fatalf("TotalResults = %d, want 3 above the threshold", first.TotalResults)
	}

	s.RecentResearch(context.Background(), "sleep quality", 2, 2015)

	if first.TotalResults != 3 || len(first.Documents) != 3 {
		t.Errorf("previously returned result was mutated: %d results", first.TotalResults)
	}
	second := s.Search(context.Background(), "sleep quality", opts)
	if second.TotalResults != 3 {
		t.Errorf("cached result was truncated by a derived query: got %d, want 3", second.TotalResults)
	}
	if _, ok := second.SearchMetadata["min_year"]; ok {
		t.Error("derived-query metadata leaked into the cached result")
	}

	// Caller mutation of a hit must not poison later hits either.
	second.Documents = second.Documents[:1]
	second.SearchMetadata["scribble"] = true
	third := s.Search(context.Background(), "sleep quality", opts)
	if len(third.Documents) != 3 {
		t.Errorf("caller mutation reached the cache: %d documents", len(third.Documents))
	}
	if _, ok := third.SearchMetadata["scribble"]; ok {
		t.Error("caller metadata write reached the cache")
	}
}

func TestSearchCacheHit(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = &config.CacheConfig{Enable: true, MaxEntries: 10, TTLSeconds: 60}
	store := &fakeStore{results: fiveCandidates()}
	s := New(cfg, store, &fakeEmbedder{})

	first := s.Search(context.Background(), "sleep quality", Options{MaxResults: 2})
	second := s.Search(context.Background(), "sleep quality", Options{MaxResults: 2})

	if store.searches != 1 {
		t.Errorf("store queried %d times, want 1 with a warm cache", store.searches)
	}
	if second.TotalResults != first.TotalResults {
		t.Errorf("cached result differs: %d vs %d", second.TotalResults, first.TotalResults)
	}
}
