package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/common/httpx"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/common/logger"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// defaultSourceRate is the fallback upstream quota, roughly one request
// every 340ms.
const defaultSourceRate = 3.0

// SourceAdapter fetches documents for a query from one upstream.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) ([]RawDocument, error)
}

// sourceDocument is the wire shape shared by the registered HTTP sources.
type sourceDocument struct {
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Content         string   `json:"content"`
	Authors         []string `json:"authors"`
	PublicationDate string   `json:"publication_date"`
	DOI             string   `json:"doi"`
	URL             string   `json:"url"`
	Specialty       string   `json:"medical_specialty"`
	Keywords        []string `json:"keywords"`
}

type sourceResponse struct {
	Documents []sourceDocument `json:"documents"`
}

// httpSource adapts one configured upstream endpoint. Requests share the
// retrying client and are throttled per source against the upstream quota.
type httpSource struct {
	name         schema.Source
	documentType schema.DocumentType
	endpoint     string
	apiKey       string
	client       *httpx.Client
	limiter      *rate.Limiter
}

// NewHTTPSource builds an adapter for one configured source. The source
// name decides the document type recorded on fetched documents.
func NewHTTPSource(cfg config.SourceConfig, client *httpx.Client) (SourceAdapter, error) {
	source, err := schema.ParseSource(cfg.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("source %s has no endpoint", cfg.Name)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultSourceRate
	}
	return &httpSource{
		name:         source,
		documentType: documentTypeFor(source),
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func documentTypeFor(source schema.Source) schema.DocumentType {
	switch source {
	case schema.SourcePubMed:
		return schema.TypeResearchPaper
	case schema.SourceWHO:
		return schema.TypeGuideline
	case schema.SourceCDC:
		return schema.TypeFactSheet
	}
	return schema.TypeGeneric
}

func (s *httpSource) Name() string { return string(s.name) }

// Fetch queries the upstream search endpoint and converts hits into raw
// documents ready for the pipeline.
func (s *httpSource) Fetch(ctx context.Context, query string, limit int) ([]RawDocument, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed, err: %w", err)
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint, err: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request failed, err: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s failed, err: %w", s.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch from %s failed, status: %d", s.name, resp.StatusCode)
	}

	var payload sourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s response failed, err: %w", s.name, err)
	}

	docs := make([]RawDocument, 0, len(payload.Documents))
	for _, d := range payload.Documents {
		content := d.Content
		if content == "" {
			content = d.Abstract
		}
		if strings.TrimSpace(content) == "" {
			logger.Debugf("ingest: %s returned empty document %q, skipping", s.name, d.Title)
			continue
		}
		docs = append(docs, RawDocument{
			Content: content,
			Metadata: schema.DocumentMetadata{
				Source:           s.name,
				DocumentType:     s.documentType,
				Title:            d.Title,
				Authors:          d.Authors,
				PublicationDate:  d.PublicationDate,
				DOI:              d.DOI,
				URL:              d.URL,
				MedicalSpecialty: d.Specialty,
				Keywords:         d.Keywords,
			},
		})
	}
	return docs, nil
}

// Collector fans a query out to every registered source and feeds the
// results through the pipeline.
type Collector struct {
	pipeline *Pipeline
	sources  []SourceAdapter
}

// NewCollector wires the configured sources to an ingestion pipeline.
func NewCollector(cfg *config.Config, pipeline *Pipeline) (*Collector, error) {
	client := httpx.NewFromConfig(cfg.HTTP)
	sources := make([]SourceAdapter, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		adapter, err := NewHTTPSource(sc, client)
		if err != nil {
			return nil, fmt.Errorf("init source %s failed, err: %w", sc.Name, err)
		}
		sources = append(sources, adapter)
	}
	return &Collector{pipeline: pipeline, sources: sources}, nil
}

// Sources reports the registered adapter names.
func (c *Collector) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Collect fetches documents for a query from every source in parallel
// and ingests them, returning the number of chunks written. Each source
// throttles itself through its own limiter. Source failures are logged
// and skipped so one unreachable upstream never blocks the others.
func (c *Collector) Collect(ctx context.Context, query string, perSourceLimit int) (int, error) {
	if len(c.sources) == 0 {
		return 0, fmt.Errorf("no sources configured")
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, src := range c.sources {
		wg.Add(1)
		go func(src SourceAdapter) {
			defer wg.Done()
			docs, err := src.Fetch(ctx, query, perSourceLimit)
			if err != nil {
				logger.Warnf("ingest: source %s failed: %v", src.Name(), err)
				return
			}
			written, err := c.pipeline.Ingest(ctx, docs)
			if err != nil {
				logger.Warnf("ingest: storing documents from %s failed: %v", src.Name(), err)
				return
			}
			mu.Lock()
			total += written
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return total, nil
}
