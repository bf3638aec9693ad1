// Package ingest turns raw source documents into embedded, stored chunks.
package ingest

import (
	"context"
	"fmt"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/chunker"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/common/logger"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/embedding"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/metrics"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/vectordb"
)

// RawDocument is one document as delivered by a source adapter, before
// validation and chunking.
type RawDocument struct {
	Content  string
	Metadata schema.DocumentMetadata
}

// Pipeline processes and persists documents. Chunking and hashing are
// deterministic, so repeated ingestion of the same content is a no-op.
type Pipeline struct {
	chunker  *chunker.DocumentChunker
	embedder embedding.Provider
	store    vectordb.VectorStoreProvider
}

// NewPipeline creates an ingestion pipeline with explicit dependencies.
func NewPipeline(cfg *config.Config, store vectordb.VectorStoreProvider, embedder embedding.Provider) (*Pipeline, error) {
	ck, err := chunker.NewDocumentChunker(cfg.Engine.Splitter)
	if err != nil {
		return nil, fmt.Errorf("init chunker failed, err: %w", err)
	}
	return &Pipeline{chunker: ck, embedder: embedder, store: store}, nil
}

// Process validates metadata, chunks the content and derives the document
// hash. It performs no I/O and no mutation of the store.
func (p *Pipeline) Process(content string, meta schema.DocumentMetadata) (*schema.ProcessedDocument, error) {
	if content == "" {
		return nil, fmt.Errorf("empty document content")
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document metadata, err: %w", err)
	}
	chunks, chunkMeta := p.chunker.Chunk(content, meta)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no chunks")
	}
	return &schema.ProcessedDocument{
		Content:       content,
		Metadata:      meta,
		Chunks:        chunks,
		ChunkMetadata: chunkMeta,
		DocumentHash:  schema.HashContent(content),
	}, nil
}

// Ingest processes and stores a batch of raw documents. Each document is
// written in its own AddDocs call so partial batches never leave a
// document half stored. Per-document failures are logged and skipped; the
// returned count is the total number of chunks written, with duplicates
// contributing zero. An error is returned only when every document in a
// non-empty batch failed.
func (p *Pipeline) Ingest(ctx context.Context, docs []RawDocument) (int, error) {
	written := 0
	failed := 0
	var lastErr error
	for _, raw := range docs {
		n, err := p.ingestOne(ctx, raw)
		if err != nil {
			logger.Warnf("ingest: document %q skipped: %v", raw.Metadata.Title, err)
			failed++
			lastErr = err
			continue
		}
		written += n
	}
	if len(docs) > 0 && failed == len(docs) {
		return 0, fmt.Errorf("ingest batch failed, err: %w", lastErr)
	}
	return written, nil
}

// ingestOne stores one document and reports the number of chunks written.
func (p *Pipeline) ingestOne(ctx context.Context, raw RawDocument) (int, error) {
	processed, err := p.Process(raw.Content, raw.Metadata)
	if err != nil {
		return 0, err
	}

	// Idempotency check: identical content hashes to the same key, and a
	// stored hash means every chunk of the document is already present.
	existing, err := p.store.GetDocs(ctx, map[string]any{schema.KeyDocumentHash: processed.DocumentHash}, 1)
	if err != nil {
		return 0, fmt.Errorf("dedup lookup failed, err: %w", err)
	}
	if len(existing) > 0 {
		logger.Debugf("ingest: document %s already stored, skipping", processed.DocumentHash[:12])
		metrics.IncIngestSkipped()
		return 0, nil
	}

	stored := make([]schema.Document, 0, len(processed.Chunks))
	for i, chunk := range processed.Chunks {
		vector, err := p.embedder.GetEmbedding(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d failed, err: %w", i, err)
		}
		stored = append(stored, schema.Document{
			ID:       fmt.Sprintf("%s:%d", processed.DocumentHash, i),
			Content:  chunk,
			Metadata: schema.FlattenMetadata(processed.Metadata, processed.ChunkMetadata[i], processed.DocumentHash),
			Vector:   vector,
		})
	}
	if err := p.store.AddDocs(ctx, stored); err != nil {
		return 0, fmt.Errorf("store document failed, err: %w", err)
	}
	metrics.AddIngestedChunks(string(processed.Metadata.Source), len(stored))
	logger.Infof("ingest: stored %d chunks for %q", len(stored), processed.Metadata.Title)
	return len(stored), nil
}

// ListChunks returns the stored chunks of one document by its hash.
func (p *Pipeline) ListChunks(ctx context.Context, documentHash string, limit int) ([]schema.Document, error) {
	if documentHash == "" {
		return nil, fmt.Errorf("empty document hash")
	}
	docs, err := p.store.GetDocs(ctx, map[string]any{schema.KeyDocumentHash: documentHash}, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks failed, err: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes every chunk of one document by its hash.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentHash string) error {
	if documentHash == "" {
		return fmt.Errorf("empty document hash")
	}
	if err := p.store.DeleteDocs(ctx, map[string]any{schema.KeyDocumentHash: documentHash}); err != nil {
		return fmt.Errorf("delete document failed, err: %w", err)
	}
	return nil
}
