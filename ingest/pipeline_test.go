package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/vectordb"
)

type stubEmbedder struct {
	err   error
	calls atomic.Int64
}

func (s *stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) GetProviderType() string { return "stub" }

func testPipeline(t *testing.T, store *vectordb.MemoryProvider, embedder *stubEmbedder) *Pipeline {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	p, err := NewPipeline(cfg, store, embedder)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func guidelineDoc(content string) RawDocument {
	return RawDocument{
		Content: content,
		Metadata: schema.DocumentMetadata{
			Source:       schema.SourceWHO,
			DocumentType: schema.TypeGuideline,
			Title:        "Guideline on perinatal mental health",
		},
	}
}

func TestProcessValidatesAndChunks(t *testing.T) {
	p := testPipeline(t, vectordb.NewMemoryProvider(), &stubEmbedder{})

	doc, err := p.Process("Screen all patients at intake.", schema.DocumentMetadata{
		Source:       schema.SourceCDC,
		DocumentType: schema.TypeFactSheet,
		Title:        "Screening",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(doc.Chunks) != len(doc.ChunkMetadata) {
		t.Errorf("chunks and metadata not parallel")
	}
	if doc.DocumentHash != schema.HashContent(doc.Content) {
		t.Errorf("document hash mismatch")
	}
	if doc.Metadata.Language != "en" || len(doc.Metadata.Authors) != 1 {
		t.Errorf("metadata defaults not applied: %+v", doc.Metadata)
	}
}

func TestProcessRejectsBadInput(t *testing.T) {
	p := testPipeline(t, vectordb.NewMemoryProvider(), &stubEmbedder{})

	if _, err := p.Process("", schema.DocumentMetadata{Source: schema.SourceCDC, DocumentType: schema.TypeFactSheet}); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := p.Process("text", schema.DocumentMetadata{Source: "blog", DocumentType: schema.TypeFactSheet}); err == nil {
		t.Error("expected error for unknown source")
	}
	if _, err := p.Process("text", schema.DocumentMetadata{Source: schema.SourceCDC, DocumentType: "tweet"}); err == nil {
		t.Error("expected error for unknown document type")
	}
}

func TestIngestStoresChunks(t *testing.T) {
	store := vectordb.NewMemoryProvider()
	p := testPipeline(t, store, &stubEmbedder{})

	content := strings.Repeat("Early screening improves outcomes for most patients. ", 40)
	written, err := p.Ingest(context.Background(), []RawDocument{guidelineDoc(content)})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if store.Len() < 2 {
		t.Errorf("expected several chunks in the store, got %d", store.Len())
	}
	if written != store.Len() {
		t.Errorf("Ingest returned %d, want the %d chunks written", written, store.Len())
	}

	hash := schema.HashContent(content)
	docs, err := store.GetDocs(context.Background(), map[string]any{schema.KeyDocumentHash: hash}, 100)
	if err != nil {
		t.Fatalf("GetDocs failed: %v", err)
	}
	if len(docs) != store.Len() {
		t.Errorf("all chunks should carry the document hash")
	}
	for i, doc := range docs {
		want := fmt.Sprintf("%s:%d", hash, i)
		if doc.ID != want {
			t.Errorf("chunk ID = %q, want %q", doc.ID, want)
		}
	}
}

func TestIngestIdempotent(t *testing.T) {
	store := vectordb.NewMemoryProvider()
	embedder := &stubEmbedder{}
	p := testPipeline(t, store, embedder)

	doc := guidelineDoc("Screen all new patients for depressive symptoms at intake.")
	written, err := p.Ingest(context.Background(), []RawDocument{doc})
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	if written != store.Len() {
		t.Errorf("first Ingest returned %d, want %d chunks", written, store.Len())
	}
	countAfterFirst := store.Len()
	callsAfterFirst := embedder.calls.Load()

	written, err = p.Ingest(context.Background(), []RawDocument{doc})
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, duplicates write no chunks", written)
	}
	if store.Len() != countAfterFirst {
		t.Errorf("store grew from %d to %d on re-ingestion", countAfterFirst, store.Len())
	}
	if embedder.calls.Load() != callsAfterFirst {
		t.Error("duplicate content should not be re-embedded")
	}
}

func TestIngestSkipsFailedDocuments(t *testing.T) {
	store := vectordb.NewMemoryProvider()
	p := testPipeline(t, store, &stubEmbedder{})

	docs := []RawDocument{
		{Content: "", Metadata: guidelineDoc("x").Metadata},
		guidelineDoc("Valid guidance on sleep hygiene for adolescents."),
	}
	written, err := p.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if written != store.Len() || written == 0 {
		t.Errorf("written = %d, want the %d chunks of the valid document", written, store.Len())
	}
}

func TestIngestAllFailed(t *testing.T) {
	p := testPipeline(t, vectordb.NewMemoryProvider(), &stubEmbedder{err: errors.New("api down")})

	stored, err := p.Ingest(context.Background(), []RawDocument{guidelineDoc("Some guidance text.")})
	if err == nil {
		t.Error("expected error when every document fails")
	}
	if stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
}

func TestListAndDeleteDocument(t *testing.T) {
	store := vectordb.NewMemoryProvider()
	p := testPipeline(t, store, &stubEmbedder{})

	content := "Guidance on medication adherence for chronic conditions."
	if _, err := p.Ingest(context.Background(), []RawDocument{guidelineDoc(content)}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	hash := schema.HashContent(content)

	chunks, err := p.ListChunks(context.Background(), hash, 100)
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("ListChunks returned nothing")
	}

	if err := p.DeleteDocument(context.Background(), hash); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store still holds %d chunks after delete", store.Len())
	}

	if _, err := p.ListChunks(context.Background(), "", 10); err == nil {
		t.Error("expected error for empty hash")
	}
	if err := p.DeleteDocument(context.Background(), ""); err == nil {
		t.Error("expected error for empty hash")
	}
}
