package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

const (
	milvusFieldID       = "id"
	milvusFieldContent  = "content"
	milvusFieldMetadata = "metadata"
	milvusFieldVector   = "vector"

	milvusIDMaxLength      = 256
	milvusContentMaxLength = 65535
)

// milvusProvider stores chunks in a Milvus collection with a JSON
// metadata field and a cosine-indexed float vector field.
type milvusProvider struct {
	client     client.Client
	collection string
	dim        int
}

func newMilvusProvider(cfg *config.VectorDBConfig, dim int) (*milvusProvider, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("milvus provider requires a positive vector dimension, got %d", dim)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := client.NewClient(ctx, client.Config{
		Address:  fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus failed, err: %w", err)
	}

	p := &milvusProvider{client: c, collection: cfg.Collection, dim: dim}
	if err := p.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return p, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context) error {
	has, err := p.client.HasCollection(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("check collection failed, err: %w", err)
	}
	if !has {
		collSchema := &entity.Schema{
			CollectionName: p.collection,
			AutoID:         false,
			Fields: []*entity.Field{
				entity.NewField().WithName(milvusFieldID).WithDataType(entity.FieldTypeVarChar).
					WithMaxLength(milvusIDMaxLength).WithIsPrimaryKey(true),
				entity.NewField().WithName(milvusFieldContent).WithDataType(entity.FieldTypeVarChar).
					WithMaxLength(milvusContentMaxLength),
				entity.NewField().WithName(milvusFieldMetadata).WithDataType(entity.FieldTypeJSON),
				entity.NewField().WithName(milvusFieldVector).WithDataType(entity.FieldTypeFloatVector).
					WithDim(int64(p.dim)),
			},
		}
		if err := p.client.CreateCollection(ctx, collSchema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection failed, err: %w", err)
		}
		index, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
		if err != nil {
			return fmt.Errorf("build index failed, err: %w", err)
		}
		if err := p.client.CreateIndex(ctx, p.collection, milvusFieldVector, index, false); err != nil {
			return fmt.Errorf("create index failed, err: %w", err)
		}
	}
	if err := p.client.LoadCollection(ctx, p.collection, false); err != nil {
		return fmt.Errorf("load collection failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	metadatas := make([][]byte, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Vector) != p.dim {
			return fmt.Errorf("vector dimension mismatch for doc %s: got %d, want %d", doc.ID, len(doc.Vector), p.dim)
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata failed, err: %w", err)
		}
		ids = append(ids, doc.ID)
		contents = append(contents, doc.Content)
		metadatas = append(metadatas, meta)
		vectors = append(vectors, doc.Vector)
	}

	_, err := p.client.Insert(ctx, p.collection, "",
		entity.NewColumnVarChar(milvusFieldID, ids),
		entity.NewColumnVarChar(milvusFieldContent, contents),
		entity.NewColumnJSONBytes(milvusFieldMetadata, metadatas),
		entity.NewColumnFloatVector(milvusFieldVector, p.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert documents failed, err: %w", err)
	}
	if err := p.client.Flush(ctx, p.collection, false); err != nil {
		return fmt.Errorf("flush collection failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	expr := ""
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		expr = filterExpr(opts.Filter)
		threshold = opts.Threshold
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search param failed, err: %w", err)
	}
	results, err := p.client.Search(ctx, p.collection, nil, expr,
		[]string{milvusFieldID, milvusFieldContent, milvusFieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusFieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search documents failed, err: %w", err)
	}

	var out []schema.SearchResult
	for _, rs := range results {
		contents := varcharColumn(rs.Fields, milvusFieldContent)
		metadatas := jsonColumn(rs.Fields, milvusFieldMetadata)
		idCol, _ := rs.IDs.(*entity.ColumnVarChar)
		for i := 0; i < rs.ResultCount; i++ {
			doc := schema.Document{}
			if idCol != nil && i < idCol.Len() {
				doc.ID = idCol.Data()[i]
			}
			if i < len(contents) {
				doc.Content = contents[i]
			}
			if i < len(metadatas) {
				doc.Metadata = decodeMetadata(metadatas[i])
			}
			// COSINE returns similarity; convert to distance so callers
			// apply the uniform max(0, 1-distance) rule.
			similarity := float64(rs.Scores[i])
			if threshold > 0 && similarity < threshold {
				continue
			}
			out = append(out, schema.SearchResult{
				Document: doc,
				Score:    similarity,
				Distance: 1 - similarity,
			})
		}
	}
	return out, nil
}

func (p *milvusProvider) GetDocs(ctx context.Context, filter map[string]any, limit int) ([]schema.Document, error) {
	expr := filterExpr(filter)
	if expr == "" {
		return nil, fmt.Errorf("filter-only retrieval requires a non-empty filter")
	}
	opts := []client.SearchQueryOptionFunc{}
	if limit > 0 {
		opts = append(opts, client.WithLimit(int64(limit)))
	}
	rs, err := p.client.Query(ctx, p.collection, nil, expr,
		[]string{milvusFieldID, milvusFieldContent, milvusFieldMetadata}, opts...)
	if err != nil {
		return nil, fmt.Errorf("query documents failed, err: %w", err)
	}

	ids := varcharColumn(rs, milvusFieldID)
	contents := varcharColumn(rs, milvusFieldContent)
	metadatas := jsonColumn(rs, milvusFieldMetadata)
	out := make([]schema.Document, 0, len(ids))
	for i := range ids {
		doc := schema.Document{ID: ids[i]}
		if i < len(contents) {
			doc.Content = contents[i]
		}
		if i < len(metadatas) {
			doc.Metadata = decodeMetadata(metadatas[i])
		}
		out = append(out, doc)
	}
	return out, nil
}

func (p *milvusProvider) DeleteDocs(ctx context.Context, filter map[string]any) error {
	expr := filterExpr(filter)
	if expr == "" {
		return fmt.Errorf("delete requires a non-empty filter")
	}
	if err := p.client.Delete(ctx, p.collection, "", expr); err != nil {
		return fmt.Errorf("delete documents failed, err: %w", err)
	}
	return nil
}

func (p *milvusProvider) Close() error {
	return p.client.Close()
}

func varcharColumn(cols []entity.Column, name string) []string {
	for _, col := range cols {
		if col.Name() == name {
			if vc, ok := col.(*entity.ColumnVarChar); ok {
				return vc.Data()
			}
		}
	}
	return nil
}

func jsonColumn(cols []entity.Column, name string) [][]byte {
	for _, col := range cols {
		if col.Name() == name {
			if jc, ok := col.(*entity.ColumnJSONBytes); ok {
				return jc.Data()
			}
		}
	}
	return nil
}

func decodeMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
