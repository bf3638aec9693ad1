package config

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	if err := c.validateEngine(); err != nil {
		errs = append(errs, err...)
	}
	if err := c.validateScoring(); err != nil {
		errs = append(errs, err...)
	}
	if err := c.validateEmbedding(); err != nil {
		errs = append(errs, err...)
	}
	if err := c.validateVectorDB(); err != nil {
		errs = append(errs, err...)
	}
	if err := c.validateSources(); err != nil {
		errs = append(errs, err...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateEngine() ValidationErrors {
	var errs ValidationErrors

	s := c.Engine.Splitter
	if s.ChunkSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.splitter.chunk_size",
			Message: fmt.Sprintf("chunk size must be positive, got %d", s.ChunkSize),
		})
	}
	if s.ChunkOverlap < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.splitter.chunk_overlap",
			Message: fmt.Sprintf("chunk overlap must not be negative, got %d", s.ChunkOverlap),
		})
	}
	if s.ChunkSize > 0 && s.ChunkOverlap >= s.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "engine.splitter.chunk_overlap",
			Message: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", s.ChunkOverlap, s.ChunkSize),
		})
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.confidence_threshold",
			Message: fmt.Sprintf("confidence threshold must be within [0,1], got %g", c.Engine.ConfidenceThreshold),
		})
	}

	return errs
}

func (c *Config) validateScoring() ValidationErrors {
	var errs ValidationErrors

	if c.Scoring.IsZero() {
		return nil
	}
	weights := []struct {
		field string
		value float64
	}{
		{"scoring.similarity_weight", c.Scoring.SimilarityWeight},
		{"scoring.source_weight", c.Scoring.SourceWeight},
		{"scoring.document_type_weight", c.Scoring.DocumentTypeWeight},
		{"scoring.recency_weight", c.Scoring.RecencyWeight},
		{"scoring.relevance_weight", c.Scoring.RelevanceWeight},
		{"scoring.quality_weight", c.Scoring.QualityWeight},
	}
	sum := 0.0
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			errs = append(errs, ValidationError{
				Field:   w.field,
				Message: fmt.Sprintf("weight must be within [0,1], got %g", w.value),
			})
		}
		sum += w.value
	}
	if math.Abs(sum-1.0) > 1e-6 {
		errs = append(errs, ValidationError{
			Field:   "scoring",
			Message: fmt.Sprintf("confidence weights must sum to 1.0, got %g", sum),
		})
	}

	return errs
}

func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
		})
	}

	return errs
}

func (c *Config) validateVectorDB() ValidationErrors {
	var errs ValidationErrors

	switch c.VectorDB.Provider {
	case "":
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: "vectordb provider is required",
		})
	case "milvus":
		if c.VectorDB.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.host",
				Message: "milvus host is required",
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: "milvus collection is required",
			})
		}
	case "memory":
		// no connection parameters required
	default:
		errs = append(errs, ValidationError{
			Field:   "vectordb.provider",
			Message: fmt.Sprintf("unsupported vectordb provider %q", c.VectorDB.Provider),
		})
	}

	return errs
}

func (c *Config) validateSources() ValidationErrors {
	var errs ValidationErrors

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sources[%d].name", i),
				Message: "source name is required",
			})
			continue
		}
		if _, ok := seen[src.Name]; ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sources[%d].name", i),
				Message: fmt.Sprintf("duplicate source %q", src.Name),
			})
		}
		seen[src.Name] = struct{}{}
		if src.RequestsPerSecond < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sources[%d].requests_per_second", i),
				Message: fmt.Sprintf("rate limit must not be negative, got %g", src.RequestsPerSecond),
			})
		}
	}

	return errs
}
