// Package scoring implements the multi-factor confidence model that ranks
// retrieved passages. Similarity alone is a poor proxy for medical
// trustworthiness; the additive model keeps each axis independently
// tunable and traceable to a cause.
package scoring

import (
	"strconv"
	"strings"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// Source reliability lookup per source enumeration value.
var sourceReliability = map[string]float64{
	string(schema.SourcePubMed): 1.00,
	string(schema.SourceWHO):    0.95,
	string(schema.SourceCDC):    0.95,
	string(schema.SourceManual): 0.80,
}

const unknownSourceReliability = 0.50

// Document type weights.
var documentTypeWeight = map[string]float64{
	string(schema.TypeResearchPaper): 1.00,
	string(schema.TypeGuideline):     0.90,
	string(schema.TypeFactSheet):     0.85,
	string(schema.TypeGeneric):       0.80,
}

const unknownDocumentTypeWeight = 0.80

// ConfidenceScorer computes a scalar trust estimate in [0,1] for a
// candidate match. Score is pure and deterministic for identical inputs.
type ConfidenceScorer struct {
	weights config.ScoringConfig
}

// NewConfidenceScorer creates a scorer; zero weights select the default
// model.
func NewConfidenceScorer(cfg config.ScoringConfig) *ConfidenceScorer {
	if cfg.IsZero() {
		cfg = config.DefaultScoring
	}
	return &ConfidenceScorer{weights: cfg}
}

// Score combines similarity with source and metadata quality signals.
func (s *ConfidenceScorer) Score(similarity float64, metadata map[string]any, query string) float64 {
	sim := clamp01(similarity)

	score := s.weights.SimilarityWeight*sim +
		s.weights.SourceWeight*reliabilityOf(schema.MetaString(metadata, schema.KeySource)) +
		s.weights.DocumentTypeWeight*typeWeightOf(schema.MetaString(metadata, schema.KeyDocumentType)) +
		s.weights.RecencyWeight*recencyScore(schema.MetaString(metadata, schema.KeyPublicationDate)) +
		s.weights.RelevanceWeight*queryRelevance(metadata, query) +
		s.weights.QualityWeight*citationQuality(metadata)

	return clamp01(score)
}

func reliabilityOf(source string) float64 {
	if r, ok := sourceReliability[source]; ok {
		return r
	}
	return unknownSourceReliability
}

func typeWeightOf(docType string) float64 {
	if w, ok := documentTypeWeight[docType]; ok {
		return w
	}
	return unknownDocumentTypeWeight
}

// recencyScore buckets the publication year. Unknown or unparsable dates
// score below any parsed year.
func recencyScore(publicationDate string) float64 {
	year, ok := parseYear(publicationDate)
	if !ok {
		return 0.70
	}
	switch {
	case year >= 2020:
		return 1.00
	case year >= 2015:
		return 0.95
	case year >= 2010:
		return 0.90
	case year >= 2005:
		return 0.85
	default:
		return 0.80
	}
}

// parseYear extracts the leading year of an ISO date string.
func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1000 || year > 9999 {
		return 0, false
	}
	return year, true
}

// queryRelevance measures lexical agreement between the query and the
// document's title, specialty and keywords.
func queryRelevance(metadata map[string]any, query string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	relevance := 0.0

	titleTokens := tokenSet(tokenize(schema.MetaString(metadata, schema.KeyTitle)))
	matched := 0
	for _, tok := range queryTokens {
		if _, ok := titleTokens[tok]; ok {
			matched++
		}
	}
	relevance += 0.6 * float64(matched) / float64(len(queryTokens))

	specialtyTokens := tokenSet(tokenize(schema.MetaString(metadata, schema.KeyMedicalSpecialty)))
	for _, tok := range queryTokens {
		if _, ok := specialtyTokens[tok]; ok {
			relevance += 0.2
			break
		}
	}

	querySet := tokenSet(queryTokens)
	keywordBonus := 0.0
	for _, keyword := range schema.DecodeStringList(metadata[schema.KeyKeywords]) {
		for _, tok := range tokenize(keyword) {
			if _, ok := querySet[tok]; ok {
				keywordBonus += 0.1
				break
			}
		}
		if keywordBonus >= 0.3 {
			keywordBonus = 0.3
			break
		}
	}
	relevance += keywordBonus

	return clamp01(relevance)
}

// citationQuality rewards identifiers and attributable authorship.
func citationQuality(metadata map[string]any) float64 {
	quality := 0.5
	if schema.MetaString(metadata, schema.KeyDOI) != "" {
		quality += 0.2
	}
	if schema.MetaString(metadata, schema.KeyURL) != "" {
		quality += 0.1
	}
	if hasRealAuthors(metadata) {
		quality += 0.2
	}
	if quality > 1.0 {
		quality = 1.0
	}
	return quality
}

func hasRealAuthors(metadata map[string]any) bool {
	authors := schema.DecodeStringList(metadata[schema.KeyAuthors])
	for _, a := range authors {
		trimmed := strings.TrimSpace(a)
		if trimmed != "" && !strings.EqualFold(trimmed, schema.UnknownAuthor) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
