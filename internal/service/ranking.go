package service

import (
	"math"
	"sort"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

// DefaultTopN is how many ranked entries the orchestrator hands to the assembler.
const DefaultTopN = 100

// CosineSimilarity returns 1 minus the cosine distance of a and b.
// Vectors of different length, with zero magnitude or with non-finite components score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}

// Rank scores every record against query and sorts by descending similarity.
// Ties keep corpus order.
func Rank(query []float32, records []domain.EmbeddingRecord) []domain.RankedResult {
	ranked := make([]domain.RankedResult, len(records))
	for i, rec := range records {
		ranked[i] = domain.RankedResult{
			CourseCode: rec.CourseCode,
			Text:       rec.Text,
			Score:      CosineSimilarity(query, rec.Embedding),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Corpus is the immutable in-memory embedding store loaded once at startup.
type Corpus struct {
	records []domain.EmbeddingRecord
}

// NewCorpus wraps records. The slice must not be modified afterwards.
func NewCorpus(records []domain.EmbeddingRecord) *Corpus {
	return &Corpus{records: records}
}

// Len returns the number of documents in the corpus.
func (c *Corpus) Len() int {
	return len(c.records)
}

// Rank returns the best limit entries for query; limit <= 0 returns all of them.
func (c *Corpus) Rank(query []float32, limit int) []domain.RankedResult {
	ranked := Rank(query, c.records)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
