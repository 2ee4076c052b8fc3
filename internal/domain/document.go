package domain

// MinDocumentLength is the trimmed length a flattened text must exceed to enter the corpus.
const MinDocumentLength = 50

// FlattenedDocument is the retrieval text produced for one course.
type FlattenedDocument struct {
	CourseCode string
	Text       string
}

// EmbeddingRecord is a corpus entry: the flattened text and its vector.
type EmbeddingRecord struct {
	CourseCode string
	Text       string
	Embedding  []float32
}

// RankedResult is a corpus entry scored against a query.
type RankedResult struct {
	CourseCode string
	Text       string
	Score      float64
}
