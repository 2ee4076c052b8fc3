package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

const (
	columnText       = "text"
	columnEmbedding  = "embedding"
	columnCourseCode = "course_code"
)

// WriteCSV writes records as a table with columns text, embedding, course_code.
// Embeddings are written as "[v1, v2, ...]" using the shortest float32 form.
func WriteCSV(w io.Writer, records []domain.EmbeddingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{columnText, columnEmbedding, columnCourseCode}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write([]string{rec.Text, FormatVector(rec.Embedding), rec.CourseCode}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV. Columns are located by header name,
// so extra columns such as a leading index are ignored.
func ReadCSV(r io.Reader) ([]domain.EmbeddingRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, errors.New("missing header"))
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range []string{columnText, columnEmbedding, columnCourseCode} {
		if _, ok := cols[name]; !ok {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, fmt.Errorf("missing column %q", name))
		}
	}

	records := []domain.EmbeddingRecord{}
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, fmt.Errorf("row %d: %w", row, err))
		}

		get := func(name string) (string, error) {
			idx := cols[name]
			if idx >= len(fields) {
				return "", fmt.Errorf("row %d: missing %s", row, name)
			}
			return fields[idx], nil
		}

		text, err := get(columnText)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, err)
		}
		code, err := get(columnCourseCode)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, err)
		}
		rawVector, err := get(columnEmbedding)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, err)
		}
		vector, err := ParseVector(rawVector)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidEmbeddingData, fmt.Errorf("row %d: %w", row, err))
		}

		records = append(records, domain.EmbeddingRecord{
			CourseCode: code,
			Text:       text,
			Embedding:  vector,
		})
	}

	return records, nil
}

// FormatVector renders v as a bracketed, comma separated list.
func FormatVector(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*12 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVector parses a bracketed list of finite numbers. Higher precision literals
// are rounded to the nearest float32.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("embedding is not a bracketed list")
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []float32{}, nil
	}

	parts := strings.Split(inner, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("embedding value %d: %w", i, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("embedding value %d is not finite", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}
