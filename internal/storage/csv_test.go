package storage

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cloo-solutions/coursebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV_RoundTripIsExact(t *testing.T) {
	records := []domain.EmbeddingRecord{
		{
			CourseCode: "IA2001",
			Text:       `Curso: IA2001 Evaluación: control 50% examen 50%, con "comillas"`,
			Embedding:  []float32{0.1, -0.2, 1e-7, 3.4028235e38, math.SmallestNonzeroFloat32, 0, float32(math.Copysign(0, -1))},
		},
		{
			CourseCode: "IA1001",
			Text:       "Texto con\nsalto de línea",
			Embedding:  []float32{-0.0123456789, 0.333333343, 12345.678},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for i := range records {
		assert.Equal(t, records[i].CourseCode, got[i].CourseCode)
		assert.Equal(t, records[i].Text, got[i].Text)
		require.Len(t, got[i].Embedding, len(records[i].Embedding))
		for j := range records[i].Embedding {
			assert.Equal(t, math.Float32bits(records[i].Embedding[j]), math.Float32bits(got[i].Embedding[j]), "row %d value %d", i, j)
		}
	}
}

func TestWriteCSV_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.EmbeddingRecord{
		{CourseCode: "IA2001", Text: "texto", Embedding: []float32{0.5, -1, 0.25}},
	}))

	assert.Equal(t, "text,embedding,course_code\ntexto,\"[0.5, -1, 0.25]\",IA2001\n", buf.String())
}

func TestReadCSV_EmptyTable(t *testing.T) {
	records, err := ReadCSV(strings.NewReader("text,embedding,course_code\n"))

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSV_ColumnsByNameWithIndex(t *testing.T) {
	data := ",course_code,text,embedding\n0,IA2001,texto,\"[0.1,0.2 ,  0.3]\"\n"

	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "IA2001", records[0].CourseCode)
	assert.Equal(t, "texto", records[0].Text)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, records[0].Embedding)
}

func TestReadCSV_Float64LiteralsNarrowed(t *testing.T) {
	data := "text,embedding,course_code\nt,\"[0.0023064255, -0.009327292, 0.1000000000000000055511151231257827]\",C\n"

	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.0023064255, -0.009327292, 0.1}, records[0].Embedding)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		errText string
	}{
		{"Empty", "", "missing header"},
		{"MissingColumn", "text,course_code\nt,C\n", `missing column "embedding"`},
		{"BadVector", "text,embedding,course_code\nt,[0.1; 0.2],C\n", "row 1"},
		{"NotBracketed", "text,embedding,course_code\nt,0.1,C\n", "bracketed"},
		{"ShortRow", "text,embedding,course_code\nt,\"[1]\"\n", "row 1: missing course_code"},
		{"NaN", "text,embedding,course_code\nt,\"[0.1, 0.2]\",A\nt,\"[0.1, nan]\",B\n", "row 2: embedding value 1 is not finite"},
		{"Inf", "text,embedding,course_code\nt,\"[inf, 0.2]\",A\n", "row 1: embedding value 0 is not finite"},
		{"NegativeInf", "text,embedding,course_code\nt,\"[0.5, -Inf]\",A\n", "row 1: embedding value 1 is not finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadCSV(strings.NewReader(tt.data))
			assert.Nil(t, records)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidEmbeddingData))
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", FormatVector(nil))
	assert.Equal(t, "[1, 2.5]", FormatVector([]float32{1, 2.5}))
}
