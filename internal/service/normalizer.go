package service

import (
	"strings"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

// maxBibliographyEntries caps how many references end up in the retrieval text.
const maxBibliographyEntries = 5

// Normalize flattens a course record into the labelled text used for retrieval.
// Absent fields are skipped, so an empty record yields "".
func Normalize(rec domain.CourseRecord) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+value)
		}
	}

	add("Curso: ", rec.Metadata.Name)
	add("Código: ", rec.Metadata.Code)
	add("Disciplina: ", rec.Metadata.Discipline)
	add("Créditos: ", rec.Metadata.Credits)
	add("Descripción: ", rec.Description)
	add("Resultados de aprendizaje: ", strings.Join(rec.LearningOutcomes, " "))
	add("Contenidos: ", strings.Join(contentTitles(rec.Contents), " "))
	add("Metodologías: ", strings.Join(rec.Methodologies, " "))
	add("Evaluación: ", strings.Join(evaluationItems(rec.Evaluation), " "))
	add("Bibliografía: ", strings.Join(bibliographyEntries(rec.Bibliography), " "))

	return strings.Join(parts, " ")
}

func contentTitles(entries []domain.ContentEntry) []string {
	var titles []string
	for _, entry := range entries {
		if entry.Title != "" {
			titles = append(titles, entry.Title)
		}
		for _, sub := range entry.Subsections {
			if sub != "" {
				titles = append(titles, sub)
			}
		}
	}
	return titles
}

// evaluationItems renders weights with a percent sign only for the weighted
// {"items": ...} shape; flat evaluations keep their weights verbatim.
func evaluationItems(eval *domain.Evaluation) []string {
	if eval == nil {
		return nil
	}
	items := make([]string, 0, len(eval.Items))
	for _, item := range eval.Items {
		if eval.Weighted {
			items = append(items, item.Component+" "+item.Weight+"%")
		} else {
			items = append(items, item.Component+" "+item.Weight)
		}
	}
	return items
}

func bibliographyEntries(bib *domain.Bibliography) []string {
	if bib == nil {
		return nil
	}
	entries := make([]string, 0, len(bib.Minimum)+len(bib.Complementary))
	entries = append(entries, bib.Minimum...)
	entries = append(entries, bib.Complementary...)
	if len(entries) > maxBibliographyEntries {
		entries = entries[:maxBibliographyEntries]
	}
	return entries
}
