package domain

import (
	"strings"

	"github.com/tidwall/gjson"
)

// CourseMetadata holds the identifying scalars of a course.
// Empty strings mean the field was absent or falsy in the source document.
type CourseMetadata struct {
	Name       string
	Code       string
	Discipline string
	Credits    string
}

// ContentEntry is one top-level entry of the course contents tree.
// Plain string entries carry only a Title.
type ContentEntry struct {
	Title       string
	Subsections []string
}

// EvaluationItem is a component of the course assessment and its weight
// rendered as it appears in the source document.
type EvaluationItem struct {
	Component string
	Weight    string
}

// Evaluation describes the assessment breakdown. Weighted is true when the
// source used the {"items": {...}} shape.
type Evaluation struct {
	Weighted bool
	Items    []EvaluationItem
}

// Bibliography holds the raw_text of each reference, split by list.
type Bibliography struct {
	Minimum       []string
	Complementary []string
}

// CourseRecord is a course as published in the catalog. Every field is optional.
type CourseRecord struct {
	Metadata         CourseMetadata
	Description      string
	LearningOutcomes []string
	Contents         []ContentEntry
	Methodologies    []string
	Evaluation       *Evaluation
	Bibliography     *Bibliography
}

// CatalogEntry pairs a course code with its record.
type CatalogEntry struct {
	Code   string
	Record CourseRecord
}

// Catalog is the ordered list of courses found in a catalog file.
type Catalog []CatalogEntry

// ParseCatalog decodes a catalog document, keeping the document order of courses.
// Only a document whose top level is not a JSON object is rejected; malformed
// fields inside a course are treated as absent.
func ParseCatalog(data []byte) (Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidCatalog
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalidCatalog
	}

	catalog := Catalog{}
	root.ForEach(func(key, value gjson.Result) bool {
		catalog = append(catalog, CatalogEntry{
			Code:   key.String(),
			Record: parseCourseRecord(value),
		})
		return true
	})
	return catalog, nil
}

// ParseCourseRecord decodes a single course document.
func ParseCourseRecord(data []byte) CourseRecord {
	if !gjson.ValidBytes(data) {
		return CourseRecord{}
	}
	return parseCourseRecord(gjson.ParseBytes(data))
}

func parseCourseRecord(r gjson.Result) CourseRecord {
	if !r.IsObject() {
		return CourseRecord{}
	}

	var rec CourseRecord
	if meta := field(r, "metadata"); meta.IsObject() {
		rec.Metadata = CourseMetadata{
			Name:       scalar(field(meta, "nombre")),
			Code:       scalar(field(meta, "codigo")),
			Discipline: scalar(field(meta, "disciplina")),
			Credits:    scalar(field(meta, "creditos")),
		}
	}
	rec.Description = scalar(field(r, "descripcion"))
	rec.LearningOutcomes = stringList(field(r, "resultados_aprendizaje"))
	rec.Contents = parseContents(field(r, "contenidos"))
	rec.Methodologies = stringList(field(r, "metodologias"))
	rec.Evaluation = parseEvaluation(field(r, "evaluacion"))
	rec.Bibliography = parseBibliography(r)
	return rec
}

func parseContents(r gjson.Result) []ContentEntry {
	if !r.IsObject() {
		return nil
	}

	var entries []ContentEntry
	r.ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String:
			entries = append(entries, ContentEntry{Title: value.Str})
		case value.IsObject():
			title, ok := member(value, "titulo")
			if !ok {
				return true
			}
			entry := ContentEntry{Title: scalar(title)}
			if subs := field(value, "subsecciones"); subs.IsObject() {
				subs.ForEach(func(_, sub gjson.Result) bool {
					if !sub.IsObject() {
						return true
					}
					if t, ok := member(sub, "titulo"); ok {
						entry.Subsections = append(entry.Subsections, scalar(t))
					}
					return true
				})
			}
			entries = append(entries, entry)
		}
		return true
	})
	return entries
}

func parseEvaluation(r gjson.Result) *Evaluation {
	if !r.IsObject() {
		return nil
	}

	eval := &Evaluation{}
	source := r
	if items, ok := member(r, "items"); ok {
		eval.Weighted = true
		source = items
	}
	if !source.IsObject() {
		return eval
	}
	source.ForEach(func(key, value gjson.Result) bool {
		eval.Items = append(eval.Items, EvaluationItem{
			Component: key.String(),
			Weight:    literal(value),
		})
		return true
	})
	return eval
}

// parseBibliography picks the first non-empty of "bibliography" and "bibliografia".
func parseBibliography(r gjson.Result) *Bibliography {
	var src gjson.Result
	for _, key := range []string{"bibliography", "bibliografia"} {
		if candidate := field(r, key); candidate.IsObject() && len(candidate.Map()) > 0 {
			src = candidate
			break
		}
	}
	if !src.Exists() {
		return nil
	}

	return &Bibliography{
		Minimum:       rawTexts(field(src, "minima")),
		Complementary: rawTexts(field(src, "complementaria")),
	}
}

func rawTexts(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, entry := range r.Array() {
		if !entry.IsObject() {
			continue
		}
		if text := field(entry, "raw_text"); text.Type == gjson.String && text.Str != "" {
			out = append(out, text.Str)
		}
	}
	return out
}

// stringList returns the non-empty string items of an array, or nil for any other shape.
func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if item.Type == gjson.String && item.Str != "" {
			out = append(out, item.Str)
		}
	}
	return out
}

// field looks up a direct member by exact key. gjson paths treat dots and
// wildcards specially, so keys are matched by iteration instead.
func field(r gjson.Result, key string) gjson.Result {
	v, _ := member(r, key)
	return v
}

func member(r gjson.Result, key string) (gjson.Result, bool) {
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	var (
		found gjson.Result
		ok    bool
	)
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// scalar renders a truthy scalar. Zero numbers, false, null, empty strings
// and composite values render as "".
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if r.Num == 0 {
			return ""
		}
		return strings.TrimSpace(r.Raw)
	case gjson.True:
		return "true"
	default:
		return ""
	}
}

// literal renders any value the way it appears in the document, strings unquoted.
func literal(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return strings.TrimSpace(r.Raw)
}
