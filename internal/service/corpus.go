package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/coursebot/internal/domain"
)

// DefaultCatalogPattern matches the catalog exports dropped in the data directory.
const DefaultCatalogPattern = "cursos_completo_*.json"

// BuildCorpus normalizes every course in catalog order and keeps the texts
// long enough to be worth retrieving.
func BuildCorpus(catalog domain.Catalog) []domain.FlattenedDocument {
	docs := make([]domain.FlattenedDocument, 0, len(catalog))
	for _, entry := range catalog {
		text := Normalize(entry.Record)
		if utf8.RuneCountInString(strings.TrimSpace(text)) <= domain.MinDocumentLength {
			continue
		}
		docs = append(docs, domain.FlattenedDocument{
			CourseCode: entry.Code,
			Text:       text,
		})
	}
	return docs
}

// LatestCatalogFile returns the most recently modified file in dir matching pattern.
func LatestCatalogFile(dir, pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultCatalogPattern
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid catalog pattern %q: %w", pattern, err)
	}

	var (
		latest    string
		latestMod int64
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest, latestMod = path, mod
		}
	}

	if latest == "" {
		return "", domain.Wrap(domain.ErrCatalogNotFound, fmt.Errorf("no file matching %s in %s", pattern, dir))
	}
	return latest, nil
}

// LoadCatalog reads and decodes a catalog file.
func LoadCatalog(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.Wrap(domain.ErrCatalogNotFound, err)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, err := domain.ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filepath.Base(path), err)
	}
	return catalog, nil
}
