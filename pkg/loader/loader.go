package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/neuradynamics/neurarag/internal/models"
)

// LoadDir reads every markdown file under dir (recursively) and returns one
// Document per file, sorted by filename so indexing is reproducible.
func LoadDir(dir string) ([]models.Document, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan document directory: %w", err)
	}

	sort.Strings(paths)

	var docs []models.Document
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", path, err)
		}
		docs = append(docs, models.Document{
			Source: filepath.Base(path),
			Text:   string(data),
		})
	}

	return docs, nil
}
