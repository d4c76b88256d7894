package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/neuradynamics/neurarag/internal/models"
)

const indexFileName = "index.json"

type localEntry struct {
	Chunk  models.Chunk `json:"chunk"`
	Vector []float32    `json:"vector"`
}

type localIndexFile struct {
	Entries []localEntry `json:"entries"`
}

// Local is a brute-force cosine-similarity index persisted as a JSON file in
// a directory. Saves write to a temp file and rename, so a rebuild replaces
// the on-disk index atomically.
type Local struct {
	mu      sync.RWMutex
	dir     string
	entries []localEntry
}

// NewLocal returns an empty index that will persist under dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// OpenLocal loads a previously saved index from dir. A missing index file is
// not an error; it yields an empty index.
func OpenLocal(dir string) (*Local, error) {
	l := &Local{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var file localIndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	l.entries = file.Entries
	return l, nil
}

func (l *Local) Add(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range chunks {
		l.entries = append(l.entries, localEntry{Chunk: chunks[i], Vector: vectors[i]})
	}
	return nil
}

func (l *Local) Search(_ context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return nil, ErrEmptyIndex
	}

	results := make([]models.ScoredChunk, 0, len(l.entries))
	for _, e := range l.entries {
		results = append(results, models.ScoredChunk{
			Chunk: e.Chunk,
			Score: cosine(vector, e.Vector),
		})
	}

	// Stable sort keeps insertion order on equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (l *Local) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

func (l *Local) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	return nil
}

func (l *Local) Close() {}

// Save persists the index to its directory. The write goes to a temporary
// file first and is renamed into place, so readers of the old file never see
// a partially written index.
func (l *Local) Save() error {
	l.mu.RLock()
	file := localIndexFile{Entries: l.entries}
	l.mu.RUnlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, indexFileName+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, indexFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	return nil
}

// Promote publishes a freshly built index; for the local store that is the
// atomic snapshot write.
func (l *Local) Promote(_ context.Context) error {
	return l.Save()
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
