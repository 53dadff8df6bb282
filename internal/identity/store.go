// Package identity holds the known-identity embedding store
package identity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultTolerance is the embedding distance at or below which two faces
// are considered the same person.
const DefaultTolerance = 0.6

// Store maps identity names to precomputed face embeddings. It is loaded
// once at startup and read-only afterwards, so concurrent camera pipelines
// may match against it without locking.
type Store struct {
	names      []string
	embeddings map[string][][]float64
	tolerance  float64

	mu     sync.Mutex
	loaded bool
	logger *slog.Logger
}

// NewStore creates an empty store with the given match tolerance
func NewStore(tolerance float64) *Store {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Store{
		embeddings: make(map[string][][]float64),
		tolerance:  tolerance,
		logger:     slog.Default().With("component", "identity_store"),
	}
}

// LoadDir loads every identity file from a directory. Each file is named
// <name>.json and contains a JSON array of embedding vectors. Files are
// loaded in lexical order, which fixes the match iteration order.
func (s *Store) LoadDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return fmt.Errorf("identity store already loaded")
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		s.logger.Warn("No identity directory found", "dir", dir)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read identity dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, file := range names {
		name := strings.TrimSuffix(file, ".json")
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("failed to read identity file %s: %w", file, err)
		}
		var vectors [][]float64
		if err := json.Unmarshal(data, &vectors); err != nil {
			return fmt.Errorf("failed to parse identity file %s: %w", file, err)
		}
		s.names = append(s.names, name)
		s.embeddings[name] = vectors
		s.logger.Info("Loaded identity", "name", name, "embeddings", len(vectors))
	}

	s.loaded = true
	s.logger.Info("Identity store ready", "identities", len(s.names))
	return nil
}

// Add registers an identity programmatically. Insertion order determines
// match precedence. Only valid before the store is in use.
func (s *Store) Add(name string, vectors [][]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.embeddings[name]; !exists {
		s.names = append(s.names, name)
	}
	s.embeddings[name] = append(s.embeddings[name], vectors...)
}

// Match returns the first identity, in insertion order, whose embedding set
// contains any vector within tolerance of the given embedding. Returns
// UnknownIdentity semantics via ok == false when nothing matches.
func (s *Store) Match(embedding []float64) (string, bool) {
	for _, name := range s.names {
		for _, known := range s.embeddings[name] {
			if distance(known, embedding) <= s.tolerance {
				return name, true
			}
		}
	}
	return "", false
}

// Names returns the identity names in insertion order
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of known identities
func (s *Store) Len() int {
	return len(s.names)
}

func distance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
