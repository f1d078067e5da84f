// Package search provides fuzzy lookup of webhook definitions. Embedding
// generation and the vector index are external collaborators; the concrete
// types here are the dev/test defaults.
package search

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"hooklink/internal/platform/models"
)

// Embedder turns text into a vector. Production deployments plug in a real
// embedding service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index stores vectors and answers nearest-neighbour queries.
type Index interface {
	Upsert(id string, vec []float32)
	Delete(id string)
	Search(vec []float32, k int) []Match
}

type Match struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Service indexes definitions by "provider event" text and serves fuzzy
// queries against them. Purely additive: resolution never consults it.
type Service struct {
	embedder Embedder
	index    Index
}

func NewService(embedder Embedder, index Index) *Service {
	return &Service{embedder: embedder, index: index}
}

func (s *Service) IndexDefinition(ctx context.Context, def *models.WebhookDefinition) error {
	vec, err := s.embedder.Embed(ctx, def.ProviderID+" "+def.SubscribedEventID)
	if err != nil {
		return err
	}
	s.index.Upsert(def.ID, vec)
	return nil
}

func (s *Service) RemoveDefinition(id string) {
	s.index.Delete(id)
}

func (s *Service) Search(ctx context.Context, query string, k int) ([]Match, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(vec, k), nil
}

// MemoryIndex is a brute-force cosine-similarity index.
type MemoryIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{vecs: make(map[string][]float32)}
}

func (m *MemoryIndex) Upsert(id string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[id] = vec
}

func (m *MemoryIndex) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vecs, id)
}

func (m *MemoryIndex) Search(vec []float32, k int) []Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.vecs))
	for id, candidate := range m.vecs {
		matches = append(matches, Match{ID: id, Score: cosine(vec, candidate)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// HashEmbedder is a deterministic token-hashing embedder: each whitespace
// token bumps one bucket. Good enough for dev and tests, not for semantics.
type HashEmbedder struct {
	Dim int
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float32, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(dim)]++
	}
	return vec, nil
}
