package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

// MemoryIndex is an immutable in-process snapshot of the passage index.
// Search scans every passage.
type MemoryIndex struct {
	passages []models.Passage
	norms    []float64
}

// NewMemoryIndex copies passages into a new index. Passages without a Seq
// get their position in the slice (1-based).
func NewMemoryIndex(passages []models.Passage) *MemoryIndex {
	idx := &MemoryIndex{
		passages: make([]models.Passage, len(passages)),
		norms:    make([]float64, len(passages)),
	}

	for i, p := range passages {
		if p.Seq == 0 {
			p.Seq = int64(i + 1)
		}
		p.Embedding = append([]float32(nil), p.Embedding...)
		idx.passages[i] = p
		idx.norms[i] = norm(p.Embedding)
	}

	return idx
}

// LoadMemoryIndex reads a JSON snapshot written by the index builder.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index snapshot %s: %w", path, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot %s: %w", path, err)
	}

	return NewMemoryIndex(snapshot.Passages), nil
}

// Snapshot is the on-disk format of a MemoryIndex.
type Snapshot struct {
	Version  string           `json:"version"`
	Model    string           `json:"model"`
	Passages []models.Passage `json:"passages"`
}

func (m *MemoryIndex) Len() int {
	return len(m.passages)
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredPassage, error) {
	if len(m.passages) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		return []models.ScoredPassage{}, nil
	}

	queryNorm := norm(vector)
	scored := make([]models.ScoredPassage, 0, len(m.passages))

	for i, p := range m.passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(p.Embedding) != len(vector) {
			return nil, fmt.Errorf("dimension mismatch: passage %s has %d, query has %d", p.ID, len(p.Embedding), len(vector))
		}
		scored = append(scored, models.ScoredPassage{
			Passage: p,
			Score:   cosine(vector, p.Embedding, queryNorm, m.norms[i]),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Passage.Seq < scored[j].Passage.Seq
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
