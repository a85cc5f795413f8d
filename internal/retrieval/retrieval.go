package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrIndexUnavailable is returned when no passage can be served for a
	// query: the index is empty, unreachable, or the query cannot be embedded.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrEmptyIndex is returned by an Index holding no passages.
	ErrEmptyIndex = errors.New("index is empty")
)

const DefaultTopK = 5

// Embedder maps text into the vector space of the passage index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is a read-only nearest neighbour index over passages. Search returns
// at most k passages ordered by descending score, ties by ascending Seq.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredPassage, error)
}

// candidateFactor is how many index candidates are requested per passage
// returned.
const candidateFactor = 2

type Config struct {
	// TopK is the number of passages returned when the caller passes 0.
	TopK int
	// MinScore drops passages scoring below it. Zero disables the filter.
	MinScore float64
}

// Engine embeds queries and searches the index. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	embedder Embedder
	index    Index
	cfg      Config
	logger   *zerolog.Logger
}

func NewEngine(embedder Embedder, index Index, cfg Config, logger *zerolog.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &Engine{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve returns the topK passages most similar to the query. Every
// failure wraps ErrIndexUnavailable.
func (e *Engine) Retrieve(ctx context.Context, query models.Query, topK int) (*models.RetrievalResult, error) {
	now := time.Now()

	if topK <= 0 {
		topK = e.cfg.TopK
	}

	vector, err := e.embedder.Embed(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %w", ErrIndexUnavailable, err)
	}

	// Ask for a surplus so the consistency gate can drop entries and still
	// leave topK passages.
	candidates, err := e.index.Search(ctx, vector, topK*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %w", ErrIndexUnavailable, err)
	}

	passages := rank(consistent(candidates), e.cfg.MinScore, topK)
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no passages matched", ErrIndexUnavailable)
	}

	e.logger.Debug().
		Str("request_id", query.ID).
		Int("candidates", len(candidates)).
		Int("passages", len(passages)).
		Float64("top_score", passages[0].Score).
		Dur("duration", time.Since(now)).
		Msg("retrieval complete")

	return &models.RetrievalResult{
		Passages:       passages,
		QueryEmbedding: vector,
	}, nil
}

// consistent drops passages without text and repeated passage IDs, keeping
// the first occurrence.
func consistent(candidates []models.ScoredPassage) []models.ScoredPassage {
	seen := make(map[string]bool, len(candidates))
	kept := make([]models.ScoredPassage, 0, len(candidates))

	for _, c := range candidates {
		if c.Passage.Text == "" || seen[c.Passage.ID] {
			continue
		}
		seen[c.Passage.ID] = true
		kept = append(kept, c)
	}

	return kept
}

// rank orders passages by descending score and ascending insertion order,
// drops those below minScore and keeps at most topK.
func rank(passages []models.ScoredPassage, minScore float64, topK int) []models.ScoredPassage {
	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].Passage.Seq < passages[j].Passage.Seq
	})

	ranked := make([]models.ScoredPassage, 0, topK)
	for _, p := range passages {
		if len(ranked) == topK {
			break
		}
		if minScore > 0 && p.Score < minScore {
			continue
		}
		ranked = append(ranked, p)
	}

	return ranked
}
