package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/dataset"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	BatchSize          = 25
	DefaultParallelism = 4
)

// passageNamespace keeps passage IDs stable across rebuilds of the same record.
var passageNamespace = uuid.MustParse("6f1c1c52-3b7e-4d8a-9c55-2f0e1d7a4b10")

// BatchEmbedder embeds several texts in one call, preserving order.
type BatchEmbedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Writer persists a complete passage index.
type Writer interface {
	ReplaceAll(ctx context.Context, passages []models.Passage) error
}

type Builder struct {
	reader      dataset.Reader
	embedder    BatchEmbedder
	parallelism int
	logger      *zerolog.Logger
}

func NewBuilder(reader dataset.Reader, embedder BatchEmbedder, parallelism int, logger *zerolog.Logger) *Builder {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	return &Builder{
		reader:      reader,
		embedder:    embedder,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Passages renders one passage per student, faculty member and course, in
// that order, without embeddings. Seq follows the same order starting at 1.
func (b *Builder) Passages(ctx context.Context) ([]models.Passage, error) {
	students, err := b.reader.Students(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read students: %w", err)
	}
	faculty, err := b.reader.Faculty(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read faculty: %w", err)
	}
	courses, err := b.reader.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read courses: %w", err)
	}

	passages := make([]models.Passage, 0, len(students)+len(faculty)+len(courses))
	add := func(ref models.RecordRef, text string) {
		passages = append(passages, models.Passage{
			ID:   uuid.NewSHA1(passageNamespace, []byte(ref.String())).String(),
			Seq:  int64(len(passages) + 1),
			Ref:  ref,
			Text: text,
		})
	}

	for _, s := range students {
		add(s.Ref(), studentText(s))
	}
	for _, f := range faculty {
		add(f.Ref(), facultyText(f))
	}
	for _, c := range courses {
		add(c.Ref(), courseText(c))
	}

	return passages, nil
}

// Build renders and embeds every passage. Batches of BatchSize texts are
// embedded concurrently; the first failure cancels the rest.
func (b *Builder) Build(ctx context.Context) ([]models.Passage, error) {
	now := time.Now()

	passages, err := b.Passages(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for start := 0; start < len(passages); start += BatchSize {
		end := min(start+BatchSize, len(passages))
		batch := passages[start:end]
		number := start/BatchSize + 1

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, p := range batch {
				texts[i] = p.Text
			}

			embeddings, err := b.embedder.GenerateBatchEmbeddings(gctx, texts)
			if err != nil {
				return fmt.Errorf("batch %d: %w", number, err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("batch %d: expected %d embeddings, got %d", number, len(batch), len(embeddings))
			}

			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}

			b.logger.Debug().Int("batch", number).Int("passages", len(batch)).Msg("Batch embedded")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}

	b.logger.Info().
		Int("passages", len(passages)).
		Dur("duration", time.Since(now)).
		Msg("Passages built")

	return passages, nil
}

// Run builds the index and hands it to w in one call.
func (b *Builder) Run(ctx context.Context, w Writer) (int, error) {
	passages, err := b.Build(ctx)
	if err != nil {
		return 0, err
	}
	if len(passages) == 0 {
		return 0, fmt.Errorf("dataset is empty, refusing to write an empty index")
	}

	if err := w.ReplaceAll(ctx, passages); err != nil {
		return 0, fmt.Errorf("failed to write index: %w", err)
	}

	return len(passages), nil
}
