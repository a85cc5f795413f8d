package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/dataset"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/retrieval"
	"github.com/rs/zerolog"
)

type countingEmbedder struct {
	mu      sync.Mutex
	batches []int
	failOn  int
}

func (c *countingEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, len(texts))
	n := len(c.batches)
	c.mu.Unlock()

	if c.failOn > 0 && n == c.failOn {
		return nil, errors.New("throttled")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

type memoryWriter struct {
	passages []models.Passage
}

func (m *memoryWriter) ReplaceAll(ctx context.Context, passages []models.Passage) error {
	m.passages = passages
	return nil
}

func testReader() dataset.Reader {
	return dataset.NewFileReader(dataset.Snapshot{
		Students: []dataset.Student{
			{ID: 1045, Name: "Maria Huber", Email: "maria.huber@uni.example", SVNR: "1237010180", Courses: []string{"Databases", "Algorithms"}},
			{ID: 1046, Name: "Lukas Gruber", Email: "lukas.gruber@uni.example", SVNR: "4568150392"},
		},
		Faculty: []dataset.Faculty{
			{ID: 7, Name: "Anna Berger", Email: "anna.berger@uni.example", Department: "Computer Science", Courses: []string{"Databases"}},
		},
		Courses: []dataset.Course{
			{ID: 301, Name: "Databases", ECTS: 6, FacultyID: 7, Lecturer: "Anna Berger", Department: "Computer Science", Students: []string{"Maria Huber"}},
		},
	})
}

func TestBuilder_Passages(t *testing.T) {
	logger := zerolog.Nop()
	builder := NewBuilder(testReader(), &countingEmbedder{}, 2, &logger)

	passages, err := builder.Passages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantRefs := []string{"student #1045", "student #1046", "faculty #7", "course #301"}
	if len(passages) != len(wantRefs) {
		t.Fatalf("expected %d passages, got %d", len(wantRefs), len(passages))
	}
	for i, p := range passages {
		if p.Ref.String() != wantRefs[i] {
			t.Errorf("passage %d ref = %s, want %s", i, p.Ref, wantRefs[i])
		}
		if p.Seq != int64(i+1) {
			t.Errorf("passage %d seq = %d", i, p.Seq)
		}
	}

	if want := "Student #1045: Maria Huber, email maria.huber@uni.example, SVNR 1237010180, enrolled in Databases, Algorithms."; passages[0].Text != want {
		t.Errorf("student text = %q", passages[0].Text)
	}
	if !strings.Contains(passages[1].Text, "enrolled in no courses") {
		t.Errorf("student without courses: %q", passages[1].Text)
	}
	if want := "Course #301: Databases, taught by Anna Berger, Department of Computer Science, 6 ECTS, enrolled students: Maria Huber."; passages[3].Text != want {
		t.Errorf("course text = %q", passages[3].Text)
	}

	again, _ := builder.Passages(context.Background())
	if again[0].ID != passages[0].ID {
		t.Error("passage IDs should be stable across builds")
	}
	if passages[0].ID == passages[1].ID {
		t.Error("passage IDs should differ between records")
	}
}

func TestBuilder_BuildBatches(t *testing.T) {
	logger := zerolog.Nop()
	snapshot := dataset.Snapshot{}
	for i := 0; i < 60; i++ {
		snapshot.Students = append(snapshot.Students, dataset.Student{ID: int64(i + 1), Name: "Student"})
	}

	embedder := &countingEmbedder{}
	builder := NewBuilder(dataset.NewFileReader(snapshot), embedder, 3, &logger)

	passages, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embedder.batches) != 3 {
		t.Errorf("expected 3 batches for 60 passages, got %d", len(embedder.batches))
	}
	for _, n := range embedder.batches {
		if n > BatchSize {
			t.Errorf("batch of %d exceeds %d", n, BatchSize)
		}
	}
	for _, p := range passages {
		if len(p.Embedding) != 2 || p.Embedding[0] != float32(len(p.Text)) {
			t.Fatalf("passage %d has wrong embedding %v", p.Seq, p.Embedding)
		}
	}
}

func TestBuilder_BuildFailure(t *testing.T) {
	logger := zerolog.Nop()
	builder := NewBuilder(testReader(), &countingEmbedder{failOn: 1}, 1, &logger)

	if _, err := builder.Run(context.Background(), &memoryWriter{}); err == nil {
		t.Error("expected embedding failure to fail the run")
	}
}

func TestBuilder_RunEmptyDataset(t *testing.T) {
	logger := zerolog.Nop()
	builder := NewBuilder(dataset.NewFileReader(dataset.Snapshot{}), &countingEmbedder{}, 1, &logger)

	writer := &memoryWriter{}
	if _, err := builder.Run(context.Background(), writer); err == nil {
		t.Error("expected error for empty dataset")
	}
	if writer.passages != nil {
		t.Error("empty index should not be written")
	}
}

func TestSnapshotWriter_RoundTrip(t *testing.T) {
	logger := zerolog.Nop()
	builder := NewBuilder(testReader(), &countingEmbedder{}, 2, &logger)
	path := filepath.Join(t.TempDir(), "index.json")

	n, err := builder.Run(context.Background(), &SnapshotWriter{Path: path, Version: "test", Model: "fake"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 passages written, got %d", n)
	}

	index, err := retrieval.LoadMemoryIndex(path)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if index.Len() != 4 {
		t.Errorf("loaded index has %d passages", index.Len())
	}
}
