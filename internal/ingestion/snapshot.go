package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/retrieval"
)

// SnapshotWriter writes the index as a JSON file readable by
// retrieval.LoadMemoryIndex. The file is replaced atomically.
type SnapshotWriter struct {
	Path    string
	Version string
	Model   string
}

func (w *SnapshotWriter) ReplaceAll(ctx context.Context, passages []models.Passage) error {
	data, err := json.Marshal(retrieval.Snapshot{
		Version:  w.Version,
		Model:    w.Model,
		Passages: passages,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), w.Path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	return nil
}
