package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// Snapshot is a complete dataset in one JSON document.
type Snapshot struct {
	Students []Student `json:"students"`
	Faculty  []Faculty `json:"faculty"`
	Courses  []Course  `json:"courses"`
}

// FileReader serves a dataset loaded from a JSON file.
type FileReader struct {
	snapshot Snapshot
}

func LoadFile(path string) (*FileReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}

	return NewFileReader(snapshot), nil
}

func NewFileReader(snapshot Snapshot) *FileReader {
	slices.SortStableFunc(snapshot.Students, func(a, b Student) int { return compareID(a.ID, b.ID) })
	slices.SortStableFunc(snapshot.Faculty, func(a, b Faculty) int { return compareID(a.ID, b.ID) })
	slices.SortStableFunc(snapshot.Courses, func(a, b Course) int { return compareID(a.ID, b.ID) })

	return &FileReader{snapshot: snapshot}
}

func (r *FileReader) Students(ctx context.Context) ([]Student, error) {
	return slices.Clone(r.snapshot.Students), nil
}

func (r *FileReader) Faculty(ctx context.Context) ([]Faculty, error) {
	return slices.Clone(r.snapshot.Faculty), nil
}

func (r *FileReader) Courses(ctx context.Context) ([]Course, error) {
	return slices.Clone(r.snapshot.Courses), nil
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
