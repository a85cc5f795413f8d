package dataset

import (
	"context"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

type Student struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	SVNR    string   `json:"svnr"`
	Courses []string `json:"courses"`
}

type Faculty struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Department string   `json:"department"`
	Courses    []string `json:"courses"`
}

type Course struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	ECTS       int      `json:"ects"`
	FacultyID  int64    `json:"faculty_id,omitempty"`
	Lecturer   string   `json:"lecturer"`
	Department string   `json:"department"`
	Students   []string `json:"students"`
}

func (s Student) Ref() models.RecordRef {
	return models.RecordRef{EntityType: models.EntityStudent, ID: itoa(s.ID)}
}

func (f Faculty) Ref() models.RecordRef {
	return models.RecordRef{EntityType: models.EntityFaculty, ID: itoa(f.ID)}
}

func (c Course) Ref() models.RecordRef {
	return models.RecordRef{EntityType: models.EntityCourse, ID: itoa(c.ID)}
}

// Reader gives read-only access to the university records. Results are
// ordered by record ID.
type Reader interface {
	Students(ctx context.Context) ([]Student, error)
	Faculty(ctx context.Context) ([]Faculty, error)
	Courses(ctx context.Context) ([]Course, error)
}
