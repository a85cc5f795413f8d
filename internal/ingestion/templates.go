package ingestion

import (
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/dataset"
)

func studentText(s dataset.Student) string {
	return fmt.Sprintf("Student #%d: %s, email %s, SVNR %s, enrolled in %s.",
		s.ID, s.Name, s.Email, s.SVNR, list(s.Courses, "no courses"))
}

func facultyText(f dataset.Faculty) string {
	return fmt.Sprintf("Faculty #%d: %s, email %s, Department of %s, teaches %s.",
		f.ID, f.Name, f.Email, f.Department, list(f.Courses, "no courses"))
}

func courseText(c dataset.Course) string {
	lecturer := c.Lecturer
	if lecturer == "" {
		lecturer = "TBD"
	}
	department := c.Department
	if department == "" {
		department = "Unknown"
	}

	return fmt.Sprintf("Course #%d: %s, taught by %s, Department of %s, %d ECTS, enrolled students: %s.",
		c.ID, c.Name, lecturer, department, c.ECTS, list(c.Students, "none"))
}

func list(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
