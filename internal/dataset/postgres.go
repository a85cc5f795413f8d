package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReader reads the university records from PostgreSQL.
type PostgresReader struct {
	pool *pgxpool.Pool
}

func NewPostgresReader(pool *pgxpool.Pool) *PostgresReader {
	return &PostgresReader{pool: pool}
}

func (r *PostgresReader) Students(ctx context.Context) ([]Student, error) {
	query := `
	SELECT
	  s.id,
	  s.name,
	  s.email,
	  s.svnr,
	  COALESCE(array_agg(c.name ORDER BY c.name) FILTER (WHERE c.id IS NOT NULL), '{}') AS courses
	FROM students s
	LEFT JOIN enrollments e ON s.id = e.student_id
	LEFT JOIN courses c ON e.course_id = c.id
	GROUP BY s.id
	ORDER BY s.id`

	return collect(ctx, r.pool, query, func(rows pgx.Rows) (Student, error) {
		var s Student
		err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.SVNR, &s.Courses)
		return s, err
	})
}

func (r *PostgresReader) Faculty(ctx context.Context) ([]Faculty, error) {
	query := `
	SELECT
	  f.id,
	  f.name,
	  f.email,
	  f.department,
	  COALESCE(array_agg(c.name ORDER BY c.name) FILTER (WHERE c.id IS NOT NULL), '{}') AS courses
	FROM faculty f
	LEFT JOIN courses c ON f.id = c.faculty_id
	GROUP BY f.id
	ORDER BY f.id`

	return collect(ctx, r.pool, query, func(rows pgx.Rows) (Faculty, error) {
		var f Faculty
		err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Department, &f.Courses)
		return f, err
	})
}

func (r *PostgresReader) Courses(ctx context.Context) ([]Course, error) {
	query := `
	SELECT
	  c.id,
	  c.name,
	  c.ects,
	  COALESCE(c.faculty_id, 0),
	  COALESCE(f.name, ''),
	  COALESCE(f.department, ''),
	  COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.id IS NOT NULL), '{}') AS students
	FROM courses c
	LEFT JOIN faculty f ON c.faculty_id = f.id
	LEFT JOIN enrollments e ON c.id = e.course_id
	LEFT JOIN students s ON e.student_id = s.id
	GROUP BY c.id, f.name, f.department
	ORDER BY c.id`

	return collect(ctx, r.pool, query, func(rows pgx.Rows) (Course, error) {
		var c Course
		err := rows.Scan(&c.ID, &c.Name, &c.ECTS, &c.FacultyID, &c.Lecturer, &c.Department, &c.Students)
		return c, err
	})
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query dataset: %w", err)
	}
	defer rows.Close()

	var records []T
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
