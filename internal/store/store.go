// Package store persists scanned degree reports in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/polyreq/internal/model"
)

// Store writes reports through a pgx connection pool
type Store struct {
	Pool *pgxpool.Pool
}

// New connects to the database at dsn
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Close releases the pool
func (s *Store) Close() {
	s.Pool.Close()
}

// EnsureSchema creates the tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// expectOneRow fails a queued insert or upsert that wrote nothing
func expectOneRow(ct pgconn.CommandTag) error {
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%s: affected %d rows, want 1", ct, ct.RowsAffected())
	}
	return nil
}

// SaveReport replaces everything stored for the report's degree in one transaction
func (s *Store) SaveReport(ctx context.Context, report *model.Report) error {
	if report.Degree.ID == "" {
		return fmt.Errorf("save report: degree has no id")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, reportBatch(report)).Close(); err != nil {
		return fmt.Errorf("save report %s: %w", report.Degree.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// reportBatch queues every statement needed to store one report
func reportBatch(report *model.Report) *pgx.Batch {
	id := report.Degree.ID
	d := report.Degree

	batch := &pgx.Batch{}
	// Deletes may match nothing on a first save; every write must land exactly one row
	queue := func(sql string, args ...any) {
		batch.Queue(sql, args...).Exec(expectOneRow)
	}

	queue(upsertDegree, id, d.Name, d.Kind, d.Link, d.DepartmentID, report.FetchedAt)
	batch.Queue(deleteNodes, id)
	batch.Queue(deleteSections, id)
	batch.Queue(deleteGE, id)
	batch.Queue(deleteDiagnostics, id)

	for _, code := range sortedCourseCodes(report.Requirements.Courses) {
		c := report.Requirements.Courses[code]
		queue(upsertCourse, c.Code, c.Title, c.Units)
	}

	sections, nodes := FlattenRequirements(report.Requirements)
	for _, sec := range sections {
		queue(insertSection, id, sec.Scope, sec.Position, string(sec.Kind), sec.KindDetail, sec.Title)
	}
	for _, n := range nodes {
		queue(insertNode, id, n.Scope, n.SectionPosition, n.NodeID, n.ParentID, n.Position, string(n.Kind), n.CourseCode, n.Units)
	}
	for i, ge := range report.Requirements.GERequirements {
		queue(insertGE, id, i, string(ge.Area), ge.Subarea, ge.Units, ge.Label)
	}
	for i, diag := range report.Diagnostics {
		queue(insertDiagnostic, id, i, diag.Source, diag.RowIndex, diag.RowText, diag.Reason, string(diag.Category))
	}

	return batch
}

// SaveCourses upserts a subject and the full descriptions of its courses.
// Each course is also upserted into the courses table that reports read titles from.
func (s *Store) SaveCourses(ctx context.Context, subject model.Subject, courses []model.Course) error {
	if subject.Code == "" {
		return fmt.Errorf("save courses: subject has no code")
	}
	if err := s.Pool.SendBatch(ctx, coursesBatch(subject, courses)).Close(); err != nil {
		return fmt.Errorf("save courses %s: %w", subject.Code, err)
	}
	return nil
}

func coursesBatch(subject model.Subject, courses []model.Course) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(upsertSubject, subject.Code, subject.Name, subject.Link).Exec(expectOneRow)
	for _, c := range courses {
		terms := c.Terms
		if terms == nil {
			terms = []string{}
		}
		batch.Queue(upsertCourseDescription, c.Code, c.Subject, c.Number, c.Title, c.MinUnits, c.MaxUnits, terms, c.Description).Exec(expectOneRow)
		batch.Queue(upsertCourse, c.Code, c.Title, c.MaxUnits).Exec(expectOneRow)
	}
	return batch
}

// ListCourses returns the stored course descriptions of a subject ordered by number
func (s *Store) ListCourses(ctx context.Context, subject string) ([]model.Course, error) {
	rows, err := s.Pool.Query(ctx, listCourseDescriptions, subject)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.Code, &c.Subject, &c.Number, &c.Title, &c.MinUnits, &c.MaxUnits, &c.Terms, &c.Description); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListDegrees returns every stored degree ordered by name
func (s *Store) ListDegrees(ctx context.Context) ([]model.Degree, error) {
	rows, err := s.Pool.Query(ctx, listDegrees)
	if err != nil {
		return nil, fmt.Errorf("list degrees: %w", err)
	}
	defer rows.Close()

	var degrees []model.Degree
	for rows.Next() {
		var d model.Degree
		if err := rows.Scan(&d.ID, &d.Name, &d.Kind, &d.Link, &d.DepartmentID); err != nil {
			return nil, fmt.Errorf("scan degree: %w", err)
		}
		degrees = append(degrees, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list degrees: %w", err)
	}
	return degrees, nil
}
