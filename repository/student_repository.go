package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"campus-idcards/db"
	"campus-idcards/models"
)

// StudentRepository reads student records for card rendering
// Implements StudentRepositoryInterface
type StudentRepository struct {
	conn   *sql.DB
	driver string
}

// NewStudentRepository creates a StudentRepository on the shared connection
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{conn: db.DB, driver: db.Driver}
}

// Ensure StudentRepository implements StudentRepositoryInterface
var _ StudentRepositoryInterface = (*StudentRepository)(nil)

const studentColumns = `
	s.id,
	COALESCE(s.gr_number, ''),
	COALESCE(s.roll_number, ''),
	COALESCE(s.full_name, ''),
	s.dob,
	COALESCE(s.gender, ''),
	COALESCE(s.class_id, ''),
	COALESCE(c.name, ''),
	COALESCE(s.section, ''),
	COALESCE(s.address, ''),
	COALESCE(s.mobile_number, ''),
	COALESCE(s.blood_group, ''),
	COALESCE(s.passport_photo, '')`

const studentFrom = `
	FROM students s
	LEFT JOIN classes c ON c.id = s.class_id`

// listQuery builds the record list query, optionally filtered by class
func listQuery(classID string) (string, []any) {
	query := `SELECT` + studentColumns + studentFrom
	var args []any
	if classID != "" {
		query += ` WHERE s.class_id = ?`
		args = append(args, classID)
	}
	query += ` ORDER BY s.full_name, s.id`
	return query, args
}

// byIDsQuery builds the lookup for a selection of ids
func byIDsQuery(ids []int64) (string, []any) {
	query := `SELECT` + studentColumns + studentFrom + ` WHERE s.id IN (` + inList(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return query, args
}

// List returns all students, or those of one class when classID is set
func (r *StudentRepository) List(ctx context.Context, classID string) ([]models.Student, error) {
	query, args := listQuery(strings.TrimSpace(classID))
	students, err := r.query(ctx, query, args...)
	if err != nil {
		log.Printf("❌ Error listing students (class=%q): %v", classID, err)
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	log.Printf("✓ Listed %d students (class=%q)", len(students), classID)
	return students, nil
}

// GetByIDs returns the requested students in the order the ids were given.
// Unknown ids are skipped.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args := byIDsQuery(ids)
	found, err := r.query(ctx, query, args...)
	if err != nil {
		log.Printf("❌ Error fetching %d students: %v", len(ids), err)
		return nil, fmt.Errorf("failed to get students: %w", err)
	}

	ordered := orderByIDs(found, ids)
	if len(ordered) < len(ids) {
		log.Printf("⚠️  %d of %d requested students were not found", len(ids)-len(ordered), len(ids))
	}
	return ordered, nil
}

func (r *StudentRepository) query(ctx context.Context, query string, args ...any) ([]models.Student, error) {
	rows, err := r.conn.QueryContext(ctx, rebind(r.driver, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var s models.Student
		var dob sql.NullString
		if err := rows.Scan(
			&s.ID, &s.GRNumber, &s.RollNumber, &s.FullName, &dob, &s.Gender,
			&s.ClassID, &s.ClassName, &s.Section, &s.Address, &s.MobileNumber,
			&s.BloodGroup, &s.PassportPhoto,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		s.DOB = formatDate(dob)
		students = append(students, s)
	}
	return students, rows.Err()
}

// orderByIDs arranges records in selection order; a repeated id yields the record again
func orderByIDs(found []models.Student, ids []int64) []models.Student {
	byID := make(map[int64]models.Student, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	ordered := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// formatDate keeps the YYYY-MM-DD part. pgx hands dates over as time.Time,
// which database/sql renders as RFC 3339; MySQL returns the bare date.
func formatDate(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	s := strings.TrimSpace(v.String)
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}
