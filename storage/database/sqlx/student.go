package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

const studentCols = "id, name, father_name, mother_name, document, birth_date, address, phone, email, tuition_amount, is_active, created_at"

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (student.Student, error) {
	var std student.Student
	err := row.Scan(
		&std.ID, &std.Name, &std.FatherName, &std.MotherName, &std.Document, &std.BirthDate,
		&std.Address, &std.Phone, &std.Email, &std.TuitionAmount, &std.IsActive, &std.CreatedAt,
	)
	return std, err
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func trapStudentNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckDocumentUniqueness(ctx context.Context, document string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	q := "SELECT EXISTS (SELECT 1 FROM student WHERE document = ?)"
	args := []interface{}{document}
	if len(excludedStudents) > 0 {
		ids := make([]string, 0, len(excludedStudents))
		for _, std := range excludedStudents {
			ids = append(ids, std.ID)
		}
		var err error
		q = "SELECT EXISTS (SELECT 1 FROM student WHERE document = ? AND id NOT IN (?))"
		q, args, err = sqlx.In(q, document, ids)
		if err != nil {
			return errors.Wrap(err, "expanding excluded student ids")
		}
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	var exists bool
	if err := repo.getExec(exec).QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking document uniqueness")
	}
	if exists {
		return student.ErrDocumentExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	std.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		std.ID, std.Name, std.FatherName, std.MotherName, std.Document, std.BirthDate,
		std.Address, std.Phone, std.Email, std.TuitionAmount, std.IsActive, std.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrDocumentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	q := "SELECT " + studentCols + " FROM student WHERE id = $1"
	std, err := scanStudent(repo.getExec(exec).QueryRowContext(ctx, q, id))
	if err != nil {
		return student.Student{}, trapStudentNoRowsErr(err, "getting student by id")
	}
	return std, nil
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			conds = append(conds, "(name ILIKE ? OR document ILIKE ? OR father_name ILIKE ? OR mother_name ILIKE ?)")
			args = append(args, pat, pat, pat, pat)
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := "SELECT " + studentCols + " FROM student"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "name ASC")
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	defer func() { _ = rows.Close() }()

	students := make([]student.Student, 0)
	for rows.Next() {
		std, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student")
		}
		students = append(students, std)
	}
	return students, errors.Wrap(rows.Err(), "filtering students")
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, isActive *bool, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE student SET
			name = $2, father_name = $3, mother_name = $4, document = $5, birth_date = $6,
			address = $7, phone = $8, email = $9, tuition_amount = $10,
			is_active = COALESCE($11, is_active)
		WHERE id = $1
		RETURNING ` + studentCols
	updated, err := scanStudent(repo.getExec(exec).QueryRowContext(ctx, q,
		std.ID, std.Name, std.FatherName, std.MotherName, std.Document, std.BirthDate,
		std.Address, std.Phone, std.Email, std.TuitionAmount, boolPtrArg(isActive),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrDocumentExists
		}
		return student.Student{}, trapStudentNoRowsErr(err, "updating student")
	}
	return updated, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM student WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "expanding student ids")
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err = repo.getExec(exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

// orderByClause renders an ORDER BY for the given ordering, falling back to def.
func orderByClause(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		if def == "" {
			return ""
		}
		return " ORDER BY " + def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// boolPtrArg renders a *bool as a nullable query argument.
func boolPtrArg(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}
