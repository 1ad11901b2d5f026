package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/student"
)

const classGroupCols = "id, name, academic_year, period, homeroom_teacher_id, is_active, created_at"

type classGroupRepository struct {
	exec core.DBExecutor
}

var _ classgroup.Repository = (*classGroupRepository)(nil) // interface compliance check

func NewClassGroupRepository(exec core.DBExecutor) *classGroupRepository {
	return &classGroupRepository{exec: exec}
}

func (repo classGroupRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func scanClassGroup(row rowScanner) (classgroup.ClassGroup, error) {
	var grp classgroup.ClassGroup
	err := row.Scan(
		&grp.ID, &grp.Name, &grp.AcademicYear, &grp.Period,
		&grp.HomeroomTeacherID, &grp.IsActive, &grp.CreatedAt,
	)
	return grp, err
}

func trapClassGroupNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return classgroup.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo classGroupRepository) CreateClassGroup(ctx context.Context, grp classgroup.ClassGroup, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	grp.ID = uuid.New().String()
	q := `INSERT INTO class_group (` + classGroupCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		grp.ID, grp.Name, grp.AcademicYear, grp.Period,
		grp.HomeroomTeacherID, grp.IsActive, grp.CreatedAt,
	)
	if err != nil {
		return classgroup.ClassGroup{}, errors.Wrap(err, "inserting class group")
	}
	return grp, nil
}

func (repo classGroupRepository) GetClassGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	q := "SELECT " + classGroupCols + " FROM class_group WHERE id = $1"
	grp, err := scanClassGroup(repo.getExec(exec).QueryRowContext(ctx, q, id))
	if err != nil {
		return classgroup.ClassGroup{}, trapClassGroupNoRowsErr(err, "getting class group by id")
	}
	return grp, nil
}

func (repo classGroupRepository) FilterClassGroups(ctx context.Context, filter *classgroup.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classgroup.ClassGroup, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "name ILIKE ?")
			args = append(args, "%"+filter.Search+"%")
		}
		if filter.AcademicYear != nil {
			conds = append(conds, "academic_year = ?")
			args = append(args, *filter.AcademicYear)
		}
		if filter.Period != "" {
			conds = append(conds, "period = ?")
			args = append(args, filter.Period)
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := "SELECT " + classGroupCols + " FROM class_group"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "academic_year DESC, name ASC")
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filtering class groups")
	}
	defer func() { _ = rows.Close() }()

	groups := make([]classgroup.ClassGroup, 0)
	for rows.Next() {
		grp, err := scanClassGroup(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning class group")
		}
		groups = append(groups, grp)
	}
	return groups, errors.Wrap(rows.Err(), "filtering class groups")
}

func (repo classGroupRepository) UpdateClassGroup(ctx context.Context, grp classgroup.ClassGroup, isActive *bool, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	q := `UPDATE class_group SET
			name = $2, academic_year = $3, period = $4, homeroom_teacher_id = $5,
			is_active = COALESCE($6, is_active)
		WHERE id = $1
		RETURNING ` + classGroupCols
	updated, err := scanClassGroup(repo.getExec(exec).QueryRowContext(ctx, q,
		grp.ID, grp.Name, grp.AcademicYear, grp.Period, grp.HomeroomTeacherID, boolPtrArg(isActive),
	))
	if err != nil {
		return classgroup.ClassGroup{}, trapClassGroupNoRowsErr(err, "updating class group")
	}
	return updated, nil
}

func (repo classGroupRepository) DeleteClassGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM class_group WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "expanding class group ids")
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err = repo.getExec(exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting class groups")
	}
	return nil
}

func (repo classGroupRepository) AddStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error {
	// re-adding an existing member is a no-op
	q := `INSERT INTO class_group_student (class_group_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, groupID, studentID); err != nil {
		return errors.Wrap(err, "adding student to class group")
	}
	return nil
}

func (repo classGroupRepository) RemoveStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error {
	q := "DELETE FROM class_group_student WHERE class_group_id = $1 AND student_id = $2"
	if _, err := repo.getExec(exec).ExecContext(ctx, q, groupID, studentID); err != nil {
		return errors.Wrap(err, "removing student from class group")
	}
	return nil
}

func (repo classGroupRepository) QueryMembers(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]student.Student, error) {
	q := `SELECT ` + prefixCols("s", studentCols) + `
		FROM student s
		JOIN class_group_student cgs ON cgs.student_id = s.id
		WHERE cgs.class_group_id = $1
		ORDER BY s.name ASC`
	rows, err := repo.getExec(exec).QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class group members")
	}
	defer func() { _ = rows.Close() }()

	members := make([]student.Student, 0)
	for rows.Next() {
		std, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning class group member")
		}
		members = append(members, std)
	}
	return members, errors.Wrap(rows.Err(), "querying class group members")
}

func (repo classGroupRepository) QueryClassGroupsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]classgroup.ClassGroup, error) {
	q := `SELECT ` + prefixCols("cg", classGroupCols) + `
		FROM class_group cg
		JOIN class_group_student cgs ON cgs.class_group_id = cg.id
		WHERE cgs.student_id = $1
		ORDER BY cg.academic_year DESC, cg.name ASC`
	rows, err := repo.getExec(exec).QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class groups by student")
	}
	defer func() { _ = rows.Close() }()

	groups := make([]classgroup.ClassGroup, 0)
	for rows.Next() {
		grp, err := scanClassGroup(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning class group")
		}
		groups = append(groups, grp)
	}
	return groups, errors.Wrap(rows.Err(), "querying class groups by student")
}

// prefixCols qualifies a comma-separated column list with a table alias.
func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, col := range parts {
		parts[i] = alias + "." + col
	}
	return strings.Join(parts, ", ")
}
