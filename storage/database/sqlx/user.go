package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/user"
)

const (
	userCols = "id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login"

	userUsernameConstraint = "user_username_key"
	userEmailConstraint    = "user_email_key"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		usr       user.User
		username  null.String
		email     null.String
		roles     pq.StringArray
		lastLogin null.Time
	)
	err := row.Scan(
		&usr.ID, &usr.Name, &username, &email, &usr.IsActive,
		&roles, &usr.PasswordHash, &usr.CreatedAt, &usr.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return user.User{}, err
	}
	usr.Username = username.String
	usr.Email = email.String
	usr.Roles = roles
	usr.LastLogin = lastLogin.Time
	return usr, nil
}

// empty username/email are stored as NULL so the unique indexes only bind
// real values
func nullStr(s string) null.String {
	return null.NewString(s, s != "")
}

func trapUserNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func trapUserUniqueViolation(err error) error {
	switch violatedConstraint(err) {
	case userUsernameConstraint:
		return user.ErrUsernameExists
	case userEmailConstraint:
		return user.ErrEmailExists
	}
	return err
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	check := func(col, val string, reserved error) error {
		if val == "" {
			return nil
		}
		q := "SELECT EXISTS (SELECT 1 FROM \"user\" WHERE " + col + " = ?)"
		args := []interface{}{val}
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, usr := range excludedUsers {
				ids = append(ids, usr.ID)
			}
			var err error
			q = "SELECT EXISTS (SELECT 1 FROM \"user\" WHERE " + col + " = ? AND id NOT IN (?))"
			q, args, err = sqlx.In(q, val, ids)
			if err != nil {
				return errors.Wrap(err, "expanding excluded user ids")
			}
		}
		q = sqlx.Rebind(sqlx.DOLLAR, q)

		var exists bool
		if err := repo.getExec(exec).QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
			return errors.Wrapf(err, "checking %s uniqueness", col)
		}
		if exists {
			return reserved
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (` + userCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		usr.ID, usr.Name, nullStr(usr.Username), nullStr(usr.Email), usr.IsActive,
		pq.Array(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
		null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, trapUserUniqueViolation(err)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	q := `SELECT ` + userCols + ` FROM "user" WHERE id = $1`
	usr, err := scanUser(repo.getExec(exec).QueryRowContext(ctx, q, id))
	if err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by id")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string, exec ...core.DBExecutor) (user.User, error) {
	q := `SELECT ` + userCols + ` FROM "user" WHERE username = $1 OR email = $1`
	usr, err := scanUser(repo.getExec(exec).QueryRowContext(ctx, q, uname))
	if err != nil {
		return user.User{}, trapUserNoRowsErr(err, "getting user by username or email")
	}
	return usr, nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			args = append(args, pat, pat, pat)
		}
		if len(filter.Roles) > 0 {
			conds = append(conds, "roles && ?")
			args = append(args, pq.Array(filter.Roles))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= ?")
			args = append(args, filter.CreatedFrom)
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= ?")
			args = append(args, filter.CreatedTo)
		}
	}

	q := `SELECT ` + userCols + ` FROM "user"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "created_at DESC")
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]user.User, 0)
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "filtering users")
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET
			name = $2, username = $3, email = $4, roles = $5, updated_at = $6,
			password_hash = COALESCE($7, password_hash),
			is_active = COALESCE($8, is_active)
		WHERE id = $1
		RETURNING ` + userCols
	var pwdHash interface{}
	if len(usr.PasswordHash) > 0 {
		pwdHash = usr.PasswordHash
	}
	updated, err := scanUser(repo.getExec(exec).QueryRowContext(ctx, q,
		usr.ID, usr.Name, nullStr(usr.Username), nullStr(usr.Email),
		pq.Array(usr.Roles), usr.UpdatedAt, pwdHash, boolPtrArg(isActive),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, trapUserUniqueViolation(err)
		}
		return user.User{}, trapUserNoRowsErr(err, "updating user")
	}
	return updated, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	uname := usr.Username
	if uname == "" {
		uname = usr.Email
	}
	existing, err := repo.GetUserByUsernameOrEmail(ctx, uname, exec...)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return repo.CreateUser(ctx, usr, exec...)
		}
		return user.User{}, err
	}

	usr.ID = existing.ID
	isActive := usr.IsActive
	return repo.UpdateUser(ctx, usr, &isActive, exec...)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time, exec ...core.DBExecutor) error {
	q := `UPDATE "user" SET last_login = $2 WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, q, id, t)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "expanding user ids")
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err = repo.getExec(exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
