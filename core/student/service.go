package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
)

var (
	ErrNotFound       = errors.New("student not found")
	ErrDocumentExists = errors.New("a student with this document already exists")
)

type (
	Repository interface {
		CheckDocumentUniqueness(ctx context.Context, document string, excludedStudents []Student, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		FilterStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student, isActive *bool, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CheckDocumentUniqueness(ctx context.Context, document string, excludedStudents ...Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository) *service {
	return &service{db: db, repo: repo}
}

func (svc *service) CheckDocumentUniqueness(ctx context.Context, document string, excludedStudents ...Student) error {
	if err := svc.repo.CheckDocumentUniqueness(ctx, document, excludedStudents); err != nil {
		if errors.Cause(err) == ErrDocumentExists {
			return core.NewValidationError(err, core.FieldError{Field: "document", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	std := Student{
		Name:          ns.Name,
		FatherName:    ns.FatherName,
		MotherName:    ns.MotherName,
		Document:      ns.Document,
		BirthDate:     ns.BirthDate,
		Address:       ns.Address,
		Phone:         ns.Phone,
		Email:         ns.Email,
		TuitionAmount: ns.TuitionAmount,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.FilterStudents(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std := Student{
		ID:            id,
		Name:          us.Name,
		Document:      us.Document,
		BirthDate:     us.BirthDate,
		Email:         us.Email,
		TuitionAmount: us.TuitionAmount,
	}

	// optional text fields keep their stored value when absent
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std.FatherName = strOrDefault(us.FatherName, orig.FatherName)
	std.MotherName = strOrDefault(us.MotherName, orig.MotherName)
	std.Address = strOrDefault(us.Address, orig.Address)
	std.Phone = strOrDefault(us.Phone, orig.Phone)
	if !us.BirthDate.Valid {
		std.BirthDate = orig.BirthDate
	}

	return svc.repo.UpdateStudent(ctx, std, us.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids)
}

func strOrDefault(s *string, def string) string {
	if s != nil {
		return *s
	}
	return def
}
