package classgroup

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

var ErrNotFound = errors.New("class group not found")

type (
	Repository interface {
		CreateClassGroup(ctx context.Context, grp ClassGroup, exec ...core.DBExecutor) (ClassGroup, error)
		GetClassGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (ClassGroup, error)
		// FilterClassGroups applies AND operation on available QueryFilter fields.
		FilterClassGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ClassGroup, error)
		UpdateClassGroup(ctx context.Context, grp ClassGroup, isActive *bool, exec ...core.DBExecutor) (ClassGroup, error)
		DeleteClassGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		// membership
		AddStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error
		RemoveStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error
		QueryMembers(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]student.Student, error)
		QueryClassGroupsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]ClassGroup, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ng NewClassGroup) (ClassGroup, error)
		GetByID(ctx context.Context, id string) (ClassGroup, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]ClassGroup, error)
		Update(ctx context.Context, id string, ug UpdateClassGroup) (ClassGroup, error)
		Delete(ctx context.Context, ids ...string) error
		AddStudent(ctx context.Context, groupID, studentID string) error
		RemoveStudent(ctx context.Context, groupID, studentID string) error
		QueryByStudent(ctx context.Context, studentID string) ([]ClassGroup, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		stdRepo student.Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, stdRepo student.Repository) *service {
	return &service{db: db, repo: repo, stdRepo: stdRepo}
}

func (svc *service) Create(ctx context.Context, ng NewClassGroup) (ClassGroup, error) {
	grp := ClassGroup{
		Name:              ng.Name,
		AcademicYear:      ng.AcademicYear,
		Period:            ng.Period,
		HomeroomTeacherID: ng.HomeroomTeacherID,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	return svc.repo.CreateClassGroup(ctx, grp)
}

// GetByID returns the class group with its member students populated.
func (svc *service) GetByID(ctx context.Context, id string) (ClassGroup, error) {
	grp, err := svc.repo.GetClassGroupByID(ctx, id)
	if err != nil {
		return ClassGroup{}, err
	}
	members, err := svc.repo.QueryMembers(ctx, id)
	if err != nil {
		return ClassGroup{}, errors.Wrap(err, "querying class group members")
	}
	grp.Students = members
	return grp, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]ClassGroup, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		// most recent school year first, then name
		ordering = []core.DBOrdering{{Field: "academic_year"}, {Field: "name", Ascending: true}}
	}
	return svc.repo.FilterClassGroups(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ug UpdateClassGroup) (ClassGroup, error) {
	grp := ClassGroup{
		ID:                id,
		Name:              ug.Name,
		AcademicYear:      ug.AcademicYear,
		Period:            ug.Period,
		HomeroomTeacherID: ug.HomeroomTeacherID,
	}
	return svc.repo.UpdateClassGroup(ctx, grp, ug.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteClassGroupsByID(ctx, ids)
}

func (svc *service) AddStudent(ctx context.Context, groupID, studentID string) error {
	if _, err := svc.repo.GetClassGroupByID(ctx, groupID); err != nil {
		return err
	}
	if _, err := svc.stdRepo.GetStudentByID(ctx, studentID); err != nil {
		return err
	}
	return svc.repo.AddStudent(ctx, groupID, studentID)
}

func (svc *service) RemoveStudent(ctx context.Context, groupID, studentID string) error {
	if _, err := svc.repo.GetClassGroupByID(ctx, groupID); err != nil {
		return err
	}
	if _, err := svc.stdRepo.GetStudentByID(ctx, studentID); err != nil {
		return err
	}
	return svc.repo.RemoveStudent(ctx, groupID, studentID)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string) ([]ClassGroup, error) {
	if _, err := svc.stdRepo.GetStudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassGroupsByStudent(ctx, studentID)
}
