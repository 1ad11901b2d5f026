package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/student"
)

type classGroupRepository struct {
	db         *classGroupTable
	membership *membershipTable
	students   *studentTable
}

var _ classgroup.Repository = (*classGroupRepository)(nil) // interface compliance check

func NewClassGroupRepository(db *DB) *classGroupRepository {
	return &classGroupRepository{db: db.classGroup, membership: db.membership, students: db.student}
}

func (repo *classGroupRepository) query() []classgroup.ClassGroup {
	groups := make([]classgroup.ClassGroup, 0, len(repo.db.table))
	for _, grp := range repo.db.table {
		groups = append(groups, *grp)
	}
	return groups
}

func sortClassGroups(groups []classgroup.ClassGroup) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].AcademicYear != groups[j].AcademicYear {
			return groups[i].AcademicYear > groups[j].AcademicYear
		}
		return groups[i].Name < groups[j].Name
	})
}

func (repo *classGroupRepository) CreateClassGroup(ctx context.Context, grp classgroup.ClassGroup, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	grp.ID = uuid.New().String()
	repo.db.table[grp.ID] = &grp
	return grp, nil
}

func (repo *classGroupRepository) GetClassGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grp, ok := repo.db.table[id]; ok {
		return *grp, nil
	}
	return classgroup.ClassGroup{}, classgroup.ErrNotFound
}

func (repo *classGroupRepository) FilterClassGroups(ctx context.Context, filter *classgroup.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classgroup.ClassGroup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := repo.query()

	if filter != nil {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			var filtered []classgroup.ClassGroup
			for _, grp := range groups {
				if strings.Contains(strings.ToLower(grp.Name), search) {
					filtered = append(filtered, grp)
				}
			}
			groups = filtered
		}
		if filter.AcademicYear != nil {
			var filtered []classgroup.ClassGroup
			for _, grp := range groups {
				if grp.AcademicYear == *filter.AcademicYear {
					filtered = append(filtered, grp)
				}
			}
			groups = filtered
		}
		if filter.Period != "" {
			var filtered []classgroup.ClassGroup
			for _, grp := range groups {
				if grp.Period == filter.Period {
					filtered = append(filtered, grp)
				}
			}
			groups = filtered
		}
		if filter.IsActive != nil {
			var filtered []classgroup.ClassGroup
			for _, grp := range groups {
				if grp.IsActive == *filter.IsActive {
					filtered = append(filtered, grp)
				}
			}
			groups = filtered
		}
	}

	sortClassGroups(groups)
	return groups, nil
}

func (repo *classGroupRepository) UpdateClassGroup(ctx context.Context, grp classgroup.ClassGroup, isActive *bool, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[grp.ID]
	if !ok {
		return classgroup.ClassGroup{}, classgroup.ErrNotFound
	}
	orig.Name = grp.Name
	orig.AcademicYear = grp.AcademicYear
	orig.Period = grp.Period
	orig.HomeroomTeacherID = grp.HomeroomTeacherID
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *classGroupRepository) DeleteClassGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.membership.Lock()
	defer repo.membership.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		delete(repo.membership.table, id)
	}
	return nil
}

func (repo *classGroupRepository) AddStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error {
	repo.membership.Lock()
	defer repo.membership.Unlock()

	members, ok := repo.membership.table[groupID]
	if !ok {
		members = make(map[string]struct{})
		repo.membership.table[groupID] = members
	}
	members[studentID] = struct{}{}
	return nil
}

func (repo *classGroupRepository) RemoveStudent(ctx context.Context, groupID, studentID string, exec ...core.DBExecutor) error {
	repo.membership.Lock()
	defer repo.membership.Unlock()

	if members, ok := repo.membership.table[groupID]; ok {
		delete(members, studentID)
	}
	return nil
}

func (repo *classGroupRepository) QueryMembers(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.membership.RLock()
	defer repo.membership.RUnlock()
	repo.students.RLock()
	defer repo.students.RUnlock()

	members := make([]student.Student, 0)
	for studentID := range repo.membership.table[groupID] {
		if std, ok := repo.students.table[studentID]; ok {
			members = append(members, *std)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (repo *classGroupRepository) QueryClassGroupsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]classgroup.ClassGroup, error) {
	repo.membership.RLock()
	defer repo.membership.RUnlock()
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]classgroup.ClassGroup, 0)
	for groupID, members := range repo.membership.table {
		if _, ok := members[studentID]; !ok {
			continue
		}
		if grp, ok := repo.db.table[groupID]; ok {
			groups = append(groups, *grp)
		}
	}
	sortClassGroups(groups)
	return groups, nil
}
