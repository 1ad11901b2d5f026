package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.db.table {
		students = append(students, *std)
	}
	return students
}

func (repo *studentRepository) CheckDocumentUniqueness(ctx context.Context, document string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedStudents))
	for _, std := range excludedStudents {
		excluded[std.ID] = struct{}{}
	}
	for _, std := range repo.query() {
		if _, skip := excluded[std.ID]; skip {
			continue
		}
		if std.Document == document {
			return student.ErrDocumentExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = uuid.New().String()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.query()

	if filter != nil {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			var filtered []student.Student
			for _, std := range students {
				if strings.Contains(strings.ToLower(std.Name), search) ||
					strings.Contains(strings.ToLower(std.Document), search) ||
					strings.Contains(strings.ToLower(std.FatherName), search) ||
					strings.Contains(strings.ToLower(std.MotherName), search) {
					filtered = append(filtered, std)
				}
			}
			students = filtered
		}
		if filter.IsActive != nil {
			var filtered []student.Student
			for _, std := range students {
				if std.IsActive == *filter.IsActive {
					filtered = append(filtered, std)
				}
			}
			students = filtered
		}
	}

	// name is the only ordering the services ask for
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, isActive *bool, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.Name = std.Name
	orig.FatherName = std.FatherName
	orig.MotherName = std.MotherName
	orig.Document = std.Document
	orig.BirthDate = std.BirthDate
	orig.Address = std.Address
	orig.Phone = std.Phone
	orig.Email = std.Email
	orig.TuitionAmount = std.TuitionAmount
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
