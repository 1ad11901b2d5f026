package classgroup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/student"
	dummydb "github.com/jpcaldeira/escolar/storage/database/dummy"
	testutil "github.com/jpcaldeira/escolar/tests"
)

func setup(t *testing.T) (classgroup.ServiceInterface, *dummydb.DB) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)
	svc := classgroup.NewService(nil, dummydb.NewClassGroupRepository(db), dummydb.NewStudentRepository(db))
	return svc, db
}

func TestNewClassGroupValidate(t *testing.T) {
	t.Run("normalizes the period", func(t *testing.T) {
		ng := classgroup.NewClassGroup{Name: " 5º Ano A ", AcademicYear: 2025, Period: " Morning "}
		require.NoError(t, ng.Validate(core.Validate))
		assert.Equal(t, "5º Ano A", ng.Name)
		assert.Equal(t, classgroup.PeriodMorning, ng.Period)
	})

	t.Run("rejects an unknown period", func(t *testing.T) {
		ng := classgroup.NewClassGroup{Name: "5º Ano A", AcademicYear: 2025, Period: "night"}
		assert.Error(t, ng.Validate(core.Validate))
	})

	t.Run("requires the academic year", func(t *testing.T) {
		ng := classgroup.NewClassGroup{Name: "5º Ano A", Period: "morning"}
		assert.Error(t, ng.Validate(core.Validate))
	})
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	svc, db := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)

	grp, err := svc.Create(ctx, classgroup.NewClassGroup{Name: "5º Ano A", AcademicYear: 2025, Period: classgroup.PeriodMorning})
	require.NoError(t, err)
	assert.True(t, grp.IsActive)

	ana := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	bruno := testutil.CreateStudent(t, stdRepo, "Bruno Lima", "222", "450.00", true)

	require.NoError(t, svc.AddStudent(ctx, grp.ID, ana.ID))
	require.NoError(t, svc.AddStudent(ctx, grp.ID, bruno.ID))
	// enrolling twice is a no-op
	require.NoError(t, svc.AddStudent(ctx, grp.ID, ana.ID))

	got, err := svc.GetByID(ctx, grp.ID)
	require.NoError(t, err)
	require.Len(t, got.Students, 2)
	assert.Equal(t, "Ana Souza", got.Students[0].Name)
	assert.Equal(t, "Bruno Lima", got.Students[1].Name)

	groups, err := svc.QueryByStudent(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, grp.ID, groups[0].ID)

	require.NoError(t, svc.RemoveStudent(ctx, grp.ID, ana.ID))
	got, err = svc.GetByID(ctx, grp.ID)
	require.NoError(t, err)
	require.Len(t, got.Students, 1)
	assert.Equal(t, "Bruno Lima", got.Students[0].Name)

	t.Run("membership requires both sides to exist", func(t *testing.T) {
		assert.Equal(t, classgroup.ErrNotFound, svc.AddStudent(ctx, "nope", ana.ID))
		assert.Equal(t, student.ErrNotFound, svc.AddStudent(ctx, grp.ID, "nope"))
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	mk := func(name string, year int, period string) classgroup.ClassGroup {
		grp, err := svc.Create(ctx, classgroup.NewClassGroup{Name: name, AcademicYear: year, Period: period})
		require.NoError(t, err)
		return grp
	}
	mk("5º Ano A", 2024, classgroup.PeriodMorning)
	mk("5º Ano B", 2025, classgroup.PeriodAfternoon)
	mk("5º Ano A", 2025, classgroup.PeriodMorning)

	t.Run("most recent year first, then name", func(t *testing.T) {
		groups, err := svc.Query(ctx, nil)
		require.NoError(t, err)
		require.Len(t, groups, 3)
		assert.Equal(t, 2025, groups[0].AcademicYear)
		assert.Equal(t, "5º Ano A", groups[0].Name)
		assert.Equal(t, "5º Ano B", groups[1].Name)
		assert.Equal(t, 2024, groups[2].AcademicYear)
	})

	t.Run("by year and period", func(t *testing.T) {
		year := 2025
		groups, err := svc.Query(ctx, &classgroup.QueryFilter{AcademicYear: &year, Period: classgroup.PeriodMorning})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "5º Ano A", groups[0].Name)
	})
}
