package classgroup

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

// School day periods
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
)

var Periods = []string{PeriodMorning, PeriodAfternoon, PeriodEvening}

type ClassGroup struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	AcademicYear      int         `json:"academic_year"`
	Period            string      `json:"period"`
	HomeroomTeacherID null.String `json:"homeroom_teacher_id,omitempty"`
	IsActive          bool        `json:"is_active"`
	CreatedAt         time.Time   `json:"created_at"` // UTC

	// Students is only populated on detail queries.
	Students []student.Student `json:"students,omitempty"`
}

// NewClassGroup contains information needed to create a new ClassGroup.
type NewClassGroup struct {
	Name              string      `json:"name" validate:"required"`
	AcademicYear      int         `json:"academic_year" validate:"required,gt=0"`
	Period            string      `json:"period" validate:"required,oneof=morning afternoon evening"`
	HomeroomTeacherID null.String `json:"homeroom_teacher_id"`
}

func (ng *NewClassGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Period = core.CleanString(ng.Period, true /* lower */)
	return validate.Struct(ng)
}

// UpdateClassGroup defines what information may be provided to modify an existing ClassGroup.
type UpdateClassGroup struct {
	Name              string      `json:"name"`
	AcademicYear      int         `json:"academic_year" validate:"omitempty,gt=0"`
	Period            string      `json:"period" validate:"omitempty,oneof=morning afternoon evening"`
	HomeroomTeacherID null.String `json:"homeroom_teacher_id"`
	IsActive          *bool       `json:"is_active"`
}

func (ug *UpdateClassGroup) Validate(origGrp ClassGroup, validate *validator.Validate) error {
	name := core.CleanString(ug.Name)
	if name != "" {
		ug.Name = name
	} else {
		ug.Name = origGrp.Name
	}

	period := core.CleanString(ug.Period, true /* lower */)
	if period != "" {
		ug.Period = period
	} else {
		ug.Period = origGrp.Period
	}

	if ug.AcademicYear == 0 {
		ug.AcademicYear = origGrp.AcademicYear
	}
	if !ug.HomeroomTeacherID.Valid {
		ug.HomeroomTeacherID = origGrp.HomeroomTeacherID
	}

	return validate.Struct(ug)
}

type QueryFilter struct {
	// Search does a case-insensitive match on Name.
	Search       string `query:"search"`
	AcademicYear *int   `query:"academic_year"`
	Period       string `query:"period"`
	IsActive     *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.AcademicYear == nil && qf.Period == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Period = core.CleanString(qf.Period, true /* lower */)
}
