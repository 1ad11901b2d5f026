package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
)

type Student struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	FatherName    string          `json:"father_name,omitempty"`
	MotherName    string          `json:"mother_name,omitempty"`
	Document      string          `json:"document"` // RG/CPF, unique
	BirthDate     null.Time       `json:"birth_date,omitempty"`
	Address       string          `json:"address,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Email         string          `json:"email,omitempty"`
	TuitionAmount decimal.Decimal `json:"tuition_amount"` // fixed monthly tuition for this student
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name          string          `json:"name" validate:"required"`
	Document      string          `json:"document" validate:"required"`
	FatherName    string          `json:"father_name"`
	MotherName    string          `json:"mother_name"`
	BirthDate     null.Time       `json:"birth_date"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email" validate:"omitempty,email"`
	TuitionAmount decimal.Decimal `json:"tuition_amount"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Document = core.CleanString(ns.Document)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.TuitionAmount.IsZero() {
		ns.TuitionAmount = core.Conf.DefaultTuitionAmount
	}
	if ns.TuitionAmount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "tuition_amount", Error: "tuition amount cannot be negative"})
	}
	return svc.CheckDocumentUniqueness(ctx, ns.Document)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name          string          `json:"name"`
	Document      string          `json:"document"`
	FatherName    *string         `json:"father_name"`
	MotherName    *string         `json:"mother_name"`
	BirthDate     null.Time       `json:"birth_date"`
	Address       *string         `json:"address"`
	Phone         *string         `json:"phone"`
	Email         string          `json:"email" validate:"omitempty,email"`
	TuitionAmount decimal.Decimal `json:"tuition_amount"`
	IsActive      *bool           `json:"is_active"`
}

func (us *UpdateStudent) Validate(ctx context.Context, origStd Student, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = origStd.Name
	}

	doc := core.CleanString(us.Document)
	if doc != "" {
		us.Document = doc
	} else {
		us.Document = origStd.Document
	}

	email := core.CleanString(us.Email, true /* lower */)
	if email != "" {
		us.Email = email
	} else {
		us.Email = origStd.Email
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.TuitionAmount.IsZero() {
		us.TuitionAmount = origStd.TuitionAmount
	}
	if us.TuitionAmount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "tuition_amount", Error: "tuition amount cannot be negative"})
	}
	return svc.CheckDocumentUniqueness(ctx, us.Document, origStd)
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Name, Document, FatherName or MotherName.
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
