package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

// Invoice statuses. "overdue" is decided once at creation time from the due
// date; it is never recomputed afterwards.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

var Statuses = []string{StatusPending, StatusPaid, StatusOverdue}

type Invoice struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"` // joined on list queries
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status"`
	PaymentDate null.Time       `json:"payment_date"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

// DueMonth returns the billing period this invoice belongs to.
func (inv Invoice) DueMonth() (int, time.Month) {
	return inv.DueDate.Year(), inv.DueDate.Month()
}

// NewInvoice contains information needed to create an Invoice manually.
type NewInvoice struct {
	StudentID string          `json:"student_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"due_date" validate:"required"`
	Status    string          `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	Notes     string          `json:"notes"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.StudentID = core.CleanString(ni.StudentID)
	ni.Status = core.CleanString(ni.Status, true /* lower */)
	ni.Notes = core.CleanString(ni.Notes)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	if ni.Amount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount cannot be negative"})
	}
	return nil
}

// UpdateInvoice defines what information may be provided to modify an existing Invoice.
type UpdateInvoice struct {
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	Notes       *string         `json:"notes"`
	PaymentDate null.Time       `json:"payment_date"`
}

func (ui *UpdateInvoice) Validate(validate *validator.Validate) error {
	ui.Status = core.CleanString(ui.Status, true /* lower */)
	if err := validate.Struct(ui); err != nil {
		return err
	}
	if ui.Amount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount cannot be negative"})
	}
	return nil
}

// GenerateInvoices are the parameters of one monthly generation batch.
type GenerateInvoices struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,gt=0"`
	// UnitAmount only feeds the report summary; created invoices always
	// carry each student's own tuition amount.
	UnitAmount decimal.Decimal `json:"unit_amount"`
}

func (gi *GenerateInvoices) Validate(validate *validator.Validate) error {
	if err := validate.Struct(gi); err != nil {
		return err
	}
	if gi.UnitAmount.IsZero() {
		gi.UnitAmount = core.Conf.DefaultTuitionAmount
	}
	if gi.UnitAmount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "unit_amount", Error: "unit amount cannot be negative"})
	}
	return nil
}

// GenerationReport summarizes one generation batch.
type GenerationReport struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	DueDate        time.Time       `json:"due_date"`
	ActiveStudents int             `json:"active_students"`
	Created        int             `json:"created"`
	Skipped        int             `json:"skipped"` // already had an invoice for the period
	Failed         int             `json:"failed"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"` // sum of the created invoices' amounts
}

// HistoryReport aggregates a student's invoices by status.
type HistoryReport struct {
	Student  student.Student `json:"student"`
	Invoices []Invoice       `json:"invoices"`

	PaidCount    int `json:"paid_count"`
	PendingCount int `json:"pending_count"`
	OverdueCount int `json:"overdue_count"`
	TotalCount   int `json:"total_count"`

	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	PaymentPercent float64         `json:"payment_percent"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	// PaidMonths is the count of paid invoices; month adjacency is not checked.
	PaidMonths int `json:"paid_months"`
}

type QueryFilter struct {
	// Search does a case-insensitive match on the student's name.
	Search string `query:"search"`
	Status string `query:"status"`

	// inclusive calendar month range on the due date
	FromMonth int `query:"from_month"`
	FromYear  int `query:"from_year"`
	ToMonth   int `query:"to_month"`
	ToYear    int `query:"to_year"`

	StudentActive *bool `query:"student_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf *QueryFilter) Validate() error {
	if qf.Status != "" && !statusKnown(qf.Status) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: fmt.Sprintf("status must be one of: %s", strings.Join(Statuses, ", ")),
		})
	}
	for _, p := range []struct {
		field string
		month int
		year  int
	}{
		{"from_month", qf.FromMonth, qf.FromYear},
		{"to_month", qf.ToMonth, qf.ToYear},
	} {
		if p.month != 0 && (p.month < 1 || p.month > 12) {
			return core.NewValidationError(nil, core.FieldError{Field: p.field, Error: "month must be between 1 and 12"})
		}
		if p.month != 0 && p.year == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: p.field, Error: "month requires a year"})
		}
	}
	return nil
}

// DueFrom returns the inclusive lower bound of the due date range, zero when unset.
func (qf *QueryFilter) DueFrom() time.Time {
	if qf.FromMonth == 0 || qf.FromYear == 0 {
		return time.Time{}
	}
	return time.Date(qf.FromYear, time.Month(qf.FromMonth), 1, 0, 0, 0, 0, time.UTC)
}

// DueTo returns the inclusive upper bound of the due date range (the last
// day of the month), zero when unset.
func (qf *QueryFilter) DueTo() time.Time {
	if qf.ToMonth == 0 || qf.ToYear == 0 {
		return time.Time{}
	}
	return time.Date(qf.ToYear, time.Month(qf.ToMonth)+1, 0, 0, 0, 0, 0, time.UTC)
}

func statusKnown(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Totals are amount sums over a filtered invoice listing.
type Totals struct {
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Overdue decimal.Decimal `json:"overdue"`
	Total   decimal.Decimal `json:"total"`
}

// InvoiceList is a filtered listing with its per-status totals.
type InvoiceList struct {
	Items  []Invoice `json:"items"`
	Totals Totals    `json:"totals"`
}
