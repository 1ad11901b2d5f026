package invoice

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/student"
)

var (
	ErrNotFound      = errors.New("invoice not found")
	ErrInvoiceExists = errors.New("an invoice for this student and month already exists")

	NowFunc = time.Now // mockable

	// marker kept verbatim from the legacy system; auto-generated invoices
	// are recognized by it
	autoNotesFmt = "Mensalidade gerada automaticamente - %02d/%d"
)

// Today returns the current date at UTC midnight.
func Today() time.Time {
	now := NowFunc().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type (
	Repository interface {
		// CreateInvoice returns ErrInvoiceExists when the student already has
		// an invoice due in the same calendar month.
		CreateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		GetInvoiceByID(ctx context.Context, id string, exec ...core.DBExecutor) (Invoice, error)
		ExistsForMonth(ctx context.Context, studentID string, year int, month time.Month, exec ...core.DBExecutor) (bool, error)
		// QueryInvoicesByStudent returns the student's invoices ordered by due date descending.
		QueryInvoicesByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Invoice, error)
		// FilterInvoices applies AND operation on available QueryFilter fields.
		FilterInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		DeleteInvoicesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Generate(ctx context.Context, gi GenerateInvoices) (GenerationReport, error)
		MarkPaid(ctx context.Context, id string) (Invoice, error)
		SetStatus(ctx context.Context, id, status string) (Invoice, error)
		PaymentHistory(ctx context.Context, studentID string) (HistoryReport, error)
		Query(ctx context.Context, filter *QueryFilter) (InvoiceList, error)
		Create(ctx context.Context, ni NewInvoice) (Invoice, error)
		GetByID(ctx context.Context, id string) (Invoice, error)
		Update(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error)
		Delete(ctx context.Context, ids ...string) error
		Receipt(ctx context.Context, id, paymentMethod string) (Receipt, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		stdRepo student.Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, stdRepo student.Repository, mailSvc core.EmailService, logger core.Logger) *service {
	return &service{
		db:      db,
		repo:    repo,
		stdRepo: stdRepo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Generate creates one invoice per active student for the (month, year)
// billing period. Students that already have an invoice due in that month
// are skipped, so re-running a batch is a no-op for them. A storage failure
// on one student does not abort the rest of the batch.
func (svc *service) Generate(ctx context.Context, gi GenerateInvoices) (GenerationReport, error) {
	due := time.Date(gi.Year, time.Month(gi.Month), core.Conf.InvoiceDueDay, 0, 0, 0, 0, time.UTC)
	// guard against a configured due day overflowing into the next month
	if due.Month() != time.Month(gi.Month) {
		return GenerationReport{}, core.NewValidationError(
			errors.Errorf("day %d does not exist in %02d/%d", core.Conf.InvoiceDueDay, gi.Month, gi.Year))
	}

	rpt := GenerationReport{
		Month:      gi.Month,
		Year:       gi.Year,
		DueDate:    due,
		UnitAmount: gi.UnitAmount,
	}

	active := true
	students, err := svc.stdRepo.FilterStudents(
		ctx,
		&student.QueryFilter{IsActive: &active},
		[]core.DBOrdering{{Field: "name", Ascending: true}},
	)
	if err != nil {
		return rpt, errors.Wrap(err, "querying active students")
	}
	rpt.ActiveStudents = len(students)

	today := Today()
	for _, std := range students {
		exists, err := svc.repo.ExistsForMonth(ctx, std.ID, gi.Year, time.Month(gi.Month))
		if err != nil {
			svc.logger.Error(fmt.Sprintf("checking existing invoice for student %s", std.ID), err)
			rpt.Failed++
			continue
		}
		if exists {
			rpt.Skipped++
			continue
		}

		status := StatusPending
		if due.Before(today) {
			status = StatusOverdue
		}
		inv := Invoice{
			StudentID: std.ID,
			Amount:    std.TuitionAmount,
			DueDate:   due,
			Status:    status,
			Notes:     fmt.Sprintf(autoNotesFmt, gi.Month, gi.Year),
			CreatedAt: NowFunc().UTC(),
		}
		if _, err := svc.repo.CreateInvoice(ctx, inv); err != nil {
			if errors.Cause(err) == ErrInvoiceExists {
				// lost a concurrent create for the same period; same as existing
				rpt.Skipped++
				continue
			}
			svc.logger.Error(fmt.Sprintf("creating invoice for student %s", std.ID), err)
			rpt.Failed++
			continue
		}
		rpt.Created++
		rpt.TotalAmount = rpt.TotalAmount.Add(std.TuitionAmount)
	}
	return rpt, nil
}

// MarkPaid flags the invoice as paid today, regardless of its prior status.
// Calling it again only refreshes the payment date.
func (svc *service) MarkPaid(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = StatusPaid
	inv.PaymentDate = null.TimeFrom(Today())

	inv, err = svc.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	svc.emailReceipt(ctx, inv)
	return inv, nil
}

// SetStatus applies any of the three statuses with no transition table:
// "paid" stamps today's payment date, the others clear it.
func (svc *service) SetStatus(ctx context.Context, id, status string) (Invoice, error) {
	status = core.CleanString(status, true /* lower */)
	if !statusKnown(status) {
		return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status: " + status})
	}

	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = status
	if status == StatusPaid {
		inv.PaymentDate = null.TimeFrom(Today())
	} else {
		inv.PaymentDate = null.Time{}
	}
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *service) PaymentHistory(ctx context.Context, studentID string) (HistoryReport, error) {
	std, err := svc.stdRepo.GetStudentByID(ctx, studentID)
	if err != nil {
		return HistoryReport{}, err
	}
	invoices, err := svc.repo.QueryInvoicesByStudent(ctx, studentID)
	if err != nil {
		return HistoryReport{}, errors.Wrap(err, "querying student invoices")
	}

	rpt := HistoryReport{Student: std, Invoices: invoices}
	for _, inv := range invoices {
		switch inv.Status {
		case StatusPaid:
			rpt.PaidCount++
			rpt.PaidAmount = rpt.PaidAmount.Add(inv.Amount)
		case StatusOverdue:
			rpt.OverdueCount++
			rpt.OverdueAmount = rpt.OverdueAmount.Add(inv.Amount)
		default:
			rpt.PendingCount++
			rpt.PendingAmount = rpt.PendingAmount.Add(inv.Amount)
		}
	}
	rpt.TotalCount = len(invoices)
	rpt.TotalAmount = rpt.PaidAmount.Add(rpt.PendingAmount).Add(rpt.OverdueAmount)
	if rpt.TotalCount > 0 {
		rpt.PaymentPercent = float64(rpt.PaidCount) / float64(rpt.TotalCount) * 100
		rpt.AverageAmount = rpt.TotalAmount.Div(decimal.NewFromInt(int64(rpt.TotalCount))).Round(2)
	}
	rpt.PaidMonths = rpt.PaidCount
	return rpt, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) (InvoiceList, error) {
	if filter != nil {
		filter.Clean()
		if err := filter.Validate(); err != nil {
			return InvoiceList{}, err
		}
	}
	invoices, err := svc.repo.FilterInvoices(ctx, filter, []core.DBOrdering{{Field: "due_date"}})
	if err != nil {
		return InvoiceList{}, err
	}

	list := InvoiceList{Items: invoices}
	for _, inv := range invoices {
		switch inv.Status {
		case StatusPaid:
			list.Totals.Paid = list.Totals.Paid.Add(inv.Amount)
		case StatusOverdue:
			list.Totals.Overdue = list.Totals.Overdue.Add(inv.Amount)
		default:
			list.Totals.Pending = list.Totals.Pending.Add(inv.Amount)
		}
	}
	list.Totals.Total = list.Totals.Paid.Add(list.Totals.Pending).Add(list.Totals.Overdue)
	return list, nil
}

func (svc *service) Create(ctx context.Context, ni NewInvoice) (Invoice, error) {
	std, err := svc.stdRepo.GetStudentByID(ctx, ni.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Invoice{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Invoice{}, err
	}

	amount := ni.Amount
	if amount.IsZero() {
		amount = std.TuitionAmount
	}
	status := ni.Status
	if status == "" {
		status = StatusPending
		if ni.DueDate.Before(Today()) {
			status = StatusOverdue
		}
	}
	inv := Invoice{
		StudentID: ni.StudentID,
		Amount:    amount,
		DueDate:   ni.DueDate,
		Status:    status,
		Notes:     ni.Notes,
		CreatedAt: NowFunc().UTC(),
	}
	if status == StatusPaid {
		inv.PaymentDate = null.TimeFrom(Today())
	}
	return svc.repo.CreateInvoice(ctx, inv)
}

func (svc *service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}

	if !ui.Amount.IsZero() {
		inv.Amount = ui.Amount
	}
	if !ui.DueDate.IsZero() {
		inv.DueDate = ui.DueDate
	}
	if ui.Notes != nil {
		inv.Notes = *ui.Notes
	}
	if ui.Status != "" && ui.Status != inv.Status {
		inv.Status = ui.Status
		if ui.Status == StatusPaid {
			inv.PaymentDate = null.TimeFrom(Today())
		} else {
			inv.PaymentDate = null.Time{}
		}
	}
	if ui.PaymentDate.Valid {
		inv.PaymentDate = ui.PaymentDate
	}
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteInvoicesByID(ctx, ids)
}

func (svc *service) emailReceipt(ctx context.Context, inv Invoice) {
	std, err := svc.stdRepo.GetStudentByID(ctx, inv.StudentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading student %s for receipt", inv.StudentID), err)
		return
	}
	if std.Email == "" {
		return
	}
	rcpt := buildReceipt(inv, std, defaultPaymentMethod)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: std.Name, Address: std.Email}},
		Subject: fmt.Sprintf("Recibo de pagamento - %s", rcpt.ReferenceMonth),
		BodyStr: rcpt.Render(),
	})
}
