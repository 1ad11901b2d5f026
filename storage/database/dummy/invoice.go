package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
)

type invoiceRepository struct {
	db       *invoiceTable
	students *studentTable
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *DB) *invoiceRepository {
	return &invoiceRepository{db: db.invoice, students: db.student}
}

func (repo *invoiceRepository) query() []invoice.Invoice {
	invoices := make([]invoice.Invoice, 0, len(repo.db.table))
	for _, inv := range repo.db.table {
		invoices = append(invoices, *inv)
	}
	return invoices
}

func (repo *invoiceRepository) studentName(id string) string {
	repo.students.RLock()
	defer repo.students.RUnlock()
	if std, ok := repo.students.table[id]; ok {
		return std.Name
	}
	return ""
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (repo *invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == inv.StudentID && sameMonth(existing.DueDate, inv.DueDate) {
			return invoice.Invoice{}, invoice.ErrInvoiceExists
		}
	}

	inv.ID = uuid.New().String()
	repo.db.table[inv.ID] = &inv

	inv.StudentName = repo.studentName(inv.StudentID)
	return inv, nil
}

func (repo *invoiceRepository) GetInvoiceByID(ctx context.Context, id string, exec ...core.DBExecutor) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.table[id]; ok {
		got := *inv
		got.StudentName = repo.studentName(got.StudentID)
		return got, nil
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) ExistsForMonth(ctx context.Context, studentID string, year int, month time.Month, exec ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.table {
		if inv.StudentID == studentID && inv.DueDate.Year() == year && inv.DueDate.Month() == month {
			return true, nil
		}
	}
	return false, nil
}

func (repo *invoiceRepository) QueryInvoicesByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invoices := make([]invoice.Invoice, 0)
	for _, inv := range repo.query() {
		if inv.StudentID == studentID {
			invoices = append(invoices, inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].DueDate.After(invoices[j].DueDate) })
	return invoices, nil
}

func (repo *invoiceRepository) FilterInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invoices := repo.query()
	for i := range invoices {
		invoices[i].StudentName = repo.studentName(invoices[i].StudentID)
	}

	if filter != nil {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			var filtered []invoice.Invoice
			for _, inv := range invoices {
				if strings.Contains(strings.ToLower(inv.StudentName), search) {
					filtered = append(filtered, inv)
				}
			}
			invoices = filtered
		}
		if filter.Status != "" {
			var filtered []invoice.Invoice
			for _, inv := range invoices {
				if inv.Status == filter.Status {
					filtered = append(filtered, inv)
				}
			}
			invoices = filtered
		}
		if from := filter.DueFrom(); !from.IsZero() {
			var filtered []invoice.Invoice
			for _, inv := range invoices {
				if !inv.DueDate.Before(from) {
					filtered = append(filtered, inv)
				}
			}
			invoices = filtered
		}
		if to := filter.DueTo(); !to.IsZero() {
			var filtered []invoice.Invoice
			for _, inv := range invoices {
				if !inv.DueDate.After(to) {
					filtered = append(filtered, inv)
				}
			}
			invoices = filtered
		}
		if filter.StudentActive != nil {
			repo.students.RLock()
			var filtered []invoice.Invoice
			for _, inv := range invoices {
				if std, ok := repo.students.table[inv.StudentID]; ok && std.IsActive == *filter.StudentActive {
					filtered = append(filtered, inv)
				}
			}
			repo.students.RUnlock()
			invoices = filtered
		}
	}

	sort.Slice(invoices, func(i, j int) bool { return invoices[i].DueDate.After(invoices[j].DueDate) })
	return invoices, nil
}

func (repo *invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[inv.ID]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	for _, other := range repo.db.table {
		if other.ID != inv.ID && other.StudentID == orig.StudentID && sameMonth(other.DueDate, inv.DueDate) {
			return invoice.Invoice{}, invoice.ErrInvoiceExists
		}
	}
	orig.Amount = inv.Amount
	orig.DueDate = inv.DueDate
	orig.Status = inv.Status
	orig.PaymentDate = inv.PaymentDate
	orig.Notes = inv.Notes

	updated := *orig
	updated.StudentName = repo.studentName(updated.StudentID)
	return updated, nil
}

func (repo *invoiceRepository) DeleteInvoicesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
