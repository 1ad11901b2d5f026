package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
)

const (
	invoiceCols = "id, student_id, amount, due_date, status, payment_date, notes, created_at"

	// one invoice per student per billing month, see fs/migrations
	invoicePeriodConstraint = "invoice_student_period_key"
)

type invoiceRepository struct {
	exec core.DBExecutor
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(exec core.DBExecutor) *invoiceRepository {
	return &invoiceRepository{exec: exec}
}

func (repo invoiceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func scanInvoice(row rowScanner) (invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.StudentID, &inv.Amount, &inv.DueDate,
		&inv.Status, &inv.PaymentDate, &inv.Notes, &inv.CreatedAt,
	)
	return inv, err
}

func scanInvoiceWithStudent(row rowScanner) (invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.StudentID, &inv.Amount, &inv.DueDate,
		&inv.Status, &inv.PaymentDate, &inv.Notes, &inv.CreatedAt,
		&inv.StudentName,
	)
	return inv, err
}

func trapInvoiceNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return invoice.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	inv.ID = uuid.New().String()
	q := `INSERT INTO invoice (` + invoiceCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		inv.ID, inv.StudentID, inv.Amount, inv.DueDate,
		inv.Status, inv.PaymentDate, inv.Notes, inv.CreatedAt,
	)
	if err != nil {
		if violatedConstraint(err) == invoicePeriodConstraint {
			return invoice.Invoice{}, invoice.ErrInvoiceExists
		}
		return invoice.Invoice{}, errors.Wrap(err, "inserting invoice")
	}
	return inv, nil
}

func (repo invoiceRepository) GetInvoiceByID(ctx context.Context, id string, exec ...core.DBExecutor) (invoice.Invoice, error) {
	q := `SELECT ` + prefixCols("i", invoiceCols) + `, s.name
		FROM invoice i
		JOIN student s ON s.id = i.student_id
		WHERE i.id = $1`
	inv, err := scanInvoiceWithStudent(repo.getExec(exec).QueryRowContext(ctx, q, id))
	if err != nil {
		return invoice.Invoice{}, trapInvoiceNoRowsErr(err, "getting invoice by id")
	}
	return inv, nil
}

func (repo invoiceRepository) ExistsForMonth(ctx context.Context, studentID string, year int, month time.Month, exec ...core.DBExecutor) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM invoice
		WHERE student_id = $1
			AND date_part('year', due_date) = $2
			AND date_part('month', due_date) = $3
	)`
	var exists bool
	if err := repo.getExec(exec).QueryRowContext(ctx, q, studentID, year, int(month)).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "checking invoice for month")
	}
	return exists, nil
}

func (repo invoiceRepository) QueryInvoicesByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	q := "SELECT " + invoiceCols + " FROM invoice WHERE student_id = $1 ORDER BY due_date DESC"
	rows, err := repo.getExec(exec).QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying invoices by student")
	}
	defer func() { _ = rows.Close() }()

	invoices := make([]invoice.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning invoice")
		}
		invoices = append(invoices, inv)
	}
	return invoices, errors.Wrap(rows.Err(), "querying invoices by student")
}

func (repo invoiceRepository) FilterInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "s.name ILIKE ?")
			args = append(args, "%"+filter.Search+"%")
		}
		if filter.Status != "" {
			conds = append(conds, "i.status = ?")
			args = append(args, filter.Status)
		}
		if from := filter.DueFrom(); !from.IsZero() {
			conds = append(conds, "i.due_date >= ?")
			args = append(args, from)
		}
		if to := filter.DueTo(); !to.IsZero() {
			conds = append(conds, "i.due_date <= ?")
			args = append(args, to)
		}
		if filter.StudentActive != nil {
			conds = append(conds, "s.is_active = ?")
			args = append(args, *filter.StudentActive)
		}
	}

	q := `SELECT ` + prefixCols("i", invoiceCols) + `, s.name
		FROM invoice i
		JOIN student s ON s.id = i.student_id`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(qualifyOrdering("i", ordering), "i.due_date DESC")
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filtering invoices")
	}
	defer func() { _ = rows.Close() }()

	invoices := make([]invoice.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoiceWithStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning invoice")
		}
		invoices = append(invoices, inv)
	}
	return invoices, errors.Wrap(rows.Err(), "filtering invoices")
}

func (repo invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	q := `UPDATE invoice SET
			amount = $2, due_date = $3, status = $4, payment_date = $5, notes = $6
		WHERE id = $1
		RETURNING ` + invoiceCols
	updated, err := scanInvoice(repo.getExec(exec).QueryRowContext(ctx, q,
		inv.ID, inv.Amount, inv.DueDate, inv.Status, inv.PaymentDate, inv.Notes,
	))
	if err != nil {
		if violatedConstraint(err) == invoicePeriodConstraint {
			return invoice.Invoice{}, invoice.ErrInvoiceExists
		}
		return invoice.Invoice{}, trapInvoiceNoRowsErr(err, "updating invoice")
	}
	updated.StudentName = inv.StudentName
	return updated, nil
}

func (repo invoiceRepository) DeleteInvoicesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM invoice WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "expanding invoice ids")
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err = repo.getExec(exec).ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting invoices")
	}
	return nil
}

// qualifyOrdering prefixes bare ordering fields with a table alias.
func qualifyOrdering(alias string, ordering []core.DBOrdering) []core.DBOrdering {
	qualified := make([]core.DBOrdering, len(ordering))
	for i, ord := range ordering {
		if !strings.Contains(ord.Field, ".") {
			ord.Field = alias + "." + ord.Field
		}
		qualified[i] = ord
	}
	return qualified
}
