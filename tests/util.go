package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
	"github.com/jpcaldeira/escolar/core/student"
	"github.com/jpcaldeira/escolar/core/user"
	dummydb "github.com/jpcaldeira/escolar/storage/database/dummy"
)

// OpenDB returns a fresh in-memory store.
func OpenDB() *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		panic(err)
	}
	return db
}

func ResetDB(t *testing.T, db *dummydb.DB) {
	t.Helper()
	db.Reset()
}

// Logger is a core.Logger that collects messages instead of reporting them.
type Logger struct {
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) Enable(bool)                        {}
func (l *Logger) Debug(msg string, _ ...interface{}) { l.Messages = append(l.Messages, msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.Messages = append(l.Messages, msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.Messages = append(l.Messages, msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.Messages = append(l.Messages, msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.Messages = append(l.Messages, msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, document string,
	tuition string,
	isActive bool,
) student.Student {
	t.Helper()

	amount, err := decimal.NewFromString(tuition)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	std := student.Student{
		Name:          name,
		Document:      document,
		TuitionAmount: amount,
		IsActive:      isActive,
		CreatedAt:     time.Now().UTC(),
	}
	std, err = repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateInvoice(
	t *testing.T,
	repo invoice.Repository,
	studentID string,
	amount string,
	dueDate time.Time,
	status string,
	paymentDate ...time.Time,
) invoice.Invoice {
	t.Helper()

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	inv := invoice.Invoice{
		StudentID: studentID,
		Amount:    amt,
		DueDate:   dueDate,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if len(paymentDate) > 0 {
		inv.PaymentDate = null.TimeFrom(paymentDate[0])
	}
	inv, err = repo.CreateInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	return inv
}

// Date returns a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
