package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
	emailsvc "github.com/jpcaldeira/escolar/services/email"
	dummydb "github.com/jpcaldeira/escolar/storage/database/dummy"
	testutil "github.com/jpcaldeira/escolar/tests"
)

func setup(t *testing.T) (invoice.ServiceInterface, *dummydb.DB, *testutil.Logger) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	logger := new(testutil.Logger)
	svc := invoice.NewService(
		nil,
		dummydb.NewInvoiceRepository(db),
		dummydb.NewStudentRepository(db),
		emailsvc.NewConsoleServiceMock(),
		logger,
	)
	return svc, db, logger
}

// freeze the clock for deterministic due date comparisons
func setNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := invoice.NowFunc
	invoice.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { invoice.NowFunc = orig })
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one pending invoice per active student", func(t *testing.T) {
		svc, db, _ := setup(t)
		stdRepo := dummydb.NewStudentRepository(db)
		setNow(t, testutil.Date(2025, time.March, 1))

		std1 := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
		std2 := testutil.CreateStudent(t, stdRepo, "Bruno Lima", "222", "500.00", true)
		testutil.CreateStudent(t, stdRepo, "Inativo", "333", "450.00", false)

		rpt, err := svc.Generate(ctx, invoice.GenerateInvoices{Month: 3, Year: 2025})
		require.NoError(t, err)

		assert.Equal(t, 2, rpt.ActiveStudents)
		assert.Equal(t, 2, rpt.Created)
		assert.Equal(t, 0, rpt.Skipped)
		assert.Equal(t, 0, rpt.Failed)
		assert.Equal(t, testutil.Date(2025, time.March, 10), rpt.DueDate)
		assert.True(t, rpt.TotalAmount.Equal(decimal.RequireFromString("950.00")),
			"TotalAmount = %s", rpt.TotalAmount)

		for _, std := range []string{std1.ID, std2.ID} {
			invs, err := svc.PaymentHistory(ctx, std)
			require.NoError(t, err)
			require.Len(t, invs.Invoices, 1)
			inv := invs.Invoices[0]
			assert.Equal(t, invoice.StatusPending, inv.Status)
			assert.Equal(t, testutil.Date(2025, time.March, 10), inv.DueDate)
			assert.False(t, inv.PaymentDate.Valid)
			assert.Equal(t, "Mensalidade gerada automaticamente - 03/2025", inv.Notes)
		}
	})

	t.Run("invoices due before today are created overdue", func(t *testing.T) {
		svc, db, _ := setup(t)
		stdRepo := dummydb.NewStudentRepository(db)
		setNow(t, testutil.Date(2025, time.March, 15))

		std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)

		_, err := svc.Generate(ctx, invoice.GenerateInvoices{Month: 3, Year: 2025})
		require.NoError(t, err)

		rpt, err := svc.PaymentHistory(ctx, std.ID)
		require.NoError(t, err)
		require.Len(t, rpt.Invoices, 1)
		assert.Equal(t, invoice.StatusOverdue, rpt.Invoices[0].Status)
	})

	t.Run("rerunning a batch skips existing invoices", func(t *testing.T) {
		svc, db, _ := setup(t)
		stdRepo := dummydb.NewStudentRepository(db)
		setNow(t, testutil.Date(2025, time.March, 1))

		testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
		testutil.CreateStudent(t, stdRepo, "Bruno Lima", "222", "500.00", true)

		_, err := svc.Generate(ctx, invoice.GenerateInvoices{Month: 3, Year: 2025})
		require.NoError(t, err)

		// a new student joins before the re-run
		testutil.CreateStudent(t, stdRepo, "Clara Dias", "444", "450.00", true)

		rpt, err := svc.Generate(ctx, invoice.GenerateInvoices{Month: 3, Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, 3, rpt.ActiveStudents)
		assert.Equal(t, 1, rpt.Created)
		assert.Equal(t, 2, rpt.Skipped)
		assert.True(t, rpt.TotalAmount.Equal(decimal.RequireFromString("450.00")),
			"TotalAmount = %s", rpt.TotalAmount)
	})

	t.Run("batches for different months are independent", func(t *testing.T) {
		svc, db, _ := setup(t)
		stdRepo := dummydb.NewStudentRepository(db)
		setNow(t, testutil.Date(2025, time.April, 1))

		std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)

		_, err := svc.Generate(ctx, invoice.GenerateInvoices{Month: 3, Year: 2025})
		require.NoError(t, err)
		_, err = svc.Generate(ctx, invoice.GenerateInvoices{Month: 4, Year: 2025})
		require.NoError(t, err)

		rpt, err := svc.PaymentHistory(ctx, std.ID)
		require.NoError(t, err)
		assert.Len(t, rpt.Invoices, 2)
	})
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	invRepo := dummydb.NewInvoiceRepository(db)
	setNow(t, testutil.Date(2025, time.March, 20))

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	inv := testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.March, 10), invoice.StatusOverdue)

	paid, err := svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, paid.Status)
	require.True(t, paid.PaymentDate.Valid)
	assert.Equal(t, testutil.Date(2025, time.March, 20), paid.PaymentDate.Time)

	// marking again only refreshes the payment date
	setNow(t, testutil.Date(2025, time.March, 25))
	paid, err = svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, paid.Status)
	assert.Equal(t, testutil.Date(2025, time.March, 25), paid.PaymentDate.Time)

	_, err = svc.MarkPaid(ctx, "nope")
	assert.Equal(t, invoice.ErrNotFound, err)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	invRepo := dummydb.NewInvoiceRepository(db)
	setNow(t, testutil.Date(2025, time.March, 20))

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	inv := testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.March, 10), invoice.StatusPending)

	got, err := svc.SetStatus(ctx, inv.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, got.Status)
	require.True(t, got.PaymentDate.Valid)
	assert.Equal(t, testutil.Date(2025, time.March, 20), got.PaymentDate.Time)

	// any status can follow any other; leaving "paid" clears the payment date
	got, err = svc.SetStatus(ctx, inv.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPending, got.Status)
	assert.False(t, got.PaymentDate.Valid)

	got, err = svc.SetStatus(ctx, inv.ID, "Overdue ")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOverdue, got.Status)

	_, err = svc.SetStatus(ctx, inv.ID, "cancelled")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "status", vErr.Fields[0].Field)
}

func TestPaymentHistory(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	invRepo := dummydb.NewInvoiceRepository(db)
	setNow(t, testutil.Date(2025, time.June, 1))

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.January, 10), invoice.StatusPaid, testutil.Date(2025, time.January, 8))
	testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.February, 10), invoice.StatusPaid, testutil.Date(2025, time.February, 12))
	testutil.CreateInvoice(t, invRepo, std.ID, "500.00", testutil.Date(2025, time.March, 10), invoice.StatusOverdue)
	testutil.CreateInvoice(t, invRepo, std.ID, "500.00", testutil.Date(2025, time.April, 10), invoice.StatusPending)

	rpt, err := svc.PaymentHistory(ctx, std.ID)
	require.NoError(t, err)

	assert.Equal(t, std.ID, rpt.Student.ID)
	assert.Equal(t, 4, rpt.TotalCount)
	assert.Equal(t, 2, rpt.PaidCount)
	assert.Equal(t, 1, rpt.PendingCount)
	assert.Equal(t, 1, rpt.OverdueCount)
	assert.True(t, rpt.PaidAmount.Equal(decimal.RequireFromString("900.00")))
	assert.True(t, rpt.PendingAmount.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, rpt.OverdueAmount.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, rpt.TotalAmount.Equal(decimal.RequireFromString("1900.00")))
	assert.InDelta(t, 50.0, rpt.PaymentPercent, 0.001)
	assert.True(t, rpt.AverageAmount.Equal(decimal.RequireFromString("475.00")), "AverageAmount = %s", rpt.AverageAmount)
	assert.Equal(t, 2, rpt.PaidMonths)

	// invoices come back most recent due date first
	require.Len(t, rpt.Invoices, 4)
	assert.Equal(t, testutil.Date(2025, time.April, 10), rpt.Invoices[0].DueDate)
	assert.Equal(t, testutil.Date(2025, time.January, 10), rpt.Invoices[3].DueDate)
}

func TestPaymentHistory_noInvoices(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)

	rpt, err := svc.PaymentHistory(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rpt.TotalCount)
	assert.Equal(t, 0.0, rpt.PaymentPercent)
	assert.True(t, rpt.AverageAmount.IsZero())
	assert.Equal(t, 0, rpt.PaidMonths)

	_, err = svc.PaymentHistory(ctx, "nope")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	invRepo := dummydb.NewInvoiceRepository(db)

	ana := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	bruno := testutil.CreateStudent(t, stdRepo, "Bruno Lima", "222", "500.00", false)
	testutil.CreateInvoice(t, invRepo, ana.ID, "450.00", testutil.Date(2025, time.February, 10), invoice.StatusPaid, testutil.Date(2025, time.February, 10))
	testutil.CreateInvoice(t, invRepo, ana.ID, "450.00", testutil.Date(2025, time.March, 10), invoice.StatusPending)
	testutil.CreateInvoice(t, invRepo, bruno.ID, "500.00", testutil.Date(2025, time.March, 31), invoice.StatusOverdue)

	t.Run("no filter returns everything with totals", func(t *testing.T) {
		list, err := svc.Query(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, list.Items, 3)
		assert.True(t, list.Totals.Paid.Equal(decimal.RequireFromString("450.00")))
		assert.True(t, list.Totals.Pending.Equal(decimal.RequireFromString("450.00")))
		assert.True(t, list.Totals.Overdue.Equal(decimal.RequireFromString("500.00")))
		assert.True(t, list.Totals.Total.Equal(decimal.RequireFromString("1400.00")))
	})

	t.Run("by status", func(t *testing.T) {
		list, err := svc.Query(ctx, &invoice.QueryFilter{Status: "overdue"})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, bruno.ID, list.Items[0].StudentID)
	})

	t.Run("by student name", func(t *testing.T) {
		list, err := svc.Query(ctx, &invoice.QueryFilter{Search: "ana"})
		require.NoError(t, err)
		assert.Len(t, list.Items, 2)
	})

	t.Run("month range is inclusive", func(t *testing.T) {
		list, err := svc.Query(ctx, &invoice.QueryFilter{
			FromMonth: 3, FromYear: 2025,
			ToMonth: 3, ToYear: 2025,
		})
		require.NoError(t, err)
		assert.Len(t, list.Items, 2) // the 31st still falls in March
	})

	t.Run("by student activity", func(t *testing.T) {
		active := true
		list, err := svc.Query(ctx, &invoice.QueryFilter{StudentActive: &active})
		require.NoError(t, err)
		assert.Len(t, list.Items, 2)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := svc.Query(ctx, &invoice.QueryFilter{Status: "cancelled"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("rejects month without year", func(t *testing.T) {
		_, err := svc.Query(ctx, &invoice.QueryFilter{FromMonth: 3})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	setNow(t, testutil.Date(2025, time.March, 15))

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)

	t.Run("amount defaults to the student tuition", func(t *testing.T) {
		inv, err := svc.Create(ctx, invoice.NewInvoice{
			StudentID: std.ID,
			DueDate:   testutil.Date(2025, time.April, 10),
		})
		require.NoError(t, err)
		assert.True(t, inv.Amount.Equal(decimal.RequireFromString("450.00")))
		assert.Equal(t, invoice.StatusPending, inv.Status)
	})

	t.Run("past due date defaults to overdue", func(t *testing.T) {
		inv, err := svc.Create(ctx, invoice.NewInvoice{
			StudentID: std.ID,
			DueDate:   testutil.Date(2025, time.February, 10),
		})
		require.NoError(t, err)
		assert.Equal(t, invoice.StatusOverdue, inv.Status)
	})

	t.Run("a second invoice in the same month conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, invoice.NewInvoice{
			StudentID: std.ID,
			DueDate:   testutil.Date(2025, time.April, 20),
		})
		assert.Equal(t, invoice.ErrInvoiceExists, err)
	})

	t.Run("unknown student is a field error", func(t *testing.T) {
		_, err := svc.Create(ctx, invoice.NewInvoice{
			StudentID: "nope",
			DueDate:   testutil.Date(2025, time.May, 10),
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "student_id", vErr.Fields[0].Field)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	stdRepo := dummydb.NewStudentRepository(db)
	invRepo := dummydb.NewInvoiceRepository(db)
	setNow(t, testutil.Date(2025, time.March, 20))

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	inv := testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.March, 10), invoice.StatusPending)

	notes := "pago na secretaria"
	got, err := svc.Update(ctx, inv.ID, invoice.UpdateInvoice{
		Status: invoice.StatusPaid,
		Notes:  &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, got.Status)
	assert.Equal(t, notes, got.Notes)
	require.True(t, got.PaymentDate.Valid)
	assert.Equal(t, testutil.Date(2025, time.March, 20), got.PaymentDate.Time)

	got, err = svc.Update(ctx, inv.ID, invoice.UpdateInvoice{Amount: decimal.RequireFromString("475.00")})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("475.00")))
	assert.Equal(t, invoice.StatusPaid, got.Status) // untouched
}
