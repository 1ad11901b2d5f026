package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/invoice"
	"github.com/jpcaldeira/escolar/core/student"
	"github.com/jpcaldeira/escolar/core/user"
	testutil "github.com/jpcaldeira/escolar/tests"
)

func Test_studentApi_crud(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.br", "", []string{user.RoleAdmin}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", "prof@test.br", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)
	profToken := getToken(t, prof)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/students",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Enrollment is admin-only", method: http.MethodPost, path: "/v1/students",
			body:  []byte(`{"name": "Ana Souza", "document": "111"}`),
			token: profToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Document required", method: http.MethodPost, path: "/v1/students",
			body: []byte(`{"name": "Ana Souza"}`), token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "Enroll", method: http.MethodPost, path: "/v1/students",
			body: []byte(`{"name": "Ana Souza", "document": "111"}`), token: adminToken, wantCode: http.StatusCreated,
		},
		{
			name: "Taken document", method: http.MethodPost, path: "/v1/students",
			body: []byte(`{"name": "Outra Ana", "document": "111"}`), token: adminToken, wantCode: http.StatusBadRequest,
		},
	}

	var created student.Student
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
				t.Fatalf("unmarshalling student: %v", err)
			}
			if !created.IsActive {
				t.Error("new student is not active")
			}
			// tuition falls back to the configured default
			checkAmount(t, "TuitionAmount", created.TuitionAmount, "450")
		})
	}

	t.Run("staff can read the listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students", profToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []student.Student{created})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("deactivation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+created.ID, adminToken, []byte(`{"is_active": false}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling student: %v", err)
		}
		if got.IsActive {
			t.Error("student is still active")
		}
		if got.Name != created.Name || got.Document != created.Document {
			t.Errorf("got %v/%v; blank fields must keep their stored value", got.Name, got.Document)
		}
	})
}

func Test_studentApi_paymentHistory(t *testing.T) {
	testutil.ResetDB(t, db)

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", "prof@test.br", "", []string{user.RoleTeacher}, true)
	profToken := getToken(t, prof)

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.January, 10), invoice.StatusPaid, testutil.Date(2025, time.January, 8))
	testutil.CreateInvoice(t, invRepo, std.ID, "450.00", testutil.Date(2025, time.February, 10), invoice.StatusOverdue)

	req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+std.ID+"/payment-history", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var rpt invoice.HistoryReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("unmarshalling report: %v", err)
	}
	if rpt.TotalCount != 2 || rpt.PaidCount != 1 || rpt.OverdueCount != 1 {
		t.Errorf("counts = %v/%v/%v; want 2/1/1", rpt.TotalCount, rpt.PaidCount, rpt.OverdueCount)
	}
	if rpt.PaymentPercent != 50 {
		t.Errorf("PaymentPercent = %v; want 50", rpt.PaymentPercent)
	}
	if rpt.PaidMonths != 1 {
		t.Errorf("PaidMonths = %v; want 1", rpt.PaidMonths)
	}
	checkAmount(t, "TotalAmount", rpt.TotalAmount, "900")

	t.Run("invoices sub-listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+std.ID+"/invoices", profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var invoices []invoice.Invoice
		if err := json.Unmarshal(rec.Body.Bytes(), &invoices); err != nil {
			t.Fatalf("unmarshalling invoices: %v", err)
		}
		if len(invoices) != 2 {
			t.Fatalf("len(invoices) = %v; want 2", len(invoices))
		}
		// most recent first
		if !invoices[0].DueDate.After(invoices[1].DueDate) {
			t.Errorf("invoices are not ordered by due date descending")
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/nope/payment-history", profToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_classGroupApi_membership(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.br", "", []string{user.RoleAdmin}, true)
	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", "prof@test.br", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)
	profToken := getToken(t, prof)

	std := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)

	// create the group
	body := []byte(`{"name": "5º Ano A", "academic_year": 2025, "period": "morning"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var grp classgroup.ClassGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &grp); err != nil {
		t.Fatalf("unmarshalling class group: %v", err)
	}

	// enrollment is admin-only
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+grp.ID+"/students/"+std.ID, profToken)
	app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
	checkCodeAndData(t, tt, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+grp.ID+"/students/"+std.ID, adminToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}

	// detail comes back with members
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+grp.ID, profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var got classgroup.ClassGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshalling class group: %v", err)
	}
	if len(got.Students) != 1 || got.Students[0].ID != std.ID {
		t.Errorf("Students = %v; want [%v]", got.Students, std.ID)
	}

	// and the student lists the class back
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+std.ID+"/classes", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var groups []classgroup.ClassGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshalling class groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != grp.ID {
		t.Errorf("groups = %v; want [%v]", groups, grp.ID)
	}

	// drop the membership
	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+grp.ID+"/students/"+std.ID, adminToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusNoContent)
	}
}

func Test_dashboardApi(t *testing.T) {
	testutil.ResetDB(t, db)
	setNow(t, testutil.Date(2025, time.March, 15))

	prof := testutil.CreateUser(t, usrRepo, "Prof", "prof", "prof@test.br", "", []string{user.RoleTeacher}, true)
	profToken := getToken(t, prof)

	ana := testutil.CreateStudent(t, stdRepo, "Ana Souza", "111", "450.00", true)
	testutil.CreateStudent(t, stdRepo, "Inativo", "333", "450.00", false)
	testutil.CreateInvoice(t, invRepo, ana.ID, "450.00", testutil.Date(2025, time.March, 10), invoice.StatusPending)
	testutil.CreateInvoice(t, invRepo, ana.ID, "450.00", testutil.Date(2025, time.February, 10), invoice.StatusPaid, testutil.Date(2025, time.February, 10))
	late := testutil.CreateInvoice(t, invRepo, ana.ID, "450.00", testutil.Date(2025, time.January, 10), invoice.StatusOverdue)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var rpt struct {
		ActiveStudents    int               `json:"active_students"`
		ActiveClassGroups int               `json:"active_class_groups"`
		Month             int               `json:"month"`
		Year              int               `json:"year"`
		Invoices          invoice.Totals    `json:"invoices"`
		RecentOverdue     []invoice.Invoice `json:"recent_overdue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("unmarshalling report: %v", err)
	}
	if rpt.ActiveStudents != 1 {
		t.Errorf("ActiveStudents = %v; want 1", rpt.ActiveStudents)
	}
	if rpt.Month != 3 || rpt.Year != 2025 {
		t.Errorf("period = %02d/%d; want 03/2025", rpt.Month, rpt.Year)
	}
	// February's paid invoice stays out of the current month totals
	checkAmount(t, "Pending", rpt.Invoices.Pending, "450")
	checkAmount(t, "Paid", rpt.Invoices.Paid, "0")
	checkAmount(t, "Total", rpt.Invoices.Total, "450")
	if len(rpt.RecentOverdue) != 1 || rpt.RecentOverdue[0].ID != late.ID {
		t.Errorf("RecentOverdue = %+v; want January's overdue invoice only", rpt.RecentOverdue)
	}
}
