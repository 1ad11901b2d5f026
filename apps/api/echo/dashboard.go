package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core/classgroup"
	"github.com/jpcaldeira/escolar/core/invoice"
	"github.com/jpcaldeira/escolar/core/student"
)

type (
	dashboardApi struct {
		stdSvc student.ServiceInterface
		grpSvc classgroup.ServiceInterface
		invSvc invoice.ServiceInterface
	}

	// DashboardReport is the home screen summary: headcounts, the current
	// month's billing totals, the latest overdue invoices and a sample of
	// the active classes.
	DashboardReport struct {
		ActiveStudents    int                     `json:"active_students"`
		ActiveClassGroups int                     `json:"active_class_groups"`
		Month             int                     `json:"month"`
		Year              int                     `json:"year"`
		Invoices          invoice.Totals          `json:"invoices"`
		RecentOverdue     []invoice.Invoice       `json:"recent_overdue"`
		Classes           []classgroup.ClassGroup `json:"classes"`
	}
)

// dashboardSampleSize caps the recent-overdue and class samples.
const dashboardSampleSize = 5

func headInvoices(invoices []invoice.Invoice, n int) []invoice.Invoice {
	if len(invoices) > n {
		return invoices[:n]
	}
	return invoices
}

func headClassGroups(groups []classgroup.ClassGroup, n int) []classgroup.ClassGroup {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func registerDashboardAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	stdSvc student.ServiceInterface,
	grpSvc classgroup.ServiceInterface,
	invSvc invoice.ServiceInterface,
) {
	api := dashboardApi{stdSvc: stdSvc, grpSvc: grpSvc, invSvc: invSvc}
	g.GET("/dashboard", api.retrieve, jwt, staffMiddleware())
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	active := true

	students, err := api.stdSvc.Query(reqCtx, &student.QueryFilter{IsActive: &active})
	if err != nil {
		return errors.Wrap(err, "querying active students")
	}
	groups, err := api.grpSvc.Query(reqCtx, &classgroup.QueryFilter{IsActive: &active})
	if err != nil {
		return errors.Wrap(err, "querying active class groups")
	}

	today := invoice.Today()
	list, err := api.invSvc.Query(reqCtx, &invoice.QueryFilter{
		FromMonth: int(today.Month()),
		FromYear:  today.Year(),
		ToMonth:   int(today.Month()),
		ToYear:    today.Year(),
	})
	if err != nil {
		return errors.Wrap(err, "querying current month invoices")
	}
	overdue, err := api.invSvc.Query(reqCtx, &invoice.QueryFilter{Status: invoice.StatusOverdue})
	if err != nil {
		return errors.Wrap(err, "querying overdue invoices")
	}

	return ctx.JSON(http.StatusOK, DashboardReport{
		ActiveStudents:    len(students),
		ActiveClassGroups: len(groups),
		Month:             int(today.Month()),
		Year:              today.Year(),
		Invoices:          list.Totals,
		RecentOverdue:     headInvoices(overdue.Items, dashboardSampleSize),
		Classes:           headClassGroups(groups, dashboardSampleSize),
	})
}
