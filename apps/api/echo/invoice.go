package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/invoice"
)

type invoiceApi struct {
	svc invoice.ServiceInterface
}

func registerInvoiceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc invoice.ServiceInterface) {
	api := invoiceApi{svc: svc}

	ig := g.Group("/invoices", jwt, staffMiddleware())
	ig.POST("", api.create, adminMiddleware())
	ig.GET("", api.query)
	ig.DELETE("", api.destroyMultiple, adminMiddleware())
	ig.POST("/generate", api.generate, adminMiddleware())

	dg := ig.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/pay", api.markPaid)
	dg.POST("/status", api.setStatus)
	dg.GET("/receipt", api.receipt)
}

func (api *invoiceApi) create(ctx echo.Context) error {
	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	inv, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invoiceApi) generate(ctx echo.Context) error {
	var data invoice.GenerateInvoices
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateInvoices")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	rpt, err := api.svc.Generate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, invoice.InvoiceList{Items: []invoice.Invoice{}})
	}

	list, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	if list.Items == nil {
		list.Items = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	inv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) update(ctx echo.Context) error {
	var data invoice.UpdateInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInvoice")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	inv, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *invoiceApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting invoices")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *invoiceApi) markPaid(ctx echo.Context) error {
	inv, err := api.svc.MarkPaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (api *invoiceApi) setStatus(ctx echo.Context) error {
	var data setStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to setStatusRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	inv, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) receipt(ctx echo.Context) error {
	rcpt, err := api.svc.Receipt(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("payment_method"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rcpt)
}
