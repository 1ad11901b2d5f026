package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jpcaldeira/escolar/core"
	"github.com/jpcaldeira/escolar/core/classgroup"
)

type classGroupApi struct {
	svc classgroup.ServiceInterface
}

func registerClassGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc classgroup.ServiceInterface) {
	api := classGroupApi{svc: svc}

	cg := g.Group("/classes", jwt, staffMiddleware())
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)
	cg.DELETE("", api.destroyMultiple, adminMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/students/:studentID", api.addStudent, adminMiddleware())
	dg.DELETE("/students/:studentID", api.removeStudent, adminMiddleware())
}

func (api *classGroupApi) create(ctx echo.Context) error {
	var data classgroup.NewClassGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassGroup")
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *classGroupApi) query(ctx echo.Context) error {
	filter := new(classgroup.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classgroup.ClassGroup{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	groups, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying class groups")
	}
	if groups == nil {
		groups = []classgroup.ClassGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *classGroupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *classGroupApi) update(ctx echo.Context) error {
	grp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data classgroup.UpdateClassGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassGroup")
	}
	if err := data.Validate(grp, core.Validate); err != nil {
		return err
	}

	grp, err = api.svc.Update(ctx.Request().Context(), grp.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *classGroupApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classGroupApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting class groups")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classGroupApi) addStudent(ctx echo.Context) error {
	if err := api.svc.AddStudent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classGroupApi) removeStudent(ctx echo.Context) error {
	if err := api.svc.RemoveStudent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
