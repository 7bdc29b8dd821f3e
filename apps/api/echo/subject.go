package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core/schedule"
)

var errSbjNotFoundInCtx = errors.New("subject object not found in echo.Context")

type subjectApi struct {
	svc      schedule.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := subjectApi{
		svc:      deps.ScheduleSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/subjects", jwt, activeUserMiddleware(deps.UserSvc))
	sg.GET("", api.list)
	sg.POST("", api.create)
	sg.POST("/seed", api.seed)

	dg := sg.Group("/:id", ownedSubjectMiddleware(api.svc))
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *subjectApi) list(ctx echo.Context) error {
	subjects, err := api.svc.ListSubjects(ctx.Request().Context(), ownerID(ctx))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []schedule.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data schedule.SubjectDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectDraft")
	}
	owner := ownerID(ctx)
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc, owner); err != nil {
		return err
	}

	sbj, err := api.svc.CreateSubject(ctx.Request().Context(), owner, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sbj)
}

func (api *subjectApi) seed(ctx echo.Context) error {
	seeded, err := api.svc.SeedSubjects(ctx.Request().Context(), ownerID(ctx))
	if err != nil {
		return errors.Wrap(err, "seeding subjects")
	}
	return ctx.JSON(http.StatusOK, SeedResponse{Seeded: seeded})
}

func (api *subjectApi) update(ctx echo.Context) error {
	sbj, ok := ctx.Get("object").(schedule.Subject)
	if !ok {
		return errors.Wrap(errSbjNotFoundInCtx, "retrieving object from context")
	}

	var data schedule.SubjectDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectDraft")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc, sbj.OwnerID, sbj); err != nil {
		return err
	}

	sbj, err := api.svc.UpdateSubject(ctx.Request().Context(), sbj, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sbj)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	sbj, ok := ctx.Get("object").(schedule.Subject)
	if !ok {
		return errors.Wrap(errSbjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteSubject(ctx.Request().Context(), sbj.OwnerID, sbj.ID); err != nil {
		if errors.Cause(err) == schedule.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownedSubjectMiddleware loads the `:id` subject of the context user into the context "object".
func ownedSubjectMiddleware(svc schedule.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sbj, err := svc.GetSubject(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == schedule.ErrSubjectNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding subject by ID")
			}
			ctx.Set("object", sbj)
			return next(ctx)
		}
	}
}

type SeedResponse struct {
	Seeded bool `json:"seeded"`
}
