package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/schedule"
)

var errEvtNotFoundInCtx = errors.New("event object not found in echo.Context")

type eventApi struct {
	svc      schedule.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := eventApi{
		svc:      deps.ScheduleSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/events", jwt, activeUserMiddleware(deps.UserSvc))
	eg.GET("", api.query)
	eg.GET("/types", api.types)
	eg.POST("", api.create)

	dg := eg.Group("/:id", ownedEventMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// query returns the events overlapping `?from` (inclusive) to `?to` (exclusive).
func (api *eventApi) query(ctx echo.Context) error {
	var filter schedule.EventFilter
	if err := ctx.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to must be dates formatted as YYYY-MM-DD")
	}

	events, err := api.svc.ListEvents(ctx.Request().Context(), ownerID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	if events == nil {
		events = []schedule.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) types(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, schedule.EventTypes)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data schedule.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	owner := ownerID(ctx)
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc, owner); err != nil {
		return err
	}

	ev, err := api.svc.CreateEvent(ctx.Request().Context(), owner, data)
	if err != nil {
		if cause := errors.Cause(err); cause == schedule.ErrSubjectNotFound {
			return core.NewValidationError(cause, core.FieldError{Field: "subject_id", Error: cause.Error()})
		}
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	ev, ok := ctx.Get("object").(schedule.Event)
	if !ok {
		return errors.Wrap(errEvtNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, ev)
}

// update replaces the editable fields of the event; its subject cannot change.
func (api *eventApi) update(ctx echo.Context) error {
	ev, ok := ctx.Get("object").(schedule.Event)
	if !ok {
		return errors.Wrap(errEvtNotFoundInCtx, "retrieving object from context")
	}

	var data schedule.EventDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventDraft")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.UpdateEvent(ctx.Request().Context(), ev, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	ev, ok := ctx.Get("object").(schedule.Event)
	if !ok {
		return errors.Wrap(errEvtNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteEvent(ctx.Request().Context(), ev.OwnerID, ev.ID); err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownedEventMiddleware loads the `:id` event of the context user into the context "object".
func ownedEventMiddleware(svc schedule.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ev, err := svc.GetEvent(ctx.Request().Context(), ownerID(ctx), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == schedule.ErrEventNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding event by ID")
			}
			ctx.Set("object", ev)
			return next(ctx)
		}
	}
}
