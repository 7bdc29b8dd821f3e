package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/week"
	metricsvc "github.com/trezcool/cronograma/services/metrics"
)

type weekApi struct {
	svc     schedule.Service
	metrics *metricsvc.Metrics
}

func registerWeekAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := weekApi{
		svc:     deps.ScheduleSvc,
		metrics: deps.Metrics,
	}

	wg := g.Group("/schedule", jwt, activeUserMiddleware(deps.UserSvc))
	wg.GET("/week", api.week)
}

type WeekRequest struct {
	Date week.Date `query:"date"`
}

// week returns the lane layout of the week holding `?date`, the current week by default.
func (api *weekApi) week(ctx echo.Context) error {
	var data WeekRequest
	if err := ctx.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
	}

	view, err := api.svc.Week(ctx.Request().Context(), ownerID(ctx), data.Date)
	if err != nil {
		return errors.Wrap(err, "building week")
	}
	if api.metrics != nil {
		api.metrics.ObserveWeek(view)
	}
	return ctx.JSON(http.StatusOK, view)
}
