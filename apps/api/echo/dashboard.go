package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/dashboard"
	"github.com/trezcool/jukwaa/core/forum"
)

type dashboardApi struct {
	service  *dashboard.Service
	forumSvc *forum.Service
}

func registerDashboardAPI(g *echo.Group, auth *authenticator, svc *dashboard.Service, forumSvc *forum.Service) {
	api := dashboardApi{service: svc, forumSvc: forumSvc}

	dg := g.Group("/dashboard", auth.required()...)
	dg.GET("", api.overview)
	dg.GET("/votes/drift", api.voteDrift)
}

func (api *dashboardApi) overview(ctx echo.Context) error {
	ov, err := api.service.Overview(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ov)
}

// voteDrift lists the replies whose vote counter drifted; `?repair=true` resets them too.
func (api *dashboardApi) voteDrift(ctx echo.Context) error {
	var repair bool
	if val := ctx.QueryParam("repair"); val != "" {
		var err error
		if repair, err = strconv.ParseBool(val); err != nil {
			return core.NewFieldValidationError("repair", err)
		}
	}
	drifts, err := api.forumSvc.AuditVotes(ctx.Request().Context(), getIdentity(ctx), repair)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, drifts)
}
