package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/jukwaa/core/blog"
)

type blogApi struct {
	service *blog.Service
}

func registerBlogAPI(g *echo.Group, auth *authenticator, svc *blog.Service) {
	api := blogApi{service: svc}
	required := auth.required()

	pg := g.Group("/posts")
	pg.GET("", api.postList)
	pg.POST("", api.postCreate, required...)
	pg.GET("/:id", api.postRetrieve)
	pg.PUT("/:id", api.postUpdate, required...)
	pg.DELETE("/:id", api.postDestroy, required...)
}

func (api *blogApi) postList(ctx echo.Context) error {
	posts, err := api.service.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *blogApi) postCreate(ctx echo.Context) error {
	data := new(blog.PostPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	post, err := api.service.Create(ctx.Request().Context(), getIdentity(ctx), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *blogApi) postRetrieve(ctx echo.Context) error {
	post, err := api.service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *blogApi) postUpdate(ctx echo.Context) error {
	data := new(blog.PostPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	post, err := api.service.Update(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *blogApi) postDestroy(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
