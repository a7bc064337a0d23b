package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/jukwaa/core/forum"
)

// forumApi handlers only bind payloads; forum.Service validates them after its access checks.
type forumApi struct {
	service *forum.Service
}

func registerForumAPI(g *echo.Group, auth *authenticator, svc *forum.Service) {
	api := forumApi{service: svc}
	optional := auth.optional()
	required := auth.required()

	cg := g.Group("/classes")
	cg.GET("", api.classList, optional...)
	cg.POST("", api.classCreate, required...)
	cg.GET("/:id", api.classRetrieve, optional...)
	cg.PUT("/:id", api.classUpdate, required...)
	cg.DELETE("/:id", api.classDestroy, required...)
	cg.GET("/:id/access", api.classAccess, optional...)
	cg.GET("/:id/subcategories", api.subCategoryList, optional...)
	cg.POST("/:id/subcategories", api.subCategoryCreate, required...)

	sg := g.Group("/subcategories")
	sg.GET("/:id", api.subCategoryRetrieve, optional...)
	sg.PUT("/:id", api.subCategoryUpdate, required...)
	sg.DELETE("/:id", api.subCategoryDestroy, required...)
	sg.GET("/:id/topics", api.topicList, optional...)
	sg.POST("/:id/topics", api.topicCreate, required...)
	sg.GET("/:id/tags", api.subCategoryTags, optional...)

	tg := g.Group("/topics")
	tg.GET("/:id", api.topicRetrieve, optional...)
	tg.PUT("/:id", api.topicUpdate, required...)
	tg.DELETE("/:id", api.topicDestroy, required...)
	tg.GET("/:id/replies", api.replyList, optional...)
	tg.POST("/:id/replies", api.replyCreate, required...)

	rg := g.Group("/replies", required...)
	rg.PUT("/:id", api.replyUpdate)
	rg.DELETE("/:id", api.replyDestroy)
	rg.POST("/:id/vote", api.replyVote)

	tagg := g.Group("/tags")
	tagg.GET("", api.tagList)
	tagg.POST("", api.tagCreate, required...)
	tagg.GET("/:id", api.tagRetrieve)
	tagg.PUT("/:id", api.tagUpdate, required...)
	tagg.DELETE("/:id", api.tagDestroy, required...)
	tagg.GET("/:id/topics", api.tagTopics, optional...)
}

// Classes

func (api *forumApi) classList(ctx echo.Context) error {
	classes, err := api.service.ListClasses(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *forumApi) classCreate(ctx echo.Context) error {
	data := new(forum.ClassPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	class, err := api.service.CreateClass(ctx.Request().Context(), getIdentity(ctx), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *forumApi) classRetrieve(ctx echo.Context) error {
	class, err := api.service.GetClass(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *forumApi) classUpdate(ctx echo.Context) error {
	data := new(forum.ClassPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	class, err := api.service.UpdateClass(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *forumApi) classDestroy(ctx echo.Context) error {
	sum, err := api.service.DeleteClass(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *forumApi) classAccess(ctx echo.Context) error {
	ok, err := api.service.EvaluateAccess(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"access": ok})
}

// Subcategories

func (api *forumApi) subCategoryList(ctx echo.Context) error {
	subs, err := api.service.ListSubCategories(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *forumApi) subCategoryCreate(ctx echo.Context) error {
	data := new(forum.SubCategoryPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	sub, err := api.service.CreateSubCategory(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *forumApi) subCategoryRetrieve(ctx echo.Context) error {
	sub, err := api.service.GetSubCategory(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *forumApi) subCategoryUpdate(ctx echo.Context) error {
	data := new(forum.SubCategoryPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	sub, err := api.service.UpdateSubCategory(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *forumApi) subCategoryDestroy(ctx echo.Context) error {
	sum, err := api.service.DeleteSubCategory(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *forumApi) subCategoryTags(ctx echo.Context) error {
	tags, err := api.service.TagsForSubCategory(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tags)
}

// Topics

func (api *forumApi) topicList(ctx echo.Context) error {
	topics, err := api.service.ListTopics(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *forumApi) topicCreate(ctx echo.Context) error {
	data := new(forum.TopicPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	topic, err := api.service.CreateTopic(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *forumApi) topicRetrieve(ctx echo.Context) error {
	detail, err := api.service.GetTopic(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *forumApi) topicUpdate(ctx echo.Context) error {
	data := new(forum.TopicPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	topic, err := api.service.UpdateTopic(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topic)
}

func (api *forumApi) topicDestroy(ctx echo.Context) error {
	sum, err := api.service.DeleteTopic(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

// Replies

func (api *forumApi) replyList(ctx echo.Context) error {
	replies, err := api.service.ListReplies(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, replies)
}

func (api *forumApi) replyCreate(ctx echo.Context) error {
	data := new(forum.ReplyPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	reply, err := api.service.CreateReply(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, reply)
}

func (api *forumApi) replyUpdate(ctx echo.Context) error {
	data := new(forum.ReplyPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	reply, err := api.service.UpdateReply(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reply)
}

func (api *forumApi) replyDestroy(ctx echo.Context) error {
	sum, err := api.service.DeleteReply(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *forumApi) replyVote(ctx echo.Context) error {
	res, err := api.service.ToggleVote(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// Tags

func (api *forumApi) tagList(ctx echo.Context) error {
	tags, err := api.service.ListTags(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *forumApi) tagCreate(ctx echo.Context) error {
	data := new(forum.TagPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	tag, err := api.service.CreateTag(ctx.Request().Context(), getIdentity(ctx), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tag)
}

func (api *forumApi) tagRetrieve(ctx echo.Context) error {
	tag, err := api.service.GetTag(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tag)
}

func (api *forumApi) tagUpdate(ctx echo.Context) error {
	data := new(forum.TagPayload)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	tag, err := api.service.UpdateTag(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tag)
}

func (api *forumApi) tagDestroy(ctx echo.Context) error {
	sum, err := api.service.DeleteTag(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *forumApi) tagTopics(ctx echo.Context) error {
	topics, err := api.service.TopicsByTag(ctx.Request().Context(), getIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, topics)
}
