package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"` // username or email
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type userApi struct {
	auth     *authenticator
	service  *user.Service
	forumSvc *forum.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, auth *authenticator, svc *user.Service, forumSvc *forum.Service, validate *validator.Validate) {
	api := userApi{auth: auth, service: svc, forumSvc: forumSvc, validate: validate}
	required := auth.required()
	admin := append(auth.required(), adminMiddleware(forumSvc))

	ug := g.Group("/users")
	ug.POST("/register", api.userRegister)
	ug.POST("/login", api.userLogin)
	ug.POST("/token-refresh", api.userRefreshToken, required...)
	ug.GET("", api.userQuery, admin...)

	mg := ug.Group("/me", required...)
	mg.GET("", api.userMe)
	mg.PUT("", api.userUpdateProfile)
	mg.PUT("/password", api.userChangePassword)
	mg.DELETE("", api.userDeleteAccount)

	gg := g.Group("/groups")
	gg.GET("", api.groupList)
	gg.POST("", api.groupCreate, admin...)
	gg.POST("/:id/members/:user_id", api.groupAddMember, admin...)
	gg.DELETE("/:id/members/:user_id", api.groupRemoveMember, admin...)
}

// adminMiddleware lets superusers and moderators through. It expects the identity middleware to run first.
func adminMiddleware(forumSvc *forum.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := authenticated(ctx)
			if err != nil {
				return err
			}
			if !forumSvc.IsAdministrator(identity) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func (api *userApi) userRegister(ctx echo.Context) error {
	data := new(user.NewUser)
	if err := bindAndValidate(ctx, data, api.validate); err != nil {
		return err
	}
	usr, err := api.service.Register(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) userLogin(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := bindAndValidate(ctx, data, api.validate); err != nil {
		return err
	}
	usr, err := api.service.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := api.auth.GenerateToken(api.auth.userClaims(usr))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: &usr})
}

func (api *userApi) userRefreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) userQuery(ctx echo.Context) error {
	filter := &user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Group:  ctx.QueryParam("group"),
	}
	if val := ctx.QueryParam("is_active"); val != "" {
		isActive, err := strconv.ParseBool(val)
		if err != nil {
			return core.NewFieldValidationError("is_active", err)
		}
		filter.IsActive = &isActive
	}
	filter.Clean()

	var ord Ordering
	ord.Bind(ctx, user.OrderingFields...)

	users, err := api.service.Query(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) userMe(ctx echo.Context) error {
	usr, err := api.service.GetByID(ctx.Request().Context(), getIdentity(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) userUpdateProfile(ctx echo.Context) error {
	data := new(user.UpdateProfile)
	if err := bindAndValidate(ctx, data, api.validate); err != nil {
		return err
	}
	usr, err := api.service.UpdateProfile(ctx.Request().Context(), getIdentity(ctx).ID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) userChangePassword(ctx echo.Context) error {
	identity := getIdentity(ctx)
	data := new(user.ChangePassword)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Username, data.Email = identity.Username, identity.Email
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, err := api.service.GetByID(rctx, identity.ID)
	if err != nil {
		return err
	}
	if _, err = api.service.SetPassword(rctx, usr, data.Password); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) userDeleteAccount(ctx echo.Context) error {
	data := new(user.DeleteAccount)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.service.DeleteAccount(ctx.Request().Context(), getIdentity(ctx).ID, *data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) groupList(ctx echo.Context) error {
	groups, err := api.service.ListGroups(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *userApi) groupCreate(ctx echo.Context) error {
	data := new(user.NewGroup)
	if err := bindAndValidate(ctx, data, api.validate); err != nil {
		return err
	}
	grp, err := api.service.CreateGroup(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *userApi) groupAddMember(ctx echo.Context) error {
	if err := api.service.AddToGroup(ctx.Request().Context(), ctx.Param("user_id"), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) groupRemoveMember(ctx echo.Context) error {
	if err := api.service.RemoveFromGroup(ctx.Request().Context(), ctx.Param("user_id"), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
