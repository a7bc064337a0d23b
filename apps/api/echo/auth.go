package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/user"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
}

type authenticator struct {
	conf       *core.Config
	userSvc    *user.Service
	membership core.GroupMembership
	jwtConf    middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, userSvc *user.Service, membership core.GroupMembership) *authenticator {
	return &authenticator{
		conf:       conf,
		userSvc:    userSvc,
		membership: membership,
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// userClaims returns the claims of usr. origIat is kept across refreshes.
func (a *authenticator) userClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// required rejects requests without a valid token.
func (a *authenticator) required() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTWithConfig(a.jwtConf), a.identityMiddleware}
}

// optional lets anonymous requests through, but still rejects invalid tokens.
func (a *authenticator) optional() []echo.MiddlewareFunc {
	conf := a.jwtConf
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return []echo.MiddlewareFunc{middleware.JWTWithConfig(conf), a.identityMiddleware}
}

// identityMiddleware resolves the caller identity from the token claims, if any.
// Groups come from the membership capability, not from the token.
func (a *authenticator) identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		identity := core.Anonymous
		if claims, err := getContextClaims(ctx); err == nil {
			reqCtx := ctx.Request().Context()
			identity, err = a.userSvc.Identity(reqCtx, claims.Subject)
			if err != nil {
				switch errors.Cause(err) {
				case user.ErrNotFound:
					return errUnauthorized
				case user.ErrAccountDeactivated:
					return errAccountDeactivated
				}
				return errors.Wrap(err, "resolving identity")
			}
			if identity.Groups, err = a.membership.UserGroups(reqCtx, identity.ID); err != nil {
				return errors.Wrap(err, "resolving groups")
			}
		}
		ctx.Set(contextIdentityKey, identity)
		return next(ctx)
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getIdentity returns the caller identity; core.Anonymous when unauthenticated.
func getIdentity(ctx echo.Context) core.Identity {
	if identity, ok := ctx.Get(contextIdentityKey).(core.Identity); ok {
		return identity
	}
	return core.Anonymous
}

// authenticated returns the caller identity, or errUnauthorized for anonymous callers.
func authenticated(ctx echo.Context) (core.Identity, error) {
	identity := getIdentity(ctx)
	if identity.IsAnonymous() {
		return core.Anonymous, errUnauthorized
	}
	return identity, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := a.userSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	token, err := a.GenerateToken(a.userClaims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
