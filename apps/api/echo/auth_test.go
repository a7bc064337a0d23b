package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jukwaa/core"
)

type membershipFunc func(ctx context.Context, userID string) ([]core.Group, error)

func (f membershipFunc) UserGroups(ctx context.Context, userID string) ([]core.Group, error) {
	return f(ctx, userID)
}

// resolve runs the required() chain on a request carrying token and returns the identity seen by the handler.
func resolve(auth *authenticator, token string) (core.Identity, error) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	ctx := echo.New().NewContext(req, httptest.NewRecorder())

	var identity core.Identity
	h := func(ctx echo.Context) error {
		identity = getIdentity(ctx)
		return nil
	}
	mws := auth.required()
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return identity, h(ctx)
}

func TestIdentityMiddleware_membership(t *testing.T) {
	app := setup(t)
	alumni := core.Group{ID: "a4b7e0c8-2f43-4d53-9a55-0d2c2c6f1d10", Name: "Alumni"}

	var asked []string
	auth := newAuthenticator(app.auth.conf, app.auth.userSvc, membershipFunc(func(_ context.Context, userID string) ([]core.Group, error) {
		asked = append(asked, userID)
		if userID == app.alice.ID {
			return []core.Group{alumni}, nil
		}
		return nil, errors.New("membership down")
	}))

	identity, err := resolve(auth, app.getToken(t, app.alice))
	require.NoError(t, err)
	assert.Equal(t, app.alice.ID, identity.ID)
	assert.Equal(t, []core.Group{alumni}, identity.Groups)
	assert.Equal(t, []string{app.alice.ID}, asked)

	// a membership failure fails the request
	identity, err = resolve(auth, app.getToken(t, app.admin))
	assert.Error(t, err)
	assert.True(t, identity.IsAnonymous())

	_, err = resolve(auth, "")
	assert.Error(t, err)
}
