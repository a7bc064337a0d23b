package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/jukwaa/core"
)

const orderingParam = "ordering"

// Ordering binds the `ordering` query param, e.g. `?ordering=-created_at,username`.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val, allowed...)
	}
}

type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request body into data then cleans and validates it.
func bindAndValidate(ctx echo.Context, data validatable, validate *validator.Validate) error {
	if err := ctx.Bind(data); err != nil {
		return err
	}
	return data.Validate(validate)
}
