package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
)

type ctxKey string

var ctxKeyAuthUser ctxKey = "AUTH_USER"

// Authn lifts the gateway-verified user header into the request context. It
// does NOT terminate unauthenticated requests; handlers that need a user
// resolve it and abort themselves.
func Authn() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-User-ID")
			if header == "" {
				return next(c)
			}

			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ctxKeyAuthUser, userID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func ResolveValidUser(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxKeyAuthUser).(int64)
	if !ok {
		return 0, errorx.Wrap(errors.New("missing session"), errorx.Authn)
	}
	return userID, nil
}
