package handler

import (
	"tastyclub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupFlash struct {
	container *do.Injector
}

type claimPayload struct {
	IdempotencyKey string `json:"idempotency_key"`
}

func (gr *groupFlash) Claim(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload claimPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceFlashDrop, err := do.Invoke[*services.ServiceFlashDrop](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	coupon, err := serviceFlashDrop.Claim(ctx, userID, c.Param("campaign"), payload.IdempotencyKey)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, coupon, nil)
}

func (gr *groupFlash) Remaining(c echo.Context) error {
	ctx := c.Request().Context()

	serviceFlashDrop, err := do.Invoke[*services.ServiceFlashDrop](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	remaining, err := serviceFlashDrop.Remaining(ctx, c.Param("campaign"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"remaining": remaining,
	}, nil)
}
