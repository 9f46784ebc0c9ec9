package handler

import (
	"strconv"

	"tastyclub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupStamp struct {
	container *do.Injector
}

type addStampPayload struct {
	RestaurantID   int64  `json:"restaurant_id"`
	Pin            string `json:"pin"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (gr *groupStamp) Add(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload addStampPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceStamp, err := do.Invoke[*services.ServiceStamp](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	status, err := serviceStamp.AddStamp(ctx, userID, payload.RestaurantID, payload.Pin, payload.IdempotencyKey)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, status, nil)
}

func (gr *groupStamp) Get(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	restaurantID, err := strconv.ParseInt(c.Param("restaurant"), 10, 64)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceStamp, err := do.Invoke[*services.ServiceStamp](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	status, err := serviceStamp.GetStampStatus(ctx, userID, restaurantID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, status, nil)
}

func (gr *groupStamp) GetAll(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceStamp, err := do.Invoke[*services.ServiceStamp](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	statuses, err := serviceStamp.GetAllStampStatuses(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"stamps": statuses,
	}, nil)
}
