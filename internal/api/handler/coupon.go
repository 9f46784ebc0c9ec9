package handler

import (
	"tastyclub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupCoupon struct {
	container *do.Injector
}

func (gr *groupCoupon) List(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceIssuance, err := do.Invoke[*services.ServiceIssuance](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	coupons, err := serviceIssuance.ListUserCoupons(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"coupons": coupons,
	}, nil)
}

// GrantSignup is called by the user-creation workflow right after the account
// exists; calling it again is harmless.
func (gr *groupCoupon) GrantSignup(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceIssuance, err := do.Invoke[*services.ServiceIssuance](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	coupon, err := serviceIssuance.IssueSignupCoupon(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, coupon, nil)
}

type grantAmbassadorPayload struct {
	RestaurantIDs []int64 `json:"restaurant_ids"`
}

func (gr *groupCoupon) GrantAmbassador(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload grantAmbassadorPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceIssuance, err := do.Invoke[*services.ServiceIssuance](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	result, err := serviceIssuance.IssueAmbassadorCoupons(ctx, userID, payload.RestaurantIDs)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, result, nil)
}

// Check returns the coupon's current state, applying lazy expiry first so the
// caller never sees a stale ISSUED past its deadline.
func (gr *groupCoupon) Check(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceRedemption, err := do.Invoke[*services.ServiceRedemption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	coupon, err := serviceRedemption.CheckAndExpire(ctx, userID, c.Param("code"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, coupon, nil)
}

type redeemPayload struct {
	RestaurantID int64  `json:"restaurant_id"`
	Pin          string `json:"pin"`
}

func (gr *groupCoupon) Redeem(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload redeemPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceRedemption, err := do.Invoke[*services.ServiceRedemption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	coupon, err := serviceRedemption.Redeem(ctx, userID, c.Param("code"), payload.RestaurantID, payload.Pin)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, coupon, nil)
}
