package handler

import (
	"tastyclub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupReferral struct {
	container *do.Injector
}

type acceptPayload struct {
	RefCode string `json:"ref_code"`
}

func (gr *groupReferral) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload acceptPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	referral, err := serviceReferral.AcceptReferral(ctx, userID, payload.RefCode)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, referral, nil)
}

// Qualify is called when the referee completes their qualifying action
// (first redemption); re-running it is safe.
func (gr *groupReferral) Qualify(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	referral, err := serviceReferral.QualifyAndGrant(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, referral, nil)
}

func (gr *groupReferral) GetInviteCode(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	invite, err := serviceReferral.GetOrCreateInviteCode(ctx, userID)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, invite, nil)
}

type eventCodePayload struct {
	CampaignCode string `json:"campaign_code"`
}

func (gr *groupReferral) CreateEventCode(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload eventCodePayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	invite, err := serviceReferral.CreateEventInviteCode(ctx, userID, payload.CampaignCode)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, invite, nil)
}
