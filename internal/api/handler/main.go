package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())
	r.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🍜")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-User-ID"},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.Use(Authn())
		routesAPIv1.GET("", Hello)

		co := groupCoupon{cfg.Container}
		routesAPIv1Coupons := routesAPIv1.Group("/coupons")
		{
			routesAPIv1Coupons.GET("", co.List)
			routesAPIv1Coupons.POST("/signup", co.GrantSignup)
			routesAPIv1Coupons.POST("/ambassador", co.GrantAmbassador)
			routesAPIv1Coupons.GET("/:code", co.Check)
			routesAPIv1Coupons.POST("/:code/redeem", co.Redeem)
		}

		re := groupReferral{cfg.Container}
		routesAPIv1Referrals := routesAPIv1.Group("/referrals")
		{
			routesAPIv1Referrals.POST("/accept", re.Accept)
			routesAPIv1Referrals.POST("/qualify", re.Qualify)
			routesAPIv1Referrals.GET("/invite-code", re.GetInviteCode)
			routesAPIv1Referrals.POST("/event-code", re.CreateEventCode)
		}

		st := groupStamp{cfg.Container}
		routesAPIv1Stamps := routesAPIv1.Group("/stamps")
		{
			routesAPIv1Stamps.GET("", st.GetAll)
			routesAPIv1Stamps.POST("", st.Add)
			routesAPIv1Stamps.GET("/:restaurant", st.Get)
		}

		fl := groupFlash{cfg.Container}
		routesAPIv1Flash := routesAPIv1.Group("/flash")
		{
			routesAPIv1Flash.GET("/:campaign", fl.Remaining)
			routesAPIv1Flash.POST("/:campaign/claim", fl.Claim)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}
