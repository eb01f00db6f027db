package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes wires the executor API onto e.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()
	e.Use(noStore)

	e.GET("/health", h.Health, jsonContentType)
	e.POST("/simulate", h.Simulate, jsonContentType)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Trade endpoints: optional API key, rate limited
	trade := []echo.MiddlewareFunc{jsonContentType}
	if cfg.APIKey != "" {
		trade = append(trade, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 2
	}
	trade = append(trade, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     int(rps*2) + 1,
		ExpiresIn: 2 * time.Minute,
	})))
	e.POST("/quote", h.Quote, trade...)
	e.POST("/swap", h.Swap, trade...)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

func jsonContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return next(c)
	}
}
