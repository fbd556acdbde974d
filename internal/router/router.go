package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// Deps carries everything the route groups need.  RateLimit and Cache may
// be nil, in which case they are skipped.
type Deps struct {
	JWTSecret string
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Parking   *handler.ParkingHandler
	AdminLots *handler.AdminLotHandler
	Dashboard *handler.AdminDashboardHandler
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route group on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d.Auth, d.JWTSecret, d.RateLimit)
	RegisterUser(e, d.Parking, d.JWTSecret, d.RateLimit, d.Cache)
	RegisterAdmin(e, d.AdminLots, d.Dashboard, d.JWTSecret, d.RateLimit)
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// profile endpoint /v1/me, which any signed-in role may call.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", optional(rl)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleUser),
	}, optional(rl)...)...)
}

// optional drops nil middleware so callers can pass disabled features.
func optional(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
