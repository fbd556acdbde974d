package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterUser registers the booking endpoints under /v1.  All routes
// require a valid JWT and the user role.  Only the lot detail response is
// cached.
func RegisterUser(e *echo.Echo, h *handler.ParkingHandler, jwtSecret string, rl, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
	}, optional(rl)...)...)

	g.GET("/lots", h.ListLots)
	g.GET("/lots/:id", h.GetLot, optional(cache)...)
	g.POST("/lots/:id/book", h.Book)
	g.POST("/spots/:id/release", h.Release)
	g.GET("/reservations/active", h.Active)
	g.GET("/my-reservations", h.MyReservations)
	g.GET("/stats/me", h.MyStats)
}
