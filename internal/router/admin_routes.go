package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterAdmin registers administrator endpoints under /v1/admin.
// All routes require a valid JWT and the admin role.
func RegisterAdmin(e *echo.Echo, lots *handler.AdminLotHandler, dash *handler.AdminDashboardHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}, optional(rl)...)...)

	// ---- Lots ----
	g.POST("/lots", lots.CreateLot)
	g.GET("/lots", lots.ListLots)
	g.PUT("/lots/:id", lots.UpdateLot)
	g.PATCH("/lots/:id", lots.UpdateLot)
	g.DELETE("/lots/:id", lots.DeleteLot)
	g.GET("/lots/:id/spots", lots.ListSpots)

	// ---- Dashboard ----
	g.GET("/users", dash.ListUsers)
	g.GET("/reservations", dash.ListReservations)
	g.GET("/stats", dash.Stats)
	g.GET("/stats/occupancy", dash.Occupancy)
}
