package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/repository"
)

// AdminDashboardHandler serves the read-only administrator views.
type AdminDashboardHandler struct {
    Users        *repository.UserRepo
    Reservations *repository.ReservationRepo
    StatsRepo    *repository.StatsRepo
}

func NewAdminDashboardHandler(u *repository.UserRepo, r *repository.ReservationRepo, s *repository.StatsRepo) *AdminDashboardHandler {
    return &AdminDashboardHandler{Users: u, Reservations: r, StatsRepo: s}
}

// ListUsers handles GET /v1/admin/users.  Password hashes are not
// serialized.
func (h *AdminDashboardHandler) ListUsers(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    users, err := h.Users.List(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, users)
}

// ListReservations handles GET /v1/admin/reservations.
func (h *AdminDashboardHandler) ListReservations(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    list, err := h.Reservations.ListAll(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, list)
}

// Stats handles GET /v1/admin/stats.
func (h *AdminDashboardHandler) Stats(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    s, err := h.StatsRepo.Dashboard(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, s)
}

// Occupancy handles GET /v1/admin/stats/occupancy.
func (h *AdminDashboardHandler) Occupancy(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    occ, err := h.StatsRepo.Occupancy(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, occ)
}
