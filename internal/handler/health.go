package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/parking-reservation/internal/database"
)

// HealthHandler reports whether the service and its backing stores respond.
type HealthHandler struct {
    DB    *database.DB
    Redis *redis.Client // optional
}

func NewHealthHandler(db *database.DB, rdb *redis.Client) *HealthHandler {
    return &HealthHandler{DB: db, Redis: rdb}
}

// Health returns 200 with per-dependency status when the database answers a
// ping, 503 otherwise.  Redis is informational because the service runs
// without it.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    status := http.StatusOK
    body := echo.Map{"status": "ok", "database": "ok"}
    if err := h.DB.PingContext(ctx); err != nil {
        status = http.StatusServiceUnavailable
        body["status"] = "degraded"
        body["database"] = "down"
    }
    switch {
    case h.Redis == nil:
        body["redis"] = "disabled"
    case h.Redis.Ping(ctx).Err() != nil:
        body["redis"] = "down"
    default:
        body["redis"] = "ok"
    }
    return c.JSON(status, body)
}
