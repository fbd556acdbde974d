package handler // handler defines http handlers

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/queue"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// EventPublisher delivers parking events to the broker.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ParkingEvent) error
}

// CacheInvalidator drops cached GET responses for the given paths.
type CacheInvalidator interface {
    Invalidate(ctx context.Context, paths ...string)
}

// getUserID extracts the user_id set by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        if t > 0 {
            return t, nil
        }
    case int64:
        if t > 0 {
            return uint64(t), nil
        }
    case float64:
        if t > 0 {
            return uint64(t), nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// repoError translates repository sentinels into HTTP responses. Unknown
// errors are logged and reported as 500 without details.
func repoError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrLotNotFound),
        errors.Is(err, repository.ErrSpotNotFound),
        errors.Is(err, repository.ErrUserNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrInvalidLot):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
    }
    slog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
