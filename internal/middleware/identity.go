package middleware

// identity.go holds the context keys set by JWTAuth and helpers that read
// them back for the rate limiter and the handlers.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// UserID returns the authenticated user's ID and whether one is present.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id > 0
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c echo.Context) string {
    r, _ := c.Get(CtxRole).(string)
    return r
}

// currentUserID renders the user for cache and rate-limit keys. Anonymous
// requests share the "anon" identity.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
