package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the token's user ID (uint64) and role in the request context under
// CtxUserID and CtxRole.  The secret must match the one used when issuing
// tokens.  Wrap every protected route with it.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            // ParseAccessToken has already rejected non-numeric subjects.
            uid, _ := claims.UserID()
            c.Set(CtxUserID, uid)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}
