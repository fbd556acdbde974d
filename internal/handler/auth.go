package handler

import (
    "context"
    "errors"
    "net/http"
    "net/mail"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/config"
    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository"
    "github.com/iliyamo/parking-reservation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Username string `json:"username"`
    Email    string `json:"email"`
    Password string `json:"password"`
}
type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       uint64 `json:"id"`
    Username string `json:"username"`
    Email    string `json:"email"`
    Role     string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func toUserPart(u *model.User) userPart {
    return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    toUserPart(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Register creates a parking user and returns tokens immediately.
// Administrators are never created through this endpoint.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Username == "" || req.Email == "" || req.Password == "" {
        return badRequest(c, "username, email and password required")
    }
    if _, err := mail.ParseAddress(req.Email); err != nil {
        return badRequest(c, "invalid email")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, utils.ErrWeakPassword) {
            return badRequest(c, err.Error())
        }
        return repoError(c, err)
    }
    resp, err := h.issue(ctx, &model.User{ID: uid, Username: req.Username, Email: req.Email, Role: model.RoleUser})
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusCreated, resp)
}

// Login verifies username and password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return badRequest(c, "username/password required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByUsername(ctx, req.Username)
    if errors.Is(err, repository.ErrUserNotFound) {
        utils.BurnPasswordCheck(req.Password)
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        return repoError(c, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh spends a refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return badRequest(c, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    userID, err := h.Tokens.ConsumeRefresh(ctx, hash)
    if errors.Is(err, repository.ErrInvalidRefresh) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err != nil {
        return repoError(c, err)
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return repoError(c, err)
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body.  Without a body token but
// with a valid bearer token it revokes every session of that user.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if refreshToken != "" {
        _, err := h.Tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(refreshToken))
        if errors.Is(err, repository.ErrInvalidRefresh) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err != nil {
            return repoError(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
        }
        uid, _ := claims.UserID()
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return repoError(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }
    return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}
