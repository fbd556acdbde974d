package handler

import (
    "context"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// AdminLotHandler serves lot management for administrators.
type AdminLotHandler struct {
    Lots  *repository.LotRepo
    Cache CacheInvalidator
}

func NewAdminLotHandler(lots *repository.LotRepo, cache CacheInvalidator) *AdminLotHandler {
    if lots == nil {
        panic("nil repository passed to NewAdminLotHandler")
    }
    return &AdminLotHandler{Lots: lots, Cache: cache}
}

// lotReq uses pointers so PATCH can tell omitted fields from zero values.
type lotReq struct {
    Name       *string  `json:"name"`
    Address    *string  `json:"address"`
    PostalCode *string  `json:"postal_code"`
    HourlyRate *float64 `json:"hourly_rate"`
    MaxSpots   *int     `json:"max_spots"`
}

// complete reports the first missing field of a full lot body.
func (r lotReq) complete() error {
    switch {
    case r.Name == nil:
        return fmt.Errorf("name required")
    case r.Address == nil:
        return fmt.Errorf("address required")
    case r.PostalCode == nil:
        return fmt.Errorf("postal_code required")
    case r.HourlyRate == nil:
        return fmt.Errorf("hourly_rate required")
    case r.MaxSpots == nil:
        return fmt.Errorf("max_spots required")
    }
    return nil
}

// applyTo copies the present fields onto l.
func (r lotReq) applyTo(l *model.ParkingLot) {
    if r.Name != nil {
        l.Name = strings.TrimSpace(*r.Name)
    }
    if r.Address != nil {
        l.Address = strings.TrimSpace(*r.Address)
    }
    if r.PostalCode != nil {
        l.PostalCode = strings.TrimSpace(*r.PostalCode)
    }
    if r.HourlyRate != nil {
        l.HourlyRate = *r.HourlyRate
    }
    if r.MaxSpots != nil {
        l.MaxSpots = *r.MaxSpots
    }
}

func (h *AdminLotHandler) invalidate(ctx context.Context, id uint64) {
    if h.Cache != nil {
        h.Cache.Invalidate(ctx, fmt.Sprintf("/v1/lots/%d", id))
    }
}

// CreateLot handles POST /v1/admin/lots.
func (h *AdminLotHandler) CreateLot(c echo.Context) error {
    var req lotReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if err := req.complete(); err != nil {
        return badRequest(c, err.Error())
    }
    var lot model.ParkingLot
    req.applyTo(&lot)
    if lot.Name == "" {
        return badRequest(c, "name required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Lots.Create(ctx, &lot); err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusCreated, lot)
}

// UpdateLot handles PUT and PATCH /v1/admin/lots/:id.  PUT needs every
// field; PATCH merges the given fields onto the stored lot.
func (h *AdminLotHandler) UpdateLot(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req lotReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if c.Request().Method == http.MethodPut {
        if err := req.complete(); err != nil {
            return badRequest(c, err.Error())
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    lot, err := h.Lots.Get(ctx, id)
    if err != nil {
        return repoError(c, err)
    }
    req.applyTo(lot)
    if lot.Name == "" {
        return badRequest(c, "name required")
    }
    if err := h.Lots.Update(ctx, lot); err != nil {
        return repoError(c, err)
    }
    h.invalidate(ctx, id)
    return c.JSON(http.StatusOK, lot)
}

// DeleteLot handles DELETE /v1/admin/lots/:id.
func (h *AdminLotHandler) DeleteLot(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Lots.Delete(ctx, id); err != nil {
        return repoError(c, err)
    }
    h.invalidate(ctx, id)
    return c.NoContent(http.StatusNoContent)
}

// ListLots handles GET /v1/admin/lots.
func (h *AdminLotHandler) ListLots(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    lots, err := h.Lots.List(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, lots)
}

// ListSpots handles GET /v1/admin/lots/:id/spots.
func (h *AdminLotHandler) ListSpots(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    spots, err := h.Lots.ListSpots(ctx, id)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, spots)
}
