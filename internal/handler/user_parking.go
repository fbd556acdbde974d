package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/queue"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// ParkingHandler serves the booking flow for users with the user role.
type ParkingHandler struct {
    Lots         *repository.LotRepo
    Spots        *repository.SpotRepo
    Reservations *repository.ReservationRepo
    Events       EventPublisher
}

func NewParkingHandler(l *repository.LotRepo, s *repository.SpotRepo, r *repository.ReservationRepo, ev EventPublisher) *ParkingHandler {
    if l == nil || s == nil || r == nil || ev == nil {
        panic("nil dependency passed to NewParkingHandler")
    }
    return &ParkingHandler{Lots: l, Spots: s, Reservations: r, Events: ev}
}

// publish sends the event after the booking or release has committed.
// Failures are logged by the publisher and do not affect the response.
func (h *ParkingHandler) publish(ctx context.Context, typ string, r *model.ReservationDetail) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
    defer cancel()
    if err := h.Events.Publish(ctx, queue.NewParkingEvent(typ, r)); err != nil {
        slog.Warn("parking event not published", "type", typ, "reservation_id", r.ID, "err", err)
    }
}

// ListLots handles GET /v1/lots.
func (h *ParkingHandler) ListLots(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    lots, err := h.Lots.List(ctx)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, lots)
}

// GetLot handles GET /v1/lots/:id.  The response is lot metadata only,
// which keeps it cacheable.
func (h *ParkingHandler) GetLot(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    lot, err := h.Lots.Get(ctx, id)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, lot)
}

// Book handles POST /v1/lots/:id/book: the lowest numbered available spot
// of the lot is assigned to the caller.
func (h *ParkingHandler) Book(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    lotID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    r, err := h.Spots.BookFirstAvailable(ctx, lotID, uid)
    if err != nil {
        return repoError(c, err)
    }
    h.publish(ctx, queue.EventSpotBooked, r)
    return c.JSON(http.StatusCreated, r)
}

// Release handles POST /v1/spots/:id/release and returns the completed
// reservation with its cost.
func (h *ParkingHandler) Release(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    spotID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    r, err := h.Reservations.Release(ctx, spotID, uid)
    if err != nil {
        return repoError(c, err)
    }
    h.publish(ctx, queue.EventSpotReleased, r)
    return c.JSON(http.StatusOK, r)
}

// Active handles GET /v1/reservations/active.
func (h *ParkingHandler) Active(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    r, err := h.Reservations.GetActive(ctx, uid)
    if errors.Is(err, repository.ErrNoActiveReservation) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    }
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, r)
}

// MyReservations handles GET /v1/my-reservations.
func (h *ParkingHandler) MyReservations(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    list, err := h.Reservations.ListByUser(ctx, uid)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, list)
}

// MyStats handles GET /v1/stats/me.
func (h *ParkingHandler) MyStats(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    s, err := h.Reservations.UserStats(ctx, uid)
    if err != nil {
        return repoError(c, err)
    }
    return c.JSON(http.StatusOK, s)
}
