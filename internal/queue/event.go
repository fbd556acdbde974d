// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// ParkingQueueName is the durable queue carrying ParkingEvent messages.
const ParkingQueueName = "parking.events"

// Event types.
const (
	EventSpotBooked   = "spot.booked"
	EventSpotReleased = "spot.released"
)

// ParkingEvent is published whenever a spot is booked or released.  It
// carries enough detail for downstream consumers to log or bill without
// querying the primary database.  EndedAt and Cost are only meaningful for
// spot.released.
type ParkingEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	LotID         uint64    `json:"lot_id"`
	LotName       string    `json:"lot_name"`
	SpotID        uint64    `json:"spot_id"`
	SpotNumber    int       `json:"spot_number"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       null.Time `json:"ended_at"`
	Cost          float64   `json:"cost"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewParkingEvent builds an event of the given type from a reservation.
func NewParkingEvent(typ string, r *model.ReservationDetail) ParkingEvent {
	return ParkingEvent{
		EventID:       uuid.NewString(),
		Type:          typ,
		ReservationID: r.ID,
		UserID:        r.UserID,
		Username:      r.Username,
		LotID:         r.LotID,
		LotName:       r.LotName,
		SpotID:        r.SpotID,
		SpotNumber:    r.SpotNumber,
		StartedAt:     r.StartTime,
		EndedAt:       r.EndTime,
		Cost:          r.Cost,
		OccurredAt:    time.Now().UTC(),
	}
}
