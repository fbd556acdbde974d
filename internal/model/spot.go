package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// Spot status codes stored in parking_spots.status.
const (
    SpotAvailable = "A"
    SpotOccupied  = "O"
)

// ParkingSpot describes one numbered space inside a lot.  Spot
// numbers are unique within a lot and start at 1.
//
// Fields:
//  ID         – primary key identifier.
//  LotID      – lot to which the spot belongs.
//  SpotNumber – 1-based position inside the lot.
//  Status     – A (available) or O (occupied).
//  CreatedAt  – creation timestamp.
type ParkingSpot struct {
    ID         uint64    `json:"id"`          // parking_spots.id
    LotID      uint64    `json:"lot_id"`      // parking_spots.lot_id
    SpotNumber int       `json:"spot_number"` // parking_spots.spot_number
    Status     string    `json:"status"`      // parking_spots.status
    CreatedAt  time.Time `json:"created_at"`  // parking_spots.created_at
}

// SpotDetail is a spot joined with its active reservation, if any.
// The nullable fields are empty for available spots.
type SpotDetail struct {
    ParkingSpot
    UserID   null.Int    `json:"user_id"`
    Username null.String `json:"username"`
    ParkedAt null.Time   `json:"parked_at"`
}
