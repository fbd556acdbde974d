package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// Reservation statuses stored in reservations.status.
const (
    ReservationActive    = "active"
    ReservationCompleted = "completed"
)

// Reservation records one user's occupancy of one spot.  It is
// created active when the spot is booked and completed exactly once
// when the spot is released.  Completed is terminal.
//
// Fields:
//  ID        – primary key identifier.
//  SpotID    – spot being occupied.
//  UserID    – user who booked the spot.
//  StartTime – when the spot was booked.
//  EndTime   – when the spot was released (null while active).
//  Cost      – amount charged at release (0 while active).
//  Status    – active or completed.
type Reservation struct {
    ID        uint64    `json:"id"`         // reservations.id
    SpotID    uint64    `json:"spot_id"`    // reservations.spot_id
    UserID    uint64    `json:"user_id"`    // reservations.user_id
    StartTime time.Time `json:"start_time"` // reservations.start_time
    EndTime   null.Time `json:"end_time"`   // reservations.end_time (nullable)
    Cost      float64   `json:"cost"`       // reservations.cost
    Status    string    `json:"status"`     // reservations.status
}

// ReservationDetail extends a reservation with the display fields
// used by listings: spot number, lot name/address/rate and the
// username of the parker.
type ReservationDetail struct {
    Reservation
    SpotNumber int     `json:"spot_number"`
    LotID      uint64  `json:"lot_id"`
    LotName    string  `json:"lot_name"`
    LotAddress string  `json:"lot_address"`
    HourlyRate float64 `json:"hourly_rate"`
    Username   string  `json:"username"`
}

// UserStats summarises one user's parking history.
type UserStats struct {
    TotalReservations  int     `json:"total_reservations"`
    TotalCost          float64 `json:"total_cost"`
    ActiveReservations int     `json:"active_reservations"`
}

// DashboardStats aggregates the figures shown to administrators.
type DashboardStats struct {
    TotalLots          int `json:"total_lots"`
    TotalSpots         int `json:"total_spots"`
    OccupiedSpots      int `json:"occupied_spots"`
    AvailableSpots     int `json:"available_spots"`
    TotalUsers         int `json:"total_users"`
    ActiveReservations int `json:"active_reservations"`
}

// LotOccupancy is one bar of the occupancy chart.
type LotOccupancy struct {
    LotID    uint64 `json:"lot_id"`
    Name     string `json:"name"`
    Occupied int    `json:"occupied"`
    Capacity int    `json:"capacity"`
}
