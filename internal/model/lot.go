package model

import "time"

// ParkingLot is a named parking facility with a fixed hourly rate.
// It owns a pool of ParkingSpot rows; deleting the lot cascades to
// its spots.  MaxSpots is the configured capacity.  After a shrink
// that could not remove occupied spots the real spot count may be
// higher than MaxSpots.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name of the lot.
//  Address    – street address.
//  PostalCode – postal / pin code.
//  HourlyRate – price charged per hour of parking.
//  MaxSpots   – configured number of spots.
//  CreatedAt  – creation timestamp.
type ParkingLot struct {
    ID         uint64    `json:"id"`          // parking_lots.id
    Name       string    `json:"name"`        // parking_lots.name
    Address    string    `json:"address"`     // parking_lots.address
    PostalCode string    `json:"postal_code"` // parking_lots.postal_code
    HourlyRate float64   `json:"hourly_rate"` // parking_lots.hourly_rate
    MaxSpots   int       `json:"max_spots"`   // parking_lots.max_spots
    CreatedAt  time.Time `json:"created_at"`  // parking_lots.created_at
}

// LotSummary is a lot together with its aggregated spot counts.
// Lots without spots report zero for every count.
type LotSummary struct {
    ParkingLot
    TotalSpots     int `json:"total_spots"`
    AvailableSpots int `json:"available_spots"`
    OccupiedSpots  int `json:"occupied_spots"`
}
