// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrLotOccupied indicates that a lot cannot be removed while a
// car is parked in it, while ErrNoAvailableSpot signals that a booking
// found the lot full.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response. The more specific parking errors below wrap it.
var ErrConflict = errors.New("conflict")

// Lookups that found no row.
var (
	ErrLotNotFound  = errors.New("parking lot not found")
	ErrSpotNotFound = errors.New("parking spot not found")
	ErrUserNotFound = errors.New("user not found")
)

// ErrInvalidLot is returned for a negative hourly rate or spot count.
var ErrInvalidLot = errors.New("invalid parking lot")

// Preconditions of lot, booking and release operations. Each one is a
// conflict with current state and matches ErrConflict under errors.Is.
var (
	ErrLotOccupied             = conflict("parking lot has occupied spots")
	ErrNoAvailableSpot         = conflict("no available spot in parking lot")
	ErrSpotUnavailable         = conflict("parking spot is not available")
	ErrActiveReservationExists = conflict("user already has an active reservation")
	ErrNoActiveReservation     = conflict("no active reservation")
	ErrUserExists              = conflict("username or email already exists")
)

type conflictError struct{ msg string }

func conflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

// isDuplicateKey reports whether err is a unique-constraint violation on
// either supported database.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
