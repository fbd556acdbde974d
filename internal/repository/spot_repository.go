package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// maxBookAttempts bounds how often BookFirstAvailable moves on to the next
// spot after losing the compare-and-set to a concurrent booking.
const maxBookAttempts = 8

// SpotRepo allocates spots to users.  A spot only moves from available to
// occupied through a conditional UPDATE, so two concurrent bookings can
// never both claim it.
type SpotRepo struct {
	db    *database.DB
	clock billing.Clock
}

// NewSpotRepo constructs a SpotRepo.  A nil clock falls back to
// billing.SystemClock.
func NewSpotRepo(db *database.DB, clock billing.Clock) *SpotRepo {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &SpotRepo{db: db, clock: clock}
}

// FindAvailable returns the lowest numbered available spot of the lot, or
// ErrNoAvailableSpot.
func (r *SpotRepo) FindAvailable(ctx context.Context, lotID uint64) (*model.ParkingSpot, error) {
	var s model.ParkingSpot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, lot_id, spot_number, status, created_at FROM parking_spots
		 WHERE lot_id = ? AND status = ? ORDER BY spot_number LIMIT 1`,
		lotID, model.SpotAvailable).Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAvailableSpot
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Book occupies the given spot for the user and opens an active
// reservation starting now.
func (r *SpotRepo) Book(ctx context.Context, spotID, userID uint64) (*model.ReservationDetail, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.checkUserFreeTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	ok, err := occupySpotTx(ctx, tx, spotID)
	if err != nil {
		return nil, err
	}
	if !ok {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM parking_spots WHERE id = ?", spotID).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrSpotNotFound
		}
		return nil, ErrSpotUnavailable
	}
	detail, err := r.openReservationTx(ctx, tx, spotID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return detail, nil
}

// BookFirstAvailable selects and occupies the lowest numbered available
// spot of the lot in one transaction.  A spot taken by a concurrent booking
// between the SELECT and the UPDATE is skipped and the next one tried.
func (r *SpotRepo) BookFirstAvailable(ctx context.Context, lotID, userID uint64) (*model.ReservationDetail, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var found uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM parking_lots WHERE id = ?", lotID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.checkUserFreeTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	var spotID uint64
	for attempt := 0; ; attempt++ {
		if attempt == maxBookAttempts {
			return nil, fmt.Errorf("%w: lost %d booking races in lot %d", ErrConflict, attempt, lotID)
		}
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM parking_spots WHERE lot_id = ? AND status = ? ORDER BY spot_number LIMIT 1"+r.db.ForUpdate(),
			lotID, model.SpotAvailable).Scan(&spotID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAvailableSpot
		}
		if err != nil {
			return nil, err
		}
		ok, err := occupySpotTx(ctx, tx, spotID)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
	}

	detail, err := r.openReservationTx(ctx, tx, spotID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return detail, nil
}

// checkUserFreeTx locks the user row and fails when the user already holds
// an active reservation.
func (r *SpotRepo) checkUserFreeTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?"+r.db.ForUpdate(), userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE user_id = ? AND status = ?",
		userID, model.ReservationActive).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrActiveReservationExists
	}
	return nil
}

// occupySpotTx flips the spot from available to occupied and reports
// whether this call won it.
func occupySpotTx(ctx context.Context, tx *sql.Tx, spotID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE parking_spots SET status = ? WHERE id = ? AND status = ?",
		model.SpotOccupied, spotID, model.SpotAvailable)
	if err != nil {
		return false, fmt.Errorf("occupy spot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SpotRepo) openReservationTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (*model.ReservationDetail, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (spot_id, user_id, start_time, cost, status) VALUES (?, ?, ?, ?, ?)",
		spotID, userID, r.clock.Now(), 0, model.ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return reservationDetailByID(ctx, tx, uint64(id))
}
