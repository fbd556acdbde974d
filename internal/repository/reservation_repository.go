package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// ReservationRepo completes reservations and answers the history queries
// shown to users and administrators.  All timestamps are UTC.
type ReservationRepo struct {
	db    *database.DB
	clock billing.Clock
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
// A nil clock falls back to billing.SystemClock.
func NewReservationRepo(db *database.DB, clock billing.Clock) *ReservationRepo {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &ReservationRepo{db: db, clock: clock}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const reservationDetailSelect = `SELECT r.id, r.spot_id, r.user_id, r.start_time, r.end_time, r.cost, r.status,
                                        s.spot_number, l.id, l.name, l.address, l.hourly_rate, u.username
                                 FROM reservations r
                                 JOIN parking_spots s ON s.id = r.spot_id
                                 JOIN parking_lots l ON l.id = s.lot_id
                                 JOIN users u ON u.id = r.user_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservationDetail(sc rowScanner) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := sc.Scan(&d.ID, &d.SpotID, &d.UserID, &d.StartTime, &d.EndTime, &d.Cost, &d.Status,
		&d.SpotNumber, &d.LotID, &d.LotName, &d.LotAddress, &d.HourlyRate, &d.Username)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func reservationDetailByID(ctx context.Context, q queryer, id uint64) (*model.ReservationDetail, error) {
	return scanReservationDetail(q.QueryRowContext(ctx, reservationDetailSelect+" WHERE r.id = ?", id))
}

func listReservationDetails(ctx context.Context, q queryer, where string, args ...interface{}) ([]model.ReservationDetail, error) {
	rows, err := q.QueryContext(ctx, reservationDetailSelect+where+" ORDER BY r.start_time DESC, r.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanReservationDetail(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// Release completes the user's active reservation on the given spot and
// frees the spot.  The cost is computed from the elapsed time and the lot's
// current hourly rate, with a one hour minimum.  When the user holds no
// active reservation on that spot ErrNoActiveReservation is returned and
// nothing changes.
func (r *ReservationRepo) Release(ctx context.Context, spotID, userID uint64) (*model.ReservationDetail, error) {
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

	var (
		resID uint64
		start time.Time
		rate  float64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT r.id, r.start_time, l.hourly_rate
		 FROM reservations r
		 JOIN parking_spots s ON s.id = r.spot_id
		 JOIN parking_lots l ON l.id = s.lot_id
		 WHERE r.spot_id = ? AND r.user_id = ? AND r.status = 'active'
		 LIMIT 1`+r.db.ForUpdate(),
		spotID, userID).Scan(&resID, &start, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveReservation
	}
	if err != nil {
		return nil, err
	}

	end := r.clock.Now()
	cost := billing.Cost(start, end, rate)
	res, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = ?, end_time = ?, cost = ? WHERE id = ? AND status = ?",
		model.ReservationCompleted, end, cost, resID, model.ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("complete reservation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNoActiveReservation
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE parking_spots SET status = ? WHERE id = ?", model.SpotAvailable, spotID); err != nil {
		return nil, fmt.Errorf("free spot: %w", err)
	}
	detail, err := reservationDetailByID(ctx, tx, resID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return detail, nil
}

// GetActive returns the user's active reservation with its lot details.
func (r *ReservationRepo) GetActive(ctx context.Context, userID uint64) (*model.ReservationDetail, error) {
	d, err := scanReservationDetail(r.db.QueryRowContext(ctx,
		reservationDetailSelect+" WHERE r.user_id = ? AND r.status = 'active' ORDER BY r.id DESC LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveReservation
	}
	return d, err
}

// ListByUser returns the user's reservations, most recent first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return listReservationDetails(ctx, r.db, " WHERE r.user_id = ?", userID)
}

// ListAll returns every reservation, most recent first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.ReservationDetail, error) {
	return listReservationDetails(ctx, r.db, "")
}

// UserStats summarises the user's reservation history.
func (r *ReservationRepo) UserStats(ctx context.Context, userID uint64) (*model.UserStats, error) {
	var s model.UserStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(cost), 0),
		        COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)
		 FROM reservations WHERE user_id = ?`, userID).
		Scan(&s.TotalReservations, &s.TotalCost, &s.ActiveReservations)
	if err != nil {
		return nil, err
	}
	s.TotalCost = billing.RoundCents(s.TotalCost)
	return &s, nil
}
