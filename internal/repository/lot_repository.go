package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// spotInsertChunk bounds the rows per multi-row INSERT so large lots stay
// under the placeholder limits of both drivers.
const spotInsertChunk = 500

// LotRepo manages parking lots and keeps each lot's pool of spots in line
// with its configured capacity.  Every write runs in its own transaction.
type LotRepo struct {
	db    *database.DB
	clock billing.Clock
}

// NewLotRepo returns a LotRepo bound to the given database.  A nil clock
// falls back to billing.SystemClock.
func NewLotRepo(db *database.DB, clock billing.Clock) *LotRepo {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &LotRepo{db: db, clock: clock}
}

const lotColumns = `id, name, address, postal_code, hourly_rate, max_spots, created_at`

func validateLot(l *model.ParkingLot) error {
	if l.HourlyRate < 0 || l.MaxSpots < 0 {
		return ErrInvalidLot
	}
	return nil
}

// Create inserts the lot and spots numbered 1..MaxSpots, all available.
// On success the lot's ID and CreatedAt are populated.  Nothing is written
// when any statement fails.
func (r *LotRepo) Create(ctx context.Context, l *model.ParkingLot) error {
	if err := validateLot(l); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	created := r.clock.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO parking_lots (name, address, postal_code, hourly_rate, max_spots, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.Name, l.Address, l.PostalCode, l.HourlyRate, l.MaxSpots, created)
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	numbers := make([]int, 0, l.MaxSpots)
	for n := 1; n <= l.MaxSpots; n++ {
		numbers = append(numbers, n)
	}
	if err := insertSpotsTx(ctx, tx, uint64(id), numbers, created); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	l.ID = uint64(id)
	l.CreatedAt = created
	return nil
}

// insertSpotsTx adds available spots with the given numbers to a lot.
func insertSpotsTx(ctx context.Context, tx *sql.Tx, lotID uint64, numbers []int, created time.Time) error {
	for start := 0; start < len(numbers); start += spotInsertChunk {
		end := start + spotInsertChunk
		if end > len(numbers) {
			end = len(numbers)
		}
		chunk := numbers[start:end]
		var b strings.Builder
		b.WriteString("INSERT INTO parking_spots (lot_id, spot_number, status, created_at) VALUES ")
		args := make([]interface{}, 0, len(chunk)*4)
		for i, n := range chunk {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString("(?, ?, ?, ?)")
			args = append(args, lotID, n, model.SpotAvailable, created)
		}
		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("insert spots: %w", err)
		}
	}
	return nil
}

// Update overwrites the lot's metadata and reconciles its spots with the
// new MaxSpots.  Every number in 1..MaxSpots that the lot lacks is added as
// available.  Available spots numbered above MaxSpots are removed.
// Occupied spots above MaxSpots are left in place, so a shrink can end
// with more spots than MaxSpots.
func (r *LotRepo) Update(ctx context.Context, l *model.ParkingLot) error {
	if err := validateLot(l); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var created time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT created_at FROM parking_lots WHERE id = ?"+r.db.ForUpdate(), l.ID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLotNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_lots SET name = ?, address = ?, postal_code = ?, hourly_rate = ?, max_spots = ?
		 WHERE id = ?`,
		l.Name, l.Address, l.PostalCode, l.HourlyRate, l.MaxSpots, l.ID); err != nil {
		return fmt.Errorf("update lot: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT spot_number FROM parking_spots WHERE lot_id = ?", l.ID)
	if err != nil {
		return err
	}
	have := make(map[int]bool)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return err
		}
		have[n] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	var missing []int
	for n := 1; n <= l.MaxSpots; n++ {
		if !have[n] {
			missing = append(missing, n)
		}
	}
	if err := insertSpotsTx(ctx, tx, l.ID, missing, r.clock.Now()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM parking_spots WHERE lot_id = ? AND spot_number > ? AND status = ?",
		l.ID, l.MaxSpots, model.SpotAvailable); err != nil {
		return fmt.Errorf("trim spots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	l.CreatedAt = created
	return nil
}

// Delete removes a lot together with its spots and their reservation
// history.  A lot with any occupied spot is kept and ErrLotOccupied is
// returned.
func (r *LotRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var found uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM parking_lots WHERE id = ?"+r.db.ForUpdate(), id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLotNotFound
	}
	if err != nil {
		return err
	}
	// Lock the occupied spots so no release can race the check.
	var occupied int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_spots WHERE lot_id = ? AND status = ?"+r.db.ForUpdate(),
		id, model.SpotOccupied).Scan(&occupied); err != nil {
		return err
	}
	if occupied > 0 {
		return ErrLotOccupied
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM parking_lots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Get returns a single lot.
func (r *LotRepo) Get(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	var l model.ParkingLot
	err := r.db.QueryRowContext(ctx, "SELECT "+lotColumns+" FROM parking_lots WHERE id = ?", id).
		Scan(&l.ID, &l.Name, &l.Address, &l.PostalCode, &l.HourlyRate, &l.MaxSpots, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns every lot with its spot counts, newest first.  Lots with no
// spots report zero counts.
func (r *LotRepo) List(ctx context.Context) ([]model.LotSummary, error) {
	const q = `SELECT l.id, l.name, l.address, l.postal_code, l.hourly_rate, l.max_spots, l.created_at,
	                  COUNT(s.id),
	                  COALESCE(SUM(CASE WHEN s.status = 'A' THEN 1 ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN s.status = 'O' THEN 1 ELSE 0 END), 0)
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.lot_id = l.id
	           GROUP BY l.id, l.name, l.address, l.postal_code, l.hourly_rate, l.max_spots, l.created_at
	           ORDER BY l.created_at DESC, l.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lots := []model.LotSummary{}
	for rows.Next() {
		var s model.LotSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.PostalCode, &s.HourlyRate, &s.MaxSpots, &s.CreatedAt,
			&s.TotalSpots, &s.AvailableSpots, &s.OccupiedSpots); err != nil {
			return nil, err
		}
		lots = append(lots, s)
	}
	return lots, rows.Err()
}

// ListSpots returns every spot of a lot ordered by number.  Occupied spots
// carry the user and start time of their active reservation.
func (r *LotRepo) ListSpots(ctx context.Context, lotID uint64) ([]model.SpotDetail, error) {
	if _, err := r.Get(ctx, lotID); err != nil {
		return nil, err
	}
	const q = `SELECT s.id, s.lot_id, s.spot_number, s.status, s.created_at,
	                  r.user_id, u.username, r.start_time
	           FROM parking_spots s
	           LEFT JOIN reservations r ON r.spot_id = s.id AND r.status = 'active'
	           LEFT JOIN users u ON u.id = r.user_id
	           WHERE s.lot_id = ?
	           ORDER BY s.spot_number`
	rows, err := r.db.QueryContext(ctx, q, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spots := []model.SpotDetail{}
	for rows.Next() {
		var d model.SpotDetail
		if err := rows.Scan(&d.ID, &d.LotID, &d.SpotNumber, &d.Status, &d.CreatedAt,
			&d.UserID, &d.Username, &d.ParkedAt); err != nil {
			return nil, err
		}
		spots = append(spots, d)
	}
	return spots, rows.Err()
}
