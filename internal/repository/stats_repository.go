package repository

import (
	"context"

	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// StatsRepo computes the administrator dashboard figures.
type StatsRepo struct {
	db *database.DB
}

func NewStatsRepo(db *database.DB) *StatsRepo { return &StatsRepo{db: db} }

// Dashboard returns site-wide counts.  Only accounts with the user role
// are counted as users.
func (r *StatsRepo) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var s model.DashboardStats
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM parking_lots),
		        (SELECT COUNT(*) FROM parking_spots),
		        (SELECT COUNT(*) FROM parking_spots WHERE status = ?),
		        (SELECT COUNT(*) FROM users WHERE role = ?),
		        (SELECT COUNT(*) FROM reservations WHERE status = ?)`,
		model.SpotOccupied, model.RoleUser, model.ReservationActive).
		Scan(&s.TotalLots, &s.TotalSpots, &s.OccupiedSpots, &s.TotalUsers, &s.ActiveReservations)
	if err != nil {
		return nil, err
	}
	s.AvailableSpots = s.TotalSpots - s.OccupiedSpots
	return &s, nil
}

// Occupancy returns occupied and total spot counts per lot in creation order.
func (r *StatsRepo) Occupancy(ctx context.Context) ([]model.LotOccupancy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.name,
		        COALESCE(SUM(CASE WHEN s.status = 'O' THEN 1 ELSE 0 END), 0),
		        COUNT(s.id)
		 FROM parking_lots l
		 LEFT JOIN parking_spots s ON s.lot_id = l.id
		 GROUP BY l.id, l.name
		 ORDER BY l.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.LotOccupancy{}
	for rows.Next() {
		var o model.LotOccupancy
		if err := rows.Scan(&o.LotID, &o.Name, &o.Occupied, &o.Capacity); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
