package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db    *database.DB
	clock *fakeClock
	lots  *LotRepo
	spots *SpotRepo
	res   *ReservationRepo
	users *UserRepo
	stats *StatsRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	clock := newFakeClock()
	return &fixture{
		db:    db,
		clock: clock,
		lots:  NewLotRepo(db, clock),
		spots: NewSpotRepo(db, clock),
		res:   NewReservationRepo(db, clock),
		users: NewUserRepo(db),
		stats: NewStatsRepo(db),
	}
}

func (f *fixture) lot(t *testing.T, name string, spots int, rate float64) *model.ParkingLot {
	t.Helper()
	l := &model.ParkingLot{Name: name, Address: "1 Main St", PostalCode: "560001", HourlyRate: rate, MaxSpots: spots}
	require.NoError(t, f.lots.Create(context.Background(), l))
	return l
}

func (f *fixture) user(t *testing.T, name string) uint64 {
	t.Helper()
	id, err := f.users.Create(context.Background(), name, name+"@example.com", "password1", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	return id
}

func (f *fixture) drivers(t *testing.T, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = f.user(t, fmt.Sprintf("driver%d", i+1))
	}
	return ids
}

// spotNumbers returns the spot numbers of a lot with the given status, or
// all spots when status is empty.
func (f *fixture) spotNumbers(t *testing.T, lotID uint64, status string) []int {
	t.Helper()
	spots, err := f.lots.ListSpots(context.Background(), lotID)
	require.NoError(t, err)
	out := []int{}
	for _, s := range spots {
		if status == "" || s.Status == status {
			out = append(out, s.SpotNumber)
		}
	}
	return out
}

func (f *fixture) spotID(t *testing.T, lotID uint64, number int) uint64 {
	t.Helper()
	spots, err := f.lots.ListSpots(context.Background(), lotID)
	require.NoError(t, err)
	for _, s := range spots {
		if s.SpotNumber == number {
			return s.ID
		}
	}
	t.Fatalf("lot %d has no spot %d", lotID, number)
	return 0
}
