package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/model"
)

func TestReleaseCharges(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"minimum hour", 30 * time.Minute, 10},
		{"ninety minutes", 90 * time.Minute, 15},
		{"two hours", 2 * time.Hour, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			l := f.lot(t, "Pay", 2, 10)
			u := f.user(t, "parker")
			booked, err := f.spots.BookFirstAvailable(ctx, l.ID, u)
			require.NoError(t, err)

			f.clock.Advance(tc.elapsed)
			r, err := f.res.Release(ctx, booked.SpotID, u)
			require.NoError(t, err)

			assert.Equal(t, model.ReservationCompleted, r.Status)
			assert.InDelta(t, tc.want, r.Cost, 0.001)
			require.True(t, r.EndTime.Valid)
			assert.True(t, r.EndTime.Time.Equal(f.clock.Now()))
			assert.Equal(t, []int{1, 2}, f.spotNumbers(t, l.ID, model.SpotAvailable))
		})
	}
}

func TestReleaseUsesRateAtRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.lot(t, "Reprice", 2, 10)
	u := f.user(t, "parker")
	booked, err := f.spots.BookFirstAvailable(ctx, l.ID, u)
	require.NoError(t, err)

	l.HourlyRate = 4
	require.NoError(t, f.lots.Update(ctx, l))
	f.clock.Advance(3 * time.Hour)

	r, err := f.res.Release(ctx, booked.SpotID, u)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, r.Cost, 0.001)
}

func TestReleaseWithoutActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.lot(t, "Nope", 2, 10)
	users := f.drivers(t, 2)
	booked, err := f.spots.BookFirstAvailable(ctx, l.ID, users[0])
	require.NoError(t, err)

	_, err = f.res.Release(ctx, booked.SpotID, users[1])
	assert.ErrorIs(t, err, ErrNoActiveReservation)
	assert.Equal(t, []int{1}, f.spotNumbers(t, l.ID, model.SpotOccupied))

	_, err = f.res.Release(ctx, f.spotID(t, l.ID, 2), users[0])
	assert.ErrorIs(t, err, ErrNoActiveReservation)
	assert.Equal(t, []int{2}, f.spotNumbers(t, l.ID, model.SpotAvailable))

	_, err = f.res.Release(ctx, booked.SpotID, users[0])
	require.NoError(t, err)
	_, err = f.res.Release(ctx, booked.SpotID, users[0])
	assert.ErrorIs(t, err, ErrNoActiveReservation)
}

func TestGetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.lot(t, "Here", 2, 6)
	u := f.user(t, "parker")

	_, err := f.res.GetActive(ctx, u)
	assert.ErrorIs(t, err, ErrNoActiveReservation)

	booked, err := f.spots.BookFirstAvailable(ctx, l.ID, u)
	require.NoError(t, err)
	active, err := f.res.GetActive(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, booked.ID, active.ID)
	assert.Equal(t, "Here", active.LotName)
	assert.Equal(t, "1 Main St", active.LotAddress)
	assert.Equal(t, 6.0, active.HourlyRate)
	assert.Equal(t, 1, active.SpotNumber)

	_, err = f.res.Release(ctx, booked.SpotID, u)
	require.NoError(t, err)
	_, err = f.res.GetActive(ctx, u)
	assert.ErrorIs(t, err, ErrNoActiveReservation)
}

func TestListHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.lot(t, "History", 3, 10)
	users := f.drivers(t, 2)

	var ids []uint64
	for i := 0; i < 3; i++ {
		r, err := f.spots.BookFirstAvailable(ctx, l.ID, users[0])
		require.NoError(t, err)
		ids = append(ids, r.ID)
		f.clock.Advance(time.Hour)
		_, err = f.res.Release(ctx, r.SpotID, users[0])
		require.NoError(t, err)
	}
	other, err := f.spots.BookFirstAvailable(ctx, l.ID, users[1])
	require.NoError(t, err)

	mine, err := f.res.ListByUser(ctx, users[0])
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, []uint64{ids[2], ids[1], ids[0]}, []uint64{mine[0].ID, mine[1].ID, mine[2].ID})
	for _, r := range mine {
		assert.Equal(t, model.ReservationCompleted, r.Status)
		assert.Equal(t, "driver1", r.Username)
	}

	all, err := f.res.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, other.ID, all[0].ID)
	assert.Equal(t, "driver2", all[0].Username)
}

func TestUserStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.lot(t, "Stats", 2, 10)
	u := f.user(t, "parker")

	s, err := f.res.UserStats(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, model.UserStats{}, *s)

	r, err := f.spots.BookFirstAvailable(ctx, l.ID, u)
	require.NoError(t, err)
	f.clock.Advance(90 * time.Minute)
	_, err = f.res.Release(ctx, r.SpotID, u)
	require.NoError(t, err)
	_, err = f.spots.BookFirstAvailable(ctx, l.ID, u)
	require.NoError(t, err)

	s, err = f.res.UserStats(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalReservations)
	assert.Equal(t, 1, s.ActiveReservations)
	assert.InDelta(t, 15.0, s.TotalCost, 0.001)
}
