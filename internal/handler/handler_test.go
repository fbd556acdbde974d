package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/router"
	"github.com/iliyamo/parking-reservation/internal/utils"
)

const testSecret = "test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ParkingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ParkingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	r.paths = append(r.paths, paths...)
	r.mu.Unlock()
}

type server struct {
	e       *echo.Echo
	users   *repository.UserRepo
	events  *recordingPublisher
	cache   *recordingInvalidator
	adminTk string
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}
	users := repository.NewUserRepo(db)
	clock := billing.SystemClock{}
	lots := repository.NewLotRepo(db, clock)
	reservations := repository.NewReservationRepo(db, clock)
	events := &recordingPublisher{}
	cache := &recordingInvalidator{}

	e := echo.New()
	router.Register(e, router.Deps{
		JWTSecret: testSecret,
		Health:    handler.NewHealthHandler(db, nil),
		Auth:      handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db, clock)),
		Parking:   handler.NewParkingHandler(lots, repository.NewSpotRepo(db, clock), reservations, events),
		AdminLots: handler.NewAdminLotHandler(lots, cache),
		Dashboard: handler.NewAdminDashboardHandler(users, reservations, repository.NewStatsRepo(db)),
	})

	_, err = users.EnsureAdmin(context.Background(), "admin", "admin@parking.local", "admin123", bcrypt.MinCost)
	require.NoError(t, err)
	admin, err := users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(testSecret, admin.ID, model.RoleAdmin, 15)
	require.NoError(t, err)

	return &server{e: e, users: users, events: events, cache: cache, adminTk: tok.Token}
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// register signs up a user through the API and returns its access token.
func (s *server) register(t *testing.T, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	decode(t, rec, &resp)
	return resp.Access.Token
}

func (s *server) createLot(t *testing.T, spots int, rate float64) model.ParkingLot {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/admin/lots", s.adminTk, map[string]interface{}{
		"name": "Central", "address": "1 Main St", "postal_code": "560001",
		"hourly_rate": rate, "max_spots": spots,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lot model.ParkingLot
	decode(t, rec, &lot)
	return lot
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice2@example.com", "password": "password1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "ghost", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "alice", "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	decode(t, rec, &login)
	assert.Equal(t, model.RoleUser, login.User.Role)

	rec = s.do(t, http.MethodGet, "/v1/me", login.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token is revoked")

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", login.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "bob", "email": "not-an-email", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "bob", "email": "bob@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleGating(t *testing.T) {
	s := newServer(t)
	user := s.register(t, "alice")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/lots", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/lots", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/admin/lots", user, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/v1/lots/1/book", s.adminTk, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/lots", user, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/me", s.adminTk, nil).Code)
}

func TestAdminLotLifecycle(t *testing.T) {
	s := newServer(t)
	lot := s.createLot(t, 5, 10)
	path := fmt.Sprintf("/v1/admin/lots/%d", lot.ID)

	rec := s.do(t, http.MethodPatch, path, s.adminTk, map[string]interface{}{"max_spots": 8})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.ParkingLot
	decode(t, rec, &updated)
	assert.Equal(t, 8, updated.MaxSpots)
	assert.Equal(t, "Central", updated.Name)
	assert.Equal(t, []string{fmt.Sprintf("/v1/lots/%d", lot.ID)}, s.cache.paths)

	rec = s.do(t, http.MethodPut, path, s.adminTk, map[string]interface{}{"name": "Partial"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/spots", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spots []model.SpotDetail
	decode(t, rec, &spots)
	assert.Len(t, spots, 8)

	rec = s.do(t, http.MethodPost, "/v1/admin/lots", s.adminTk, map[string]interface{}{
		"name": "Bad", "address": "x", "postal_code": "1", "hourly_rate": -2, "max_spots": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, s.adminTk, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, s.adminTk, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, path, s.adminTk, map[string]interface{}{"max_spots": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/v1/admin/lots/abc", s.adminTk, nil).Code)
}

func TestBookingFlow(t *testing.T) {
	s := newServer(t)
	lot := s.createLot(t, 1, 10)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	book := fmt.Sprintf("/v1/lots/%d/book", lot.ID)

	rec := s.do(t, http.MethodGet, "/v1/reservations/active", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, book, alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var booked model.ReservationDetail
	decode(t, rec, &booked)
	assert.Equal(t, 1, booked.SpotNumber)
	assert.Equal(t, model.ReservationActive, booked.Status)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, book, alice, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, book, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/lots/999/book", bob, nil).Code)

	rec = s.do(t, http.MethodGet, "/v1/reservations/active", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	delPath := fmt.Sprintf("/v1/admin/lots/%d", lot.ID)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, delPath, s.adminTk, nil).Code)

	release := fmt.Sprintf("/v1/spots/%d/release", booked.SpotID)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, release, bob, nil).Code)
	rec = s.do(t, http.MethodPost, release, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done model.ReservationDetail
	decode(t, rec, &done)
	assert.Equal(t, model.ReservationCompleted, done.Status)
	assert.InDelta(t, 10.0, done.Cost, 0.001)
	assert.True(t, done.EndTime.Valid)

	rec = s.do(t, http.MethodGet, "/v1/my-reservations", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []model.ReservationDetail
	decode(t, rec, &history)
	assert.Len(t, history, 1)

	rec = s.do(t, http.MethodGet, "/v1/stats/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.UserStats
	decode(t, rec, &stats)
	assert.Equal(t, model.UserStats{TotalReservations: 1, TotalCost: 10}, stats)

	assert.Equal(t, []string{queue.EventSpotBooked, queue.EventSpotReleased}, s.events.types())
}

func TestAdminDashboard(t *testing.T) {
	s := newServer(t)
	lot := s.createLot(t, 3, 5)
	alice := s.register(t, "alice")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, fmt.Sprintf("/v1/lots/%d/book", lot.ID), alice, nil).Code)

	rec := s.do(t, http.MethodGet, "/v1/admin/stats", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash model.DashboardStats
	decode(t, rec, &dash)
	assert.Equal(t, model.DashboardStats{TotalLots: 1, TotalSpots: 3, OccupiedSpots: 1, AvailableSpots: 2, TotalUsers: 1, ActiveReservations: 1}, dash)

	rec = s.do(t, http.MethodGet, "/v1/admin/stats/occupancy", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var occ []model.LotOccupancy
	decode(t, rec, &occ)
	require.Len(t, occ, 1)
	assert.Equal(t, 1, occ[0].Occupied)

	rec = s.do(t, http.MethodGet, "/v1/admin/users", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = s.do(t, http.MethodGet, "/v1/admin/reservations", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.ReservationDetail
	decode(t, rec, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Username)

	rec = s.do(t, http.MethodGet, "/v1/admin/lots", s.adminTk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lots []model.LotSummary
	decode(t, rec, &lots)
	require.Len(t, lots, 1)
	assert.Equal(t, 2, lots[0].AvailableSpots)
}
