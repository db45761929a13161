package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// asUser stands in for the auth middleware.
func asUser(id uint, userType models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", id)
		c.Set("userType", string(userType))
		c.Set("sessionId", "s1")
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lifecycle.ValidationError{Field: "rating", Msg: "must be between 1 and 5"}, http.StatusBadRequest},
		{fmt.Errorf("seats: %w", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrUnsupportedFile, http.StatusBadRequest},
		{fmt.Errorf("trip 4: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrInvalidState, http.StatusConflict},
		{services.ErrDuplicate, http.StatusConflict},
		{services.ErrNotEnoughSeats, http.StatusConflict},
		{services.ErrReviewLocked, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { respondError(c, tt.err) })
		w := doJSON(r, "GET", "/", nil)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { respondError(c, errors.New("pq: password authentication failed")) })

	w := doJSON(r, "GET", "/", nil)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestParamIDRejectsGarbage(t *testing.T) {
	r := gin.New()
	r.GET("/bookings/:id", BookingAction(func(context.Context, uint, uint) (*models.Booking, error) {
		t.Fatal("action must not run")
		return nil, nil
	}))

	assert.Equal(t, http.StatusBadRequest, doJSON(r, "GET", "/bookings/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, "GET", "/bookings/0", nil).Code)
}

func TestBookingActionPassesIDs(t *testing.T) {
	var gotUser, gotBooking uint
	r := gin.New()
	r.POST("/bookings/:id/accept", asUser(3, models.UserTypeDriver), BookingAction(func(_ context.Context, userID, bookingID uint) (*models.Booking, error) {
		gotUser, gotBooking = userID, bookingID
		return nil, services.ErrNotEnoughSeats
	}))

	w := doJSON(r, "POST", "/bookings/12/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, uint(3), gotUser)
	assert.Equal(t, uint(12), gotBooking)
}

type fakeLister struct {
	bookings []*models.Booking
	err      error
}

func (f fakeLister) ListForPassenger(context.Context, uint) ([]*models.Booking, error) {
	return f.bookings, f.err
}

func booking(id uint, status models.BookingStatus, trip models.TripStatus) *models.Booking {
	b := &models.Booking{Status: status, Seats: 1}
	b.ID = id
	b.Trip = &models.Trip{
		Status:      trip,
		Origin:      models.Place{Label: "Campus North"},
		Destination: models.Place{Label: "Central Station"},
		DepartureAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	return b
}

func TestMyBookingsGroupsIntoTabs(t *testing.T) {
	lister := fakeLister{bookings: []*models.Booking{
		booking(1, models.BookingStatusAccepted, models.TripStatusInProgress),
		booking(2, models.BookingStatusPending, models.TripStatusPublished),
		booking(3, models.BookingStatusAccepted, models.TripStatusCompleted),
		booking(4, models.BookingStatusExpired, models.TripStatusPublished),
		booking(5, models.BookingStatusAccepted, models.TripStatusCanceled),
	}}
	r := gin.New()
	r.GET("/bookings/mine", asUser(7, models.UserTypePassenger), MyBookings(lister))

	w := doJSON(r, "GET", "/bookings/mine", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Bookings map[string][]struct {
			ID uint `json:"ID"`
		} `json:"bookings"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)
	assert.Len(t, body.Bookings["inProgress"], 1)
	assert.Len(t, body.Bookings["reserved"], 1)
	assert.Len(t, body.Bookings["completed"], 1)
	assert.Len(t, body.Bookings["canceled"], 2)
	assert.Equal(t, uint(4), body.Bookings["canceled"][0].ID)
	assert.Equal(t, uint(5), body.Bookings["canceled"][1].ID)
}

func TestMyBookingsDropsBookingsWithoutTrip(t *testing.T) {
	broken := booking(9, models.BookingStatusPending, models.TripStatusPublished)
	broken.Trip = nil
	r := gin.New()
	r.GET("/bookings/mine", asUser(7, models.UserTypePassenger), MyBookings(fakeLister{bookings: []*models.Booking{broken}}))

	w := doJSON(r, "GET", "/bookings/mine", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestMyBookingsStoreError(t *testing.T) {
	r := gin.New()
	r.GET("/bookings/mine", asUser(7, models.UserTypePassenger), MyBookings(fakeLister{err: errors.New("db down")}))

	assert.Equal(t, http.StatusInternalServerError, doJSON(r, "GET", "/bookings/mine", nil).Code)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r := gin.New()
	r.POST("/auth/register", Register(nil))

	w := doJSON(r, "POST", "/auth/register", gin.H{
		"username": "ana",
		"email":    "not-an-email",
		"password": "short",
		"userType": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeSessions struct {
	created string
	revoked []string
}

func (f *fakeSessions) Create(context.Context, uint, models.UserType) (string, error) {
	return f.created, nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.revoked = append(f.revoked, id)
	return nil
}

func TestLogin(t *testing.T) {
	db, mock := newMockDB(t)
	user := models.User{}
	require.NoError(t, user.HashPassword("correct-horse"))

	rows := sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "user_type"}).
		AddRow(5, "ana@uni.edu", "ana", user.PasswordHash, "passenger")
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	sessions := &fakeSessions{created: "sess-1"}
	r := gin.New()
	r.POST("/auth/login", Login(db, sessions, TokenConfig{Secret: []byte("k"), TTL: time.Hour}))

	w := doJSON(r, "POST", "/auth/login", gin.H{"email": "Ana@uni.edu", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, uint(5), body.User.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock := newMockDB(t)
	user := models.User{}
	require.NoError(t, user.HashPassword("correct-horse"))

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "user_type"}).
		AddRow(5, "ana@uni.edu", user.PasswordHash, "passenger")
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	r := gin.New()
	r.POST("/auth/login", Login(db, &fakeSessions{}, TokenConfig{Secret: []byte("k"), TTL: time.Hour}))

	w := doJSON(r, "POST", "/auth/login", gin.H{"email": "ana@uni.edu", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesCurrentSession(t *testing.T) {
	sessions := &fakeSessions{}
	r := gin.New()
	r.POST("/auth/logout", asUser(5, models.UserTypePassenger), Logout(sessions))

	w := doJSON(r, "POST", "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, sessions.revoked)
}

func TestCreateReviewRejectsUnknownTag(t *testing.T) {
	r := gin.New()
	r.POST("/trips/:id/reviews", asUser(7, models.UserTypePassenger), CreateReview(nil))

	w := doJSON(r, "POST", "/trips/3/reviews", gin.H{"rating": 5, "tags": []string{"punctual", "fast_car"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "POST", "/trips/3/reviews", gin.H{"rating": 5, "tags": []string{"punctual", "punctual"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewTags(t *testing.T) {
	r := gin.New()
	r.GET("/reviews/tags", ReviewTags())

	w := doJSON(r, "GET", "/reviews/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "safe_driving")
	assert.Contains(t, w.Body.String(), `"editWindowH":24`)
}

func TestCreateReportValidation(t *testing.T) {
	r := gin.New()
	r.POST("/reports", asUser(7, models.UserTypePassenger), CreateReport(nil, nil))

	w := doJSON(r, "POST", "/reports", gin.H{"reason": "no_show"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "POST", "/reports", gin.H{"reason": "rude", "tripId": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "POST", "/reports", gin.H{"reason": "other", "reportedUserId": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReportDescriptionLimitCountsCharacters(t *testing.T) {
	r := gin.New()
	r.POST("/reports", asUser(7, models.UserTypePassenger), CreateReport(nil, nil))

	w := doJSON(r, "POST", "/reports", gin.H{"reason": "other", "reportedUserId": 8, "description": strings.Repeat("a", 2001)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Description")

	// 2000 two-byte characters pass binding and reach the self-report check
	w = doJSON(r, "POST", "/reports", gin.H{"reason": "other", "reportedUserId": 7, "description": strings.Repeat("é", 2000)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot report yourself")
}

func TestSearchTripsRejectsBadQuery(t *testing.T) {
	r := gin.New()
	r.GET("/trips/search", SearchTrips(nil))

	for _, q := range []string{
		"date=01-05-2026",
		"seats=0",
		"lat=91&lng=0",
		"lat=45",
		"lat=45&lng=7&radiusKm=-1",
	} {
		w := doJSON(r, "GET", "/trips/search?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHealth(t *testing.T) {
	db, _ := newMockDB(t)
	r := gin.New()
	r.GET("/health", Health(db, nil, services.NewHub()))

	w := doJSON(r, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"websockets":0`)
}
