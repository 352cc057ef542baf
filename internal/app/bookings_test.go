package app

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/filmhall/booking-engine/api"
	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/filmhall/booking-engine/internal/mocks"
)

type BookingHandlerTestSuite struct {
	suite.Suite
	app         *Application
	bookingRepo *mocks.MockBookingRepo
	redisClient *mocks.MockRedisClient
}

func TestBookingHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

func (s *BookingHandlerTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.redisClient = new(mocks.MockRedisClient)

	s.app = newTestApplication(func(a *Application) {
		a.bookingRepo = s.bookingRepo
		a.redis = s.redisClient
		a.now = func() time.Time { return testNow }
	})
}

func (s *BookingHandlerTestSuite) testBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:        uuid.New(),
		ShowID:    1,
		UserID:    7,
		Seats:     domain.NewSeatSet("A1", "A2"),
		Amount:    decimal.NewFromInt(24),
		Currency:  "USD",
		Status:    status,
		CreatedAt: testNow.Add(-5 * time.Minute),
		ExpiresAt: testNow.Add(5 * time.Minute),
		UpdatedAt: testNow.Add(-5 * time.Minute),
	}
}

func (s *BookingHandlerTestSuite) TestGetBookingReturnsBooking() {
	booking := s.testBooking(domain.BookingStatusConfirmed)
	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)

	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.GetBooking(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.BookingResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	s.Equal(booking.ID.String(), resp.BookingId)
	s.Equal("confirmed", resp.Status)
	s.Equal([]string{"A1", "A2"}, resp.Seats)
	s.True(resp.Amount.Equal(decimal.NewFromInt(24)))
}

func (s *BookingHandlerTestSuite) TestGetBookingInvalidID() {
	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/not-a-uuid", nil)
	r = withURLParams(r, map[string]string{"bookingID": "not-a-uuid"})

	s.app.GetBooking(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BookingHandlerTestSuite) TestGetBookingNotFound() {
	id := uuid.New()
	s.bookingRepo.On("GetById", mock.Anything, id).Return(nil, domain.ErrBookingNotFound)

	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/"+id.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": id.String()})

	s.app.GetBooking(w, r)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *BookingHandlerTestSuite) TestGetUserBookings() {
	bookings := []domain.Booking{
		*s.testBooking(domain.BookingStatusConfirmed),
		*s.testBooking(domain.BookingStatusExpired),
	}
	s.bookingRepo.On("GetByUserId", mock.Anything, 7).Return(bookings, nil)

	w, r := executeRequest(s.T(), http.MethodGet, "/users/7/bookings", nil)
	r = withURLParams(r, map[string]string{"userID": "7"})

	s.app.GetUserBookings(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.BookingHistoryResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	s.Len(resp.Bookings, 2)
	s.Equal("confirmed", resp.Bookings[0].Status)
	s.Equal("expired", resp.Bookings[1].Status)
}

func (s *BookingHandlerTestSuite) TestGetUserBookingsInvalidID() {
	w, r := executeRequest(s.T(), http.MethodGet, "/users/abc/bookings", nil)
	r = withURLParams(r, map[string]string{"userID": "abc"})

	s.app.GetUserBookings(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BookingHandlerTestSuite) TestCancelPendingBookingReleasesSeats() {
	booking := s.testBooking(domain.BookingStatusPending)

	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
	s.bookingRepo.On("UpdateStatus", mock.Anything, booking.ID,
		domain.BookingStatusPending, domain.BookingStatusCancelled).
		Return(domain.TransitionApplied, nil)
	s.redisClient.On("Del", mock.Anything, []string{availabilityKey(1)}).Return(redis.NewIntResult(1, nil))

	w, r := executeRequest(s.T(), http.MethodDelete, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.CancelBooking(w, r)

	s.Equal(http.StatusNoContent, w.Code)
	s.bookingRepo.AssertExpectations(s.T())
	s.redisClient.AssertExpectations(s.T())
}

func (s *BookingHandlerTestSuite) TestCancelAlreadyCancelledIsNoOp() {
	booking := s.testBooking(domain.BookingStatusCancelled)
	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)

	w, r := executeRequest(s.T(), http.MethodDelete, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.CancelBooking(w, r)

	s.Equal(http.StatusNoContent, w.Code)
	s.bookingRepo.AssertNotCalled(s.T(), "UpdateStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *BookingHandlerTestSuite) TestCancelConfirmedWithinWindow() {
	booking := s.testBooking(domain.BookingStatusConfirmed)
	booking.UpdatedAt = testNow.Add(-10 * time.Minute)

	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
	s.bookingRepo.On("UpdateStatus", mock.Anything, booking.ID,
		domain.BookingStatusConfirmed, domain.BookingStatusCancelled).
		Return(domain.TransitionApplied, nil)
	s.redisClient.On("Del", mock.Anything, []string{availabilityKey(1)}).Return(redis.NewIntResult(1, nil))

	w, r := executeRequest(s.T(), http.MethodDelete, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.CancelBooking(w, r)

	s.Equal(http.StatusNoContent, w.Code)
}

func (s *BookingHandlerTestSuite) TestCancelConfirmedAfterWindowRejected() {
	booking := s.testBooking(domain.BookingStatusConfirmed)
	booking.UpdatedAt = testNow.Add(-time.Hour) // well past the 30 minute window

	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)

	w, r := executeRequest(s.T(), http.MethodDelete, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.CancelBooking(w, r)

	s.Equal(http.StatusConflict, w.Code)
	s.bookingRepo.AssertNotCalled(s.T(), "UpdateStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *BookingHandlerTestSuite) TestCancelLosesRaceToTerminalState() {
	booking := s.testBooking(domain.BookingStatusPending)

	s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
	s.bookingRepo.On("UpdateStatus", mock.Anything, booking.ID,
		domain.BookingStatusPending, domain.BookingStatusCancelled).
		Return(domain.TransitionInvalid, nil)

	w, r := executeRequest(s.T(), http.MethodDelete, "/bookings/"+booking.ID.String(), nil)
	r = withURLParams(r, map[string]string{"bookingID": booking.ID.String()})

	s.app.CancelBooking(w, r)

	s.Equal(http.StatusConflict, w.Code)
}
