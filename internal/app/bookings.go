package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/filmhall/booking-engine/api"
	"github.com/filmhall/booking-engine/internal/domain"
)

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid booking ID"))
		return
	}

	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := readIntParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bookings, err := app.bookingRepo.GetByUserId(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.BookingHistoryResponse{
		Bookings: make([]api.BookingResponse, 0, len(bookings)),
	}

	for i := range bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(&bookings[i]))
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelBooking is idempotent: cancelling an already-cancelled booking is a
// no-op. Confirmed bookings are only cancellable within the policy window
// after confirmation.
func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid booking ID"))
		return
	}

	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if booking.Status == domain.BookingStatusCancelled {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if booking.Status == domain.BookingStatusConfirmed {
		deadline := booking.UpdatedAt.Add(app.config.Booking.CancelWindow)
		if app.now().After(deadline) {
			app.editConflictResponse(w, r, "the cancellation window for this booking has elapsed")
			return
		}
	}

	result, err := app.bookingRepo.UpdateStatus(r.Context(), bookingID, booking.Status, domain.BookingStatusCancelled)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	switch result {
	case domain.TransitionApplied, domain.TransitionAlreadyInState:
		if result == domain.TransitionApplied {
			logger.Info("booking cancelled", "booking_id", bookingID, "seats", booking.Seats.String())
			app.invalidateAvailability(r.Context(), booking.ShowID)
		}

		w.WriteHeader(http.StatusNoContent)
	default:
		app.editConflictResponse(w, r, "this booking can no longer be cancelled")
	}
}

func toBookingResponse(booking *domain.Booking) api.BookingResponse {
	return api.BookingResponse{
		BookingId: booking.ID.String(),
		ShowId:    booking.ShowID,
		Status:    string(booking.Status),
		Seats:     []string(booking.Seats),
		Amount:    booking.Amount,
		Currency:  booking.Currency,
		CreatedAt: booking.CreatedAt,
		ExpiresAt: booking.ExpiresAt,
	}
}
