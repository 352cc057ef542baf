package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/filmhall/booking-engine/api"
	"github.com/filmhall/booking-engine/internal/domain"
)

func (app *Application) CreateReservation(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showID, err := readIntParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CreateReservationRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	if domain.HasDuplicateSeats(input.Seats) {
		app.invalidSeatsResponse(w, r, "seat labels must not repeat within a request")
		return
	}

	show, err := app.showRepo.GetById(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrShowNotFound) {
			app.showNotFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	seats := domain.NewSeatSet(input.Seats...)

	for _, seat := range seats {
		if !show.HasSeat(seat) {
			app.invalidSeatsResponse(w, r, fmt.Sprintf("seat %s does not exist in this hall", seat))
			return
		}
	}

	booking := &domain.Booking{
		ID:           uuid.New(),
		ShowID:       showID,
		UserID:       input.UserId,
		Seats:        seats,
		Amount:       input.Amount,
		Currency:     app.config.Booking.Currency,
		Status:       domain.BookingStatusPending,
		ContactEmail: input.Email,
		ExpiresAt:    app.now().Add(app.config.Booking.HoldDuration),
	}

	err = app.bookingRepo.Reserve(r.Context(), booking)
	if err != nil {
		var conflictErr *domain.SeatConflictError

		switch {
		case errors.As(err, &conflictErr):
			logger.Info("reservation conflict", "show_id", showID, "seats", conflictErr.Seats.String())
			app.seatConflictResponse(w, r, conflictErr.Seats)
		case errors.Is(err, domain.ErrShowNotFound):
			app.showNotFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.invalidateAvailability(r.Context(), showID)

	logger.Info("seats reserved", "booking_id", booking.ID, "show_id", showID, "seats", seats.String())

	// The gateway call happens only after the booking is committed and the
	// show lock released: gateway latency must never serialize unrelated
	// reservation attempts. If order creation fails the hold simply expires.
	paymentUrl := app.createPaymentOrder(r.Context(), booking, logger)

	resp := api.ReservationResponse{
		BookingId:     booking.ID.String(),
		Status:        string(domain.BookingStatusPending),
		HoldExpiresAt: booking.ExpiresAt,
		PaymentUrl:    paymentUrl,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) createPaymentOrder(ctx context.Context, booking *domain.Booking, logger *slog.Logger) string {
	orderCtx, cancel := context.WithTimeout(ctx, app.config.Booking.GatewayTimeout)
	defer cancel()

	order, err := app.gateway.CreateOrder(orderCtx, booking)
	if err != nil {
		logger.Warn("payment order creation failed, booking will expire unpaid",
			"booking_id", booking.ID, "error", err)
		return ""
	}

	err = app.bookingRepo.AttachPaymentOrder(ctx, booking.ID, order.Ref)
	if err != nil {
		logger.Warn("failed to attach payment order to booking",
			"booking_id", booking.ID, "order_ref", order.Ref, "error", err)
		return ""
	}

	booking.PaymentOrderID = &order.Ref

	return order.CheckoutURL
}
