// Package api holds the request and response types of the booking engine's
// HTTP surface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Error codes returned alongside 4xx responses.
const (
	CodeSeatConflict = "SEAT_CONFLICT"
	CodeShowNotFound = "SHOW_NOT_FOUND"
	CodeInvalidSeats = "INVALID_SEATS"
)

type ErrorResponse struct {
	Code             string    `json:"code,omitempty"`
	Message          string    `json:"message"`
	ConflictingSeats []string  `json:"conflicting_seats,omitempty"`
	RequestId        string    `json:"request_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Code             string            `json:"code"`
	ValidationErrors []ValidationError `json:"validation_errors"`
	RequestId        string            `json:"request_id,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type SeatMapResponse struct {
	ShowId        int      `json:"show_id"`
	Capacity      int      `json:"capacity"`
	OccupiedSeats []string `json:"occupied_seats"`
}

type CreateReservationRequest struct {
	Seats  []string        `json:"seats" validate:"required,min=1,dive,seat_label"`
	UserId int             `json:"user_id" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Email  string          `json:"email,omitempty" validate:"omitempty,email"`
}

type ReservationResponse struct {
	BookingId     string    `json:"booking_id"`
	Status        string    `json:"status"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	PaymentUrl    string    `json:"payment_url,omitempty"`
}

type BookingResponse struct {
	BookingId string          `json:"booking_id"`
	ShowId    int             `json:"show_id"`
	Status    string          `json:"status"`
	Seats     []string        `json:"seats"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type BookingHistoryResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"system_info"`
}
