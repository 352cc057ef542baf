package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrShowNotFound          = errors.New("show not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrOrderNotFound         = errors.New("payment order not found")
	ErrInvalidSeats          = errors.New("invalid seat selection")
	ErrDuplicatePaymentOrder = errors.New("booking already has a payment order")

	// ErrGatewayTimeout marks a gateway call whose outcome is unknown. It is
	// transient: the worker retries it and never turns it into a booking
	// failure on its own.
	ErrGatewayTimeout = errors.New("payment gateway timed out")
)

// SeatConflictError reports the exact seats that were already occupied when a
// reservation attempt was committed.
type SeatConflictError struct {
	Seats SeatSet
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat(s) already reserved: %s", e.Seats)
}
