package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Show is owned by the catalog service. The booking engine only ever reads it;
// identity and capacity are immutable after creation.
type Show struct {
	ID          int
	MovieID     int
	TheatreID   int
	StartsAt    time.Time
	SeatRows    int
	SeatsPerRow int
	BasePrice   decimal.Decimal
	CreatedAt   time.Time
}

func (s *Show) Capacity() int {
	return s.SeatRows * s.SeatsPerRow
}

// HasSeat reports whether a seat label addresses a seat that exists in this
// show's hall. Labels are a row letter followed by a 1-based seat number,
// e.g. "A1" or "C12".
func (s *Show) HasSeat(label string) bool {
	row, num, ok := ParseSeatLabel(label)
	if !ok {
		return false
	}

	return row < s.SeatRows && num >= 1 && num <= s.SeatsPerRow
}

type ShowRepository interface {
	GetById(ctx context.Context, id int) (*Show, error)
	Create(ctx context.Context, show *Show) error
}
