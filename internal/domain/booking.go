package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusFailed    BookingStatus = "failed"
)

// OccupiesSeats reports whether a booking in this status counts towards a
// show's occupancy. Pending bookings hold their seats until payment settles
// one way or the other.
func (s BookingStatus) OccupiesSeats() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Terminal reports whether no further transition is allowed out of this
// status, aside from the confirmed -> cancelled refund path.
func (s BookingStatus) Terminal() bool {
	return s != BookingStatusPending
}

type TransitionResult int

const (
	TransitionApplied TransitionResult = iota
	TransitionAlreadyInState
	TransitionInvalid
)

func (r TransitionResult) String() string {
	switch r {
	case TransitionApplied:
		return "applied"
	case TransitionAlreadyInState:
		return "already-in-state"
	default:
		return "invalid"
	}
}

// Transition decides whether a booking may move from one status to another.
// It is the single source of truth for the lifecycle: pending settles into
// confirmed, expired, failed or cancelled, and a confirmed booking may still
// be cancelled. Repeating a transition is reported as AlreadyInState so that
// duplicate payment signals stay no-ops.
func Transition(from, to BookingStatus) TransitionResult {
	if from == to {
		return TransitionAlreadyInState
	}

	switch from {
	case BookingStatusPending:
		switch to {
		case BookingStatusConfirmed, BookingStatusExpired, BookingStatusFailed, BookingStatusCancelled:
			return TransitionApplied
		}
	case BookingStatusConfirmed:
		if to == BookingStatusCancelled {
			return TransitionApplied
		}
	}

	return TransitionInvalid
}

// Booking is a row in the audit ledger. Bookings are never deleted, only
// transitioned; a show's occupancy is always derived from the ledger.
type Booking struct {
	ID             uuid.UUID
	ShowID         int
	UserID         int
	Seats          SeatSet
	Amount         decimal.Decimal
	Currency       string
	Status         BookingStatus
	ContactEmail   string
	PaymentOrderID *string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

func (b *Booking) Expired(now time.Time) bool {
	return b.Status == BookingStatusPending && now.After(b.ExpiresAt)
}

type BookingRepository interface {
	// Reserve commits a new pending booking. The availability check and the
	// insert run as one atomic unit under the show's serialization; it fails
	// with a SeatConflictError naming the overlapping seats when any requested
	// seat is already held.
	Reserve(ctx context.Context, booking *Booking) error

	GetById(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByPaymentOrderId(ctx context.Context, orderRef string) (*Booking, error)
	GetByUserId(ctx context.Context, userId int) ([]Booking, error)

	// OccupiedSeats returns the union of seat sets over the show's pending and
	// confirmed bookings.
	OccupiedSeats(ctx context.Context, showId int) (SeatSet, error)

	// UpdateStatus applies a compare-and-set transition gated on the current
	// status. Seat-releasing transitions additionally serialize on the show.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus) (TransitionResult, error)

	// AttachPaymentOrder binds a freshly created gateway order to a pending
	// booking. A booking may hold at most one live order.
	AttachPaymentOrder(ctx context.Context, id uuid.UUID, orderRef string) error

	GetPendingWithOrders(ctx context.Context) ([]Booking, error)
	GetExpiredPending(ctx context.Context, now time.Time) ([]Booking, error)
}
