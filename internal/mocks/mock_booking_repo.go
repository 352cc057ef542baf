package mocks

import (
	"context"
	"time"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Reserve(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) GetById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByPaymentOrderId(ctx context.Context, orderRef string) (*domain.Booking, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetByUserId(ctx context.Context, userId int) ([]domain.Booking, error) {
	args := m.Called(ctx, userId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) OccupiedSeats(ctx context.Context, showId int) (domain.SeatSet, error) {
	args := m.Called(ctx, showId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.SeatSet), args.Error(1)
}

func (m *MockBookingRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookingStatus) (domain.TransitionResult, error) {

	args := m.Called(ctx, id, from, to)
	return args.Get(0).(domain.TransitionResult), args.Error(1)
}

func (m *MockBookingRepo) AttachPaymentOrder(ctx context.Context, id uuid.UUID, orderRef string) error {
	args := m.Called(ctx, id, orderRef)
	return args.Error(0)
}

func (m *MockBookingRepo) GetPendingWithOrders(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}
