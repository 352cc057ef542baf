package mocks

import (
	"context"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, booking *domain.Booking) (*domain.PaymentOrder, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentOrder), args.Error(1)
}

func (m *MockPaymentGateway) GetOrderStatus(ctx context.Context, orderRef string) (domain.OrderStatus, error) {
	args := m.Called(ctx, orderRef)
	return args.Get(0).(domain.OrderStatus), args.Error(1)
}
