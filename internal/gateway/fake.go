package gateway

import (
	"context"
	"sync"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/google/uuid"
)

// FakeGateway is an in-memory gateway for local development and tests. Order
// outcomes are settled by calling Settle, standing in for the customer
// finishing (or abandoning) payment out-of-band.
type FakeGateway struct {
	mu     sync.Mutex
	orders map[string]domain.OrderStatus
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		orders: make(map[string]domain.OrderStatus),
	}
}

func (f *FakeGateway) CreateOrder(ctx context.Context, booking *domain.Booking) (*domain.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref := "order_" + uuid.NewString()
	f.orders[ref] = domain.OrderStatusPending

	return &domain.PaymentOrder{
		Ref:       ref,
		BookingID: booking.ID,
		Amount:    booking.Amount,
		Currency:  booking.Currency,
		Status:    domain.OrderStatusPending,
	}, nil
}

func (f *FakeGateway) GetOrderStatus(ctx context.Context, orderRef string) (domain.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status, ok := f.orders[orderRef]
	if !ok {
		return "", domain.ErrOrderNotFound
	}

	return status, nil
}

// Settle records the final outcome of an order.
func (f *FakeGateway) Settle(orderRef string, status domain.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders[orderRef] = status
}
