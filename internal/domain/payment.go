package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSucceeded OrderStatus = "succeeded"
	OrderStatusFailed    OrderStatus = "failed"
)

// PaymentOrder is owned by the gateway. The engine keeps only the reference
// and the last status snapshot observed by the reconciliation worker.
type PaymentOrder struct {
	Ref         string
	BookingID   uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Status      OrderStatus
	CheckoutURL string
}

// PaymentGateway is the order-creation and order-status surface of the
// external payment provider. Confirmation is asynchronous and may never
// arrive; callers must not treat order creation as payment.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, booking *Booking) (*PaymentOrder, error)
	GetOrderStatus(ctx context.Context, orderRef string) (OrderStatus, error)
}
