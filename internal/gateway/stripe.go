package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeGateway adapts Stripe checkout sessions to the engine's order
// create/query surface. The session ID is the order reference.
type StripeGateway struct {
	successUrl string
	failureUrl string
}

func NewStripeGateway(failureUrl, successUrl string) *StripeGateway {
	return &StripeGateway{
		successUrl: successUrl,
		failureUrl: failureUrl,
	}
}

func (s *StripeGateway) CreateOrder(ctx context.Context, booking *domain.Booking) (*domain.PaymentOrder, error) {
	amountCents := booking.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(booking.Currency),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("Seats %s", booking.Seats)),
						Description: stripe.String(fmt.Sprintf("Show #%d", booking.ShowID)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
		},
		ClientReferenceID: stripe.String(booking.ID.String()),
	}

	if booking.ContactEmail != "" {
		params.CustomerEmail = stripe.String(booking.ContactEmail)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}

	return &domain.PaymentOrder{
		Ref:         sess.ID,
		BookingID:   booking.ID,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		Status:      domain.OrderStatusPending,
		CheckoutURL: sess.URL,
	}, nil
}

func (s *StripeGateway) GetOrderStatus(ctx context.Context, orderRef string) (domain.OrderStatus, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}

	sess, err := session.Get(orderRef, params)
	if err != nil {
		return "", wrapStripeErr(err)
	}

	return MapSessionStatus(sess), nil
}

// MapSessionStatus collapses the checkout session's state into the engine's
// three-valued order status.
func MapSessionStatus(sess *stripe.CheckoutSession) domain.OrderStatus {
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return domain.OrderStatusSucceeded
	}

	if sess.Status == stripe.CheckoutSessionStatusExpired {
		return domain.OrderStatusFailed
	}

	return domain.OrderStatusPending
}

// wrapStripeErr translates unknown-outcome failures into ErrGatewayTimeout so
// the worker retries instead of failing the booking. An unknown order is a
// definite answer, not a timeout.
func wrapStripeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrGatewayTimeout, err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == 404:
			return domain.ErrOrderNotFound
		case stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 0:
			return fmt.Errorf("%w: %w", domain.ErrGatewayTimeout, err)
		}
	}

	return err
}
