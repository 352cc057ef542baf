// Package reconcile aligns booking status with the payment gateway's
// authoritative view. It consumes pushed confirmations, polls yet-unsettled
// orders, and sweeps expired holds. All transitions go through the status
// compare-and-set, so a duplicate or stale signal is a no-op rather than a
// double-applied write.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/filmhall/booking-engine/internal/mailer"
)

type Worker struct {
	logger     *slog.Logger
	bookings   domain.BookingRepository
	gateway    domain.PaymentGateway
	subscriber message.Subscriber
	mailer     mailer.Mailer

	sweepInterval  time.Duration
	gatewayTimeout time.Duration
	maxRetries     uint64
	now            func() time.Time

	wg sync.WaitGroup
}

type Option func(*Worker)

// WithSweepInterval sets how often pending bookings are polled and expired
// holds are swept. Shorter intervals free abandoned seats sooner at the cost
// of more gateway traffic.
func WithSweepInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.sweepInterval = d
		}
	}
}

func WithGatewayTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.gatewayTimeout = d
		}
	}
}

func WithMaxRetries(n uint64) Option {
	return func(w *Worker) {
		w.maxRetries = n
	}
}

// WithClock overrides the time source, so tests can move holds past expiry.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

func New(
	logger *slog.Logger,
	bookings domain.BookingRepository,
	gw domain.PaymentGateway,
	subscriber message.Subscriber,
	m mailer.Mailer,
	opts ...Option) *Worker {

	w := &Worker{
		logger:         logger.With("component", "reconcile"),
		bookings:       bookings,
		gateway:        gw,
		subscriber:     subscriber,
		mailer:         m,
		sweepInterval:  30 * time.Second,
		gatewayTimeout: 5 * time.Second,
		maxRetries:     3,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run blocks until ctx is cancelled, consuming pushed payment events and
// running the poll/sweep loop on every tick.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, PaymentEventsTopic)
	if err != nil {
		return err
	}

	go w.consume(ctx, messages)

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("reconciliation worker started", "sweep_interval", w.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			w.ReconcilePending(ctx)
			w.SweepExpired(ctx)
		}
	}
}

func (w *Worker) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		if err := w.HandleEvent(ctx, msg.Payload); err != nil {
			w.logger.Error("failed to process payment event", "message_id", msg.UUID, "error", err)
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}

// HandleEvent applies a pushed gateway confirmation. Events for unknown
// orders are dropped: an order reference that never went through the engine
// must not move any booking.
func (w *Worker) HandleEvent(ctx context.Context, payload []byte) error {
	var event PaymentEvent

	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.Warn("discarding malformed payment event", "error", err)
		return nil
	}

	booking, err := w.bookings.GetByPaymentOrderId(ctx, event.OrderRef)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			w.logger.Warn("payment event for unknown order", "order_ref", event.OrderRef)
			return nil
		}

		return err
	}

	return w.applyOrderStatus(ctx, booking, event.Status)
}

func (w *Worker) applyOrderStatus(ctx context.Context, booking *domain.Booking, status domain.OrderStatus) error {
	var to domain.BookingStatus

	switch status {
	case domain.OrderStatusSucceeded:
		to = domain.BookingStatusConfirmed
	case domain.OrderStatusFailed:
		to = domain.BookingStatusFailed
	default:
		return nil
	}

	result, err := w.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusPending, to)
	if err != nil {
		return err
	}

	switch result {
	case domain.TransitionApplied:
		w.logger.Info("booking transitioned", "booking_id", booking.ID, "status", to)
		if to == domain.BookingStatusConfirmed {
			w.sendConfirmationMail(booking)
		}
	case domain.TransitionAlreadyInState:
		w.logger.Debug("duplicate payment signal ignored", "booking_id", booking.ID, "status", to)
	case domain.TransitionInvalid:
		w.logger.Warn("payment signal for settled booking ignored",
			"booking_id", booking.ID, "current_status_not", domain.BookingStatusPending, "wanted", to)
	}

	return nil
}

// ReconcilePending polls the gateway for every pending booking that has a
// live order. A timeout means the outcome is unknown: the booking is left
// untouched and will expire naturally if no answer ever comes.
func (w *Worker) ReconcilePending(ctx context.Context) {
	pending, err := w.bookings.GetPendingWithOrders(ctx)
	if err != nil {
		w.logger.Error("failed to list pending bookings", "error", err)
		return
	}

	for _, booking := range pending {
		status, err := w.pollOrderStatus(ctx, *booking.PaymentOrderID)
		if err != nil {
			w.logger.Warn("gateway unreachable, leaving booking to expire naturally",
				"booking_id", booking.ID, "order_ref", *booking.PaymentOrderID, "error", err)
			continue
		}

		if err := w.applyOrderStatus(ctx, &booking, status); err != nil {
			w.logger.Error("failed to apply gateway status", "booking_id", booking.ID, "error", err)
		}
	}
}

func (w *Worker) pollOrderStatus(ctx context.Context, orderRef string) (domain.OrderStatus, error) {
	var status domain.OrderStatus

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, w.gatewayTimeout)
		defer cancel()

		s, err := w.gateway.GetOrderStatus(callCtx, orderRef)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayTimeout) {
				return err
			}

			return backoff.Permanent(err)
		}

		status = s
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	return status, nil
}

// SweepExpired moves stale pending bookings to expired, releasing their
// seats. A booking confirmed between selection and the write loses the CAS
// and stays confirmed.
func (w *Worker) SweepExpired(ctx context.Context) {
	expired, err := w.bookings.GetExpiredPending(ctx, w.now())
	if err != nil {
		w.logger.Error("failed to list expired bookings", "error", err)
		return
	}

	for _, booking := range expired {
		result, err := w.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusPending, domain.BookingStatusExpired)
		if err != nil {
			w.logger.Error("failed to expire booking", "booking_id", booking.ID, "error", err)
			continue
		}

		switch result {
		case domain.TransitionApplied:
			w.logger.Info("hold expired, seats released", "booking_id", booking.ID, "seats", booking.Seats.String())
		default:
			w.logger.Debug("stale sweep skipped", "booking_id", booking.ID, "result", result.String())
		}
	}
}

func (w *Worker) sendConfirmationMail(booking *domain.Booking) {
	if w.mailer == nil || booking.ContactEmail == "" {
		return
	}

	w.background(func() {
		data := map[string]any{
			"bookingID": booking.ID.String(),
			"seats":     booking.Seats.String(),
			"amount":    booking.Amount.StringFixed(2),
			"currency":  booking.Currency,
		}

		if err := w.mailer.Send(booking.ContactEmail, "booking_confirmed.tmpl", data); err != nil {
			w.logger.Error("failed to send confirmation email", "booking_id", booking.ID, "error", err)
		}
	})
}

func (w *Worker) background(fn func()) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				w.logger.Error("recovered panic in background task", "error", err)
			}
		}()

		fn()
	}()
}
