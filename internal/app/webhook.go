package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/filmhall/booking-engine/internal/gateway"
	"github.com/filmhall/booking-engine/internal/reconcile"
)

// StripeWebhookHandler is the push variant of confirmation intake. It only
// verifies the signature, checks the order belongs to a known booking and
// hands the signal to the reconciliation worker over the event topic; the
// status compare-and-set downstream makes redelivery harmless.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, 65536)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("failed to read request body"))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.Stripe.WebhookSecret)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	switch event.Type {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession

	err = json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("malformed webhook payload"))
		return
	}

	_, err = app.bookingRepo.GetByPaymentOrderId(r.Context(), session.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// Not an order of ours: acknowledge so the gateway stops
			// retrying, but touch nothing.
			logger.Warn("webhook for unknown payment order", "order_ref", session.ID)
			w.WriteHeader(http.StatusOK)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	paymentEvent := reconcile.PaymentEvent{
		OrderRef: session.ID,
		Status:   gateway.MapSessionStatus(&session),
	}

	err = reconcile.PublishPaymentEvent(app.pubsub, paymentEvent)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	logger.Info("payment event accepted", "order_ref", session.ID, "status", paymentEvent.Status)

	w.WriteHeader(http.StatusOK)
}
