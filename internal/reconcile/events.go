package reconcile

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/filmhall/booking-engine/internal/domain"
)

// PaymentEventsTopic carries gateway confirmations from the webhook intake to
// the reconciliation worker, keeping gateway push delivery off the reservation
// request path.
const PaymentEventsTopic = "payment-events"

type PaymentEvent struct {
	OrderRef string             `json:"order_ref"`
	Status   domain.OrderStatus `json:"status"`
}

func PublishPaymentEvent(publisher message.Publisher, event PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return publisher.Publish(PaymentEventsTopic, message.NewMessage(watermill.NewUUID(), payload))
}
