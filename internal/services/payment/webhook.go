package payment

import (
	"encoding/json"
	"errors"
)

// Types d'événements webhook Cashfree (API 2023-08-01).
const (
	EventPaymentSuccess     = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed      = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

var ErrMalformedEvent = errors.New("événement webhook illisible")

type WebhookEvent struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Order struct {
			OrderID     string  `json:"order_id"`
			OrderAmount float64 `json:"order_amount"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   FlexString `json:"cf_payment_id"`
			PaymentStatus string     `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

func (e *WebhookEvent) OrderNumber() string { return e.Data.Order.OrderID }

func (e *WebhookEvent) PaymentID() string { return string(e.Data.Payment.CFPaymentID) }

// ParseWebhookEvent décode le corps brut, déjà authentifié, d'un webhook.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if evt.Type == "" {
		return nil, ErrMalformedEvent
	}
	return &evt, nil
}
