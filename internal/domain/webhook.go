package domain

import (
	"encoding/json"
	"time"
)

// WebhookEventType classifies a provider notification after normalization.
type WebhookEventType string

const (
	EventChargeCreated      WebhookEventType = "charge_created"
	EventChargeConfirmed    WebhookEventType = "charge_confirmed"
	EventChargeOverdue      WebhookEventType = "charge_overdue"
	EventChargeRefunded     WebhookEventType = "charge_refunded"
	EventChargeCancelled    WebhookEventType = "charge_cancelled"
	EventChargeChargeback   WebhookEventType = "charge_chargeback"
	EventChargeUpdated      WebhookEventType = "charge_updated"
	EventSubscriptionUpdate WebhookEventType = "subscription_updated"
	EventUnknown            WebhookEventType = "unknown"
)

// NormalizedWebhookEvent is the shared shape every provider webhook payload
// is parsed into. Constructed fresh per incoming call; persistence of events
// belongs to the calling application.
type NormalizedWebhookEvent struct {
	ID                string           `json:"id"`
	Provider          Provider         `json:"provider"`
	EventType         WebhookEventType `json:"event_type"`
	ExternalChargeID  string           `json:"external_charge_id"`
	ExternalReference string           `json:"external_reference,omitempty"`
	AmountCents       int64            `json:"amount_cents,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	Raw               json.RawMessage  `json:"raw"`
}
