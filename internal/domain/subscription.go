package domain

// SubscriptionCycle is the recurrence interval of a subscription.
type SubscriptionCycle string

const (
	CycleWeekly       SubscriptionCycle = "weekly"
	CycleBiweekly     SubscriptionCycle = "biweekly"
	CycleMonthly      SubscriptionCycle = "monthly"
	CycleQuarterly    SubscriptionCycle = "quarterly"
	CycleSemiannually SubscriptionCycle = "semiannually"
	CycleAnnually     SubscriptionCycle = "annually"
)

// SubscriptionStatus is the normalized subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// SubscriptionRequest creates a recurring charge. The provider manages the
// lifecycle; the adapter only relays state.
type SubscriptionRequest struct {
	Method            PaymentMethod     `json:"method"`
	AmountCents       int64             `json:"amount_cents"`
	Cycle             SubscriptionCycle `json:"cycle"`
	NextDueDate       string            `json:"next_due_date"` // YYYY-MM-DD
	Description       string            `json:"description,omitempty"`
	Customer          CustomerParams    `json:"customer"`
	ExternalReference string            `json:"external_reference"`
	Card              *CardData         `json:"card,omitempty"`
}

// SubscriptionResult is the normalized subscription record.
type SubscriptionResult struct {
	ExternalID        string             `json:"external_id"`
	Status            SubscriptionStatus `json:"status"`
	Cycle             SubscriptionCycle  `json:"cycle"`
	AmountCents       int64              `json:"amount_cents"`
	NextDueDate       string             `json:"next_due_date,omitempty"`
	ExternalReference string             `json:"external_reference,omitempty"`
}
