package domain

import (
	"time"

	"github.com/escolahub/payments-gateway-go/internal/status"
)

// PaymentMethod selects how a charge is collected.
type PaymentMethod string

const (
	MethodPix        PaymentMethod = "pix"
	MethodBoleto     PaymentMethod = "boleto"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
)

// CardData carries raw card details for card charges. Never persisted,
// never logged.
type CardData struct {
	HolderName  string `json:"holder_name"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// SplitRule directs part of a charge's proceeds to a registered recipient.
// Exactly one of AmountCents/Percentage is meaningful per rule; rules do
// not have to sum to 100%; the remainder goes to the primary merchant.
type SplitRule struct {
	RecipientExternalID string  `json:"recipient_external_id"`
	AmountCents         int64   `json:"amount_cents,omitempty"`
	Percentage          float64 `json:"percentage,omitempty"`
	ChargeProcessingFee bool    `json:"charge_processing_fee,omitempty"`
}

// ChargeRequest is the normalized request to create a charge.
// AmountCents is in minor currency units (centavos); never floating point.
// ExternalReference is the caller-controlled idempotency key.
type ChargeRequest struct {
	Method            PaymentMethod  `json:"method"`
	AmountCents       int64          `json:"amount_cents"`
	DueDate           string         `json:"due_date"` // YYYY-MM-DD
	Description       string         `json:"description,omitempty"`
	Customer          CustomerParams `json:"customer"`
	ExternalReference string         `json:"external_reference"`
	Installments      int            `json:"installments,omitempty"`
	Card              *CardData      `json:"card,omitempty"`
	Split             []SplitRule    `json:"split,omitempty"`
}

// PixArtifacts are present only on PIX charges.
type PixArtifacts struct {
	CopyPaste    string     `json:"copy_paste"`
	QRCodeBase64 string     `json:"qr_code_base64,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// BoletoArtifacts are present only on boleto charges.
type BoletoArtifacts struct {
	Barcode       string `json:"barcode"`
	DigitableLine string `json:"digitable_line"`
	URL           string `json:"url,omitempty"`
}

// CardArtifacts are present only on card charges.
type CardArtifacts struct {
	AuthorizationCode string `json:"authorization_code,omitempty"`
	MaskedNumber      string `json:"masked_number,omitempty"`
	Brand             string `json:"brand,omitempty"`
}

// ChargeResult is the normalized outcome of creating or fetching a charge.
// Only the artifact struct matching Method is non-nil; fields for other
// methods stay unset rather than zero-valued placeholders.
type ChargeResult struct {
	ExternalID        string           `json:"external_id"`
	Status            status.Status    `json:"status"`
	RawStatus         string           `json:"raw_status,omitempty"`
	Method            PaymentMethod    `json:"method"`
	AmountCents       int64            `json:"amount_cents"`
	DueDate           string           `json:"due_date,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	InvoiceURL        string           `json:"invoice_url,omitempty"`
	Pix               *PixArtifacts    `json:"pix,omitempty"`
	Boleto            *BoletoArtifacts `json:"boleto,omitempty"`
	Card              *CardArtifacts   `json:"card,omitempty"`
}

// ChargeStatus is the normalized state of an existing charge.
type ChargeStatus struct {
	ExternalID  string        `json:"external_id"`
	Status      status.Status `json:"status"`
	RawStatus   string        `json:"raw_status,omitempty"`
	AmountCents int64         `json:"amount_cents,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
}

// RefundResult is the outcome of a refund request. AmountCents is the
// refunded amount (full charge amount when the caller omitted one).
type RefundResult struct {
	ExternalID  string        `json:"external_id"`
	Status      status.Status `json:"status"`
	AmountCents int64         `json:"amount_cents"`
	RefundedAt  *time.Time    `json:"refunded_at,omitempty"`
}
