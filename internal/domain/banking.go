package domain

import (
	"time"

	"github.com/escolahub/payments-gateway-go/internal/status"
)

// BalanceResult is the account balance for providers with direct account
// access. Amounts are in centavos.
type BalanceResult struct {
	AvailableCents int64  `json:"available_cents"`
	PendingCents   int64  `json:"pending_cents,omitempty"`
	Currency       string `json:"currency"`
}

// StatementEntry is one line of an account statement.
type StatementEntry struct {
	ExternalID  string    `json:"external_id,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"` // negative for debits
	Type        string    `json:"type,omitempty"`
}

// TransferRequest moves money out of the provider account, either to a PIX
// key or to a bank account.
type TransferRequest struct {
	AmountCents       int64  `json:"amount_cents"`
	PixKey            string `json:"pix_key,omitempty"`
	BankCode          string `json:"bank_code,omitempty"`
	BranchNumber      string `json:"branch_number,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	AccountDigit      string `json:"account_digit,omitempty"`
	HolderName        string `json:"holder_name,omitempty"`
	HolderDocument    string `json:"holder_document,omitempty"`
	Description       string `json:"description,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
}

// TransferResult is the normalized transfer record.
type TransferResult struct {
	ExternalID   string        `json:"external_id"`
	Status       status.Status `json:"status"`
	AmountCents  int64         `json:"amount_cents"`
	ScheduledFor string        `json:"scheduled_for,omitempty"`
}
