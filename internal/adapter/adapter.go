// Package adapter implements the common payment-provider contract for the
// fourteen supported PSPs and banks. Each provider lives in its own file;
// the bank-pattern providers share bankClient, the PSPs implement the
// contract directly on top of the shared authenticated HTTP helper.
package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
)

// Adapter is the operation surface every provider must implement.
//
// Operations a provider does not support fail with a structured
// *domain.AdapterError carrying the provider name and a human-readable
// reason, never a fabricated success. No operation retries internally;
// retry policy belongs to the caller, which controls idempotency through
// ChargeRequest.ExternalReference.
type Adapter interface {
	Provider() domain.Provider
	Capabilities() domain.ProviderCapabilities

	// CreateCustomer is idempotent: adapters that support a lookup check
	// for an existing customer with the same document first and return it
	// instead of duplicating.
	CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error)
	// FindCustomer is lookup-only and never creates. A missing customer is
	// (nil, nil), not an error.
	FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error)

	CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error)
	GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error)
	CancelCharge(ctx context.Context, externalID string) error
	// RefundCharge refunds amountCents; zero means full refund.
	RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error)

	CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error)
	GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error)
	CancelSubscription(ctx context.Context, externalID string) error

	CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error)

	GetBalance(ctx context.Context) (*domain.BalanceResult, error)
	GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error)
	CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)

	// ValidateWebhook is the security gate for incoming provider callbacks.
	// The calling endpoint applies a uniform reject-if-false policy.
	ValidateWebhook(headers http.Header, rawBody []byte) bool
	ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error)
}
