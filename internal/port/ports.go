// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/escolahub/payments-gateway-go/internal/domain"
)

// GatewayStore retrieves persisted gateway configurations. Implemented by
// the Supabase adapter (or any other persistence layer).
type GatewayStore interface {
	// FindActiveGateway returns the single active gateway row for an
	// organization, or *domain.ErrNotFound when none is configured.
	FindActiveGateway(ctx context.Context, orgID string) (*domain.GatewayRecord, error)
	ListGateways(ctx context.Context, orgID string) ([]domain.GatewayRecord, error)
}

// WebhookEventStore persists normalized webhook events for audit and dedup.
type WebhookEventStore interface {
	RecordWebhookEvent(ctx context.Context, event *domain.NormalizedWebhookEvent) error
}

// Decrypter opens sealed credential values from gateway rows. Decrypted
// values stay in memory only.
type Decrypter interface {
	Decrypt(sealed string) (string, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
