package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// --- Gateway configuration API (implements port.GatewayStore) ---

// gatewayRow maps the payment_gateways table columns.
type gatewayRow struct {
	ID                     string `json:"id"`
	OrganizationID         string `json:"organization_id"`
	Provider               string `json:"provider"`
	APIKeyEncrypted        string `json:"api_key_encrypted"`
	SecretKeyEncrypted     string `json:"secret_key_encrypted"`
	WebhookSecretEncrypted string `json:"webhook_secret_encrypted"`
	Certificate            string `json:"certificate"`
	CertificateKey         string `json:"certificate_key"`
	SandboxMode            bool   `json:"sandbox_mode"`
	Active                 bool   `json:"active"`
	UpdatedAt              string `json:"updated_at"`
}

func (r *gatewayRow) toRecord() *domain.GatewayRecord {
	return &domain.GatewayRecord{
		ID:                     r.ID,
		OrganizationID:         r.OrganizationID,
		Provider:               r.Provider,
		APIKeyEncrypted:        r.APIKeyEncrypted,
		SecretKeyEncrypted:     r.SecretKeyEncrypted,
		WebhookSecretEncrypted: r.WebhookSecretEncrypted,
		Certificate:            r.Certificate,
		CertificateKey:         r.CertificateKey,
		SandboxMode:            r.SandboxMode,
		Active:                 r.Active,
	}
}

// FindActiveGateway fetches the single active gateway row for an
// organization. The application enforces at most one active row per org;
// if several exist the most recently updated wins.
func (c *Client) FindActiveGateway(ctx context.Context, orgID string) (*domain.GatewayRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindActiveGateway")
	defer span.End()
	span.SetAttributes(attribute.String("organization.id", orgID))

	var record *domain.GatewayRecord

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("payment_gateways?organization_id=eq.%s&active=eq.true&order=updated_at.desc&limit=1",
				url.QueryEscape(orgID))
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "active gateway", ID: orgID}
			}

			var rows []gatewayRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode gateway row: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "active gateway", ID: orgID}
			}

			record = rows[0].toRecord()
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/gateways", Err: err}
	}

	return record, nil
}

// ListGateways fetches every gateway row for an organization, active or not.
func (c *Client) ListGateways(ctx context.Context, orgID string) ([]domain.GatewayRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGateways")
	defer span.End()
	span.SetAttributes(attribute.String("organization.id", orgID))

	var records []domain.GatewayRecord

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("payment_gateways?organization_id=eq.%s&order=updated_at.desc",
				url.QueryEscape(orgID))
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			records = []domain.GatewayRecord{}
			if body == nil || string(body) == "[]" {
				return nil
			}

			var rows []gatewayRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode gateway rows: %w", err)
			}
			for i := range rows {
				records = append(records, *rows[i].toRecord())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/gateways", Err: err}
	}

	return records, nil
}

// --- Webhook audit API (implements port.WebhookEventStore) ---

// RecordWebhookEvent appends one normalized webhook event to the audit
// table. Best-effort from the caller's perspective; the write itself is
// not retried to keep delivery handling fast.
func (c *Client) RecordWebhookEvent(ctx context.Context, event *domain.NormalizedWebhookEvent) error {
	ctx, span := tracer.Start(ctx, "Supabase.RecordWebhookEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(event.Provider)),
		attribute.String("event.type", string(event.EventType)),
	)

	row := map[string]any{
		"event_id":           event.ID,
		"provider":           string(event.Provider),
		"event_type":         string(event.EventType),
		"external_charge_id": event.ExternalChargeID,
		"external_reference": event.ExternalReference,
		"amount_cents":       event.AmountCents,
		"payload":            json.RawMessage(event.Raw),
		"received_at":        time.Now().UTC().Format(time.RFC3339),
	}
	if event.PaidAt != nil {
		row["paid_at"] = event.PaidAt.UTC().Format(time.RFC3339)
	}

	if _, err := c.doPost(ctx, "webhook_events", row); err != nil {
		return &domain.ErrExternalService{Service: "supabase/webhook_events", Err: err}
	}
	return nil
}
