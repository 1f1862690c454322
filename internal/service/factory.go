// Package service wires persistence, credential sealing, and the provider
// adapters into the operations the HTTP layer exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/adapter"
	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var factoryTracer = otel.Tracer("factory")

// GatewayFactory resolves organizations to ready-to-use provider adapters.
// It loads the active gateway row, decrypts its credentials, and constructs
// the concrete adapter through a closed dispatch over the known provider
// identifiers. Built adapters are cached per organization with a TTL so a
// credential rotation is picked up within one cache window.
type GatewayFactory struct {
	store      port.GatewayStore
	decrypter  port.Decrypter
	httpClient *http.Client
	adapters   port.Cache[adapter.Adapter]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewGatewayFactory creates the factory.
func NewGatewayFactory(
	store port.GatewayStore,
	decrypter port.Decrypter,
	httpClient *http.Client,
	adapters port.Cache[adapter.Adapter],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *GatewayFactory {
	return &GatewayFactory{
		store:      store,
		decrypter:  decrypter,
		httpClient: httpClient,
		adapters:   adapters,
		metrics:    metrics,
		logger:     logger,
	}
}

// AdapterForOrg returns the adapter for an organization's active gateway.
func (f *GatewayFactory) AdapterForOrg(ctx context.Context, orgID string) (adapter.Adapter, error) {
	ctx, span := factoryTracer.Start(ctx, "GatewayFactory.AdapterForOrg")
	defer span.End()
	span.SetAttributes(attribute.String("organization.id", orgID))

	if a, ok := f.adapters.Get(orgID); ok {
		f.metrics.IncrCacheHit("adapter")
		return a, nil
	}
	f.metrics.IncrCacheMiss("adapter")

	record, err := f.store.FindActiveGateway(ctx, orgID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, domain.NewFactoryError(
				fmt.Sprintf("no active payment gateway configured for organization %s", orgID))
		}
		return nil, err
	}

	a, err := f.CreateAdapterFromGateway(record)
	if err != nil {
		return nil, err
	}

	f.adapters.Set(orgID, a)
	return a, nil
}

// Invalidate drops the cached adapter for an organization, forcing the next
// call to re-read the gateway row. Used after credential rotation.
func (f *GatewayFactory) Invalidate(orgID string) {
	f.adapters.Delete(orgID)
}

// CreateAdapterFromGateway decrypts a gateway row and builds the concrete
// adapter. Decrypted credentials go straight into the adapter and are never
// logged; decryption failures are reported without any key material.
func (f *GatewayFactory) CreateAdapterFromGateway(record *domain.GatewayRecord) (adapter.Adapter, error) {
	if !domain.IsKnownProvider(record.Provider) {
		return nil, domain.NewFactoryError(fmt.Sprintf("unknown provider %q", record.Provider))
	}

	cfg, err := f.decryptConfig(record)
	if err != nil {
		f.logger.Error("gateway credential decryption failed",
			zap.String("gateway_id", record.ID),
			zap.String("provider", record.Provider),
		)
		return nil, domain.NewFactoryError(
			fmt.Sprintf("credential decryption failed for gateway %s", record.ID))
	}

	switch cfg.Provider {
	case domain.ProviderAsaas:
		return adapter.NewAsaas(cfg, f.httpClient, f.logger)
	case domain.ProviderPagBank:
		return adapter.NewPagBank(cfg, f.httpClient, f.logger)
	case domain.ProviderMercadoPago:
		return adapter.NewMercadoPago(cfg, f.httpClient, f.logger)
	case domain.ProviderPagarme:
		return adapter.NewPagarme(cfg, f.httpClient, f.logger)
	case domain.ProviderInter:
		return adapter.NewInter(cfg, f.httpClient, f.logger)
	case domain.ProviderBB:
		return adapter.NewBB(cfg, f.httpClient, f.logger)
	case domain.ProviderItau:
		return adapter.NewItau(cfg, f.httpClient, f.logger)
	case domain.ProviderBradesco:
		return adapter.NewBradesco(cfg, f.httpClient, f.logger)
	case domain.ProviderSantander:
		return adapter.NewSantander(cfg, f.httpClient, f.logger)
	case domain.ProviderCaixa:
		return adapter.NewCaixa(cfg, f.httpClient, f.logger)
	case domain.ProviderSicredi:
		return adapter.NewSicredi(cfg, f.httpClient, f.logger)
	case domain.ProviderSicoob:
		return adapter.NewSicoob(cfg, f.httpClient, f.logger)
	case domain.ProviderSafra:
		return adapter.NewSafra(cfg, f.httpClient, f.logger)
	case domain.ProviderC6Bank:
		return adapter.NewC6Bank(cfg, f.httpClient, f.logger)
	}
	return nil, domain.NewFactoryError(fmt.Sprintf("unknown provider %q", record.Provider))
}

func (f *GatewayFactory) decryptConfig(record *domain.GatewayRecord) (domain.GatewayConfig, error) {
	apiKey, err := f.decrypter.Decrypt(record.APIKeyEncrypted)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	secretKey, err := f.decrypter.Decrypt(record.SecretKeyEncrypted)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	webhookSecret, err := f.decrypter.Decrypt(record.WebhookSecretEncrypted)
	if err != nil {
		return domain.GatewayConfig{}, err
	}

	return domain.GatewayConfig{
		ID:             record.ID,
		OrganizationID: record.OrganizationID,
		Provider:       domain.Provider(record.Provider),
		APIKey:         apiKey,
		SecretKey:      secretKey,
		WebhookSecret:  webhookSecret,
		Certificate:    record.Certificate,
		CertificateKey: record.CertificateKey,
		SandboxMode:    record.SandboxMode,
	}, nil
}

// SupportedProviders returns static display metadata for every provider,
// for UI population. Capabilities mirror what the adapters advertise.
func SupportedProviders() []domain.ProviderInfo {
	psp := func(id domain.Provider, name string, recommended bool, caps domain.ProviderCapabilities) domain.ProviderInfo {
		return domain.ProviderInfo{ID: id, DisplayName: name, Category: "psp", Recommended: recommended, Caps: caps}
	}
	bank := func(id domain.Provider, name string, caps domain.ProviderCapabilities) domain.ProviderInfo {
		return domain.ProviderInfo{ID: id, DisplayName: name, Category: "bank", Caps: caps}
	}
	pixBoleto := domain.ProviderCapabilities{Pix: true, Boleto: true}

	return []domain.ProviderInfo{
		psp(domain.ProviderAsaas, "Asaas", true, domain.ProviderCapabilities{
			Pix: true, Boleto: true, CreditCard: true, Recurring: true,
			Split: true, Transfer: true, Balance: true, Statement: true,
		}),
		psp(domain.ProviderPagBank, "PagBank", false, domain.ProviderCapabilities{
			Pix: true, Boleto: true, CreditCard: true, DebitCard: true, Recurring: true,
		}),
		psp(domain.ProviderMercadoPago, "Mercado Pago", false, domain.ProviderCapabilities{
			Pix: true, Boleto: true, CreditCard: true, DebitCard: true, Recurring: true,
		}),
		psp(domain.ProviderPagarme, "Pagar.me", false, domain.ProviderCapabilities{
			Pix: true, Boleto: true, CreditCard: true, DebitCard: true, Recurring: true, Split: true,
		}),
		bank(domain.ProviderInter, "Banco Inter", domain.ProviderCapabilities{
			Pix: true, Boleto: true, Transfer: true, Balance: true, Statement: true,
		}),
		bank(domain.ProviderBB, "Banco do Brasil", domain.ProviderCapabilities{
			Pix: true, Boleto: true, Statement: true,
		}),
		bank(domain.ProviderItau, "Itaú", pixBoleto),
		bank(domain.ProviderBradesco, "Bradesco", pixBoleto),
		bank(domain.ProviderSantander, "Santander", pixBoleto),
		bank(domain.ProviderCaixa, "Caixa Econômica Federal", pixBoleto),
		bank(domain.ProviderSicredi, "Sicredi", pixBoleto),
		bank(domain.ProviderSicoob, "Sicoob", pixBoleto),
		bank(domain.ProviderSafra, "Banco Safra", pixBoleto),
		bank(domain.ProviderC6Bank, "C6 Bank", pixBoleto),
	}
}
