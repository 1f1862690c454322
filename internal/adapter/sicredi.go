package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewSicredi builds the Sicredi cooperative adapter.
func NewSicredi(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderSicredi, cfg, bankOptions{
		prodBase:     "https://api-pix.sicredi.com.br",
		sandboxBase:  "https://api-pix-h.sicredi.com.br",
		prodToken:    "https://api-pix.sicredi.com.br/oauth/token",
		sandboxToken: "https://api-pix-h.sicredi.com.br/oauth/token",
		scopes:       []string{"cob.read", "cob.write"},
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/api/v2/cob",
			boleto: "/cobranca/boleto/v1/boletos",
		},
	}, httpClient, logger)
}
