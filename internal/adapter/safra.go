package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewSafra builds the Banco Safra adapter (mutual TLS required).
func NewSafra(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderSafra, cfg, bankOptions{
		prodBase:     "https://api.safra.com.br",
		sandboxBase:  "https://api-sandbox.safra.com.br",
		prodToken:    "https://api.safra.com.br/auth/oauth/v2/token",
		sandboxToken: "https://api-sandbox.safra.com.br/auth/oauth/v2/token",
		scopes:       []string{"cob.read", "cob.write", "cobranca"},
		mtls:         true,
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/pix/v1/cob",
			boleto: "/cobranca/v1/boletos",
		},
	}, httpClient, logger)
}
