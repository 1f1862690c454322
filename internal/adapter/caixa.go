package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewCaixa builds the Caixa Econômica Federal adapter.
func NewCaixa(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderCaixa, cfg, bankOptions{
		prodBase:     "https://api.caixa.gov.br",
		sandboxBase:  "https://api.caixa.gov.br/sandbox",
		prodToken:    "https://login.caixa.gov.br/auth/realms/internet/protocol/openid-connect/token",
		sandboxToken: "https://login.caixa.gov.br/auth/realms/internet-sandbox/protocol/openid-connect/token",
		scopes:       []string{"cob.read", "cob.write", "cobranca"},
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/pix/api/v2/cob",
			boleto: "/cobranca/v2/boletos",
		},
	}, httpClient, logger)
}
