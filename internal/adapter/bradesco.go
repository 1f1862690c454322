package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewBradesco builds the Bradesco adapter.
func NewBradesco(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderBradesco, cfg, bankOptions{
		prodBase:     "https://openapi.bradesco.com.br",
		sandboxBase:  "https://proxy.api.prebanco.com.br",
		prodToken:    "https://openapi.bradesco.com.br/auth/server/v1.1/token",
		sandboxToken: "https://proxy.api.prebanco.com.br/auth/server/v1.1/token",
		scopes:       []string{"cob.read", "cob.write", "boleto.registro"},
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/v2/cob",
			boleto: "/boleto/cobranca-registro/v1/boletos",
		},
	}, httpClient, logger)
}
