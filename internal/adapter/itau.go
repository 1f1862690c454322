package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewItau builds the Itaú adapter (PIX cob + boleto via cash management).
func NewItau(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderItau, cfg, bankOptions{
		prodBase:     "https://api.itau.com.br",
		sandboxBase:  "https://sandbox.devportal.itau.com.br",
		prodToken:    "https://sts.itau.com.br/api/oauth/token",
		sandboxToken: "https://sandbox.devportal.itau.com.br/api/oauth/token",
		scopes:       []string{"cob.read", "cob.write", "boletos.read", "boletos.write"},
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/pix_recebimentos/v2/cob",
			boleto: "/cash_management/v2/boletos",
		},
	}, httpClient, logger)
}
