package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewBB builds the Banco do Brasil adapter. BB separates its OAuth server
// from the API host and exposes a statement API alongside collection.
func NewBB(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderBB, cfg, bankOptions{
		prodBase:     "https://api.bb.com.br",
		sandboxBase:  "https://api.hm.bb.com.br",
		prodToken:    "https://oauth.bb.com.br/oauth/token",
		sandboxToken: "https://oauth.hm.bb.com.br/oauth/token",
		scopes:       []string{"cob.read", "cob.write", "cobrancas.boletos-info", "cobrancas.boletos-requisicao", "extrato-info"},
		caps: domain.ProviderCapabilities{
			Pix:       true,
			Boleto:    true,
			Statement: true,
		},
		ep: bankEndpoints{
			cob:       "/pix/v2/cob",
			boleto:    "/cobrancas/v2/boletos",
			statement: "/extratos/v1/conta",
		},
	}, httpClient, logger)
}
