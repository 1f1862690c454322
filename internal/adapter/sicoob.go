package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewSicoob builds the Sicoob cooperative adapter. Sicoob runs its OAuth
// server on a separate Keycloak realm.
func NewSicoob(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderSicoob, cfg, bankOptions{
		prodBase:     "https://api.sicoob.com.br",
		sandboxBase:  "https://sandbox.sicoob.com.br",
		prodToken:    "https://auth.sicoob.com.br/auth/realms/cooperado/protocol/openid-connect/token",
		sandboxToken: "https://sandbox.sicoob.com.br/auth/realms/cooperado/protocol/openid-connect/token",
		scopes:       []string{"cob.read", "cob.write", "boletos_consulta", "boletos_inclusao"},
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/pix/api/v2/cob",
			boleto: "/cobranca-bancaria/v3/boletos",
		},
	}, httpClient, logger)
}
