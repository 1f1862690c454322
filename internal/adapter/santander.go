package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewSantander builds the Santander adapter. Santander requires mutual TLS
// on both the token endpoint and the collection APIs.
func NewSantander(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderSantander, cfg, bankOptions{
		prodBase:     "https://trust-open.api.santander.com.br",
		sandboxBase:  "https://trust-open-h.api.santander.com.br",
		prodToken:    "https://trust-open.api.santander.com.br/auth/oauth/v2/token",
		sandboxToken: "https://trust-open-h.api.santander.com.br/auth/oauth/v2/token",
		scopes:       []string{"cob.read", "cob.write", "collection_bill_management"},
		mtls:         true,
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/api/v1/cob",
			boleto: "/collection_bill_management/v2/bills",
		},
	}, httpClient, logger)
}
