package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewC6Bank builds the C6 Bank adapter. C6's BaaS platform mandates mutual
// TLS and uses English status names for bank slips, hence the overlay in
// its status table.
func NewC6Bank(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderC6Bank, cfg, bankOptions{
		prodBase:     "https://baas-api.c6bank.info",
		sandboxBase:  "https://baas-api-sandbox.c6bank.info",
		prodToken:    "https://baas-api.c6bank.info/v1/auth/",
		sandboxToken: "https://baas-api-sandbox.c6bank.info/v1/auth/",
		scopes:       []string{"cob.read", "cob.write", "bank_slips"},
		mtls:         true,
		caps: domain.ProviderCapabilities{
			Pix:    true,
			Boleto: true,
		},
		ep: bankEndpoints{
			cob:    "/v2/cob",
			boleto: "/v1/bank_slips",
		},
	}, httpClient, logger)
}
