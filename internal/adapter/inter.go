package adapter

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// NewInter builds the Banco Inter adapter. Inter is the most complete of the
// bank integrations: besides PIX cob and boleto collection it exposes the
// banking APIs (balance, statement, PIX payouts). All calls require mutual
// TLS with the certificate issued in the Inter developer portal.
func NewInter(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return newBankClient(domain.ProviderInter, cfg, bankOptions{
		prodBase:     "https://cdpj.partners.bancointer.com.br",
		sandboxBase:  "https://cdpj-sandbox.partners.uatinter.co",
		prodToken:    "https://cdpj.partners.bancointer.com.br/oauth/v2/token",
		sandboxToken: "https://cdpj-sandbox.partners.uatinter.co/oauth/v2/token",
		scopes: []string{
			"cob.read", "cob.write",
			"boleto-cobranca.read", "boleto-cobranca.write",
			"extrato.read", "pagamento-pix.write",
		},
		mtls: true,
		caps: domain.ProviderCapabilities{
			Pix:       true,
			Boleto:    true,
			Transfer:  true,
			Balance:   true,
			Statement: true,
		},
		ep: bankEndpoints{
			cob:       "/pix/v2/cob",
			boleto:    "/cobranca/v3/cobrancas",
			balance:   "/banking/v2/saldo",
			statement: "/banking/v2/extrato",
			transfer:  "/banking/v2/pix",
		},
	}, httpClient, logger)
}
