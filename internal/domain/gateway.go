// Package domain holds the normalized value types shared by every payment
// provider adapter: charges, subscriptions, recipients, banking entities,
// webhook events, and gateway configuration.
package domain

// Provider identifies one of the supported PSPs or banks.
type Provider string

// Supported provider identifiers. PSPs expose a richer object model
// (persistent customers, subscriptions, split); banks expose PIX/boleto
// via OAuth2 client-credentials APIs.
const (
	ProviderAsaas       Provider = "asaas"
	ProviderPagBank     Provider = "pagbank"
	ProviderMercadoPago Provider = "mercadopago"
	ProviderPagarme     Provider = "pagarme"
	ProviderInter       Provider = "inter"
	ProviderBB          Provider = "bb"
	ProviderItau        Provider = "itau"
	ProviderBradesco    Provider = "bradesco"
	ProviderSantander   Provider = "santander"
	ProviderCaixa       Provider = "caixa"
	ProviderSicredi     Provider = "sicredi"
	ProviderSicoob      Provider = "sicoob"
	ProviderSafra       Provider = "safra"
	ProviderC6Bank      Provider = "c6bank"
)

// AllProviders lists every known provider identifier.
var AllProviders = []Provider{
	ProviderAsaas, ProviderPagBank, ProviderMercadoPago, ProviderPagarme,
	ProviderInter, ProviderBB, ProviderItau, ProviderBradesco,
	ProviderSantander, ProviderCaixa, ProviderSicredi, ProviderSicoob,
	ProviderSafra, ProviderC6Bank,
}

// IsKnownProvider reports whether s is one of the supported identifiers.
func IsKnownProvider(s string) bool {
	for _, p := range AllProviders {
		if string(p) == s {
			return true
		}
	}
	return false
}

// GatewayRecord is the persisted gateway configuration row for one
// organization. Credential fields are stored encrypted and only decrypted
// by the factory, immediately before adapter construction.
type GatewayRecord struct {
	ID                     string `json:"id"`
	OrganizationID         string `json:"organization_id"`
	Provider               string `json:"provider"`
	APIKeyEncrypted        string `json:"api_key_encrypted"`
	SecretKeyEncrypted     string `json:"secret_key_encrypted,omitempty"`
	WebhookSecretEncrypted string `json:"webhook_secret_encrypted,omitempty"`
	Certificate            string `json:"certificate,omitempty"`
	CertificateKey         string `json:"certificate_key,omitempty"`
	SandboxMode            bool   `json:"sandbox_mode"`
	Active                 bool   `json:"active"`
}

// GatewayConfig is the decrypted credential bundle for one provider.
// It lives only in memory, scoped to the adapter instance built from it.
// APIKey is always present; the remaining fields are provider-dependent.
type GatewayConfig struct {
	ID             string
	OrganizationID string
	Provider       Provider
	APIKey         string
	SecretKey      string
	WebhookSecret  string
	Certificate    string
	CertificateKey string
	SandboxMode    bool
}

// ProviderCapabilities advertises which operations a provider supports.
// An adapter must fail with a structured unsupported-operation error for
// any capability it advertises as false; it never silently no-ops.
type ProviderCapabilities struct {
	Pix        bool `json:"pix"`
	Boleto     bool `json:"boleto"`
	CreditCard bool `json:"credit_card"`
	DebitCard  bool `json:"debit_card"`
	Recurring  bool `json:"recurring"`
	Split      bool `json:"split"`
	Transfer   bool `json:"transfer"`
	Balance    bool `json:"balance"`
	Statement  bool `json:"statement"`
}

// ProviderInfo is static display metadata for UI population.
type ProviderInfo struct {
	ID          Provider             `json:"id"`
	DisplayName string               `json:"display_name"`
	Category    string               `json:"category"` // "psp" or "bank"
	Recommended bool                 `json:"recommended"`
	Caps        ProviderCapabilities `json:"capabilities"`
}
