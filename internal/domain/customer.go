package domain

// CustomerParams identifies the payer of a charge. Document is CPF or CNPJ
// (digits only or formatted; adapters strip formatting before sending).
type CustomerParams struct {
	Name       string `json:"name"`
	Document   string `json:"document"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

// CustomerResult is a customer record as known by the provider.
// Banks have no persistent customer concept; their adapters return
// an unsupported-operation error from customer calls.
type CustomerResult struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Document   string `json:"document"`
	Email      string `json:"email,omitempty"`
}
