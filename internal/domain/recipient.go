package domain

// RecipientStatus is the normalized state of a split payout target.
type RecipientStatus string

const (
	RecipientActive   RecipientStatus = "active"
	RecipientPending  RecipientStatus = "pending"
	RecipientInactive RecipientStatus = "inactive"
)

// RecipientParams registers a payout destination for split rules.
type RecipientParams struct {
	Name          string `json:"name"`
	Document      string `json:"document"`
	Email         string `json:"email,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	BranchNumber  string `json:"branch_number,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountDigit  string `json:"account_digit,omitempty"`
	AccountType   string `json:"account_type,omitempty"` // checking | savings
	PixKey        string `json:"pix_key,omitempty"`
}

// RecipientResult is the registered payout destination.
type RecipientResult struct {
	ExternalID string          `json:"external_id"`
	Status     RecipientStatus `json:"status"`
}
