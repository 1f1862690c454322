package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"go.uber.org/zap"
)

// pagarmeClient talks to the Pagar.me core v5 API. Amounts are already in
// centavos on the wire, so no decimal conversion happens here. Orders wrap
// charges; cancel and refund operate on the charge resource.
type pagarmeClient struct {
	cfg    domain.GatewayConfig
	api    *apiClient
	logger *zap.Logger
}

var pagarmeCaps = domain.ProviderCapabilities{
	Pix:        true,
	Boleto:     true,
	CreditCard: true,
	DebitCard:  true,
	Recurring:  true,
	Split:      true,
}

// NewPagarme builds the Pagar.me adapter. Authentication is HTTP basic with
// the secret key as user and an empty password.
func NewPagarme(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return &pagarmeClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderPagarme,
			baseURL:    "https://api.pagar.me/core/v5",
			httpClient: httpClient,
			auth:       basicAuth(cfg.APIKey, ""),
			logger:     logger,
		},
		logger: logger,
	}, nil
}

func (p *pagarmeClient) Provider() domain.Provider { return domain.ProviderPagarme }

func (p *pagarmeClient) Capabilities() domain.ProviderCapabilities { return pagarmeCaps }

// ============================================================
// Wire types
// ============================================================

type pagarmeCustomer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Document string `json:"document"`
	Type     string `json:"type"` // individual | company
}

type pagarmeCard struct {
	Number     string `json:"number,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
	ExpMonth   string `json:"exp_month,omitempty"`
	ExpYear    string `json:"exp_year,omitempty"`
	CVV        string `json:"cvv,omitempty"`
}

type pagarmeSplit struct {
	Amount      float64 `json:"amount"`
	RecipientID string  `json:"recipient_id"`
	Type        string  `json:"type"` // flat | percentage
	Options     struct {
		ChargeProcessingFee bool `json:"charge_processing_fee"`
		Liable              bool `json:"liable"`
	} `json:"options"`
}

type pagarmePayment struct {
	PaymentMethod string `json:"payment_method"`
	Pix           *struct {
		ExpiresIn int64 `json:"expires_in"`
	} `json:"pix,omitempty"`
	Boleto *struct {
		DueAt        string `json:"due_at"`
		Instructions string `json:"instructions,omitempty"`
	} `json:"boleto,omitempty"`
	CreditCard *struct {
		Installments int         `json:"installments"`
		Card         pagarmeCard `json:"card"`
	} `json:"credit_card,omitempty"`
	DebitCard *struct {
		Card pagarmeCard `json:"card"`
	} `json:"debit_card,omitempty"`
	Split []pagarmeSplit `json:"split,omitempty"`
}

type pagarmeLastTransaction struct {
	QRCode           string `json:"qr_code"`
	QRCodeURL        string `json:"qr_code_url"`
	ExpiresAt        string `json:"expires_at"`
	Line             string `json:"line"`
	PDF              string `json:"pdf"`
	URL              string `json:"url"`
	Barcode          string `json:"barcode"`
	AcquirerAuthCode string `json:"acquirer_auth_code"`
	Card             *struct {
		FirstSixDigits string `json:"first_six_digits"`
		LastFourDigits string `json:"last_four_digits"`
		Brand          string `json:"brand"`
	} `json:"card,omitempty"`
}

type pagarmeCharge struct {
	ID              string                  `json:"id"`
	Code            string                  `json:"code"`
	Status          string                  `json:"status"`
	Amount          int64                   `json:"amount"`
	PaidAt          string                  `json:"paid_at"`
	LastTransaction *pagarmeLastTransaction `json:"last_transaction,omitempty"`
}

type pagarmeOrder struct {
	ID      string          `json:"id"`
	Code    string          `json:"code"`
	Status  string          `json:"status"`
	Charges []pagarmeCharge `json:"charges"`
}

// ============================================================
// Customers
// ============================================================

func pagarmeCustomerType(document string) string {
	if documentType(document) == "CNPJ" {
		return "company"
	}
	return "individual"
}

func (p *pagarmeClient) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error) {
	existing, err := p.FindCustomer(ctx, params.Document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	body := pagarmeCustomer{
		Name:     params.Name,
		Email:    params.Email,
		Document: onlyDigits(params.Document),
		Type:     pagarmeCustomerType(params.Document),
	}
	var out pagarmeCustomer
	if err := p.api.do(ctx, http.MethodPost, "/customers", body, &out); err != nil {
		return nil, err
	}
	return pagarmeCustomerResult(&out), nil
}

func (p *pagarmeClient) FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error) {
	path := "/customers?document=" + url.QueryEscape(onlyDigits(document))
	var out struct {
		Data []pagarmeCustomer `json:"data"`
	}
	if err := p.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return pagarmeCustomerResult(&out.Data[0]), nil
}

func pagarmeCustomerResult(c *pagarmeCustomer) *domain.CustomerResult {
	return &domain.CustomerResult{
		ExternalID: c.ID,
		Name:       c.Name,
		Document:   c.Document,
		Email:      c.Email,
	}
}

// ============================================================
// Charges
// ============================================================

func (p *pagarmeClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if !methodSupported(pagarmeCaps, req.Method) {
		return nil, domain.NewUnsupportedError(domain.ProviderPagarme, "create_charge",
			fmt.Sprintf("payment method %s is not supported", req.Method))
	}

	payment := pagarmePayment{}
	switch req.Method {
	case domain.MethodPix:
		payment.PaymentMethod = "pix"
		payment.Pix = &struct {
			ExpiresIn int64 `json:"expires_in"`
		}{ExpiresIn: pixExpirationSeconds(req.DueDate)}
	case domain.MethodBoleto:
		payment.PaymentMethod = "boleto"
		payment.Boleto = &struct {
			DueAt        string `json:"due_at"`
			Instructions string `json:"instructions,omitempty"`
		}{DueAt: req.DueDate + "T23:59:59Z", Instructions: req.Description}
	case domain.MethodCreditCard, domain.MethodDebitCard:
		if req.Card == nil {
			return nil, domain.NewAdapterError(domain.ProviderPagarme,
				fmt.Sprintf("card data is required for %s charges", req.Method))
		}
		card := pagarmeCard{
			Number:     req.Card.Number,
			HolderName: req.Card.HolderName,
			ExpMonth:   req.Card.ExpiryMonth,
			ExpYear:    req.Card.ExpiryYear,
			CVV:        req.Card.CVV,
		}
		if req.Method == domain.MethodDebitCard {
			payment.PaymentMethod = "debit_card"
			payment.DebitCard = &struct {
				Card pagarmeCard `json:"card"`
			}{Card: card}
		} else {
			payment.PaymentMethod = "credit_card"
			payment.CreditCard = &struct {
				Installments int         `json:"installments"`
				Card         pagarmeCard `json:"card"`
			}{
				Installments: maxInt(req.Installments, 1),
				Card:         card,
			}
		}
	}
	for _, s := range req.Split {
		rule := pagarmeSplit{RecipientID: s.RecipientExternalID}
		if s.Percentage > 0 {
			rule.Type = "percentage"
			rule.Amount = s.Percentage
		} else {
			rule.Type = "flat"
			rule.Amount = float64(s.AmountCents)
		}
		rule.Options.ChargeProcessingFee = s.ChargeProcessingFee
		payment.Split = append(payment.Split, rule)
	}

	order := map[string]any{
		"code":   req.ExternalReference,
		"closed": true,
		"customer": pagarmeCustomer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Document: onlyDigits(req.Customer.Document),
			Type:     pagarmeCustomerType(req.Customer.Document),
		},
		"items": []map[string]any{{
			"amount":      req.AmountCents,
			"description": nonEmpty(req.Description, "charge"),
			"quantity":    1,
			"code":        req.ExternalReference,
		}},
		"payments": []pagarmePayment{payment},
	}

	var created pagarmeOrder
	if err := p.api.do(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	if len(created.Charges) == 0 {
		return nil, domain.NewAdapterError(domain.ProviderPagarme, "order created without a charge")
	}
	return p.chargeToResult(&created.Charges[0], req.Method, created.Code), nil
}

func (p *pagarmeClient) chargeToResult(c *pagarmeCharge, method domain.PaymentMethod, code string) *domain.ChargeResult {
	result := &domain.ChargeResult{
		ExternalID:        c.ID,
		Status:            status.Normalize(string(domain.ProviderPagarme), c.Status),
		RawStatus:         c.Status,
		Method:            method,
		AmountCents:       c.Amount,
		ExternalReference: nonEmpty(code, c.Code),
	}
	tx := c.LastTransaction
	if tx == nil {
		return result
	}
	switch method {
	case domain.MethodPix:
		pix := &domain.PixArtifacts{
			CopyPaste:    tx.QRCode,
			QRCodeBase64: tx.QRCodeURL,
		}
		if exp, err := time.Parse(time.RFC3339, tx.ExpiresAt); err == nil {
			pix.ExpiresAt = &exp
		}
		result.Pix = pix
	case domain.MethodBoleto:
		result.Boleto = &domain.BoletoArtifacts{
			Barcode:       tx.Barcode,
			DigitableLine: tx.Line,
			URL:           nonEmpty(tx.PDF, tx.URL),
		}
	case domain.MethodCreditCard, domain.MethodDebitCard:
		card := &domain.CardArtifacts{AuthorizationCode: tx.AcquirerAuthCode}
		if tx.Card != nil {
			card.Brand = tx.Card.Brand
			if tx.Card.LastFourDigits != "" {
				card.MaskedNumber = "**** **** **** " + tx.Card.LastFourDigits
			}
		}
		result.Card = card
	}
	return result
}

func (p *pagarmeClient) GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error) {
	var charge pagarmeCharge
	if err := p.api.do(ctx, http.MethodGet, "/charges/"+externalID, nil, &charge); err != nil {
		return nil, err
	}
	cs := &domain.ChargeStatus{
		ExternalID:  charge.ID,
		Status:      status.Normalize(string(domain.ProviderPagarme), charge.Status),
		RawStatus:   charge.Status,
		AmountCents: charge.Amount,
	}
	if t, err := time.Parse(time.RFC3339, charge.PaidAt); err == nil {
		cs.PaidAt = &t
	}
	return cs, nil
}

// CancelCharge and RefundCharge share DELETE /charges/{id}: Pagar.me
// refunds a settled charge and voids a pending one through the same call.
func (p *pagarmeClient) CancelCharge(ctx context.Context, externalID string) error {
	return p.api.do(ctx, http.MethodDelete, "/charges/"+externalID, nil, nil)
}

func (p *pagarmeClient) RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error) {
	var body any
	if amountCents > 0 {
		body = map[string]int64{"amount": amountCents}
	}
	var out pagarmeCharge
	if err := p.api.do(ctx, http.MethodDelete, "/charges/"+externalID, body, &out); err != nil {
		return nil, err
	}
	refunded := amountCents
	if refunded == 0 {
		refunded = out.Amount
	}
	return &domain.RefundResult{
		ExternalID:  out.ID,
		Status:      status.Normalize(string(domain.ProviderPagarme), out.Status),
		AmountCents: refunded,
	}, nil
}

// ============================================================
// Subscriptions
// ============================================================

func pagarmeIntervalFor(c domain.SubscriptionCycle) (interval string, count int) {
	switch c {
	case domain.CycleWeekly:
		return "week", 1
	case domain.CycleBiweekly:
		return "week", 2
	case domain.CycleQuarterly:
		return "month", 3
	case domain.CycleSemiannually:
		return "month", 6
	case domain.CycleAnnually:
		return "year", 1
	default:
		return "month", 1
	}
}

func pagarmeCycleFor(interval string, count int) domain.SubscriptionCycle {
	switch interval {
	case "week":
		if count >= 2 {
			return domain.CycleBiweekly
		}
		return domain.CycleWeekly
	case "year":
		return domain.CycleAnnually
	default:
		switch count {
		case 3:
			return domain.CycleQuarterly
		case 6:
			return domain.CycleSemiannually
		default:
			return domain.CycleMonthly
		}
	}
}

func pagarmeSubscriptionStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "active", "future":
		return domain.SubscriptionActive
	case "canceled", "cancelled":
		return domain.SubscriptionCancelled
	case "expired":
		return domain.SubscriptionExpired
	default:
		return domain.SubscriptionInactive
	}
}

type pagarmeSubscription struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Status        string `json:"status"`
	Interval      string `json:"interval"`
	IntervalCount int    `json:"interval_count"`
	NextBillingAt string `json:"next_billing_at"`
	PricingScheme struct {
		Price int64 `json:"price"`
	} `json:"pricing_scheme"`
}

func (p *pagarmeClient) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	interval, count := pagarmeIntervalFor(req.Cycle)
	body := map[string]any{
		"code":           req.ExternalReference,
		"billing_type":   "prepaid",
		"interval":       interval,
		"interval_count": count,
		"quantity":       1,
		"pricing_scheme": map[string]int64{"price": req.AmountCents},
		"description":    req.Description,
		"start_at":       req.NextDueDate + "T00:00:00Z",
		"customer": pagarmeCustomer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Document: onlyDigits(req.Customer.Document),
			Type:     pagarmeCustomerType(req.Customer.Document),
		},
	}
	if req.Method == domain.MethodCreditCard && req.Card != nil {
		body["payment_method"] = "credit_card"
		body["card"] = pagarmeCard{
			Number:     req.Card.Number,
			HolderName: req.Card.HolderName,
			ExpMonth:   req.Card.ExpiryMonth,
			ExpYear:    req.Card.ExpiryYear,
			CVV:        req.Card.CVV,
		}
	} else {
		body["payment_method"] = "boleto"
	}
	var out pagarmeSubscription
	if err := p.api.do(ctx, http.MethodPost, "/subscriptions", body, &out); err != nil {
		return nil, err
	}
	return pagarmeSubscriptionResult(&out), nil
}

func (p *pagarmeClient) GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error) {
	var out pagarmeSubscription
	if err := p.api.do(ctx, http.MethodGet, "/subscriptions/"+externalID, nil, &out); err != nil {
		return nil, err
	}
	return pagarmeSubscriptionResult(&out), nil
}

func (p *pagarmeClient) CancelSubscription(ctx context.Context, externalID string) error {
	return p.api.do(ctx, http.MethodDelete, "/subscriptions/"+externalID, nil, nil)
}

func pagarmeSubscriptionResult(s *pagarmeSubscription) *domain.SubscriptionResult {
	result := &domain.SubscriptionResult{
		ExternalID:        s.ID,
		Status:            pagarmeSubscriptionStatus(s.Status),
		Cycle:             pagarmeCycleFor(s.Interval, s.IntervalCount),
		AmountCents:       s.PricingScheme.Price,
		ExternalReference: s.Code,
	}
	if t, err := time.Parse(time.RFC3339, s.NextBillingAt); err == nil {
		result.NextDueDate = t.Format("2006-01-02")
	}
	return result
}

// ============================================================
// Recipients
// ============================================================

func pagarmeRecipientStatus(s string) domain.RecipientStatus {
	switch s {
	case "active":
		return domain.RecipientActive
	case "inactive", "suspended", "blocked":
		return domain.RecipientInactive
	default:
		return domain.RecipientPending
	}
}

func (p *pagarmeClient) CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error) {
	holderType := "individual"
	if documentType(params.Document) == "CNPJ" {
		holderType = "company"
	}
	accountType := "checking"
	if params.AccountType == "savings" {
		accountType = "savings"
	}
	body := map[string]any{
		"name":     params.Name,
		"email":    params.Email,
		"document": onlyDigits(params.Document),
		"type":     holderType,
		"default_bank_account": map[string]any{
			"holder_name":         params.Name,
			"holder_type":         holderType,
			"holder_document":     onlyDigits(params.Document),
			"bank":                params.BankCode,
			"branch_number":       params.BranchNumber,
			"account_number":      params.AccountNumber,
			"account_check_digit": params.AccountDigit,
			"type":                accountType,
		},
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := p.api.do(ctx, http.MethodPost, "/recipients", body, &out); err != nil {
		return nil, err
	}
	return &domain.RecipientResult{
		ExternalID: out.ID,
		Status:     pagarmeRecipientStatus(out.Status),
	}, nil
}

// ============================================================
// Unsupported surface
// ============================================================

func (p *pagarmeClient) GetBalance(ctx context.Context) (*domain.BalanceResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagarme, "get_balance",
		"balance is scoped to a recipient id, which gateway credentials do not carry")
}

func (p *pagarmeClient) GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagarme, "get_statement",
		"statement is scoped to a recipient id, which gateway credentials do not carry")
}

func (p *pagarmeClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagarme, "create_transfer",
		"payouts are scoped to a recipient id, which gateway credentials do not carry")
}

// ============================================================
// Webhooks
// ============================================================

// ValidateWebhook checks the x-hub-signature header, an HMAC-SHA256 of the
// raw body under the endpoint secret.
func (p *pagarmeClient) ValidateWebhook(headers http.Header, body []byte) bool {
	return validateBodySignature(headers, "x-hub-signature", p.cfg.WebhookSecret, body)
}

var pagarmeEventTypes = map[string]domain.WebhookEventType{
	"order.paid":            domain.EventChargeConfirmed,
	"charge.paid":           domain.EventChargeConfirmed,
	"order.payment_failed":  domain.EventChargeUpdated,
	"charge.payment_failed": domain.EventChargeUpdated,
	"charge.refunded":       domain.EventChargeRefunded,
	"order.canceled":        domain.EventChargeCancelled,
	"charge.chargedback":    domain.EventChargeChargeback,
	"order.created":         domain.EventChargeCreated,
	"subscription.created":  domain.EventSubscriptionUpdate,
	"subscription.canceled": domain.EventSubscriptionUpdate,
}

func (p *pagarmeClient) ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error) {
	var payload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			ID     string `json:"id"`
			Code   string `json:"code"`
			Amount int64  `json:"amount"`
			Status string `json:"status"`
			PaidAt string `json:"paid_at"`
		} `json:"data"`
	}
	if err := unmarshalWebhook(domain.ProviderPagarme, body, &payload); err != nil {
		return nil, err
	}
	eventType, ok := pagarmeEventTypes[payload.Type]
	if !ok {
		eventType = eventForStatus(status.Normalize(string(domain.ProviderPagarme), payload.Data.Status))
	}
	event := &domain.NormalizedWebhookEvent{
		ID:                webhookEventID(payload.ID),
		Provider:          domain.ProviderPagarme,
		EventType:         eventType,
		ExternalChargeID:  payload.Data.ID,
		ExternalReference: payload.Data.Code,
		AmountCents:       payload.Data.Amount,
		Raw:               body,
	}
	if t, err := time.Parse(time.RFC3339, payload.Data.PaidAt); err == nil {
		event.PaidAt = &t
	}
	return event, nil
}

func nonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
