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

// asaasClient talks to the Asaas v3 REST API. Asaas is the most complete
// provider in the catalog: it covers every operation of the contract, so it
// never returns an unsupported-operation error.
type asaasClient struct {
	cfg    domain.GatewayConfig
	api    *apiClient
	logger *zap.Logger
}

var asaasCaps = domain.ProviderCapabilities{
	Pix:        true,
	Boleto:     true,
	CreditCard: true,
	Recurring:  true,
	Split:      true,
	Transfer:   true,
	Balance:    true,
	Statement:  true,
}

// NewAsaas builds the Asaas adapter. Authentication is a static
// access_token header, no token exchange involved.
func NewAsaas(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	base := "https://api.asaas.com/v3"
	if cfg.SandboxMode {
		base = "https://sandbox.asaas.com/api/v3"
	}
	return &asaasClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderAsaas,
			baseURL:    base,
			httpClient: httpClient,
			auth:       staticHeaderAuth("access_token", cfg.APIKey),
			logger:     logger,
		},
		logger: logger,
	}, nil
}

func (a *asaasClient) Provider() domain.Provider { return domain.ProviderAsaas }

func (a *asaasClient) Capabilities() domain.ProviderCapabilities { return asaasCaps }

// ============================================================
// Wire types
// ============================================================

type asaasCustomer struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	CpfCnpj     string `json:"cpfCnpj"`
	Email       string `json:"email,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	Address     string `json:"address,omitempty"`
	AddressNo   string `json:"addressNumber,omitempty"`
	Province    string `json:"province,omitempty"`
}

type asaasCustomerList struct {
	Data []asaasCustomer `json:"data"`
}

type asaasSplit struct {
	WalletID        string  `json:"walletId"`
	FixedValue      float64 `json:"fixedValue,omitempty"`
	PercentualValue float64 `json:"percentualValue,omitempty"`
}

type asaasCreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

type asaasCardHolderInfo struct {
	Name          string `json:"name"`
	CpfCnpj       string `json:"cpfCnpj"`
	Email         string `json:"email,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type asaasPaymentRequest struct {
	Customer          string               `json:"customer"`
	BillingType       string               `json:"billingType"`
	Value             float64              `json:"value"`
	DueDate           string               `json:"dueDate"`
	Description       string               `json:"description,omitempty"`
	ExternalReference string               `json:"externalReference,omitempty"`
	InstallmentCount  int                  `json:"installmentCount,omitempty"`
	Split             []asaasSplit         `json:"split,omitempty"`
	CreditCard        *asaasCreditCard     `json:"creditCard,omitempty"`
	CardHolderInfo    *asaasCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
}

type asaasPayment struct {
	ID                    string  `json:"id"`
	Status                string  `json:"status"`
	Value                 float64 `json:"value"`
	DueDate               string  `json:"dueDate"`
	ExternalReference     string  `json:"externalReference"`
	PaymentDate           string  `json:"paymentDate"`
	ClientPaymentDate     string  `json:"clientPaymentDate"`
	InvoiceURL            string  `json:"invoiceUrl"`
	BankSlipURL           string  `json:"bankSlipUrl"`
	TransactionReceiptURL string  `json:"transactionReceiptUrl"`
	CreditCard            *struct {
		CreditCardNumber string `json:"creditCardNumber"`
		CreditCardBrand  string `json:"creditCardBrand"`
	} `json:"creditCard"`
}

type asaasPixQRCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

type asaasIdentificationField struct {
	IdentificationField string `json:"identificationField"`
	BarCode             string `json:"barCode"`
}

type asaasSubscription struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	NextDueDate       string  `json:"nextDueDate"`
	Cycle             string  `json:"cycle"`
	ExternalReference string  `json:"externalReference"`
}

// ============================================================
// Customers
// ============================================================

func (a *asaasClient) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error) {
	existing, err := a.FindCustomer(ctx, params.Document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	body := asaasCustomer{
		Name:        params.Name,
		CpfCnpj:     onlyDigits(params.Document),
		Email:       params.Email,
		MobilePhone: onlyDigits(params.Phone),
		PostalCode:  params.PostalCode,
		Address:     params.Street,
		AddressNo:   params.Number,
		Province:    params.City,
	}
	var out asaasCustomer
	if err := a.api.do(ctx, http.MethodPost, "/customers", body, &out); err != nil {
		return nil, err
	}
	return &domain.CustomerResult{
		ExternalID: out.ID,
		Name:       out.Name,
		Document:   out.CpfCnpj,
		Email:      out.Email,
	}, nil
}

func (a *asaasClient) FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error) {
	path := "/customers?cpfCnpj=" + url.QueryEscape(onlyDigits(document))
	var out asaasCustomerList
	if err := a.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	c := out.Data[0]
	return &domain.CustomerResult{
		ExternalID: c.ID,
		Name:       c.Name,
		Document:   c.CpfCnpj,
		Email:      c.Email,
	}, nil
}

// ensureCustomer resolves the Asaas customer id for a charge. CreateCustomer
// already reuses an existing record with the same document.
func (a *asaasClient) ensureCustomer(ctx context.Context, params domain.CustomerParams) (string, error) {
	c, err := a.CreateCustomer(ctx, params)
	if err != nil {
		return "", err
	}
	return c.ExternalID, nil
}

// ============================================================
// Charges
// ============================================================

func asaasBillingType(m domain.PaymentMethod) string {
	switch m {
	case domain.MethodPix:
		return "PIX"
	case domain.MethodBoleto:
		return "BOLETO"
	case domain.MethodCreditCard:
		return "CREDIT_CARD"
	default:
		return "UNDEFINED"
	}
}

func (a *asaasClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if !methodSupported(asaasCaps, req.Method) {
		return nil, domain.NewUnsupportedError(domain.ProviderAsaas, "create_charge",
			fmt.Sprintf("payment method %s is not supported", req.Method))
	}

	customerID, err := a.ensureCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	body := asaasPaymentRequest{
		Customer:          customerID,
		BillingType:       asaasBillingType(req.Method),
		Value:             centsToFloat(req.AmountCents),
		DueDate:           req.DueDate,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		InstallmentCount:  req.Installments,
	}
	for _, s := range req.Split {
		body.Split = append(body.Split, asaasSplit{
			WalletID:        s.RecipientExternalID,
			FixedValue:      centsToFloat(s.AmountCents),
			PercentualValue: s.Percentage,
		})
	}
	if req.Method == domain.MethodCreditCard && req.Card != nil {
		body.CreditCard = &asaasCreditCard{
			HolderName:  req.Card.HolderName,
			Number:      req.Card.Number,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CCV:         req.Card.CVV,
		}
		body.CardHolderInfo = &asaasCardHolderInfo{
			Name:          req.Customer.Name,
			CpfCnpj:       onlyDigits(req.Customer.Document),
			Email:         req.Customer.Email,
			PostalCode:    req.Customer.PostalCode,
			AddressNumber: req.Customer.Number,
			Phone:         onlyDigits(req.Customer.Phone),
		}
	}

	var payment asaasPayment
	if err := a.api.do(ctx, http.MethodPost, "/payments", body, &payment); err != nil {
		return nil, err
	}

	result := &domain.ChargeResult{
		ExternalID:        payment.ID,
		Status:            status.Normalize(string(domain.ProviderAsaas), payment.Status),
		Method:            req.Method,
		AmountCents:       floatToCents(payment.Value),
		DueDate:           payment.DueDate,
		ExternalReference: payment.ExternalReference,
		RawStatus:         payment.Status,
		InvoiceURL:        payment.InvoiceURL,
	}

	switch req.Method {
	case domain.MethodPix:
		a.attachPixArtifacts(ctx, result)
	case domain.MethodBoleto:
		result.Boleto = &domain.BoletoArtifacts{URL: payment.BankSlipURL}
		a.attachBoletoArtifacts(ctx, result)
	case domain.MethodCreditCard:
		card := &domain.CardArtifacts{}
		if payment.CreditCard != nil {
			card.MaskedNumber = payment.CreditCard.CreditCardNumber
			card.Brand = payment.CreditCard.CreditCardBrand
		}
		result.Card = card
	}
	return result, nil
}

// attachPixArtifacts fetches the PIX payload for a created payment. Failure
// here is non-fatal: the charge exists and the payload can be fetched later.
func (a *asaasClient) attachPixArtifacts(ctx context.Context, result *domain.ChargeResult) {
	var qr asaasPixQRCode
	if err := a.api.do(ctx, http.MethodGet, "/payments/"+result.ExternalID+"/pixQrCode", nil, &qr); err != nil {
		a.logger.Warn("pix qrcode fetch failed",
			zap.String("payment_id", result.ExternalID), zap.Error(err))
		return
	}
	pix := &domain.PixArtifacts{
		CopyPaste:    qr.Payload,
		QRCodeBase64: qr.EncodedImage,
	}
	if exp, err := time.ParseInLocation("2006-01-02 15:04:05", qr.ExpirationDate, time.Local); err == nil {
		pix.ExpiresAt = &exp
	}
	result.Pix = pix
}

// attachBoletoArtifacts fetches the digitable line for a boleto payment.
// Also non-fatal, the bankSlipUrl alone is already usable.
func (a *asaasClient) attachBoletoArtifacts(ctx context.Context, result *domain.ChargeResult) {
	var f asaasIdentificationField
	if err := a.api.do(ctx, http.MethodGet, "/payments/"+result.ExternalID+"/identificationField", nil, &f); err != nil {
		a.logger.Warn("boleto identification field fetch failed",
			zap.String("payment_id", result.ExternalID), zap.Error(err))
		return
	}
	result.Boleto.DigitableLine = f.IdentificationField
	result.Boleto.Barcode = f.BarCode
}

func (a *asaasClient) GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error) {
	var payment asaasPayment
	if err := a.api.do(ctx, http.MethodGet, "/payments/"+externalID, nil, &payment); err != nil {
		return nil, err
	}
	cs := &domain.ChargeStatus{
		ExternalID:  payment.ID,
		Status:      status.Normalize(string(domain.ProviderAsaas), payment.Status),
		RawStatus:   payment.Status,
		AmountCents: floatToCents(payment.Value),
	}
	if paid := asaasDate(payment.ClientPaymentDate, payment.PaymentDate); !paid.IsZero() {
		cs.PaidAt = &paid
	}
	return cs, nil
}

func (a *asaasClient) CancelCharge(ctx context.Context, externalID string) error {
	return a.api.do(ctx, http.MethodDelete, "/payments/"+externalID, nil, nil)
}

func (a *asaasClient) RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error) {
	var body any
	if amountCents > 0 {
		body = map[string]float64{"value": centsToFloat(amountCents)}
	}
	var payment asaasPayment
	if err := a.api.do(ctx, http.MethodPost, "/payments/"+externalID+"/refund", body, &payment); err != nil {
		return nil, err
	}
	refunded := amountCents
	if refunded == 0 {
		refunded = floatToCents(payment.Value)
	}
	return &domain.RefundResult{
		ExternalID:  payment.ID,
		Status:      status.Normalize(string(domain.ProviderAsaas), payment.Status),
		AmountCents: refunded,
	}, nil
}

// ============================================================
// Subscriptions
// ============================================================

func asaasCycle(c domain.SubscriptionCycle) string {
	switch c {
	case domain.CycleWeekly:
		return "WEEKLY"
	case domain.CycleBiweekly:
		return "BIWEEKLY"
	case domain.CycleQuarterly:
		return "QUARTERLY"
	case domain.CycleSemiannually:
		return "SEMIANNUALLY"
	case domain.CycleAnnually:
		return "YEARLY"
	default:
		return "MONTHLY"
	}
}

func asaasSubscriptionStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "ACTIVE":
		return domain.SubscriptionActive
	case "EXPIRED":
		return domain.SubscriptionExpired
	case "INACTIVE":
		return domain.SubscriptionInactive
	default:
		return domain.SubscriptionInactive
	}
}

func (a *asaasClient) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	customerID, err := a.ensureCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"customer":    customerID,
		"billingType": asaasBillingType(req.Method),
		"value":       centsToFloat(req.AmountCents),
		"nextDueDate": req.NextDueDate,
		"cycle":       asaasCycle(req.Cycle),
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	if req.ExternalReference != "" {
		body["externalReference"] = req.ExternalReference
	}
	var out asaasSubscription
	if err := a.api.do(ctx, http.MethodPost, "/subscriptions", body, &out); err != nil {
		return nil, err
	}
	return asaasSubscriptionResult(&out), nil
}

func (a *asaasClient) GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error) {
	var out asaasSubscription
	if err := a.api.do(ctx, http.MethodGet, "/subscriptions/"+externalID, nil, &out); err != nil {
		return nil, err
	}
	return asaasSubscriptionResult(&out), nil
}

func (a *asaasClient) CancelSubscription(ctx context.Context, externalID string) error {
	return a.api.do(ctx, http.MethodDelete, "/subscriptions/"+externalID, nil, nil)
}

func asaasSubscriptionResult(s *asaasSubscription) *domain.SubscriptionResult {
	return &domain.SubscriptionResult{
		ExternalID:        s.ID,
		Status:            asaasSubscriptionStatus(s.Status),
		Cycle:             asaasCycleToDomain(s.Cycle),
		AmountCents:       floatToCents(s.Value),
		NextDueDate:       s.NextDueDate,
		ExternalReference: s.ExternalReference,
	}
}

func asaasCycleToDomain(c string) domain.SubscriptionCycle {
	switch c {
	case "WEEKLY":
		return domain.CycleWeekly
	case "BIWEEKLY":
		return domain.CycleBiweekly
	case "QUARTERLY":
		return domain.CycleQuarterly
	case "SEMIANNUALLY":
		return domain.CycleSemiannually
	case "YEARLY":
		return domain.CycleAnnually
	default:
		return domain.CycleMonthly
	}
}

// ============================================================
// Recipients, balance, statement, transfers
// ============================================================

func (a *asaasClient) CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error) {
	body := map[string]any{
		"name":        params.Name,
		"email":       params.Email,
		"cpfCnpj":     onlyDigits(params.Document),
		"companyType": "INDIVIDUAL",
	}
	if documentType(params.Document) == "CNPJ" {
		body["companyType"] = "LIMITED"
	}
	var out struct {
		ID       string `json:"id"`
		WalletID string `json:"walletId"`
	}
	if err := a.api.do(ctx, http.MethodPost, "/accounts", body, &out); err != nil {
		return nil, err
	}
	// Asaas split rules address subaccounts by walletId, not account id.
	return &domain.RecipientResult{
		ExternalID: out.WalletID,
		Status:     domain.RecipientPending,
	}, nil
}

func (a *asaasClient) GetBalance(ctx context.Context) (*domain.BalanceResult, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := a.api.do(ctx, http.MethodGet, "/finance/balance", nil, &out); err != nil {
		return nil, err
	}
	return &domain.BalanceResult{
		AvailableCents: floatToCents(out.Balance),
		Currency:       "BRL",
	}, nil
}

func (a *asaasClient) GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error) {
	path := fmt.Sprintf("/financialTransactions?startDate=%s&finishDate=%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	var out struct {
		Data []struct {
			ID          string  `json:"id"`
			Value       float64 `json:"value"`
			Date        string  `json:"date"`
			Description string  `json:"description"`
			Type        string  `json:"type"`
		} `json:"data"`
	}
	if err := a.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	entries := make([]domain.StatementEntry, 0, len(out.Data))
	for _, tx := range out.Data {
		kind := "credit"
		if tx.Value < 0 {
			kind = "debit"
		}
		entries = append(entries, domain.StatementEntry{
			ExternalID:  tx.ID,
			Date:        asaasDate(tx.Date),
			Description: tx.Description,
			AmountCents: floatToCents(tx.Value),
			Type:        kind,
		})
	}
	return entries, nil
}

func (a *asaasClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	body := map[string]any{"value": centsToFloat(req.AmountCents)}
	if req.PixKey != "" {
		body["operationType"] = "PIX"
		body["pixAddressKey"] = req.PixKey
	} else {
		body["bankAccount"] = map[string]any{
			"bank":            map[string]string{"code": req.BankCode},
			"ownerName":       req.HolderName,
			"cpfCnpj":         onlyDigits(req.HolderDocument),
			"agency":          req.BranchNumber,
			"account":         req.AccountNumber,
			"accountDigit":    req.AccountDigit,
			"bankAccountType": "CONTA_CORRENTE",
		}
	}
	var out struct {
		ID     string  `json:"id"`
		Status string  `json:"status"`
		Value  float64 `json:"value"`
	}
	if err := a.api.do(ctx, http.MethodPost, "/transfers", body, &out); err != nil {
		return nil, err
	}
	return &domain.TransferResult{
		ExternalID:  out.ID,
		Status:      status.Normalize(string(domain.ProviderAsaas), out.Status),
		AmountCents: floatToCents(out.Value),
	}, nil
}

// ============================================================
// Webhooks
// ============================================================

// ValidateWebhook checks the asaas-access-token header Asaas sends with
// every delivery against the configured webhook secret.
func (a *asaasClient) ValidateWebhook(headers http.Header, body []byte) bool {
	return validateSharedToken(headers, "asaas-access-token", a.cfg.WebhookSecret)
}

var asaasEventTypes = map[string]domain.WebhookEventType{
	"PAYMENT_CREATED":              domain.EventChargeCreated,
	"PAYMENT_CONFIRMED":            domain.EventChargeConfirmed,
	"PAYMENT_RECEIVED":             domain.EventChargeConfirmed,
	"PAYMENT_OVERDUE":              domain.EventChargeOverdue,
	"PAYMENT_REFUNDED":             domain.EventChargeRefunded,
	"PAYMENT_DELETED":              domain.EventChargeCancelled,
	"PAYMENT_CHARGEBACK_REQUESTED": domain.EventChargeChargeback,
	"PAYMENT_UPDATED":              domain.EventChargeUpdated,
}

func (a *asaasClient) ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error) {
	var payload struct {
		ID      string       `json:"id"`
		Event   string       `json:"event"`
		Payment asaasPayment `json:"payment"`
	}
	if err := unmarshalWebhook(domain.ProviderAsaas, body, &payload); err != nil {
		return nil, err
	}
	eventType, ok := asaasEventTypes[payload.Event]
	if !ok {
		eventType = domain.EventUnknown
	}
	event := &domain.NormalizedWebhookEvent{
		ID:                webhookEventID(payload.ID),
		Provider:          domain.ProviderAsaas,
		EventType:         eventType,
		ExternalChargeID:  payload.Payment.ID,
		ExternalReference: payload.Payment.ExternalReference,
		AmountCents:       floatToCents(payload.Payment.Value),
		Raw:               body,
	}
	if paid := asaasDate(payload.Payment.ClientPaymentDate, payload.Payment.PaymentDate); !paid.IsZero() {
		event.PaidAt = &paid
	}
	return event, nil
}

// asaasDate parses the first non-empty date in Asaas's YYYY-MM-DD format.
func asaasDate(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.Parse("2006-01-02", c); err == nil {
			return t
		}
	}
	return time.Time{}
}
