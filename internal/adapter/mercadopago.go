package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"go.uber.org/zap"
)

// mercadopagoClient talks to the Mercado Pago v1 REST API. Payments carry an
// X-Idempotency-Key derived from the external reference; recurring billing
// goes through the preapproval resource.
type mercadopagoClient struct {
	cfg    domain.GatewayConfig
	api    *apiClient
	logger *zap.Logger
}

var mercadopagoCaps = domain.ProviderCapabilities{
	Pix:        true,
	Boleto:     true,
	CreditCard: true,
	DebitCard:  true,
	Recurring:  true,
}

// NewMercadoPago builds the Mercado Pago adapter. There is no separate
// sandbox host: test credentials select the sandbox environment.
func NewMercadoPago(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	return &mercadopagoClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderMercadoPago,
			baseURL:    "https://api.mercadopago.com",
			httpClient: httpClient,
			auth:       staticBearerAuth(cfg.APIKey),
			logger:     logger,
		},
		logger: logger,
	}, nil
}

func (m *mercadopagoClient) Provider() domain.Provider { return domain.ProviderMercadoPago }

func (m *mercadopagoClient) Capabilities() domain.ProviderCapabilities { return mercadopagoCaps }

// ============================================================
// Wire types
// ============================================================

type mpIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type mpPayer struct {
	Email          string            `json:"email,omitempty"`
	FirstName      string            `json:"first_name,omitempty"`
	LastName       string            `json:"last_name,omitempty"`
	Identification *mpIdentification `json:"identification,omitempty"`
}

type mpPaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description,omitempty"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Installments      int     `json:"installments,omitempty"`
	Token             string  `json:"token,omitempty"`
	ExternalReference string  `json:"external_reference,omitempty"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
	Payer             mpPayer `json:"payer"`
}

type mpPayment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	TransactionAmount float64 `json:"transaction_amount"`
	ExternalReference string  `json:"external_reference"`
	DateApproved      string  `json:"date_approved"`
	AuthorizationCode string  `json:"authorization_code"`
	PointOfInteraction *struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction,omitempty"`
	TransactionDetails *struct {
		ExternalResourceURL string `json:"external_resource_url"`
		DigitableLine       string `json:"digitable_line"`
	} `json:"transaction_details,omitempty"`
	Barcode *struct {
		Content string `json:"content"`
	} `json:"barcode,omitempty"`
	Card *struct {
		FirstSixDigits string `json:"first_six_digits"`
		LastFourDigits string `json:"last_four_digits"`
	} `json:"card,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
}

type mpCustomer struct {
	ID             string            `json:"id,omitempty"`
	Email          string            `json:"email,omitempty"`
	FirstName      string            `json:"first_name,omitempty"`
	LastName       string            `json:"last_name,omitempty"`
	Identification *mpIdentification `json:"identification,omitempty"`
}

type mpPreapproval struct {
	ID                string `json:"id,omitempty"`
	Status            string `json:"status,omitempty"`
	Reason            string `json:"reason,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	PayerEmail        string `json:"payer_email,omitempty"`
	NextPaymentDate   string `json:"next_payment_date,omitempty"`
	AutoRecurring     struct {
		Frequency         int     `json:"frequency"`
		FrequencyType     string  `json:"frequency_type"`
		TransactionAmount float64 `json:"transaction_amount"`
		CurrencyID        string  `json:"currency_id"`
	} `json:"auto_recurring"`
}

// ============================================================
// Customers
// ============================================================

func mpIdentificationFor(document string) *mpIdentification {
	return &mpIdentification{
		Type:   documentType(document),
		Number: onlyDigits(document),
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func (m *mercadopagoClient) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error) {
	existing, err := m.FindCustomer(ctx, params.Document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	first, last := splitName(params.Name)
	body := mpCustomer{
		Email:          params.Email,
		FirstName:      first,
		LastName:       last,
		Identification: mpIdentificationFor(params.Document),
	}
	var out mpCustomer
	if err := m.api.do(ctx, http.MethodPost, "/v1/customers", body, &out); err != nil {
		return nil, err
	}
	return mpCustomerResult(&out), nil
}

func (m *mercadopagoClient) FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error) {
	path := "/v1/customers/search?identification.number=" + url.QueryEscape(onlyDigits(document))
	var out struct {
		Results []mpCustomer `json:"results"`
	}
	if err := m.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	return mpCustomerResult(&out.Results[0]), nil
}

func mpCustomerResult(c *mpCustomer) *domain.CustomerResult {
	result := &domain.CustomerResult{
		ExternalID: c.ID,
		Name:       strings.TrimSpace(c.FirstName + " " + c.LastName),
		Email:      c.Email,
	}
	if c.Identification != nil {
		result.Document = c.Identification.Number
	}
	return result
}

// ============================================================
// Charges
// ============================================================

func (m *mercadopagoClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if !methodSupported(mercadopagoCaps, req.Method) {
		return nil, domain.NewUnsupportedError(domain.ProviderMercadoPago, "create_charge",
			fmt.Sprintf("payment method %s is not supported", req.Method))
	}

	first, last := splitName(req.Customer.Name)
	body := mpPaymentRequest{
		TransactionAmount: centsToFloat(req.AmountCents),
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		Payer: mpPayer{
			Email:          req.Customer.Email,
			FirstName:      first,
			LastName:       last,
			Identification: mpIdentificationFor(req.Customer.Document),
		},
	}
	switch req.Method {
	case domain.MethodPix:
		body.PaymentMethodID = "pix"
		body.DateOfExpiration = mpExpiration(req.DueDate)
	case domain.MethodBoleto:
		body.PaymentMethodID = "bolbradesco"
		body.DateOfExpiration = mpExpiration(req.DueDate)
	case domain.MethodCreditCard, domain.MethodDebitCard:
		if req.Card == nil {
			return nil, domain.NewAdapterError(domain.ProviderMercadoPago,
				fmt.Sprintf("card data is required for %s charges", req.Method))
		}
		token, err := m.tokenizeCard(ctx, req.Card, req.Customer.Document)
		if err != nil {
			return nil, err
		}
		body.Token = token
		if req.Method == domain.MethodDebitCard {
			// Debit settles in a single shot; the deb-prefixed method id
			// selects the debit rail for the tokenized card.
			body.PaymentMethodID = mpDebitMethodID(req.Card.Number)
			body.Installments = 1
		} else {
			body.Installments = maxInt(req.Installments, 1)
		}
	}

	headers := map[string]string{}
	if req.ExternalReference != "" {
		headers["X-Idempotency-Key"] = req.ExternalReference
	}
	var payment mpPayment
	if err := m.api.doWith(ctx, http.MethodPost, "/v1/payments", headers, body, &payment); err != nil {
		return nil, err
	}
	return m.paymentToResult(&payment, req.Method), nil
}

// tokenizeCard exchanges raw card data for a single-use token. Raw card
// numbers never travel on the payment call itself.
func (m *mercadopagoClient) tokenizeCard(ctx context.Context, card *domain.CardData, document string) (string, error) {
	month, _ := strconv.Atoi(card.ExpiryMonth)
	year, _ := strconv.Atoi(card.ExpiryYear)
	if year < 100 {
		year += 2000
	}
	body := map[string]any{
		"card_number":      card.Number,
		"expiration_month": month,
		"expiration_year":  year,
		"security_code":    card.CVV,
		"cardholder": map[string]any{
			"name":           card.HolderName,
			"identification": mpIdentificationFor(document),
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := m.api.do(ctx, http.MethodPost, "/v1/card_tokens", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (m *mercadopagoClient) paymentToResult(p *mpPayment, method domain.PaymentMethod) *domain.ChargeResult {
	result := &domain.ChargeResult{
		ExternalID:        strconv.FormatInt(p.ID, 10),
		Status:            status.Normalize(string(domain.ProviderMercadoPago), p.Status),
		RawStatus:         p.Status,
		Method:            method,
		AmountCents:       floatToCents(p.TransactionAmount),
		ExternalReference: p.ExternalReference,
	}
	switch method {
	case domain.MethodPix:
		pix := &domain.PixArtifacts{}
		if p.PointOfInteraction != nil {
			pix.CopyPaste = p.PointOfInteraction.TransactionData.QRCode
			pix.QRCodeBase64 = p.PointOfInteraction.TransactionData.QRCodeBase64
		}
		result.Pix = pix
	case domain.MethodBoleto:
		boleto := &domain.BoletoArtifacts{}
		if p.TransactionDetails != nil {
			boleto.URL = p.TransactionDetails.ExternalResourceURL
			boleto.DigitableLine = p.TransactionDetails.DigitableLine
		}
		if p.Barcode != nil {
			boleto.Barcode = p.Barcode.Content
		}
		result.Boleto = boleto
	case domain.MethodCreditCard, domain.MethodDebitCard:
		card := &domain.CardArtifacts{AuthorizationCode: p.AuthorizationCode}
		if p.Card != nil && p.Card.LastFourDigits != "" {
			card.MaskedNumber = "**** **** **** " + p.Card.LastFourDigits
		}
		result.Card = card
	}
	return result
}

func (m *mercadopagoClient) GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error) {
	var payment mpPayment
	if err := m.api.do(ctx, http.MethodGet, "/v1/payments/"+externalID, nil, &payment); err != nil {
		return nil, err
	}
	cs := &domain.ChargeStatus{
		ExternalID:  strconv.FormatInt(payment.ID, 10),
		Status:      status.Normalize(string(domain.ProviderMercadoPago), payment.Status),
		RawStatus:   payment.Status,
		AmountCents: floatToCents(payment.TransactionAmount),
	}
	if t, err := time.Parse(time.RFC3339, payment.DateApproved); err == nil {
		cs.PaidAt = &t
	}
	return cs, nil
}

func (m *mercadopagoClient) CancelCharge(ctx context.Context, externalID string) error {
	body := map[string]string{"status": "cancelled"}
	return m.api.do(ctx, http.MethodPut, "/v1/payments/"+externalID, body, nil)
}

func (m *mercadopagoClient) RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error) {
	var body any
	if amountCents > 0 {
		body = map[string]float64{"amount": centsToFloat(amountCents)}
	}
	var out struct {
		ID     int64   `json:"id"`
		Status string  `json:"status"`
		Amount float64 `json:"amount"`
	}
	if err := m.api.do(ctx, http.MethodPost, "/v1/payments/"+externalID+"/refunds", body, &out); err != nil {
		return nil, err
	}
	refunded := amountCents
	if refunded == 0 {
		refunded = floatToCents(out.Amount)
	}
	return &domain.RefundResult{
		ExternalID:  strconv.FormatInt(out.ID, 10),
		Status:      status.Refunded,
		AmountCents: refunded,
	}, nil
}

// ============================================================
// Subscriptions (preapproval)
// ============================================================

func mpFrequencyFor(c domain.SubscriptionCycle) (frequency int, frequencyType string) {
	switch c {
	case domain.CycleWeekly:
		return 7, "days"
	case domain.CycleBiweekly:
		return 14, "days"
	case domain.CycleQuarterly:
		return 3, "months"
	case domain.CycleSemiannually:
		return 6, "months"
	case domain.CycleAnnually:
		return 12, "months"
	default:
		return 1, "months"
	}
}

func mpCycleFor(frequency int, frequencyType string) domain.SubscriptionCycle {
	if frequencyType == "days" {
		switch frequency {
		case 7:
			return domain.CycleWeekly
		case 14:
			return domain.CycleBiweekly
		}
		return domain.CycleMonthly
	}
	switch frequency {
	case 3:
		return domain.CycleQuarterly
	case 6:
		return domain.CycleSemiannually
	case 12:
		return domain.CycleAnnually
	default:
		return domain.CycleMonthly
	}
}

func mpSubscriptionStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "authorized":
		return domain.SubscriptionActive
	case "cancelled":
		return domain.SubscriptionCancelled
	case "paused":
		return domain.SubscriptionInactive
	default:
		return domain.SubscriptionInactive
	}
}

func (m *mercadopagoClient) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	frequency, frequencyType := mpFrequencyFor(req.Cycle)
	body := map[string]any{
		"reason":             req.Description,
		"external_reference": req.ExternalReference,
		"payer_email":        req.Customer.Email,
		"auto_recurring": map[string]any{
			"frequency":          frequency,
			"frequency_type":     frequencyType,
			"transaction_amount": centsToFloat(req.AmountCents),
			"currency_id":        "BRL",
		},
	}
	var out mpPreapproval
	if err := m.api.do(ctx, http.MethodPost, "/preapproval", body, &out); err != nil {
		return nil, err
	}
	return mpSubscriptionResult(&out), nil
}

func (m *mercadopagoClient) GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error) {
	var out mpPreapproval
	if err := m.api.do(ctx, http.MethodGet, "/preapproval/"+externalID, nil, &out); err != nil {
		return nil, err
	}
	return mpSubscriptionResult(&out), nil
}

func (m *mercadopagoClient) CancelSubscription(ctx context.Context, externalID string) error {
	body := map[string]string{"status": "cancelled"}
	return m.api.do(ctx, http.MethodPut, "/preapproval/"+externalID, body, nil)
}

func mpSubscriptionResult(p *mpPreapproval) *domain.SubscriptionResult {
	result := &domain.SubscriptionResult{
		ExternalID:        p.ID,
		Status:            mpSubscriptionStatus(p.Status),
		Cycle:             mpCycleFor(p.AutoRecurring.Frequency, p.AutoRecurring.FrequencyType),
		AmountCents:       floatToCents(p.AutoRecurring.TransactionAmount),
		ExternalReference: p.ExternalReference,
	}
	if t, err := time.Parse(time.RFC3339, p.NextPaymentDate); err == nil {
		result.NextDueDate = t.Format("2006-01-02")
	}
	return result
}

// ============================================================
// Unsupported surface
// ============================================================

func (m *mercadopagoClient) CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderMercadoPago, "create_recipient",
		"marketplace split requires a mercado pago oauth application, not api-key credentials")
}

func (m *mercadopagoClient) GetBalance(ctx context.Context) (*domain.BalanceResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderMercadoPago, "get_balance",
		"account balance is not exposed by the payments api")
}

func (m *mercadopagoClient) GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderMercadoPago, "get_statement",
		"account statement is not exposed by the payments api")
}

func (m *mercadopagoClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderMercadoPago, "create_transfer",
		"payouts are not exposed by the payments api")
}

// ============================================================
// Webhooks
// ============================================================

// ValidateWebhook verifies the x-signature header: "ts=<ts>,v1=<hmac>",
// where the HMAC-SHA256 manifest is "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
// Alphanumeric data ids are lowercased before signing, per the provider.
func (m *mercadopagoClient) ValidateWebhook(headers http.Header, body []byte) bool {
	if m.cfg.WebhookSecret == "" {
		return false
	}
	ts, v1 := mpParseSignature(headers.Get("x-signature"))
	if ts == "" || v1 == "" {
		return false
	}
	dataID := strings.ToLower(mpDataID(body))
	var parts []string
	if dataID != "" {
		parts = append(parts, "id:"+dataID)
	}
	if requestID := headers.Get("x-request-id"); requestID != "" {
		parts = append(parts, "request-id:"+requestID)
	}
	parts = append(parts, "ts:"+ts)
	manifest := strings.Join(parts, ";") + ";"
	return secureCompare(v1, hmacSHA256Hex(m.cfg.WebhookSecret, []byte(manifest)))
}

func mpParseSignature(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	return ts, v1
}

// mpDataID extracts data.id from the notification body. The id may be a
// JSON number or a string depending on the topic.
func mpDataID(body []byte) string {
	var payload struct {
		Data struct {
			ID json.RawMessage `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var asString string
	if err := json.Unmarshal(payload.Data.ID, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(payload.Data.ID, &asNumber); err == nil {
		return asNumber.String()
	}
	return ""
}

func (m *mercadopagoClient) ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error) {
	var payload struct {
		ID     json.Number `json:"id"`
		Type   string      `json:"type"`
		Action string      `json:"action"`
	}
	if err := unmarshalWebhook(domain.ProviderMercadoPago, body, &payload); err != nil {
		return nil, err
	}
	eventType := domain.EventUnknown
	switch payload.Action {
	case "payment.created":
		eventType = domain.EventChargeCreated
	case "payment.updated":
		eventType = domain.EventChargeUpdated
	default:
		if payload.Type == "subscription_preapproval" {
			eventType = domain.EventSubscriptionUpdate
		}
	}
	// Notifications are thin references: callers fetch the payment for the
	// settled amount and status.
	return &domain.NormalizedWebhookEvent{
		ID:               webhookEventID(payload.ID.String()),
		Provider:         domain.ProviderMercadoPago,
		EventType:        eventType,
		ExternalChargeID: mpDataID(body),
		Raw:              body,
	}, nil
}

// mpDebitMethodID picks the debit payment method identifier from the card
// BIN. Visa and Mastercard cover the issued debit brands; everything else
// falls back to Elo, the remaining domestic debit network.
func mpDebitMethodID(cardNumber string) string {
	digits := onlyDigits(cardNumber)
	switch {
	case strings.HasPrefix(digits, "4"):
		return "debvisa"
	case strings.HasPrefix(digits, "5"):
		return "debmaster"
	default:
		return "debelo"
	}
}

// mpExpiration renders a due date as the provider's RFC3339-with-millis
// expiration timestamp at end of day.
func mpExpiration(dueDate string) string {
	due, err := time.ParseInLocation("2006-01-02", dueDate, time.Local)
	if err != nil {
		return ""
	}
	return time.Date(due.Year(), due.Month(), due.Day(), 23, 59, 59, 0, time.Local).
		Format("2006-01-02T15:04:05.000-07:00")
}
