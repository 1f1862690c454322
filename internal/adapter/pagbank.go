package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"go.uber.org/zap"
)

// pagbankClient talks to the PagBank (PagSeguro) Orders API. PagBank has no
// standalone customer registry: buyer data travels inline on each order, so
// the customer operations report unsupported. Subscriptions live on a
// separate host with their own plan/subscription model.
type pagbankClient struct {
	cfg    domain.GatewayConfig
	api    *apiClient
	subAPI *apiClient
	logger *zap.Logger
}

var pagbankCaps = domain.ProviderCapabilities{
	Pix:        true,
	Boleto:     true,
	CreditCard: true,
	DebitCard:  true,
	Recurring:  true,
}

// NewPagBank builds the PagBank adapter. Authentication is a static Bearer
// token on both the orders and the subscriptions host.
func NewPagBank(cfg domain.GatewayConfig, httpClient *http.Client, logger *zap.Logger) (Adapter, error) {
	base := "https://api.pagseguro.com"
	subBase := "https://api.assinaturas.pagseguro.com"
	if cfg.SandboxMode {
		base = "https://sandbox.api.pagseguro.com"
		subBase = "https://sandbox.api.assinaturas.pagseguro.com"
	}
	auth := staticBearerAuth(cfg.APIKey)
	return &pagbankClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderPagBank,
			baseURL:    base,
			httpClient: httpClient,
			auth:       auth,
			logger:     logger,
		},
		subAPI: &apiClient{
			provider:   domain.ProviderPagBank,
			baseURL:    subBase,
			httpClient: httpClient,
			auth:       auth,
			logger:     logger,
		},
		logger: logger,
	}, nil
}

func (p *pagbankClient) Provider() domain.Provider { return domain.ProviderPagBank }

func (p *pagbankClient) Capabilities() domain.ProviderCapabilities { return pagbankCaps }

// ============================================================
// Wire types
// ============================================================

type pagbankAmount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency,omitempty"`
}

type pagbankCustomer struct {
	Name   string         `json:"name"`
	Email  string         `json:"email,omitempty"`
	TaxID  string         `json:"tax_id"`
	Phones []pagbankPhone `json:"phones,omitempty"`
}

type pagbankPhone struct {
	Country string `json:"country"`
	Area    string `json:"area"`
	Number  string `json:"number"`
	Type    string `json:"type"`
}

type pagbankQRCode struct {
	ID             string        `json:"id,omitempty"`
	Amount         pagbankAmount `json:"amount"`
	ExpirationDate string        `json:"expiration_date,omitempty"`
	Text           string        `json:"text,omitempty"`
	Links          []pagbankLink `json:"links,omitempty"`
}

type pagbankLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type pagbankHolder struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
}

type pagbankCard struct {
	Number       string         `json:"number,omitempty"`
	ExpMonth     string         `json:"exp_month,omitempty"`
	ExpYear      string         `json:"exp_year,omitempty"`
	SecurityCode string         `json:"security_code,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	FirstDigits  string         `json:"first_digits,omitempty"`
	LastDigits   string         `json:"last_digits,omitempty"`
	Holder       *pagbankHolder `json:"holder,omitempty"`
}

type pagbankBoleto struct {
	DueDate          string         `json:"due_date,omitempty"`
	Barcode          string         `json:"barcode,omitempty"`
	FormattedBarcode string         `json:"formatted_barcode,omitempty"`
	Holder           *pagbankHolder `json:"holder,omitempty"`
}

type pagbankPaymentMethod struct {
	Type         string         `json:"type,omitempty"`
	Installments int            `json:"installments,omitempty"`
	Capture      *bool          `json:"capture,omitempty"`
	Card         *pagbankCard   `json:"card,omitempty"`
	Boleto       *pagbankBoleto `json:"boleto,omitempty"`
}

type pagbankCharge struct {
	ID              string               `json:"id,omitempty"`
	ReferenceID     string               `json:"reference_id,omitempty"`
	Status          string               `json:"status,omitempty"`
	Description     string               `json:"description,omitempty"`
	Amount          pagbankAmount        `json:"amount"`
	PaidAt          string               `json:"paid_at,omitempty"`
	PaymentMethod   pagbankPaymentMethod `json:"payment_method"`
	PaymentResponse *struct {
		Code string `json:"code"`
	} `json:"payment_response,omitempty"`
	Links []pagbankLink `json:"links,omitempty"`
}

type pagbankOrder struct {
	ID          string          `json:"id,omitempty"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Customer    pagbankCustomer `json:"customer"`
	QRCodes     []pagbankQRCode `json:"qr_codes,omitempty"`
	Charges     []pagbankCharge `json:"charges,omitempty"`
}

// ============================================================
// Customers (no registry on PagBank)
// ============================================================

func (p *pagbankClient) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "create_customer",
		"pagbank has no customer registry, buyer data travels on each order")
}

func (p *pagbankClient) FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "find_customer",
		"pagbank has no customer registry")
}

// ============================================================
// Charges
// ============================================================

func (p *pagbankClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if !methodSupported(pagbankCaps, req.Method) {
		return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "create_charge",
			fmt.Sprintf("payment method %s is not supported", req.Method))
	}

	order := pagbankOrder{
		ReferenceID: req.ExternalReference,
		Customer: pagbankCustomer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			TaxID: onlyDigits(req.Customer.Document),
		},
	}
	if phone := onlyDigits(req.Customer.Phone); len(phone) >= 10 {
		order.Customer.Phones = []pagbankPhone{{
			Country: "55",
			Area:    phone[:2],
			Number:  phone[2:],
			Type:    "MOBILE",
		}}
	}

	switch req.Method {
	case domain.MethodPix:
		order.QRCodes = []pagbankQRCode{{
			Amount:         pagbankAmount{Value: req.AmountCents},
			ExpirationDate: pagbankDueDateEnd(req.DueDate),
		}}
	case domain.MethodBoleto:
		charge := pagbankCharge{
			ReferenceID: req.ExternalReference,
			Description: req.Description,
			Amount:      pagbankAmount{Value: req.AmountCents, Currency: "BRL"},
		}
		charge.PaymentMethod = pagbankPaymentMethod{
			Type: "BOLETO",
			Boleto: &pagbankBoleto{
				DueDate: req.DueDate,
				Holder: &pagbankHolder{
					Name:  req.Customer.Name,
					TaxID: onlyDigits(req.Customer.Document),
				},
			},
		}
		order.Charges = []pagbankCharge{charge}
	case domain.MethodCreditCard, domain.MethodDebitCard:
		if req.Card == nil {
			return nil, domain.NewAdapterError(domain.ProviderPagBank,
				fmt.Sprintf("card data is required for %s charges", req.Method))
		}
		capture := true
		methodType := "CREDIT_CARD"
		installments := maxInt(req.Installments, 1)
		if req.Method == domain.MethodDebitCard {
			methodType = "DEBIT_CARD"
			installments = 1
		}
		charge := pagbankCharge{
			ReferenceID: req.ExternalReference,
			Description: req.Description,
			Amount:      pagbankAmount{Value: req.AmountCents, Currency: "BRL"},
		}
		charge.PaymentMethod = pagbankPaymentMethod{
			Type:         methodType,
			Installments: installments,
			Capture:      &capture,
			Card: &pagbankCard{
				Number:       req.Card.Number,
				ExpMonth:     req.Card.ExpiryMonth,
				ExpYear:      req.Card.ExpiryYear,
				SecurityCode: req.Card.CVV,
				Holder:       &pagbankHolder{Name: req.Card.HolderName},
			},
		}
		order.Charges = []pagbankCharge{charge}
	}

	var created pagbankOrder
	if err := p.api.do(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	return p.orderToResult(&created, req.Method), nil
}

// orderToResult normalizes a PagBank order. PIX orders carry no charge
// until the payer settles; the order itself means the charge is waiting.
func (p *pagbankClient) orderToResult(order *pagbankOrder, method domain.PaymentMethod) *domain.ChargeResult {
	result := &domain.ChargeResult{
		ExternalID:        order.ID,
		Status:            status.Pending,
		Method:            method,
		ExternalReference: order.ReferenceID,
	}
	if len(order.Charges) > 0 {
		c := order.Charges[0]
		result.Status = status.Normalize(string(domain.ProviderPagBank), c.Status)
		result.RawStatus = c.Status
		result.AmountCents = c.Amount.Value
		if c.PaymentMethod.Boleto != nil {
			boleto := &domain.BoletoArtifacts{
				Barcode:       c.PaymentMethod.Boleto.Barcode,
				DigitableLine: c.PaymentMethod.Boleto.FormattedBarcode,
			}
			for _, l := range c.Links {
				if l.Rel == "boleto.pdf" || l.Rel == "BOLETO.PDF" {
					boleto.URL = l.Href
				}
			}
			result.Boleto = boleto
		}
		if c.PaymentMethod.Card != nil {
			card := &domain.CardArtifacts{Brand: c.PaymentMethod.Card.Brand}
			if c.PaymentMethod.Card.LastDigits != "" {
				card.MaskedNumber = "**** **** **** " + c.PaymentMethod.Card.LastDigits
			}
			if c.PaymentResponse != nil {
				card.AuthorizationCode = c.PaymentResponse.Code
			}
			result.Card = card
		}
	}
	if len(order.QRCodes) > 0 {
		qr := order.QRCodes[0]
		pix := &domain.PixArtifacts{CopyPaste: qr.Text}
		for _, l := range qr.Links {
			if l.Rel == "QRCODE.PNG" {
				pix.QRCodeBase64 = l.Href
			}
		}
		if exp, err := time.Parse(time.RFC3339, qr.ExpirationDate); err == nil {
			pix.ExpiresAt = &exp
		}
		result.Pix = pix
		if result.AmountCents == 0 {
			result.AmountCents = qr.Amount.Value
		}
	}
	return result
}

func (p *pagbankClient) GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error) {
	var order pagbankOrder
	if err := p.api.do(ctx, http.MethodGet, "/orders/"+externalID, nil, &order); err != nil {
		return nil, err
	}
	cs := &domain.ChargeStatus{
		ExternalID: order.ID,
		Status:     status.Pending,
	}
	if len(order.Charges) > 0 {
		c := order.Charges[0]
		cs.Status = status.Normalize(string(domain.ProviderPagBank), c.Status)
		cs.RawStatus = c.Status
		cs.AmountCents = c.Amount.Value
		if t, err := time.Parse(time.RFC3339, c.PaidAt); err == nil {
			cs.PaidAt = &t
		}
	} else if len(order.QRCodes) > 0 {
		cs.AmountCents = order.QRCodes[0].Amount.Value
	}
	return cs, nil
}

// chargeIDForOrder resolves the charge behind an order id for cancel and
// refund, which PagBank models on the charge resource.
func (p *pagbankClient) chargeIDForOrder(ctx context.Context, externalID string) (string, error) {
	var order pagbankOrder
	if err := p.api.do(ctx, http.MethodGet, "/orders/"+externalID, nil, &order); err != nil {
		return "", err
	}
	if len(order.Charges) == 0 {
		return "", domain.NewAdapterError(domain.ProviderPagBank,
			"order has no charge to operate on (unpaid pix orders cannot be cancelled remotely)")
	}
	return order.Charges[0].ID, nil
}

func (p *pagbankClient) CancelCharge(ctx context.Context, externalID string) error {
	chargeID, err := p.chargeIDForOrder(ctx, externalID)
	if err != nil {
		return err
	}
	return p.api.do(ctx, http.MethodPost, "/charges/"+chargeID+"/cancel", nil, nil)
}

func (p *pagbankClient) RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error) {
	chargeID, err := p.chargeIDForOrder(ctx, externalID)
	if err != nil {
		return nil, err
	}
	var body any
	if amountCents > 0 {
		body = map[string]pagbankAmount{"amount": {Value: amountCents}}
	}
	var out pagbankCharge
	if err := p.api.do(ctx, http.MethodPost, "/charges/"+chargeID+"/cancel", body, &out); err != nil {
		return nil, err
	}
	refunded := amountCents
	if refunded == 0 {
		refunded = out.Amount.Value
	}
	return &domain.RefundResult{
		ExternalID:  out.ID,
		Status:      status.Normalize(string(domain.ProviderPagBank), out.Status),
		AmountCents: refunded,
	}, nil
}

// ============================================================
// Subscriptions (plans + subscriptions host)
// ============================================================

type pagbankInterval struct {
	Unit   string `json:"unit"`
	Length int    `json:"length"`
}

func pagbankIntervalFor(c domain.SubscriptionCycle) pagbankInterval {
	switch c {
	case domain.CycleWeekly:
		return pagbankInterval{Unit: "DAY", Length: 7}
	case domain.CycleBiweekly:
		return pagbankInterval{Unit: "DAY", Length: 14}
	case domain.CycleQuarterly:
		return pagbankInterval{Unit: "MONTH", Length: 3}
	case domain.CycleSemiannually:
		return pagbankInterval{Unit: "MONTH", Length: 6}
	case domain.CycleAnnually:
		return pagbankInterval{Unit: "YEAR", Length: 1}
	default:
		return pagbankInterval{Unit: "MONTH", Length: 1}
	}
}

type pagbankSubscription struct {
	ID          string `json:"id,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Amount      *struct {
		Value int64 `json:"value"`
	} `json:"amount,omitempty"`
	NextInvoiceAt string `json:"next_invoice_at,omitempty"`
}

func pagbankSubscriptionStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "ACTIVE", "TRIAL":
		return domain.SubscriptionActive
	case "CANCELED", "CANCELLED":
		return domain.SubscriptionCancelled
	case "EXPIRED", "OVERDUE":
		return domain.SubscriptionExpired
	default:
		return domain.SubscriptionInactive
	}
}

func (p *pagbankClient) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	// PagBank subscriptions hang off a plan; one plan per subscription
	// keeps the mapping one-to-one with the normalized request.
	plan := map[string]any{
		"name":     req.Description,
		"interval": pagbankIntervalFor(req.Cycle),
		"amount":   map[string]any{"value": req.AmountCents, "currency": "BRL"},
	}
	if plan["name"] == "" {
		plan["name"] = "subscription " + req.ExternalReference
	}
	var createdPlan struct {
		ID string `json:"id"`
	}
	if err := p.subAPI.do(ctx, http.MethodPost, "/plans", plan, &createdPlan); err != nil {
		return nil, err
	}

	sub := map[string]any{
		"reference_id": req.ExternalReference,
		"plan":         map[string]string{"id": createdPlan.ID},
		"customer": map[string]any{
			"name":   req.Customer.Name,
			"email":  req.Customer.Email,
			"tax_id": onlyDigits(req.Customer.Document),
		},
	}
	if req.Method == domain.MethodCreditCard && req.Card != nil {
		sub["payment_method"] = []map[string]any{{
			"type": "CREDIT_CARD",
			"card": map[string]any{
				"number":        req.Card.Number,
				"exp_month":     req.Card.ExpiryMonth,
				"exp_year":      req.Card.ExpiryYear,
				"security_code": req.Card.CVV,
				"holder":        map[string]string{"name": req.Card.HolderName},
			},
		}}
	} else {
		sub["payment_method"] = []map[string]any{{"type": "BOLETO"}}
	}

	var out pagbankSubscription
	if err := p.subAPI.do(ctx, http.MethodPost, "/subscriptions", sub, &out); err != nil {
		return nil, err
	}
	return p.subscriptionToResult(&out, req.Cycle), nil
}

func (p *pagbankClient) GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error) {
	var out pagbankSubscription
	if err := p.subAPI.do(ctx, http.MethodGet, "/subscriptions/"+externalID, nil, &out); err != nil {
		return nil, err
	}
	return p.subscriptionToResult(&out, ""), nil
}

func (p *pagbankClient) CancelSubscription(ctx context.Context, externalID string) error {
	return p.subAPI.do(ctx, http.MethodPut, "/subscriptions/"+externalID+"/cancel", nil, nil)
}

func (p *pagbankClient) subscriptionToResult(s *pagbankSubscription, cycle domain.SubscriptionCycle) *domain.SubscriptionResult {
	result := &domain.SubscriptionResult{
		ExternalID:        s.ID,
		Status:            pagbankSubscriptionStatus(s.Status),
		Cycle:             cycle,
		ExternalReference: s.ReferenceID,
	}
	if s.Amount != nil {
		result.AmountCents = s.Amount.Value
	}
	if t, err := time.Parse(time.RFC3339, s.NextInvoiceAt); err == nil {
		result.NextDueDate = t.Format("2006-01-02")
	}
	return result
}

// ============================================================
// Unsupported surface
// ============================================================

func (p *pagbankClient) CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "create_recipient",
		"split recipients are not exposed by the pagbank orders api")
}

func (p *pagbankClient) GetBalance(ctx context.Context) (*domain.BalanceResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "get_balance",
		"account balance is not exposed by the pagbank orders api")
}

func (p *pagbankClient) GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "get_statement",
		"account statement is not exposed by the pagbank orders api")
}

func (p *pagbankClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	return nil, domain.NewUnsupportedError(domain.ProviderPagBank, "create_transfer",
		"payouts are not exposed by the pagbank orders api")
}

// ============================================================
// Webhooks
// ============================================================

// ValidateWebhook checks PagBank's x-authenticity-token header, a plain
// SHA-256 of "<token>-<raw body>".
func (p *pagbankClient) ValidateWebhook(headers http.Header, body []byte) bool {
	if p.cfg.WebhookSecret == "" {
		return false
	}
	got := headers.Get("x-authenticity-token")
	if got == "" {
		return false
	}
	sum := sha256.Sum256(append([]byte(p.cfg.WebhookSecret+"-"), body...))
	return secureCompare(got, hex.EncodeToString(sum[:]))
}

func (p *pagbankClient) ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error) {
	// Deliveries carry the full order with its charges.
	var payload struct {
		ID          string          `json:"id"`
		ReferenceID string          `json:"reference_id"`
		Charges     []pagbankCharge `json:"charges"`
	}
	if err := unmarshalWebhook(domain.ProviderPagBank, body, &payload); err != nil {
		return nil, err
	}
	event := &domain.NormalizedWebhookEvent{
		ID:                webhookEventID(""),
		Provider:          domain.ProviderPagBank,
		EventType:         domain.EventUnknown,
		ExternalChargeID:  payload.ID,
		ExternalReference: payload.ReferenceID,
		Raw:               body,
	}
	if len(payload.Charges) > 0 {
		c := payload.Charges[0]
		normalized := status.Normalize(string(domain.ProviderPagBank), c.Status)
		event.EventType = eventForStatus(normalized)
		event.AmountCents = c.Amount.Value
		if t, err := time.Parse(time.RFC3339, c.PaidAt); err == nil {
			event.PaidAt = &t
		}
	}
	return event, nil
}

// pagbankDueDateEnd renders the QR code expiration as the end of the due
// date in RFC3339, PagBank's expected format.
func pagbankDueDateEnd(dueDate string) string {
	due, err := time.ParseInLocation("2006-01-02", dueDate, time.Local)
	if err != nil {
		return ""
	}
	return time.Date(due.Year(), due.Month(), due.Day(), 23, 59, 59, 0, time.Local).Format(time.RFC3339)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
