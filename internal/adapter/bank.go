package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bankEndpoints maps the endpoint families a bank exposes. Empty paths mean
// the bank does not expose that family and the operation fails fast.
type bankEndpoints struct {
	cob       string // PIX cob collection root
	boleto    string // boleto collection root
	balance   string
	statement string
	transfer  string
}

// bankOptions is the per-bank wiring: base URLs, token endpoint, scopes,
// transport requirements, capabilities, endpoint paths, and webhook header
// names. Every bank adapter is a bankClient built from one of these.
type bankOptions struct {
	prodBase     string
	sandboxBase  string
	prodToken    string
	sandboxToken string
	scopes       []string
	mtls         bool
	caps         domain.ProviderCapabilities
	ep           bankEndpoints

	// signatureHeader carries an HMAC-SHA256 of the raw webhook body;
	// tokenHeader carries the shared secret echoed verbatim. The signature
	// is preferred when present.
	signatureHeader string
	tokenHeader     string
}

// bankClient implements the adapter contract for the bank pattern: OAuth2
// client-credentials auth, inline customer data, PIX cob + boleto endpoint
// families, no refunds/subscriptions/split through this API family.
type bankClient struct {
	provider domain.Provider
	cfg      domain.GatewayConfig
	opts     bankOptions
	api      *apiClient
	tokens   *tokenSource
	logger   *zap.Logger
}

func newBankClient(provider domain.Provider, cfg domain.GatewayConfig, opts bankOptions, httpClient *http.Client, logger *zap.Logger) (*bankClient, error) {
	base, tokenURL := opts.prodBase, opts.prodToken
	if cfg.SandboxMode {
		base, tokenURL = opts.sandboxBase, opts.sandboxToken
	}

	client := httpClient
	if opts.mtls {
		if cfg.Certificate == "" || cfg.CertificateKey == "" {
			return nil, domain.NewAdapterError(provider, "client certificate and key are required for mutual TLS")
		}
		var err error
		client, err = newMTLSClient(httpClient, cfg.Certificate, cfg.CertificateKey)
		if err != nil {
			return nil, domain.NewAdapterError(provider, err.Error())
		}
	}

	if opts.signatureHeader == "" {
		opts.signatureHeader = "x-webhook-signature"
	}
	if opts.tokenHeader == "" {
		opts.tokenHeader = "x-webhook-token"
	}

	tokens := newTokenSource(provider, tokenURL, cfg.APIKey, cfg.SecretKey, opts.scopes, client, logger)
	return &bankClient{
		provider: provider,
		cfg:      cfg,
		opts:     opts,
		tokens:   tokens,
		api: &apiClient{
			provider:   provider,
			baseURL:    base,
			httpClient: client,
			auth:       bearerAuth(tokens),
			logger:     logger,
		},
		logger: logger,
	}, nil
}

func (b *bankClient) Provider() domain.Provider { return b.provider }

func (b *bankClient) Capabilities() domain.ProviderCapabilities { return b.opts.caps }

// ============================================================
// Customers: banks take payer data inline with each charge.
// ============================================================

func (b *bankClient) CreateCustomer(ctx context.Context, params domain.CustomerParams) (*domain.CustomerResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "create_customer", "customer data is sent inline with each charge")
}

func (b *bankClient) FindCustomer(ctx context.Context, document string) (*domain.CustomerResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "find_customer", "customer data is sent inline with each charge")
}

// ============================================================
// Charges
// ============================================================

type cobCalendar struct {
	Criacao   *time.Time `json:"criacao,omitempty"`
	Expiracao int64      `json:"expiracao,omitempty"`
}

type cobDebtor struct {
	CPF  string `json:"cpf,omitempty"`
	CNPJ string `json:"cnpj,omitempty"`
	Nome string `json:"nome"`
}

type cobAmount struct {
	Original string `json:"original"`
}

type cobRequest struct {
	Calendario         cobCalendar `json:"calendario"`
	Devedor            *cobDebtor  `json:"devedor,omitempty"`
	Valor              cobAmount   `json:"valor"`
	SolicitacaoPagador string      `json:"solicitacaoPagador,omitempty"`
}

type cobPix struct {
	EndToEndID string    `json:"endToEndId"`
	Valor      string    `json:"valor"`
	Horario    time.Time `json:"horario"`
}

type cobResponse struct {
	Txid          string      `json:"txid"`
	Status        string      `json:"status"`
	Location      string      `json:"location"`
	PixCopiaECola string      `json:"pixCopiaECola"`
	Calendario    cobCalendar `json:"calendario"`
	Valor         cobAmount   `json:"valor"`
	Pix           []cobPix    `json:"pix"`
}

type boletoPayer struct {
	CPFCNPJ    string `json:"cpfCnpj"`
	TipoPessoa string `json:"tipoPessoa"`
	Nome       string `json:"nome"`
	Email      string `json:"email,omitempty"`
	CEP        string `json:"cep,omitempty"`
	Endereco   string `json:"endereco,omitempty"`
	Numero     string `json:"numero,omitempty"`
	Cidade     string `json:"cidade,omitempty"`
	UF         string `json:"uf,omitempty"`
}

type boletoRequest struct {
	SeuNumero      string      `json:"seuNumero"`
	ValorNominal   string      `json:"valorNominal"`
	DataVencimento string      `json:"dataVencimento"`
	NumDiasAgenda  int         `json:"numDiasAgenda,omitempty"`
	Pagador        boletoPayer `json:"pagador"`
	Mensagem       string      `json:"mensagem,omitempty"`
}

type boletoResponse struct {
	NossoNumero    string `json:"nossoNumero"`
	SeuNumero      string `json:"seuNumero"`
	CodigoBarras   string `json:"codigoBarras"`
	LinhaDigitavel string `json:"linhaDigitavel"`
	Situacao       string `json:"situacao"`
	Status         string `json:"status"`
	ValorNominal   string `json:"valorNominal"`
	DataVencimento string `json:"dataVencimento"`
	URL            string `json:"url"`
}

func (r boletoResponse) id() string {
	if r.NossoNumero != "" {
		return r.NossoNumero
	}
	return r.SeuNumero
}

func (r boletoResponse) rawStatus() string {
	if r.Situacao != "" {
		return r.Situacao
	}
	return r.Status
}

func (b *bankClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	switch req.Method {
	case domain.MethodPix:
		if !b.opts.caps.Pix {
			return nil, domain.NewUnsupportedError(b.provider, "create_charge", "pix charges are not supported")
		}
		return b.createPixCharge(ctx, req)
	case domain.MethodBoleto:
		if !b.opts.caps.Boleto {
			return nil, domain.NewUnsupportedError(b.provider, "create_charge", "boleto charges are not supported")
		}
		return b.createBoletoCharge(ctx, req)
	default:
		return nil, domain.NewUnsupportedError(b.provider, "create_charge",
			fmt.Sprintf("%s charges are not offered by this bank's collection API", req.Method))
	}
}

func (b *bankClient) createPixCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	txid := pixTxid(req.ExternalReference)

	body := cobRequest{
		Calendario:         cobCalendar{Expiracao: pixExpirationSeconds(req.DueDate)},
		Valor:              cobAmount{Original: centsToDecimal(req.AmountCents)},
		SolicitacaoPagador: req.Description,
	}
	debtor := &cobDebtor{Nome: req.Customer.Name}
	doc := onlyDigits(req.Customer.Document)
	if documentType(doc) == "CNPJ" {
		debtor.CNPJ = doc
	} else {
		debtor.CPF = doc
	}
	if debtor.Nome != "" && doc != "" {
		body.Devedor = debtor
	}

	var out cobResponse
	if err := b.api.do(ctx, http.MethodPut, b.opts.ep.cob+"/"+txid, body, &out); err != nil {
		return nil, err
	}

	copyPaste := out.PixCopiaECola
	if copyPaste == "" {
		copyPaste = out.Location
	}
	var expiresAt *time.Time
	if out.Calendario.Expiracao > 0 {
		t := time.Now().Add(time.Duration(out.Calendario.Expiracao) * time.Second)
		expiresAt = &t
	}

	externalID := out.Txid
	if externalID == "" {
		externalID = txid
	}
	return &domain.ChargeResult{
		ExternalID:        externalID,
		Status:            status.Normalize(string(b.provider), out.Status),
		RawStatus:         out.Status,
		Method:            domain.MethodPix,
		AmountCents:       req.AmountCents,
		DueDate:           req.DueDate,
		ExternalReference: req.ExternalReference,
		Pix: &domain.PixArtifacts{
			CopyPaste: copyPaste,
			ExpiresAt: expiresAt,
		},
	}, nil
}

func (b *bankClient) createBoletoCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	doc := onlyDigits(req.Customer.Document)
	tipoPessoa := "FISICA"
	if documentType(doc) == "CNPJ" {
		tipoPessoa = "JURIDICA"
	}

	body := boletoRequest{
		SeuNumero:      req.ExternalReference,
		ValorNominal:   centsToDecimal(req.AmountCents),
		DataVencimento: req.DueDate,
		Mensagem:       req.Description,
		Pagador: boletoPayer{
			CPFCNPJ:    doc,
			TipoPessoa: tipoPessoa,
			Nome:       req.Customer.Name,
			Email:      req.Customer.Email,
			CEP:        onlyDigits(req.Customer.PostalCode),
			Endereco:   req.Customer.Street,
			Numero:     req.Customer.Number,
			Cidade:     req.Customer.City,
			UF:         req.Customer.State,
		},
	}

	var out boletoResponse
	if err := b.api.do(ctx, http.MethodPost, b.opts.ep.boleto, body, &out); err != nil {
		return nil, err
	}

	raw := out.rawStatus()
	return &domain.ChargeResult{
		ExternalID:        out.id(),
		Status:            status.Normalize(string(b.provider), raw),
		RawStatus:         raw,
		Method:            domain.MethodBoleto,
		AmountCents:       req.AmountCents,
		DueDate:           req.DueDate,
		ExternalReference: req.ExternalReference,
		Boleto: &domain.BoletoArtifacts{
			Barcode:       out.CodigoBarras,
			DigitableLine: out.LinhaDigitavel,
			URL:           out.URL,
		},
	}, nil
}

// GetCharge resolves an external id that could be either a PIX txid or a
// boleto number. The PIX cob lookup is tried first and the boleto lookup is
// the fallback, because a bare id cannot be distinguished otherwise.
func (b *bankClient) GetCharge(ctx context.Context, externalID string) (*domain.ChargeStatus, error) {
	var cobErr error
	if b.opts.caps.Pix {
		var cob cobResponse
		cobErr = b.api.do(ctx, http.MethodGet, b.opts.ep.cob+"/"+externalID, nil, &cob)
		if cobErr == nil {
			st := &domain.ChargeStatus{
				ExternalID:  externalID,
				Status:      status.Normalize(string(b.provider), cob.Status),
				RawStatus:   cob.Status,
				AmountCents: decimalToCents(cob.Valor.Original),
			}
			if len(cob.Pix) > 0 {
				paid := cob.Pix[0].Horario
				st.PaidAt = &paid
			}
			return st, nil
		}
	}

	if b.opts.caps.Boleto {
		var boleto boletoResponse
		if err := b.api.do(ctx, http.MethodGet, b.opts.ep.boleto+"/"+externalID, nil, &boleto); err != nil {
			return nil, err
		}
		raw := boleto.rawStatus()
		return &domain.ChargeStatus{
			ExternalID:  externalID,
			Status:      status.Normalize(string(b.provider), raw),
			RawStatus:   raw,
			AmountCents: decimalToCents(boleto.ValorNominal),
		}, nil
	}
	return nil, cobErr
}

// CancelCharge removes a PIX cob, falling back to a boleto cancellation
// request in the same lookup order as GetCharge.
func (b *bankClient) CancelCharge(ctx context.Context, externalID string) error {
	if b.opts.caps.Pix {
		body := map[string]string{"status": "REMOVIDA_PELO_USUARIO_RECEBEDOR"}
		if err := b.api.do(ctx, http.MethodPatch, b.opts.ep.cob+"/"+externalID, body, nil); err == nil {
			return nil
		}
	}
	if b.opts.caps.Boleto {
		body := map[string]string{"motivoCancelamento": "SOLICITACAO_BENEFICIARIO"}
		return b.api.do(ctx, http.MethodPost, b.opts.ep.boleto+"/"+externalID+"/cancelar", body, nil)
	}
	return domain.NewUnsupportedError(b.provider, "cancel_charge", "no cancellable endpoint family configured")
}

// RefundCharge always fails: the bank collection APIs expose no refund
// operation. Money already settled must go back through the PIX devolution
// flow operated from the bank itself.
func (b *bankClient) RefundCharge(ctx context.Context, externalID string, amountCents int64) (*domain.RefundResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "refund_charge",
		"refunds are not exposed by this API family; use the PIX devolution flow at the bank")
}

// ============================================================
// Subscriptions / recipients: uniformly unsupported for banks.
// ============================================================

func (b *bankClient) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "create_subscription", "recurring charges are not offered by bank collection APIs")
}

func (b *bankClient) GetSubscription(ctx context.Context, externalID string) (*domain.SubscriptionResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "get_subscription", "recurring charges are not offered by bank collection APIs")
}

func (b *bankClient) CancelSubscription(ctx context.Context, externalID string) error {
	return domain.NewUnsupportedError(b.provider, "cancel_subscription", "recurring charges are not offered by bank collection APIs")
}

func (b *bankClient) CreateRecipient(ctx context.Context, params domain.RecipientParams) (*domain.RecipientResult, error) {
	return nil, domain.NewUnsupportedError(b.provider, "create_recipient", "split recipients are not offered by bank collection APIs")
}

// ============================================================
// Banking reads/writes: only where the bank exposes account APIs.
// ============================================================

type bankBalanceResponse struct {
	Disponivel float64 `json:"disponivel"`
	Bloqueado  float64 `json:"bloqueado"`
}

func (b *bankClient) GetBalance(ctx context.Context) (*domain.BalanceResult, error) {
	if b.opts.ep.balance == "" {
		return nil, domain.NewUnsupportedError(b.provider, "get_balance", "no account balance API is exposed")
	}
	var out bankBalanceResponse
	if err := b.api.do(ctx, http.MethodGet, b.opts.ep.balance, nil, &out); err != nil {
		return nil, err
	}
	return &domain.BalanceResult{
		AvailableCents: floatToCents(out.Disponivel),
		PendingCents:   floatToCents(out.Bloqueado),
		Currency:       "BRL",
	}, nil
}

type bankStatementResponse struct {
	Transacoes []struct {
		DataEntrada   string `json:"dataEntrada"`
		TipoOperacao  string `json:"tipoOperacao"` // C credit, D debit
		TipoTransacao string `json:"tipoTransacao"`
		Valor         string `json:"valor"`
		Titulo        string `json:"titulo"`
		Descricao     string `json:"descricao"`
	} `json:"transacoes"`
}

func (b *bankClient) GetStatement(ctx context.Context, start, end time.Time) ([]domain.StatementEntry, error) {
	if b.opts.ep.statement == "" {
		return nil, domain.NewUnsupportedError(b.provider, "get_statement", "no account statement API is exposed")
	}
	path := fmt.Sprintf("%s?dataInicio=%s&dataFim=%s",
		b.opts.ep.statement, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var out bankStatementResponse
	if err := b.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	entries := make([]domain.StatementEntry, 0, len(out.Transacoes))
	for _, tx := range out.Transacoes {
		date, _ := time.Parse("2006-01-02", tx.DataEntrada)
		amount := decimalToCents(tx.Valor)
		if strings.EqualFold(tx.TipoOperacao, "D") {
			amount = -amount
		}
		desc := tx.Descricao
		if desc == "" {
			desc = tx.Titulo
		}
		entries = append(entries, domain.StatementEntry{
			Date:        date,
			Description: desc,
			AmountCents: amount,
			Type:        tx.TipoTransacao,
		})
	}
	return entries, nil
}

type bankTransferRequest struct {
	Valor        string `json:"valor"`
	Descricao    string `json:"descricao,omitempty"`
	Destinatario struct {
		Tipo  string `json:"tipo"`
		Chave string `json:"chave"`
	} `json:"destinatario"`
}

type bankTransferResponse struct {
	CodigoSolicitacao string `json:"codigoSolicitacao"`
	EndToEndID        string `json:"endToEndId"`
	Status            string `json:"status"`
}

func (b *bankClient) CreateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	if b.opts.ep.transfer == "" {
		return nil, domain.NewUnsupportedError(b.provider, "create_transfer", "no payout API is exposed")
	}
	if req.PixKey == "" {
		return nil, &domain.ErrValidation{Field: "pix_key", Message: "bank transfers are sent to a PIX key"}
	}

	body := bankTransferRequest{
		Valor:     centsToDecimal(req.AmountCents),
		Descricao: req.Description,
	}
	body.Destinatario.Tipo = "CHAVE"
	body.Destinatario.Chave = req.PixKey

	var out bankTransferResponse
	if err := b.api.do(ctx, http.MethodPost, b.opts.ep.transfer, body, &out); err != nil {
		return nil, err
	}

	externalID := out.EndToEndID
	if externalID == "" {
		externalID = out.CodigoSolicitacao
	}
	st := status.Processing
	if out.Status != "" {
		st = status.Normalize(string(b.provider), out.Status)
	}
	return &domain.TransferResult{
		ExternalID:  externalID,
		Status:      st,
		AmountCents: req.AmountCents,
	}, nil
}

// ============================================================
// Webhooks
// ============================================================

func (b *bankClient) ValidateWebhook(headers http.Header, rawBody []byte) bool {
	if headers.Get(b.opts.signatureHeader) != "" {
		return validateBodySignature(headers, b.opts.signatureHeader, b.cfg.WebhookSecret, rawBody)
	}
	return validateSharedToken(headers, b.opts.tokenHeader, b.cfg.WebhookSecret)
}

func (b *bankClient) ParseWebhookEvent(body []byte) (*domain.NormalizedWebhookEvent, error) {
	event := &domain.NormalizedWebhookEvent{
		ID:        uuid.New().String(),
		Provider:  b.provider,
		EventType: domain.EventUnknown,
		Raw:       json.RawMessage(body),
	}

	// PIX settlement callbacks arrive as {"pix":[{...}]}.
	var pixPayload struct {
		Pix []struct {
			Txid       string    `json:"txid"`
			EndToEndID string    `json:"endToEndId"`
			Valor      string    `json:"valor"`
			Horario    time.Time `json:"horario"`
		} `json:"pix"`
	}
	if err := json.Unmarshal(body, &pixPayload); err == nil && len(pixPayload.Pix) > 0 {
		p := pixPayload.Pix[0]
		event.EventType = domain.EventChargeConfirmed
		event.ExternalChargeID = p.Txid
		event.AmountCents = decimalToCents(p.Valor)
		if !p.Horario.IsZero() {
			paid := p.Horario
			event.PaidAt = &paid
		}
		return event, nil
	}

	var generic struct {
		Txid        string `json:"txid"`
		NossoNumero string `json:"nossoNumero"`
		SeuNumero   string `json:"seuNumero"`
		Situacao    string `json:"situacao"`
		Status      string `json:"status"`
		Valor       string `json:"valor"`
	}
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, domain.NewAdapterError(b.provider, fmt.Sprintf("parse webhook payload: %v", err))
	}

	switch {
	case generic.Txid != "":
		event.ExternalChargeID = generic.Txid
	case generic.NossoNumero != "":
		event.ExternalChargeID = generic.NossoNumero
	default:
		event.ExternalChargeID = generic.SeuNumero
	}
	event.ExternalReference = generic.SeuNumero
	event.AmountCents = decimalToCents(generic.Valor)

	raw := generic.Situacao
	if raw == "" {
		raw = generic.Status
	}
	if raw != "" {
		event.EventType = eventForStatus(status.Normalize(string(b.provider), raw))
	}
	return event, nil
}

// eventForStatus classifies a normalized status change as a webhook event.
func eventForStatus(s status.Status) domain.WebhookEventType {
	switch s {
	case status.Confirmed:
		return domain.EventChargeConfirmed
	case status.Refunded, status.PartialRefund:
		return domain.EventChargeRefunded
	case status.Overdue:
		return domain.EventChargeOverdue
	case status.Cancelled:
		return domain.EventChargeCancelled
	case status.Chargeback:
		return domain.EventChargeChargeback
	default:
		return domain.EventChargeUpdated
	}
}

// pixTxid derives a BACEN-valid txid (26-35 alphanumeric chars) from the
// caller's external reference, generating one when the reference is absent
// or too short to be valid on its own.
func pixTxid(externalReference string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		}
		return -1
	}, externalReference)

	if cleaned == "" {
		return strings.ReplaceAll(uuid.New().String(), "-", "")[:26]
	}
	if len(cleaned) > 35 {
		return cleaned[:35]
	}
	// Deterministic zero-padding keeps the txid stable for the same
	// external reference, preserving caller-controlled idempotency.
	for len(cleaned) < 26 {
		cleaned += "0"
	}
	return cleaned
}

// pixExpirationSeconds computes the cob expiration window so the charge
// stays payable until the end of its due date, with a one-hour floor.
func pixExpirationSeconds(dueDate string) int64 {
	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return 86400
	}
	endOfDay := time.Date(due.Year(), due.Month(), due.Day(), 23, 59, 59, 0, time.Local)
	secs := int64(time.Until(endOfDay).Seconds())
	if secs < 3600 {
		return 3600
	}
	return secs
}
