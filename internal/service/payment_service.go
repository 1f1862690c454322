package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/adapter"
	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("payment")

// PaymentService is the façade the HTTP layer calls. Every operation
// resolves the organization's adapter through the factory and delegates,
// recording duration and outcome metrics per provider and operation.
type PaymentService struct {
	factory *GatewayFactory
	events  port.WebhookEventStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewPaymentService creates the payment service.
func NewPaymentService(factory *GatewayFactory, events port.WebhookEventStore, metrics *observability.Metrics, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		factory: factory,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// observe records duration and outcome for one provider operation.
func (s *PaymentService) observe(provider, operation string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(provider, operation, time.Since(start))
	if err != nil {
		s.metrics.IncrProviderError(provider, operation)
		s.metrics.IncrOperation("error")
		s.logger.Warn("provider operation failed",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncrOperation("success")
}

func (s *PaymentService) adapterFor(ctx context.Context, orgID string) (adapter.Adapter, error) {
	return s.factory.AdapterForOrg(ctx, orgID)
}

// ============================================================
// Charges
// ============================================================

func (s *PaymentService) CreateCharge(ctx context.Context, orgID string, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateCharge")
	defer span.End()
	span.SetAttributes(
		attribute.String("organization.id", orgID),
		attribute.String("charge.method", string(req.Method)),
	)

	if err := validateChargeRequest(req); err != nil {
		return nil, err
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.CreateCharge(ctx, req)
	s.observe(string(a.Provider()), "create_charge", start, err)
	return result, err
}

func (s *PaymentService) GetCharge(ctx context.Context, orgID, chargeID string) (*domain.ChargeStatus, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.GetCharge")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.GetCharge(ctx, chargeID)
	s.observe(string(a.Provider()), "get_charge", start, err)
	return result, err
}

func (s *PaymentService) CancelCharge(ctx context.Context, orgID, chargeID string) error {
	ctx, span := tracer.Start(ctx, "PaymentService.CancelCharge")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = a.CancelCharge(ctx, chargeID)
	s.observe(string(a.Provider()), "cancel_charge", start, err)
	return err
}

func (s *PaymentService) RefundCharge(ctx context.Context, orgID, chargeID string, amountCents int64) (*domain.RefundResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.RefundCharge")
	defer span.End()

	if amountCents < 0 {
		return nil, &domain.ErrValidation{Field: "amount_cents", Message: "must not be negative"}
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.RefundCharge(ctx, chargeID, amountCents)
	s.observe(string(a.Provider()), "refund_charge", start, err)
	return result, err
}

// ============================================================
// Customers
// ============================================================

func (s *PaymentService) CreateCustomer(ctx context.Context, orgID string, params domain.CustomerParams) (*domain.CustomerResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateCustomer")
	defer span.End()

	if params.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if params.Document == "" {
		return nil, &domain.ErrValidation{Field: "document", Message: "is required"}
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.CreateCustomer(ctx, params)
	s.observe(string(a.Provider()), "create_customer", start, err)
	return result, err
}

func (s *PaymentService) FindCustomer(ctx context.Context, orgID, document string) (*domain.CustomerResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.FindCustomer")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.FindCustomer(ctx, document)
	s.observe(string(a.Provider()), "find_customer", start, err)
	return result, err
}

// ============================================================
// Subscriptions
// ============================================================

func (s *PaymentService) CreateSubscription(ctx context.Context, orgID string, req domain.SubscriptionRequest) (*domain.SubscriptionResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateSubscription")
	defer span.End()

	if req.AmountCents <= 0 {
		return nil, &domain.ErrValidation{Field: "amount_cents", Message: "must be positive"}
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.CreateSubscription(ctx, req)
	s.observe(string(a.Provider()), "create_subscription", start, err)
	return result, err
}

func (s *PaymentService) GetSubscription(ctx context.Context, orgID, subscriptionID string) (*domain.SubscriptionResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.GetSubscription")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.GetSubscription(ctx, subscriptionID)
	s.observe(string(a.Provider()), "get_subscription", start, err)
	return result, err
}

func (s *PaymentService) CancelSubscription(ctx context.Context, orgID, subscriptionID string) error {
	ctx, span := tracer.Start(ctx, "PaymentService.CancelSubscription")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = a.CancelSubscription(ctx, subscriptionID)
	s.observe(string(a.Provider()), "cancel_subscription", start, err)
	return err
}

// ============================================================
// Recipients and banking
// ============================================================

func (s *PaymentService) CreateRecipient(ctx context.Context, orgID string, params domain.RecipientParams) (*domain.RecipientResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateRecipient")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.CreateRecipient(ctx, params)
	s.observe(string(a.Provider()), "create_recipient", start, err)
	return result, err
}

func (s *PaymentService) GetBalance(ctx context.Context, orgID string) (*domain.BalanceResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.GetBalance")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.GetBalance(ctx)
	s.observe(string(a.Provider()), "get_balance", start, err)
	return result, err
}

func (s *PaymentService) GetStatement(ctx context.Context, orgID string, startDate, endDate time.Time) ([]domain.StatementEntry, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.GetStatement")
	defer span.End()

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.GetStatement(ctx, startDate, endDate)
	s.observe(string(a.Provider()), "get_statement", start, err)
	return result, err
}

func (s *PaymentService) CreateTransfer(ctx context.Context, orgID string, req domain.TransferRequest) (*domain.TransferResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateTransfer")
	defer span.End()

	if req.AmountCents <= 0 {
		return nil, &domain.ErrValidation{Field: "amount_cents", Message: "must be positive"}
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.CreateTransfer(ctx, req)
	s.observe(string(a.Provider()), "create_transfer", start, err)
	return result, err
}

// ============================================================
// Providers metadata and capabilities
// ============================================================

// Providers returns static metadata for every supported provider.
func (s *PaymentService) Providers() []domain.ProviderInfo {
	return SupportedProviders()
}

// Capabilities returns the capability set of an organization's active
// gateway.
func (s *PaymentService) Capabilities(ctx context.Context, orgID string) (*domain.ProviderCapabilities, domain.Provider, error) {
	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	caps := a.Capabilities()
	return &caps, a.Provider(), nil
}

// ============================================================
// Webhooks
// ============================================================

// HandleWebhook validates and normalizes one provider delivery. The
// delivery is rejected unless the adapter's validation passes; there is no
// accept-by-default path.
func (s *PaymentService) HandleWebhook(ctx context.Context, orgID, providerID string, headers http.Header, body []byte) (*domain.NormalizedWebhookEvent, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.HandleWebhook")
	defer span.End()
	span.SetAttributes(
		attribute.String("organization.id", orgID),
		attribute.String("provider", providerID),
	)

	if !domain.IsKnownProvider(providerID) {
		return nil, domain.NewFactoryError(fmt.Sprintf("unknown provider %q", providerID))
	}

	a, err := s.adapterFor(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if string(a.Provider()) != providerID {
		return nil, domain.NewFactoryError(fmt.Sprintf(
			"webhook provider %s does not match the organization's active gateway %s",
			providerID, a.Provider()))
	}

	if !a.ValidateWebhook(headers, body) {
		s.metrics.IncrWebhookRejection(providerID)
		s.logger.Warn("webhook rejected",
			zap.String("provider", providerID),
			zap.String("organization_id", orgID),
		)
		return nil, &domain.ErrValidation{Field: "signature", Message: "webhook validation failed"}
	}

	event, err := a.ParseWebhookEvent(body)
	if err != nil {
		return nil, err
	}

	// Audit write is best-effort: a persistence hiccup must not make the
	// provider re-deliver a valid event forever.
	if storeErr := s.events.RecordWebhookEvent(ctx, event); storeErr != nil {
		s.logger.Warn("webhook audit write failed",
			zap.String("provider", providerID),
			zap.String("event_id", event.ID),
			zap.Error(storeErr),
		)
	}

	return event, nil
}

// MetricsSnapshot exposes the aggregate gateway metrics.
func (s *PaymentService) MetricsSnapshot() *domain.MetricsSnapshot {
	return s.metrics.GetSnapshot()
}

func validateChargeRequest(req domain.ChargeRequest) error {
	if req.AmountCents <= 0 {
		return &domain.ErrValidation{Field: "amount_cents", Message: "must be positive"}
	}
	switch req.Method {
	case domain.MethodPix, domain.MethodBoleto, domain.MethodCreditCard, domain.MethodDebitCard:
	default:
		return &domain.ErrValidation{Field: "method", Message: fmt.Sprintf("unknown payment method %q", req.Method)}
	}
	if req.Customer.Document == "" {
		return &domain.ErrValidation{Field: "customer.document", Message: "is required"}
	}
	if req.DueDate != "" {
		if _, err := time.Parse("2006-01-02", req.DueDate); err != nil {
			return &domain.ErrValidation{Field: "due_date", Message: "must be YYYY-MM-DD"}
		}
	}
	if req.Method == domain.MethodCreditCard && req.Card == nil {
		return &domain.ErrValidation{Field: "card", Message: "is required for credit_card charges"}
	}
	return nil
}
