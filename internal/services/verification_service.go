package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/config"
	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/payment"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
	"gorm.io/datatypes"
)

const (
	verifyLockTTL = 30 * time.Second

	// webhookCreditStatus is what the provider posts for a captured payment
	webhookCreditStatus = "Credit"

	msgPaymentVerified     = "Payment verified"
	msgAlreadyVerified     = "already verified"
	msgPaymentNotCompleted = "Payment not completed or payment ID not found"
)

type verificationService struct {
	repo          repositories.Repository
	gateway       PaymentGateway
	cache         cache.CacheService
	verifier      auth.TokenVerifier
	notifier      EventNotifier
	cfg           *config.Config
	logger        *slog.Logger
	serviceLogger *ServiceLogger
	validator     *validator.Validator
}

func NewVerificationService(
	repo repositories.Repository,
	gateway PaymentGateway,
	cacheService cache.CacheService,
	verifier auth.TokenVerifier,
	notifier EventNotifier,
	cfg *config.Config,
	logger *slog.Logger,
	validator *validator.Validator,
) VerificationService {
	return &verificationService{
		repo:          repo,
		gateway:       gateway,
		cache:         cacheService,
		verifier:      verifier,
		notifier:      notifier,
		cfg:           cfg,
		logger:        logger,
		serviceLogger: NewServiceLogger(logger, LogConfig{Service: "payments", Component: "verification"}),
		validator:     validator,
	}
}

// VerifyPayment confirms a payment, records it once, and materializes the paid assessment.
// Webhook and redirect deliveries for the same payment converge on one Transaction and one Assessment.
func (s *verificationService) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (resp *VerifyPaymentResponse, err error) {
	log := s.logger.With(
		"payment_id", req.PaymentID,
		"payment_request_id", req.PaymentRequestID,
		"source", req.Source,
	)

	if req.Source == SourceWebhook {
		gatewayEvent := s.recordGatewayEvent(ctx, req, log)
		defer func() {
			s.finishGatewayEvent(ctx, gatewayEvent, resp, err, log)
		}()
	}

	if err := s.validator.Validate(req); err != nil {
		log.Warn("Rejected verification request", "error", err)
		return nil, err
	}

	lockKey := cache.PaymentVerifyLockKey(req.PaymentID)
	acquired, lockErr := s.cache.AcquireLock(ctx, lockKey, verifyLockTTL)
	switch {
	case lockErr != nil:
		// The unique constraints still hold without the lock
		log.Warn("Verification lock unavailable, continuing", "error", lockErr)
	case !acquired:
		log.Info("Verification already in progress")
		return nil, ErrVerificationInProgress
	default:
		defer func() {
			if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("Failed to release verification lock", "error", err)
			}
		}()
	}

	existing, err := s.repo.Transaction().GetByPaymentID(ctx, req.PaymentID)
	if err == nil {
		log.Info("Payment already verified", "user_id", existing.UserID)
		resp := s.alreadyVerified(ctx, existing, req.PaymentRequestID)
		// Nothing has authenticated the caller yet
		if !s.hasValidSignature(req) {
			resp.UserID = ""
		}
		return resp, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}

	verified, providerRequest, err := s.verify(ctx, req, log)
	if err != nil {
		return nil, err
	}
	if !verified {
		log.Info("Payment not verified", "status", req.Status)
		return &VerifyPaymentResponse{
			Success:  false,
			Verified: false,
			Message:  msgPaymentNotCompleted,
		}, nil
	}

	payload := s.resolvePayload(req, providerRequest)

	userID, err := s.resolvePayer(ctx, req, payload, log)
	if err != nil {
		return nil, err
	}
	log = log.With("user_id", userID)

	txn := &models.Transaction{
		UserID:           userID,
		Amount:           s.resolveAmount(req, providerRequest),
		Status:           models.TransactionCompleted,
		PaymentID:        req.PaymentID,
		PaymentRequestID: req.PaymentRequestID,
		Source:           req.Source,
	}
	if err := s.repo.Transaction().Create(ctx, txn); err != nil {
		if !repositories.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to record transaction: %w", err)
		}
		// Lost the race to a concurrent delivery of the same payment
		log.Info("Transaction recorded concurrently")
		winner, getErr := s.repo.Transaction().GetByPaymentID(ctx, req.PaymentID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrent transaction: %w", getErr)
		}
		return s.alreadyVerified(ctx, winner, req.PaymentRequestID), nil
	}
	log.Info("Transaction recorded", "amount", txn.Amount.StringFixed(2))
	s.notifier.PaymentVerified(ctx, txn, req.PaymentRequestID)

	assessmentCreated := s.materialize(ctx, userID, req, payload, log)

	return &VerifyPaymentResponse{
		Success:           true,
		Verified:          true,
		Message:           msgPaymentVerified,
		UserID:            userID,
		AssessmentCreated: assessmentCreated,
	}, nil
}

// verify applies the trust policy: a signed Credit webhook is trusted as is,
// everything else is confirmed against the provider
func (s *verificationService) verify(ctx context.Context, req *VerifyPaymentRequest, log *slog.Logger) (bool, *payment.PaymentRequest, error) {
	salt := s.cfg.Payment.WebhookSalt
	if req.Source == SourceWebhook && salt != "" {
		if !s.hasValidSignature(req) {
			s.serviceLogger.LogSecurityEvent(ctx, SecurityEvent{
				Type:        SecurityEventInvalidSignature,
				Severity:    SecuritySeverityHigh,
				Description: "webhook signature mismatch",
				Metadata: map[string]interface{}{
					"payment_id":         req.PaymentID,
					"payment_request_id": req.PaymentRequestID,
					"mac_present":        req.MAC != "",
				},
			})
			return false, nil, ErrInvalidSignature
		}
		return strings.EqualFold(req.Status, webhookCreditStatus), nil, nil
	}

	providerRequest, err := s.gateway.GetPaymentRequest(ctx, req.PaymentRequestID)
	if err != nil {
		if errors.Is(err, payment.ErrCredentialsMissing) {
			return false, nil, fmt.Errorf("%w: %v", ErrPaymentConfiguration, err)
		}
		log.Error("Payment provider lookup failed", "error", err)
		return false, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	log.Debug("Provider payment request state",
		"provider_status", providerRequest.Status,
		"payments", len(providerRequest.Payments))

	return providerRequest.IsCompleted() && providerRequest.HasPayment(req.PaymentID), providerRequest, nil
}

// hasValidSignature reports whether req is a webhook carrying a MAC that matches the configured salt
func (s *verificationService) hasValidSignature(req *VerifyPaymentRequest) bool {
	salt := s.cfg.Payment.WebhookSalt
	if req.Source != SourceWebhook || salt == "" || req.MAC == "" {
		return false
	}
	return payment.VerifyMAC(req.Fields, salt, req.MAC)
}

// resolvePayload prefers explicit data, then the notes sent with the request, then the provider's copy
func (s *verificationService) resolvePayload(req *VerifyPaymentRequest, providerRequest *payment.PaymentRequest) *models.AssessmentPayload {
	if req.AssessmentData != nil && strings.TrimSpace(req.AssessmentData.Skill) != "" {
		return req.AssessmentData
	}
	if payload, err := payment.DecodeNotes(req.Notes); err == nil {
		return payload
	}
	if providerRequest != nil {
		if payload, err := payment.DecodeNotes(providerRequest.Notes); err == nil {
			return payload
		}
	}
	return nil
}

func (s *verificationService) resolvePayer(ctx context.Context, req *VerifyPaymentRequest, payload *models.AssessmentPayload, log *slog.Logger) (string, error) {
	emails := []string{req.BuyerEmail}
	if payload != nil {
		emails = append(emails, payload.Email)
	}
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		profile, err := s.repo.Profile().GetByEmail(ctx, email)
		if err == nil {
			return profile.ID, nil
		}
		if !repositories.IsNotFoundError(err) {
			log.Warn("Profile lookup by email failed", "error", err)
		}
	}

	if req.BearerToken != "" && s.verifier != nil {
		identity, err := s.verifier.Verify(ctx, req.BearerToken)
		if err == nil {
			return identity.UserID, nil
		}
		s.serviceLogger.LogSecurityEvent(ctx, SecurityEvent{
			Type:        SecurityEventInvalidToken,
			Severity:    SecuritySeverityMedium,
			Description: "bearer token rejected during payment verification",
			Metadata:    map[string]interface{}{"payment_id": req.PaymentID},
		})
	}

	log.Error("Could not identify paying user")
	return "", ErrPayerNotIdentified
}

func (s *verificationService) resolveAmount(req *VerifyPaymentRequest, providerRequest *payment.PaymentRequest) decimal.Decimal {
	candidates := []string{req.Amount}
	if providerRequest != nil {
		candidates = append(candidates, providerRequest.Amount.String())
	}
	candidates = append(candidates, s.cfg.Payment.Fee)

	for _, candidate := range candidates {
		amount, err := decimal.NewFromString(strings.TrimSpace(candidate))
		if err == nil && amount.IsPositive() {
			return amount
		}
	}
	return decimal.Zero
}

// materialize creates the assessment for a fresh transaction. Failure is logged and reported, never fatal.
func (s *verificationService) materialize(ctx context.Context, userID string, req *VerifyPaymentRequest, payload *models.AssessmentPayload, log *slog.Logger) bool {
	if payload == nil {
		log.Warn("No assessment data with payment, waiting for client fallback")
		return false
	}
	if !models.IsKnownSkill(payload.Skill) {
		log.Warn("Assessment data names an unknown skill", "skill", payload.Skill)
		return false
	}

	assessment, created, err := materializeAssessment(ctx, s.repo, userID, req.PaymentID, req.PaymentRequestID, payload)
	if err != nil {
		log.Error("Assessment materialization failed", "error", err)
		return false
	}
	if created {
		log.Info("Assessment materialized", "assessment_id", assessment.ID, "skill", assessment.Skill)
		s.notifier.AssessmentChanged(ctx, events.EventAssessmentMaterialized, assessment, nil)
	}
	return true
}

func (s *verificationService) alreadyVerified(ctx context.Context, txn *models.Transaction, paymentRequestID string) *VerifyPaymentResponse {
	if paymentRequestID == "" {
		paymentRequestID = txn.PaymentRequestID
	}
	created := false
	if _, err := s.repo.Assessment().GetByPaymentRequestID(ctx, paymentRequestID); err == nil {
		created = true
	} else if !repositories.IsNotFoundError(err) {
		s.logger.Warn("Assessment lookup failed", "payment_request_id", paymentRequestID, "error", err)
	}

	return &VerifyPaymentResponse{
		Success:           true,
		Verified:          true,
		Message:           msgAlreadyVerified,
		UserID:            txn.UserID,
		AssessmentCreated: created,
	}
}

func (s *verificationService) recordGatewayEvent(ctx context.Context, req *VerifyPaymentRequest, log *slog.Logger) *models.PaymentGatewayEvent {
	log.Debug("Webhook received", "fields", redactFields(req.Fields))

	payload, err := json.Marshal(req.Fields)
	if err != nil {
		log.Warn("Failed to encode webhook payload", "error", err)
		payload = []byte("{}")
	}

	event := &models.PaymentGatewayEvent{
		PaymentID:        req.PaymentID,
		PaymentRequestID: req.PaymentRequestID,
		ProviderStatus:   req.Status,
		Payload:          datatypes.JSON(payload),
		Status:           models.GatewayEventReceived,
		ReceivedAt:       time.Now().UTC(),
	}
	if req.MAC != "" {
		mac := req.MAC
		event.MAC = &mac
	}
	if err := s.repo.GatewayEvent().Create(ctx, event); err != nil {
		log.Warn("Failed to record gateway event", "error", err)
		return nil
	}
	return event
}

func (s *verificationService) finishGatewayEvent(ctx context.Context, event *models.PaymentGatewayEvent, resp *VerifyPaymentResponse, err error, log *slog.Logger) {
	if event == nil {
		return
	}

	status := models.GatewayEventProcessed
	var errMsg *string
	switch {
	case err != nil:
		status = models.GatewayEventFailed
		msg := err.Error()
		errMsg = &msg
	case resp == nil || !resp.Verified || resp.Message == msgAlreadyVerified:
		status = models.GatewayEventIgnored
	}

	if markErr := s.repo.GatewayEvent().MarkStatus(context.WithoutCancel(ctx), event.ID, status, errMsg); markErr != nil {
		log.Warn("Failed to update gateway event", "event_id", event.ID, "error", markErr)
	}
}
