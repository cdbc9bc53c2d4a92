package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skillbadge/assessment-service/internal/config"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/payment"
	"github.com/skillbadge/assessment-service/internal/validator"
)

const (
	paymentSuccessPath = "/payment-success"
	paymentVerifyPath  = "/api/v1/payments/verify"
)

type paymentService struct {
	gateway   PaymentGateway
	cfg       *config.Config
	logger    *slog.Logger
	validator *validator.Validator
}

func NewPaymentService(gateway PaymentGateway, cfg *config.Config, logger *slog.Logger, validator *validator.Validator) PaymentService {
	return &paymentService{
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		validator: validator,
	}
}

// CreatePayment opens a hosted payment request carrying the assessment selection in its notes.
// Nothing is persisted until the payment is verified.
func (s *paymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest, origin string) (*CreatePaymentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(s.cfg.Payment.Fee)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: invalid assessment fee %q", ErrPaymentConfiguration, s.cfg.Payment.Fee)
	}

	skill, _ := models.CanonicalSkill(req.Skill)
	payload := models.AssessmentPayload{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Mobile:     req.Mobile,
		Age:        req.Age,
		Skill:      skill,
		PinCode:    req.PinCode,
		SchoolName: strings.TrimSpace(req.SchoolName),
	}
	notes, err := payment.EncodeNotes(payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Creating payment request", "email", payload.Email, "skill", payload.Skill)

	created, err := s.gateway.CreatePaymentRequest(ctx, payment.CreateRequest{
		Purpose:     s.cfg.Payment.Purpose,
		Amount:      amount.StringFixed(2),
		BuyerName:   payload.Name,
		Email:       payload.Email,
		Phone:       payload.Mobile,
		RedirectURL: s.redirectURL(origin),
		Webhook:     s.cfg.PublicBaseURL + paymentVerifyPath,
		Notes:       notes,
	})
	if err != nil {
		if errors.Is(err, payment.ErrCredentialsMissing) || errors.Is(err, payment.ErrNoEndpoints) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentConfiguration, err)
		}
		s.logger.Error("Payment request creation failed", "email", payload.Email, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.logger.Info("Payment request created", "payment_request_id", created.ID, "skill", payload.Skill)

	return &CreatePaymentResponse{
		Success:        true,
		PaymentURL:     created.LongURL,
		PaymentID:      created.ID,
		AssessmentData: payload,
	}, nil
}

func (s *paymentService) redirectURL(origin string) string {
	base := strings.TrimRight(strings.TrimSpace(origin), "/")
	if base == "" {
		base = s.cfg.FrontendURL
	}
	return base + paymentSuccessPath
}
