package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

const formContentType = "application/x-www-form-urlencoded"

type PaymentHandler struct {
	BaseHandler
	paymentService      services.PaymentService
	verificationService services.VerificationService
}

func NewPaymentHandler(
	paymentService services.PaymentService,
	verificationService services.VerificationService,
	logger utils.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:         NewBaseHandler(logger),
		paymentService:      paymentService,
		verificationService: verificationService,
	}
}

// CreatePayment opens a hosted payment request for an assessment
// @Summary Create payment request
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body services.CreatePaymentRequest true "Buyer and assessment details"
// @Success 200 {object} services.CreatePaymentResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request payload"})
		return
	}

	h.LogRequest(c, "Creating payment request", "skill", req.Skill)

	resp, err := h.paymentService.CreatePayment(c.Request.Context(), &req, c.GetHeader("Origin"))
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyPayment accepts both the provider webhook (form encoded) and the frontend redirect call (JSON)
// @Summary Verify payment
// @Tags payments
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Success 200 {object} services.VerifyPaymentResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /payments/verify [post]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var (
		req *services.VerifyPaymentRequest
		ok  bool
	)
	if strings.HasPrefix(c.ContentType(), formContentType) {
		req, ok = h.bindWebhook(c)
	} else {
		req, ok = h.bindRedirect(c)
	}
	if !ok {
		return
	}

	h.LogRequest(c, "Verifying payment",
		"payment_id", req.PaymentID,
		"payment_request_id", req.PaymentRequestID,
		"source", req.Source)

	resp, err := h.verificationService.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) bindWebhook(c *gin.Context) (*services.VerifyPaymentRequest, bool) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid form payload"})
		return nil, false
	}

	fields := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	return &services.VerifyPaymentRequest{
		Source:           services.SourceWebhook,
		PaymentID:        fields["payment_id"],
		PaymentRequestID: fields["payment_request_id"],
		Status:           firstNonEmpty(fields["status"], fields["payment_status"]),
		BuyerName:        fields["buyer_name"],
		BuyerEmail:       firstNonEmpty(fields["buyer"], fields["buyer_email"]),
		Amount:           fields["amount"],
		Notes:            fields["notes"],
		Fields:           fields,
		MAC:              fields["mac"],
	}, true
}

func (h *PaymentHandler) bindRedirect(c *gin.Context) (*services.VerifyPaymentRequest, bool) {
	var req services.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request payload"})
		return nil, false
	}
	req.Source = services.SourceRedirect
	if token, err := auth.BearerToken(c.GetHeader("Authorization")); err == nil {
		req.BearerToken = token
	}
	return &req, true
}

// respondPaymentError keeps the {success, error} envelope the payment pages expect
func (h *PaymentHandler) respondPaymentError(c *gin.Context, err error) {
	status, resp := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.LogError(c, err, "Payment request failed", "status_code", status)
	} else {
		h.LogWarn(c, "Payment request rejected", "status_code", status, "error", err)
	}

	body := gin.H{"success": false, "error": resp.Message}
	if resp.Details != nil {
		body["details"] = resp.Details
	}
	c.JSON(status, body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
