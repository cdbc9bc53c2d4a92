package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/skillbadge/assessment-service/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const StatusCompleted = "Completed"

var (
	ErrCredentialsMissing = errors.New("payment provider credentials not configured")
	ErrNoEndpoints        = errors.New("no payment request endpoints configured")
	ErrInvalidResponse    = errors.New("invalid response from payment provider")
)

// ProviderError is a non-2xx answer from the provider
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider returned %d from %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// CreateRequest is the hosted payment request the buyer will be sent to
type CreateRequest struct {
	Purpose     string
	Amount      string
	BuyerName   string
	Email       string
	Phone       string
	RedirectURL string
	Webhook     string
	Notes       string
}

func (r CreateRequest) form() map[string]string {
	form := map[string]string{
		"purpose":                 r.Purpose,
		"amount":                  r.Amount,
		"buyer_name":              r.BuyerName,
		"email":                   r.Email,
		"phone":                   r.Phone,
		"redirect_url":            r.RedirectURL,
		"webhook":                 r.Webhook,
		"send_email":              "true",
		"send_sms":                "false",
		"allow_repeated_payments": "false",
	}
	if r.Notes != "" {
		form["notes"] = r.Notes
	}
	return form
}

// PaymentRequest is the provider's view of a payment request
type PaymentRequest struct {
	ID       string            `json:"id"`
	LongURL  string            `json:"longurl"`
	Status   string            `json:"status"`
	Amount   flexString        `json:"amount"`
	Notes    string            `json:"notes"`
	Payments []json.RawMessage `json:"payments"`
}

// IsCompleted reports whether the provider considers the request paid
func (p *PaymentRequest) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// HasPayment reports whether paymentID appears among the request's payments.
// Entries are either payment URLs or payment objects.
func (p *PaymentRequest) HasPayment(paymentID string) bool {
	if paymentID == "" {
		return false
	}
	for _, raw := range p.Payments {
		var entry string
		if err := json.Unmarshal(raw, &entry); err == nil {
			if strings.Contains(entry, paymentID) {
				return true
			}
			continue
		}

		var obj struct {
			ID        string `json:"id"`
			PaymentID string `json:"payment_id"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			if obj.ID == paymentID || obj.PaymentID == paymentID {
				return true
			}
		}
	}
	return false
}

// Client talks to the payment provider's v2 API
type Client struct {
	cfg        config.PaymentConfig
	httpClient *http.Client
	rest       *resty.Client
	logger     *slog.Logger
}

func NewClient(cfg config.PaymentConfig, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		rest:       resty.NewWithClient(httpClient).SetHeader("Accept", "application/json"),
		logger:     logger,
	}
}

// Token obtains an access token with the client credentials grant
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", ErrCredentialsMissing
	}

	cc := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	token, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return "", fmt.Errorf("failed to get payment provider access token: %w", err)
	}
	return token.AccessToken, nil
}

// CreatePaymentRequest tries each configured endpoint in order and returns the first success
func (c *Client) CreatePaymentRequest(ctx context.Context, in CreateRequest) (*PaymentRequest, error) {
	endpoints := c.cfg.Endpoints()
	if len(endpoints) == 0 || endpoints[0] == "" {
		return nil, ErrNoEndpoints
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		request, err := c.createAt(ctx, endpoint, token, in)
		if err == nil {
			c.logger.Info("Payment request created", "endpoint", endpoint, "payment_request_id", request.ID)
			return request, nil
		}
		c.logger.Warn("Payment endpoint failed, trying next", "endpoint", endpoint, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("all payment endpoints failed: %w", lastErr)
}

func (c *Client) createAt(ctx context.Context, endpoint, token string, in CreateRequest) (*PaymentRequest, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetFormData(in.form()).
		Post(endpoint)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &ProviderError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Message: providerMessage(resp.Body())}
	}

	request, err := decodePaymentRequest(resp.Body())
	if err != nil {
		return nil, err
	}
	if request.ID == "" || request.LongURL == "" {
		return nil, fmt.Errorf("%w: missing payment URL or ID", ErrInvalidResponse)
	}
	return request, nil
}

// GetPaymentRequest reads the current state of a payment request
func (c *Client) GetPaymentRequest(ctx context.Context, paymentRequestID string) (*PaymentRequest, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.ReadURL, "/") + "/" + paymentRequestID + "/"
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ProviderError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Message: providerMessage(resp.Body())}
	}
	return decodePaymentRequest(resp.Body())
}

// decodePaymentRequest accepts the flat shape and the one nested under payment_request
func decodePaymentRequest(body []byte) (*PaymentRequest, error) {
	var envelope struct {
		PaymentRequest
		Nested *PaymentRequest `json:"payment_request"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if envelope.Nested != nil && envelope.ID == "" {
		return envelope.Nested, nil
	}
	request := envelope.PaymentRequest
	return &request, nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// flexString decodes a JSON string or number into its string form
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}
