package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionStatus string

const TransactionCompleted TransactionStatus = "completed"

// Transaction is recorded once per confirmed payment
type Transaction struct {
	ID               string            `json:"id" gorm:"primaryKey;type:uuid"`
	UserID           string            `json:"user_id" gorm:"not null;size:255;index"`
	Amount           decimal.Decimal   `json:"amount" gorm:"type:numeric(10,2);not null"`
	Status           TransactionStatus `json:"status" gorm:"not null;size:16"`
	PaymentID        string            `json:"payment_id" gorm:"not null;size:100;uniqueIndex"`
	PaymentRequestID string            `json:"payment_request_id" gorm:"size:100;index"`
	Source           string            `json:"source" gorm:"size:16"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

type GatewayEventStatus string

const (
	GatewayEventReceived  GatewayEventStatus = "received"
	GatewayEventProcessed GatewayEventStatus = "processed"
	GatewayEventIgnored   GatewayEventStatus = "ignored"
	GatewayEventFailed    GatewayEventStatus = "failed"
)

// PaymentGatewayEvent keeps every provider callback for debugging and replay
type PaymentGatewayEvent struct {
	ID               uint               `json:"id" gorm:"primaryKey"`
	PaymentID        string             `json:"payment_id" gorm:"size:100;index"`
	PaymentRequestID string             `json:"payment_request_id" gorm:"size:100"`
	ProviderStatus   string             `json:"provider_status" gorm:"size:32"`
	Payload          datatypes.JSON     `json:"payload" gorm:"type:jsonb"`
	MAC              *string            `json:"mac" gorm:"size:128"`
	Status           GatewayEventStatus `json:"status" gorm:"not null;size:16;default:received"`
	Error            *string            `json:"error" gorm:"type:text"`
	ReceivedAt       time.Time          `json:"received_at" gorm:"not null"`
	ProcessedAt      *time.Time         `json:"processed_at"`
}

func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}

// AssessmentPayload is the assessment selection staged alongside a payment
type AssessmentPayload struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Age        int    `json:"age,omitempty"`
	Skill      string `json:"skill" validate:"required"`
	PinCode    string `json:"pinCode"`
	SchoolName string `json:"schoolName"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
