package postgres

import (
	"context"
	"time"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type TransactionPostgreSQL struct {
	db *gorm.DB
}

func NewTransactionPostgreSQL(db *gorm.DB) repositories.TransactionRepository {
	return &TransactionPostgreSQL{db: db}
}

// Create inserts the transaction; a duplicate payment id surfaces as a unique violation
func (t *TransactionPostgreSQL) Create(ctx context.Context, transaction *models.Transaction) error {
	return t.db.WithContext(ctx).Create(transaction).Error
}

func (t *TransactionPostgreSQL) GetByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := t.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (t *TransactionPostgreSQL) List(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error) {
	query := t.db.WithContext(ctx).Model(&models.Transaction{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []*models.Transaction
	err := applyPaginationAndSort(query, "created_at", "desc", nil, limit, offset).Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

type GatewayEventPostgreSQL struct {
	db *gorm.DB
}

func NewGatewayEventPostgreSQL(db *gorm.DB) repositories.GatewayEventRepository {
	return &GatewayEventPostgreSQL{db: db}
}

func (g *GatewayEventPostgreSQL) Create(ctx context.Context, event *models.PaymentGatewayEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	return g.db.WithContext(ctx).Create(event).Error
}

func (g *GatewayEventPostgreSQL) MarkStatus(ctx context.Context, id uint, status models.GatewayEventStatus, errMsg *string) error {
	return g.db.WithContext(ctx).
		Model(&models.PaymentGatewayEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"error":        errMsg,
			"processed_at": time.Now(),
		}).Error
}
