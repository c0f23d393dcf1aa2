package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// Repository persists gateway transactions and their inbound event log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, row *models.PgTransaction) error
	FindTransaction(ctx context.Context, schoolID, id int64) (*models.PgTransaction, error)
	FindTransactionByPaymentID(ctx context.Context, schoolID int64, paymentID string) (*models.PgTransaction, error)
	FindTransactionByOrderID(ctx context.Context, schoolID int64, orderID string) (*models.PgTransaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status enums.PaymentStatus) error
	CreateEvent(ctx context.Context, row *models.PaymentEvent) error
	FindEvent(ctx context.Context, schoolID int64, provider, eventID string) (*models.PaymentEvent, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateTransaction(ctx context.Context, row *models.PgTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repositoryImpl) FindTransaction(ctx context.Context, schoolID, id int64) (*models.PgTransaction, error) {
	var row models.PgTransaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", id, schoolID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) FindTransactionByPaymentID(ctx context.Context, schoolID int64, paymentID string) (*models.PgTransaction, error) {
	return r.findTransactionBy(ctx, schoolID, "payment_id = ?", paymentID)
}

func (r *repositoryImpl) FindTransactionByOrderID(ctx context.Context, schoolID int64, orderID string) (*models.PgTransaction, error) {
	return r.findTransactionBy(ctx, schoolID, "order_id = ?", orderID)
}

func (r *repositoryImpl) findTransactionBy(ctx context.Context, schoolID int64, cond, value string) (*models.PgTransaction, error) {
	if value == "" {
		return nil, nil
	}
	var row models.PgTransaction
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Where(cond, value).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) UpdateTransactionStatus(ctx context.Context, id int64, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).Model(&models.PgTransaction{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repositoryImpl) CreateEvent(ctx context.Context, row *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repositoryImpl) FindEvent(ctx context.Context, schoolID int64, provider, eventID string) (*models.PaymentEvent, error) {
	var row models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND provider = ? AND event_id = ?", schoolID, provider, eventID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
