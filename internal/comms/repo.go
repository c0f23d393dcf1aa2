package comms

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	"github.com/vidyalane/schoolops-backend/pkg/pagination"
)

// Repository owns persistence for outbox messages, message templates and
// delivery receipts. Claim and result writes take an explicit transaction so
// the worker can commit a whole batch pass atomically.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, msg *models.OutboxMessage) error
	FindByID(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error)
	List(ctx context.Context, params listMessagesParams) ([]models.OutboxMessage, *pagination.Cursor, error)
	FetchSendableTx(tx *gorm.DB, limit int) ([]models.OutboxMessage, error)
	ClaimTx(tx *gorm.DB, id int64, from enums.OutboxStatus) (bool, error)
	ApplyResultTx(tx *gorm.DB, id int64, update ResultUpdate) error
	Cancel(ctx context.Context, schoolID, id int64) (cancelResult, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteReceiptsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreateTemplate(ctx context.Context, tpl *models.MessageTemplate) error
	FindTemplate(ctx context.Context, schoolID, id int64) (*models.MessageTemplate, error)
	ListTemplates(ctx context.Context, schoolID int64) ([]models.MessageTemplate, error)

	CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error
	FindByProviderMessageID(ctx context.Context, providerMessageID string) (*models.OutboxMessage, error)
}

// ResultUpdate is the complete outcome of one processing pass. It is written
// as a single UPDATE so attempts, status and error detail can never drift
// apart.
type ResultUpdate struct {
	Status            enums.OutboxStatus
	Attempts          int
	LastError         *string
	SentAt            *time.Time
	ProviderName      *string
	ProviderMessageID *string
}

type listMessagesParams struct {
	SchoolID int64
	Status   enums.OutboxStatus
	Channel  enums.Channel
	Limit    int
	Cursor   *pagination.Cursor
}

type cancelResult struct {
	Cancelled bool
	Found     bool
	Status    enums.OutboxStatus
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a comms repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, msg *models.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
	var msg models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", id, schoolID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listMessagesParams) ([]models.OutboxMessage, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.OutboxMessage{}).Where("school_id = ?", params.SchoolID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Channel != "" {
		query = query.Where("channel = ?", params.Channel)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var messages []models.OutboxMessage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	if len(messages) > normalized {
		next := messages[normalized]
		messages = messages[:normalized]
		return messages, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return messages, nil, nil
}

// FetchSendableTx returns candidate rows in all retry-eligible states, oldest
// first. SENDING rows are included so an attempt interrupted by a crash is
// picked up again; the in-memory eligibility filter applies backoff windows
// and scheduled_at before any row is claimed.
func (r *repositoryImpl) FetchSendableTx(tx *gorm.DB, limit int) ([]models.OutboxMessage, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.OutboxMessage
	err := tx.
		Where("status IN ?", []enums.OutboxStatus{
			enums.OutboxStatusPending,
			enums.OutboxStatusError,
			enums.OutboxStatusSending,
		}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ClaimTx moves a message into SENDING only if it is still in the state the
// worker observed. A zero rows-affected result means someone else got there
// first and the caller must skip the message.
func (r *repositoryImpl) ClaimTx(tx *gorm.DB, id int64, from enums.OutboxStatus) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	result := tx.Model(&models.OutboxMessage{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", enums.OutboxStatusSending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ApplyResultTx(tx *gorm.DB, id int64, update ResultUpdate) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.OutboxMessage{}).
		Where("id = ? AND status = ?", id, enums.OutboxStatusSending).
		Updates(map[string]any{
			"status":              update.Status,
			"attempts":            update.Attempts,
			"last_error":          update.LastError,
			"sent_at":             update.SentAt,
			"provider_name":       update.ProviderName,
			"provider_message_id": update.ProviderMessageID,
		}).Error
}

// Cancel flips a message to CANCELLED from the cancellable states only.
func (r *repositoryImpl) Cancel(ctx context.Context, schoolID, id int64) (cancelResult, error) {
	result := r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ? AND school_id = ? AND status IN ?", id, schoolID, []enums.OutboxStatus{
			enums.OutboxStatusPending,
			enums.OutboxStatusError,
		}).
		Update("status", enums.OutboxStatusCancelled)
	if result.Error != nil {
		return cancelResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return cancelResult{Cancelled: true, Found: true, Status: enums.OutboxStatusCancelled}, nil
	}

	var msg models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", id, schoolID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cancelResult{}, nil
	}
	if err != nil {
		return cancelResult{}, err
	}
	return cancelResult{Found: true, Status: msg.Status}, nil
}

// DeleteTerminalBefore removes terminal rows older than the cutoff.
func (r *repositoryImpl) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []enums.OutboxStatus{
			enums.OutboxStatusSent,
			enums.OutboxStatusFailed,
			enums.OutboxStatusCancelled,
		}, cutoff).
		Delete(&models.OutboxMessage{})
	return result.RowsAffected, result.Error
}

// DeleteReceiptsBefore ages out delivery receipts recorded before the cutoff.
func (r *repositoryImpl) DeleteReceiptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&models.DeliveryReceipt{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CreateTemplate(ctx context.Context, tpl *models.MessageTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *repositoryImpl) FindTemplate(ctx context.Context, schoolID, id int64) (*models.MessageTemplate, error) {
	var tpl models.MessageTemplate
	err := r.db.WithContext(ctx).
		Where("id = ? AND school_id = ?", id, schoolID).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *repositoryImpl) ListTemplates(ctx context.Context, schoolID int64) ([]models.MessageTemplate, error) {
	var rows []models.MessageTemplate
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repositoryImpl) FindByProviderMessageID(ctx context.Context, providerMessageID string) (*models.OutboxMessage, error) {
	var msg models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("provider_message_id = ?", providerMessageID).
		Order("id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
