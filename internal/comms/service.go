package comms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/pagination"
)

// Service is the producer-facing surface of the outbox: enqueueing, reading,
// cancelling, template management and delivery receipts. The delivery worker
// never goes through this service.
type Service interface {
	Enqueue(ctx context.Context, params EnqueueParams) (*models.OutboxMessage, error)
	Get(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Cancel(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error)

	CreateTemplate(ctx context.Context, params TemplateParams) (*models.MessageTemplate, error)
	ListTemplates(ctx context.Context, schoolID int64) ([]models.MessageTemplate, error)

	RecordReceipt(ctx context.Context, params ReceiptParams) (*models.DeliveryReceipt, error)
}

// EnqueueParams describes a new outbound message. Body may be omitted when
// TemplateID resolves a stored template.
type EnqueueParams struct {
	SchoolID     int64
	Channel      enums.Channel
	Recipient    string
	Subject      *string
	Body         string
	TemplateID   *int64
	ProviderHint *string
	ScheduledAt  *time.Time
}

// ListParams filters the school's outbox messages.
type ListParams struct {
	SchoolID int64
	Status   enums.OutboxStatus
	Channel  enums.Channel
	Limit    int
	Cursor   string
}

// ListResult wraps a page of messages and the cursor for the next page.
type ListResult struct {
	Items  []models.OutboxMessage `json:"items"`
	Cursor string                 `json:"cursor"`
}

// TemplateParams describes a new message template.
type TemplateParams struct {
	SchoolID int64
	Name     string
	Channel  enums.Channel
	Body     string
}

// ReceiptParams records a provider delivery-status callback.
type ReceiptParams struct {
	ProviderMessageID string
	ProviderStatus    *string
	Raw               json.RawMessage
}

type service struct {
	repo Repository
}

// NewService wires the comms dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comms repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Enqueue(ctx context.Context, params EnqueueParams) (*models.OutboxMessage, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown channel")
	}
	if params.Recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}

	body := params.Body
	if body == "" && params.TemplateID != nil {
		tpl, err := s.repo.FindTemplate(ctx, params.SchoolID, *params.TemplateID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve template")
		}
		if tpl == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		if tpl.Channel != params.Channel {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "template channel does not match message channel")
		}
		body = tpl.Body
	}
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "body or template_id required")
	}

	msg := &models.OutboxMessage{
		SchoolID:     params.SchoolID,
		Channel:      params.Channel,
		Recipient:    params.Recipient,
		Subject:      params.Subject,
		Body:         body,
		TemplateID:   params.TemplateID,
		ProviderHint: params.ProviderHint,
		Status:       enums.OutboxStatusPending,
		ScheduledAt:  params.ScheduledAt,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue message")
	}
	return msg, nil
}

func (s *service) Get(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
	if schoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	msg, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load message")
	}
	if msg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	return msg, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	if params.Channel != "" && !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown channel filter")
	}

	query := listMessagesParams{
		SchoolID: params.SchoolID,
		Status:   params.Status,
		Channel:  params.Channel,
		Limit:    params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// Cancel moves a PENDING or ERROR message to CANCELLED. Terminal and in-flight
// messages cannot be cancelled.
func (s *service) Cancel(ctx context.Context, schoolID, id int64) (*models.OutboxMessage, error) {
	if schoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	result, err := s.repo.Cancel(ctx, schoolID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel message")
	}
	if !result.Found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	if !result.Cancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "message is not cancellable in status "+string(result.Status))
	}
	return s.Get(ctx, schoolID, id)
}

func (s *service) CreateTemplate(ctx context.Context, params TemplateParams) (*models.MessageTemplate, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if params.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name required")
	}
	if !params.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown channel")
	}
	if params.Body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template body required")
	}

	tpl := &models.MessageTemplate{
		SchoolID: params.SchoolID,
		Name:     params.Name,
		Channel:  params.Channel,
		Body:     params.Body,
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store template")
	}
	return tpl, nil
}

func (s *service) ListTemplates(ctx context.Context, schoolID int64) ([]models.MessageTemplate, error) {
	if schoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	rows, err := s.repo.ListTemplates(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	return rows, nil
}

// RecordReceipt attaches a provider status callback to the sent message it
// refers to, matched on the provider message id.
func (s *service) RecordReceipt(ctx context.Context, params ReceiptParams) (*models.DeliveryReceipt, error) {
	if params.ProviderMessageID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider message id required")
	}
	msg, err := s.repo.FindByProviderMessageID(ctx, params.ProviderMessageID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve message for receipt")
	}
	if msg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no message with that provider message id")
	}

	receipt := &models.DeliveryReceipt{
		OutboxID:       msg.ID,
		ProviderStatus: params.ProviderStatus,
		Raw:            params.Raw,
	}
	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store receipt")
	}
	return receipt, nil
}
