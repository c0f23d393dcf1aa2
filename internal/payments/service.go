package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vidyalane/schoolops-backend/pkg/db"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

// EventGuard is an optional fast-path duplicate filter in front of the
// database unique key. Losing the guard (or a guard failure) only costs a
// round trip; the unique index remains the source of truth.
type EventGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookEventKey(schoolID int64, provider, eventID string) string
}

// Service ingests gateway webhook events and manages their transactions.
type Service interface {
	CreateTransaction(ctx context.Context, params TransactionParams) (*models.PgTransaction, error)
	GetTransaction(ctx context.Context, schoolID, id int64) (*models.PgTransaction, error)
	Ingest(ctx context.Context, params IngestParams) (*models.PaymentEvent, error)
}

// TransactionParams describes a new gateway transaction row.
type TransactionParams struct {
	SchoolID  int64
	Provider  string
	Amount    decimal.Decimal
	Currency  string
	OrderID   *string
	PaymentID *string
	Raw       json.RawMessage
}

// IngestParams carries one inbound gateway event.
type IngestParams struct {
	SchoolID  int64
	Provider  string
	EventID   string
	EventType string
	OrderID   *string
	PaymentID *string
	Raw       json.RawMessage
}

// ServiceParams wires the Ingest dependencies. Guard may be nil.
type ServiceParams struct {
	Repo     Repository
	Guard    EventGuard
	GuardTTL time.Duration
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	guard    EventGuard
	guardTTL time.Duration
	logg     *logger.Logger
}

// NewService validates and wires the payments dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	ttl := params.GuardTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &service{
		repo:     params.Repo,
		guard:    params.Guard,
		guardTTL: ttl,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateTransaction(ctx context.Context, params TransactionParams) (*models.PgTransaction, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if params.Provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider required")
	}
	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}
	row := &models.PgTransaction{
		SchoolID:  params.SchoolID,
		Provider:  params.Provider,
		Amount:    params.Amount,
		Currency:  currency,
		OrderID:   params.OrderID,
		PaymentID: params.PaymentID,
		Status:    enums.PaymentStatusCreated,
		Raw:       params.Raw,
	}
	if err := s.repo.CreateTransaction(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store transaction")
	}
	return row, nil
}

func (s *service) GetTransaction(ctx context.Context, schoolID, id int64) (*models.PgTransaction, error) {
	if schoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	row, err := s.repo.FindTransaction(ctx, schoolID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return row, nil
}

// Ingest records one gateway event exactly once. Replays of the same
// (school, provider, event_id) return the first stored record unchanged, no
// matter what the replayed payload says.
func (s *service) Ingest(ctx context.Context, params IngestParams) (*models.PaymentEvent, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if params.Provider == "" || params.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider and event_id required")
	}
	if params.EventType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event_type required")
	}

	if s.guard != nil {
		key := s.guard.WebhookEventKey(params.SchoolID, params.Provider, params.EventID)
		first, err := s.guard.SetNX(ctx, key, "1", s.guardTTL)
		if err != nil && s.logg != nil {
			s.logg.Warn(ctx, "webhook guard unavailable, falling through to database")
		}
		if err == nil && !first {
			existing, err := s.repo.FindEvent(ctx, params.SchoolID, params.Provider, params.EventID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replayed event")
			}
			if existing != nil {
				return existing, nil
			}
			// guard knew the key but the row is missing (e.g. an earlier
			// ingest failed after claiming it); continue as a fresh event.
		}
	}

	existing, err := s.repo.FindEvent(ctx, params.SchoolID, params.Provider, params.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event idempotency")
	}
	if existing != nil {
		return existing, nil
	}

	tx := s.correlate(ctx, params)
	status := deriveStatus(params.EventType, params.Raw)

	event := &models.PaymentEvent{
		SchoolID:  params.SchoolID,
		Provider:  params.Provider,
		EventID:   params.EventID,
		EventType: params.EventType,
		Raw:       params.Raw,
	}
	if tx != nil {
		event.PgTransactionID = &tx.ID
	}
	if status != "" {
		derived := string(status)
		event.StatusDerived = &derived
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost the insert race; the first writer's record wins
			winner, findErr := s.repo.FindEvent(ctx, params.SchoolID, params.Provider, params.EventID)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store event")
	}

	if tx != nil && status != "" && tx.Status != status {
		if err := s.repo.UpdateTransactionStatus(ctx, tx.ID, status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction status")
		}
	}
	return event, nil
}

// correlate resolves the transaction an event refers to: payment_id first,
// then order_id, exact match only.
func (s *service) correlate(ctx context.Context, params IngestParams) *models.PgTransaction {
	if params.PaymentID != nil && *params.PaymentID != "" {
		tx, err := s.repo.FindTransactionByPaymentID(ctx, params.SchoolID, *params.PaymentID)
		if err == nil && tx != nil {
			return tx
		}
	}
	if params.OrderID != nil && *params.OrderID != "" {
		tx, err := s.repo.FindTransactionByOrderID(ctx, params.SchoolID, *params.OrderID)
		if err == nil && tx != nil {
			return tx
		}
	}
	return nil
}
