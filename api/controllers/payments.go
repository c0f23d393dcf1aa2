package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vidyalane/schoolops-backend/api/middleware"
	"github.com/vidyalane/schoolops-backend/api/responses"
	"github.com/vidyalane/schoolops-backend/api/validators"
	"github.com/vidyalane/schoolops-backend/internal/payments"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

type webhookEventRequest struct {
	Provider  string          `json:"provider" validate:"required"`
	EventID   string          `json:"event_id" validate:"required"`
	EventType string          `json:"event_type" validate:"required"`
	OrderID   *string         `json:"order_id"`
	PaymentID *string         `json:"payment_id"`
	Raw       json.RawMessage `json:"raw"`
}

// PaymentsWebhookEvent ingests one gateway event. Replays of an already
// recorded event return the stored record with a 200, never an error.
func PaymentsWebhookEvent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload webhookEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Ingest(r.Context(), payments.IngestParams{
			SchoolID:  middleware.SchoolIDFromContext(r.Context()),
			Provider:  strings.TrimSpace(payload.Provider),
			EventID:   strings.TrimSpace(payload.EventID),
			EventType: strings.TrimSpace(payload.EventType),
			OrderID:   payload.OrderID,
			PaymentID: payload.PaymentID,
			Raw:       payload.Raw,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

type transactionCreateRequest struct {
	Provider  string          `json:"provider" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Currency  string          `json:"currency"`
	OrderID   *string         `json:"order_id"`
	PaymentID *string         `json:"payment_id"`
	Raw       json.RawMessage `json:"raw"`
}

// PaymentsCreateTransaction registers a gateway transaction for later
// webhook correlation.
func PaymentsCreateTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload transactionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := svc.CreateTransaction(r.Context(), payments.TransactionParams{
			SchoolID:  middleware.SchoolIDFromContext(r.Context()),
			Provider:  strings.TrimSpace(payload.Provider),
			Amount:    payload.Amount,
			Currency:  strings.TrimSpace(payload.Currency),
			OrderID:   payload.OrderID,
			PaymentID: payload.PaymentID,
			Raw:       payload.Raw,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tx)
	}
}

// PaymentsTransactionDetail returns one transaction scoped to the school.
func PaymentsTransactionDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		id, err := pathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := svc.GetTransaction(r.Context(), middleware.SchoolIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}
