package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidyalane/schoolops-backend/api/middleware"
	"github.com/vidyalane/schoolops-backend/api/responses"
	"github.com/vidyalane/schoolops-backend/api/validators"
	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

type enqueueMessageRequest struct {
	Channel      string     `json:"channel" validate:"required"`
	Recipient    string     `json:"recipient" validate:"required"`
	Subject      *string    `json:"subject"`
	Body         string     `json:"body"`
	TemplateID   *int64     `json:"template_id"`
	ProviderHint *string    `json:"provider_hint"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

// CommsEnqueue accepts a new outbound message for the active school.
func CommsEnqueue(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		var payload enqueueMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channel, err := enums.ParseChannel(strings.TrimSpace(payload.Channel))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel"))
			return
		}

		msg, err := svc.Enqueue(r.Context(), comms.EnqueueParams{
			SchoolID:     middleware.SchoolIDFromContext(r.Context()),
			Channel:      channel,
			Recipient:    strings.TrimSpace(payload.Recipient),
			Subject:      payload.Subject,
			Body:         payload.Body,
			TemplateID:   payload.TemplateID,
			ProviderHint: payload.ProviderHint,
			ScheduledAt:  payload.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// CommsList returns the school's outbox messages, newest first.
func CommsList(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		params := comms.ListParams{SchoolID: middleware.SchoolIDFromContext(r.Context())}

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed, err := enums.ParseOutboxStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			params.Status = parsed
		}
		if channel := strings.TrimSpace(r.URL.Query().Get("channel")); channel != "" {
			parsed, err := enums.ParseChannel(channel)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel"))
				return
			}
			params.Channel = parsed
		}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CommsDetail returns one outbox message scoped to the active school.
func CommsDetail(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		id, err := pathID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.Get(r.Context(), middleware.SchoolIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}

// CommsCancel cancels a pending or errored message.
func CommsCancel(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		id, err := pathID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.Cancel(r.Context(), middleware.SchoolIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}

type templateCreateRequest struct {
	Name    string `json:"name" validate:"required"`
	Channel string `json:"channel" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// TemplateCreate stores a reusable message template.
func TemplateCreate(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		var payload templateCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channel, err := enums.ParseChannel(strings.TrimSpace(payload.Channel))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel"))
			return
		}

		tpl, err := svc.CreateTemplate(r.Context(), comms.TemplateParams{
			SchoolID: middleware.SchoolIDFromContext(r.Context()),
			Name:     strings.TrimSpace(payload.Name),
			Channel:  channel,
			Body:     payload.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tpl)
	}
}

// TemplateList returns the school's message templates.
func TemplateList(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		templates, err := svc.ListTemplates(r.Context(), middleware.SchoolIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, templates)
	}
}

type receiptRequest struct {
	ProviderMessageID string          `json:"provider_message_id" validate:"required"`
	ProviderStatus    *string         `json:"provider_status"`
	Raw               json.RawMessage `json:"raw"`
}

// ReceiptCreate records a provider delivery-status callback. Providers do not
// carry tenant headers; the message is matched by provider_message_id.
func ReceiptCreate(svc comms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comms service unavailable"))
			return
		}

		var payload receiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.RecordReceipt(r.Context(), comms.ReceiptParams{
			ProviderMessageID: strings.TrimSpace(payload.ProviderMessageID),
			ProviderStatus:    payload.ProviderStatus,
			Raw:               payload.Raw,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid id")
	}
	return id, nil
}
