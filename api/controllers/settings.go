package controllers

import (
	"net/http"
	"strings"

	"github.com/vidyalane/schoolops-backend/api/middleware"
	"github.com/vidyalane/schoolops-backend/api/responses"
	"github.com/vidyalane/schoolops-backend/api/validators"
	"github.com/vidyalane/schoolops-backend/internal/credentials"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

type credentialCreateRequest struct {
	Provider string            `json:"provider" validate:"required"`
	Label    string            `json:"label"`
	Secret   map[string]string `json:"secret" validate:"required"`
}

// CredentialsCreate stores a sealed credential set for a provider. The
// response never carries the secret material.
func CredentialsCreate(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}

		var payload credentialCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Create(r.Context(), credentials.CreateParams{
			SchoolID: middleware.SchoolIDFromContext(r.Context()),
			Provider: strings.TrimSpace(payload.Provider),
			Label:    payload.Label,
			Secret:   payload.Secret,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

// CredentialsList returns credential metadata for the school.
func CredentialsList(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}

		summaries, err := svc.List(r.Context(), middleware.SchoolIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}
