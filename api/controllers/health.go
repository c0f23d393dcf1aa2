package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidyalane/schoolops-backend/api/responses"
	"github.com/vidyalane/schoolops-backend/pkg/config"
	"github.com/vidyalane/schoolops-backend/pkg/db"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

const healthPingTimeout = 2 * time.Second

type redisPinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports liveness plus dependency readiness. A nil pinger is
// treated as "not wired" and skipped rather than failing the check.
func Healthz(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redisPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg != nil {
			w.Header().Set("X-SchoolOps-Env", cfg.App.Env)
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
