package middleware

import (
	"net/http"
	"strconv"

	"github.com/vidyalane/schoolops-backend/api/responses"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

// HeaderSchoolID carries the tenant for every school-scoped request.
const HeaderSchoolID = "X-School-ID"

// Tenant resolves the school id header into the request context. Requests
// without a parseable positive school id are rejected before reaching handlers.
func Tenant(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderSchoolID)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-School-ID header is required"))
				return
			}
			schoolID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || schoolID <= 0 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-School-ID must be a positive integer"))
				return
			}
			ctx := WithSchoolID(r.Context(), schoolID)
			if logg != nil {
				ctx = logg.WithSchoolID(ctx, schoolID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
