package httpapi

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authcore"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps engine errors to status codes with generic bodies.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if retry, ok := authcore.RetryAfter(err); ok {
		secs := int(math.Ceil(retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{"rate_limited"})
		return
	}

	switch {
	case errors.Is(err, errBadBody), errors.Is(err, authcore.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid_request"})
	case errors.Is(err, authcore.ErrInvalidCredential),
		errors.Is(err, authcore.ErrTokenExpired),
		errors.Is(err, authcore.ErrTokenInvalid):
		writeJSON(w, http.StatusUnauthorized, errorResponse{"unauthorized"})
	case errors.Is(err, authcore.ErrCodeExpired),
		errors.Is(err, authcore.ErrCodeMismatch),
		errors.Is(err, authcore.ErrNoActiveCode):
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid_code"})
	case errors.Is(err, authcore.ErrAccountExists):
		writeJSON(w, http.StatusConflict, errorResponse{"account_exists"})
	case errors.Is(err, authcore.ErrVerificationRequired):
		writeJSON(w, http.StatusForbidden, errorResponse{"verification_required"})
	case errors.Is(err, authcore.ErrUnknownProvider):
		writeJSON(w, http.StatusNotFound, errorResponse{"not_found"})
	case errors.Is(err, authcore.ErrProviderError):
		writeJSON(w, http.StatusBadGateway, errorResponse{"provider_error"})
	case errors.Is(err, authcore.ErrStoreUnavailable), errors.Is(err, authcore.ErrCacheUnavailable):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{"unavailable"})
	default:
		a.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal_error"})
	}
}
