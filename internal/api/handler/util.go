package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arkapay/ppob-backend/internal/api/middleware"
	"github.com/arkapay/ppob-backend/internal/api/problem"
	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
	"github.com/arkapay/ppob-backend/internal/service"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondServiceError maps domain sentinel errors onto HTTP statuses. Errors
// without a mapping become opaque 500s or 503s.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "resource not found")
	case errors.Is(err, models.ErrInsufficientBalance):
		RespondError(w, r, http.StatusUnprocessableEntity, "balance/insufficient", "insufficient balance")
	case errors.Is(err, models.ErrPendingDepositExists):
		RespondError(w, r, http.StatusConflict, "deposit/pending-exists", "a pending deposit already exists, pay or cancel it first")
	case errors.Is(err, models.ErrDepositNotPending):
		RespondError(w, r, http.StatusConflict, "deposit/not-pending", "deposit is no longer pending")
	case errors.Is(err, models.ErrTransactionFinalized):
		RespondError(w, r, http.StatusConflict, "transaction/finalized", "transaction already resolved")
	case errors.Is(err, models.ErrInvalidTransition):
		RespondError(w, r, http.StatusConflict, "transaction/invalid-transition", "status transition not allowed")
	case errors.Is(err, models.ErrProductInactive):
		RespondError(w, r, http.StatusUnprocessableEntity, "product/inactive", "product is not available")
	case errors.Is(err, models.ErrEmailTaken):
		RespondError(w, r, http.StatusConflict, "auth/email-taken", "email already registered")
	case errors.Is(err, models.ErrInvalidCredentials):
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-credentials", "invalid email or password")
	case errors.Is(err, service.ErrInvalidAmount):
		RespondError(w, r, http.StatusBadRequest, "deposit/invalid-amount", err.Error())
	case errors.Is(err, provider.ErrUnreachable), errors.Is(err, gateway.ErrFeedUnavailable):
		RespondError(w, r, http.StatusServiceUnavailable, "upstream/unavailable", "upstream service unavailable, retry later")
	default:
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}
	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// pagination reads limit/offset query params with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
