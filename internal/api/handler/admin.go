package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arkapay/ppob-backend/internal/service"
)

// BalanceChecker reports the reseller balance held at the H2H provider.
type BalanceChecker interface {
	Balance(ctx context.Context) (decimal.Decimal, string, error)
}

// AdminHandler groups the operator-only endpoints: user management, catalog
// sync, provider balance and manual refund labeling.
type AdminHandler struct {
	authSvc    *service.AuthService
	catalogSvc *service.CatalogService
	trxSvc     *service.TransactionService
	balance    BalanceChecker
}

func NewAdminHandler(authSvc *service.AuthService, catalogSvc *service.CatalogService, trxSvc *service.TransactionService, balance BalanceChecker) *AdminHandler {
	return &AdminHandler{
		authSvc:    authSvc,
		catalogSvc: catalogSvc,
		trxSvc:     trxSvc,
		balance:    balance,
	}
}

// ListUsers returns registered resellers.
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /v1/admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.authSvc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, users)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's role.
// @Summary Update a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "user id"
// @Param request body updateRoleRequest true "new role"
// @Success 204
// @Router /v1/admin/users/{id}/role [put]
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid user id")
		return
	}
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	if err := h.authSvc.UpdateRole(r.Context(), id, req.Role); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustBalanceRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// AdjustBalance applies a signed manual correction to a user's balance.
// @Summary Adjust a user's balance
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "user id"
// @Param request body adjustBalanceRequest true "signed rupiah delta"
// @Success 200 {object} models.User
// @Router /v1/admin/users/{id}/balance [post]
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid user id")
		return
	}
	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	if req.Delta.IsZero() {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "delta must be non-zero")
		return
	}
	user, err := h.authSvc.AdjustBalance(r.Context(), id, req.Delta)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

// SyncCatalog runs a provider catalog import immediately.
// @Summary Sync the product catalog
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.SyncResult
// @Router /v1/admin/catalog/sync [post]
func (h *AdminHandler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalogSvc.Sync(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type providerBalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Raw     string          `json:"raw"`
}

// ProviderBalance reports the reseller balance held at the H2H provider.
// @Summary H2H provider balance
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} providerBalanceResponse
// @Router /v1/admin/provider/balance [get]
func (h *AdminHandler) ProviderBalance(w http.ResponseWriter, r *http.Request) {
	balance, raw, err := h.balance.Balance(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, providerBalanceResponse{Balance: balance, Raw: raw})
}

type markRefundRequest struct {
	Message *string `json:"message,omitempty"`
}

// MarkRefund relabels a failed transaction as refund after manual review.
// @Summary Mark a failed transaction as refunded
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "transaction id"
// @Success 200 {object} models.Transaction
// @Router /v1/admin/transactions/{id}/refund [post]
func (h *AdminHandler) MarkRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid transaction id")
		return
	}
	var req markRefundRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	trx, err := h.trxSvc.MarkRefund(r.Context(), id, req.Message)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, trx)
}
