package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/arkapay/ppob-backend/internal/service"
)

type TransactionHandler struct {
	svc *service.TransactionService
}

func NewTransactionHandler(svc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

type createTransactionRequest struct {
	ProductID string  `json:"product_id"`
	TargetID  string  `json:"target_id"`
	ServerID  *string `json:"server_id,omitempty"`
}

// Create buys a product for a destination account. The price is debited
// immediately; a provider rejection refunds it in the same request.
// @Summary Create a purchase transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createTransactionRequest true "purchase payload"
// @Success 201 {object} models.Transaction
// @Router /v1/transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid product_id")
		return
	}
	if req.TargetID == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-field", "target_id is required")
		return
	}

	trx, err := h.svc.Create(r.Context(), actorID, productID, req.TargetID, req.ServerID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, trx)
}

// List returns the caller's purchase history.
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Transaction
// @Router /v1/transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	limit, offset := pagination(r)
	trxs, err := h.svc.List(r.Context(), actorID, limit, offset)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, trxs)
}

// Get returns one transaction.
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "transaction id"
// @Success 200 {object} models.Transaction
// @Router /v1/transactions/{id} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid transaction id")
		return
	}
	trx, err := h.svc.Get(r.Context(), id, actorID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, trx)
}

// Refresh polls the provider for an unresolved transaction's status.
// @Summary Refresh a transaction's status
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "transaction id"
// @Success 200 {object} models.Transaction
// @Router /v1/transactions/{id}/refresh [post]
func (h *TransactionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid transaction id")
		return
	}
	// ownership check before touching the provider
	if _, err := h.svc.Get(r.Context(), id, actorID); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	trx, err := h.svc.Refresh(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, trx)
}
