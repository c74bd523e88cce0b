package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arkapay/ppob-backend/internal/service"
)

type DepositHandler struct {
	svc *service.DepositService
}

func NewDepositHandler(svc *service.DepositService) *DepositHandler {
	return &DepositHandler{svc: svc}
}

type createDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Create opens a QRIS deposit.
// @Summary Create a deposit
// @Tags deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createDepositRequest true "deposit amount in whole rupiah"
// @Success 201 {object} models.Deposit
// @Router /v1/deposits [post]
func (h *DepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	deposit, err := h.svc.Create(r.Context(), actorID, req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, deposit)
}

// List returns the caller's deposit history.
// @Summary List deposits
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Deposit
// @Router /v1/deposits [get]
func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	limit, offset := pagination(r)
	deposits, err := h.svc.List(r.Context(), actorID, limit, offset)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, deposits)
}

// Pending returns the caller's open deposit, if one exists.
// @Summary Get the active pending deposit
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Deposit
// @Router /v1/deposits/pending [get]
func (h *DepositHandler) Pending(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	deposit, err := h.svc.Pending(r.Context(), actorID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, deposit)
}

// Get returns one deposit, including its QRIS payload.
// @Summary Get a deposit
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Param id path string true "deposit id"
// @Success 200 {object} models.Deposit
// @Router /v1/deposits/{id} [get]
func (h *DepositHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid deposit id")
		return
	}
	deposit, err := h.svc.Get(r.Context(), id, actorID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, deposit)
}

// Cancel closes a pending deposit.
// @Summary Cancel a deposit
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Param id path string true "deposit id"
// @Success 200 {object} models.Deposit
// @Router /v1/deposits/{id}/cancel [post]
func (h *DepositHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid deposit id")
		return
	}
	deposit, err := h.svc.Cancel(r.Context(), id, actorID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, deposit)
}

// Refresh re-checks the payment gateway for the deposit's payment.
// @Summary Refresh a deposit against the mutation feed
// @Tags deposits
// @Produce json
// @Security BearerAuth
// @Param id path string true "deposit id"
// @Success 200 {object} models.Deposit
// @Router /v1/deposits/{id}/refresh [post]
func (h *DepositHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid deposit id")
		return
	}
	deposit, err := h.svc.Refresh(r.Context(), id, actorID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, deposit)
}
