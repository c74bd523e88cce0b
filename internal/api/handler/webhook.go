package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/service"
)

// WebhookHandler receives pushes from the two upstreams: the H2H provider's
// free-text transaction reports and the payment gateway's payment notices.
type WebhookHandler struct {
	trxSvc     *service.TransactionService
	depositSvc *service.DepositService
	// shared secrets, one per upstream
	providerToken string
	gatewayToken  string
}

func NewWebhookHandler(trxSvc *service.TransactionService, depositSvc *service.DepositService, providerToken, gatewayToken string) *WebhookHandler {
	return &WebhookHandler{
		trxSvc:        trxSvc,
		depositSvc:    depositSvc,
		providerToken: providerToken,
		gatewayToken:  gatewayToken,
	}
}

func tokenMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type providerCallbackBody struct {
	RefID   string `json:"refid"`
	Message string `json:"message"`
}

// ProviderCallback ingests a transaction report. The provider delivers the
// same free-text Indonesian sentence it would show an operator, either as
// `refid` and `message` query parameters or as a JSON body. Delivery is at
// least once.
// @Summary H2H provider transaction report
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} models.Transaction
// @Router /webhooks/provider [post]
func (h *WebhookHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	if !tokenMatches(r.URL.Query().Get("token"), h.providerToken) {
		RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-token", "invalid webhook token")
		return
	}

	ref := r.URL.Query().Get("refid")
	message := r.URL.Query().Get("message")
	if message == "" && r.Body != nil {
		var body providerCallbackBody
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if ref == "" {
				ref = body.RefID
			}
			message = body.Message
		}
	}
	if message == "" {
		RespondError(w, r, http.StatusBadRequest, "webhook/empty-message", "callback message is required")
		return
	}

	trx, err := h.trxSvc.HandleCallback(r.Context(), ref, message)
	if err != nil {
		// an unknown reference is the provider's problem, not ours; answer 200
		// so it stops retrying, but keep the payload in the log
		if errors.Is(err, models.ErrNotFound) {
			zap.L().Warn("callback for unknown transaction", zap.String("message", message))
			RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, trx)
}

// GatewayNotification handles the payment gateway's "new payment" push. The
// notice itself carries no trustworthy detail; it only triggers a sweep of
// the mutation feed against pending deposits.
// @Summary QRIS payment gateway notification
// @Tags webhooks
// @Produce json
// @Success 200 {object} map[string]int
// @Router /webhooks/qris [post]
func (h *WebhookHandler) GatewayNotification(w http.ResponseWriter, r *http.Request) {
	if !tokenMatches(r.Header.Get("X-Callback-Token"), h.gatewayToken) {
		RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-token", "invalid webhook token")
		return
	}

	credited, err := h.depositSvc.ReconcileAll(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{"credited": credited})
}
