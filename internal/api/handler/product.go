package handler

import (
	"net/http"

	"github.com/arkapay/ppob-backend/internal/service"
)

type ProductHandler struct {
	svc *service.CatalogService
}

func NewProductHandler(svc *service.CatalogService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List returns the sellable catalog. Admins may pass include_inactive=1.
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Product
// @Router /v1/products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	_, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	includeInactive := isAdmin && r.URL.Query().Get("include_inactive") == "1"
	products, err := h.svc.Products(r.Context(), includeInactive)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, products)
}

// Get returns one product.
// @Summary Get a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "product id"
// @Success 200 {object} models.Product
// @Router /v1/products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "invalid product id")
		return
	}
	product, err := h.svc.Product(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, product)
}
