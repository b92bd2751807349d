package handler

import (
	"encoding/json"
	"net/http"

	"mintgate-api/internal/service"
	"mintgate-api/pkg/apierror"
	"mintgate-api/pkg/response"
)

// CatalogHandler handles item type catalog requests.
type CatalogHandler struct {
	sale *service.SaleService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(sale *service.SaleService) *CatalogHandler {
	return &CatalogHandler{sale: sale}
}

// List handles GET /api/v1/catalog
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.sale.Catalog(r.Context()))
}

// appendTypesRequest is the body of POST /api/v1/catalog/types.
type appendTypesRequest struct {
	Quantities []uint64 `json:"quantities"`
	Prices     []uint64 `json:"prices"`
}

// AppendTypes handles POST /api/v1/catalog/types
func (h *CatalogHandler) AppendTypes(w http.ResponseWriter, r *http.Request) {
	var req appendTypesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	entries, err := h.sale.AppendTypes(r.Context(), req.Quantities, req.Prices)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, entries)
}
