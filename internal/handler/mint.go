package handler

import (
	"encoding/json"
	"net/http"

	"mintgate-api/internal/model"
	"mintgate-api/internal/service"
	"mintgate-api/pkg/apierror"
	"mintgate-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// MintHandler handles mint requests and ledger reads.
type MintHandler struct {
	sale *service.SaleService
}

// NewMintHandler creates a new mint handler.
func NewMintHandler(sale *service.SaleService) *MintHandler {
	return &MintHandler{sale: sale}
}

// Mint handles POST /api/v1/mint
func (h *MintHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req model.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Recipient == "" {
		response.Error(w, apierror.BadRequest("recipient is required"))
		return
	}

	receipt, err := h.sale.Mint(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, receipt)
}

// MintedCounts handles GET /api/v1/windows/{id}/minted/{recipient}
func (h *MintHandler) MintedCounts(w http.ResponseWriter, r *http.Request) {
	id, ok := windowID(w, r)
	if !ok {
		return
	}
	recipient := chi.URLParam(r, "recipient")
	if recipient == "" {
		response.Error(w, apierror.BadRequest("recipient is required"))
		return
	}

	counts, err := h.sale.MintedCounts(r.Context(), id, recipient)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"window_id": id,
		"recipient": recipient,
		"minted":    counts,
	})
}
