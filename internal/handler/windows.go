package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mintgate-api/internal/service"
	"mintgate-api/pkg/apierror"
	"mintgate-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// WindowHandler handles sale window registry requests.
type WindowHandler struct {
	sale *service.SaleService
}

// NewWindowHandler creates a new window handler.
func NewWindowHandler(sale *service.SaleService) *WindowHandler {
	return &WindowHandler{sale: sale}
}

// windowRequest is the body of window insert and edit requests.
type windowRequest struct {
	ID       uint64   `json:"id"`
	Root     string   `json:"membership_root"`
	Public   bool     `json:"public"`
	Start    uint64   `json:"start_time"`
	Limits   []uint64 `json:"per_type_limits"`
	PrevHint uint64   `json:"prev_hint,omitempty"`
	NextHint uint64   `json:"next_hint,omitempty"`
}

// List handles GET /api/v1/windows
func (h *WindowHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.sale.Windows(r.Context()))
}

// Get handles GET /api/v1/windows/{id}
func (h *WindowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := windowID(w, r)
	if !ok {
		return
	}
	rec, err := h.sale.Window(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, rec)
}

// Create handles POST /api/v1/windows
func (h *WindowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	rec, err := h.sale.InsertWindow(r.Context(), service.WindowParams{
		ID:       req.ID,
		Root:     req.Root,
		Public:   req.Public,
		Start:    req.Start,
		Limits:   req.Limits,
		PrevHint: req.PrevHint,
		NextHint: req.NextHint,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, rec)
}

// Update handles PUT /api/v1/windows/{id}
func (h *WindowHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := windowID(w, r)
	if !ok {
		return
	}
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	rec, err := h.sale.EditWindow(r.Context(), service.WindowParams{
		ID:     id,
		Root:   req.Root,
		Public: req.Public,
		Start:  req.Start,
		Limits: req.Limits,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, rec)
}

// Delete handles DELETE /api/v1/windows/{id}
func (h *WindowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := windowID(w, r)
	if !ok {
		return
	}
	if err := h.sale.RemoveWindow(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// Active handles GET /api/v1/sale/active
func (h *WindowHandler) Active(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.sale.ActiveWindow(r.Context())
	if !ok {
		response.OK(w, map[string]interface{}{"open": false})
		return
	}
	response.OK(w, map[string]interface{}{"open": true, "window": rec})
}

// windowID parses the {id} route parameter.
func windowID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(w, apierror.BadRequest("invalid window id"))
		return 0, false
	}
	return id, true
}
