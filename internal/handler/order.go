package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"barpos-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	Service *service.OrderService
}

func (h OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.listByRange)
	r.Get("/orders/open", h.listOpen)
	r.Get("/orders/{id}", h.get)
	r.Post("/orders/{id}/items", h.addItems)
	r.Post("/orders/{id}/pay", h.pay)
	r.Put("/orders/{id}/notes", h.updateNotes)
	r.Post("/order-items/{id}/increase", h.increaseItem)
	r.Post("/order-items/{id}/decrease", h.decreaseItem)
}

type orderLineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func toLines(reqs []orderLineRequest) []service.OrderLine {
	lines := make([]service.OrderLine, 0, len(reqs))
	for _, l := range reqs {
		lines = append(lines, service.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return lines
}

func (h OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffID      int64              `json:"staffId"`
		TableNumber  int                `json:"tableNumber"`
		CustomerName *string            `json:"customerName"`
		Notes        *string            `json:"notes"`
		Items        []orderLineRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	ow, err := h.Service.Create(r.Context(), service.CreateOrderInput{
		StaffID:      req.StaffID,
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        toLines(req.Items),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView(*ow))
}

func (h OrderHandler) listByRange(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}
	orders, err := h.Service.ListByDateRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orderListView(orders))
}

func (h OrderHandler) listOpen(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Service.ListOpen(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderListView(orders))
}

func (h OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ow, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*ow))
}

func (h OrderHandler) addItems(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Items []orderLineRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "no items to add")
		return
	}
	ow, err := h.Service.AddItems(r.Context(), id, toLines(req.Items))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*ow))
}

func (h OrderHandler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ow, err := h.Service.MarkPaid(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*ow))
}

func (h OrderHandler) updateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		CustomerName *string `json:"customerName"`
		Notes        *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ow, err := h.Service.UpdateNotes(r.Context(), id, req.CustomerName, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*ow))
}

func (h OrderHandler) increaseItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ow, err := h.Service.IncreaseItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*ow))
}

// decreaseItem returns the updated order, or a null order when removing the
// last unit deleted the order entirely.
func (h OrderHandler) decreaseItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ow, err := h.Service.DecreaseItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ow == nil {
		writeJSON(w, http.StatusOK, map[string]any{"order": nil, "deleted": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": orderView(*ow), "deleted": false})
}
