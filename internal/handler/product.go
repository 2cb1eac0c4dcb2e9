package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"barpos-backend/internal/domain"
	"barpos-backend/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	Repo repository.ProductRepository
}

func (h ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/low-stock", h.lowStock)
	r.Get("/products/{id}", h.get)
	r.Post("/products", h.create)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

type productRequest struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Quantity          int     `json:"quantity"`
	CategoryID        *int64  `json:"categoryId"`
	LowStockThreshold *int    `json:"lowStockThreshold"`
}

func (req *productRequest) toInput() (repository.SaveProductInput, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return repository.SaveProductInput{}, "name is required"
	}
	if req.Price < 0 {
		return repository.SaveProductInput{}, "price must not be negative"
	}
	if req.Quantity < 0 {
		return repository.SaveProductInput{}, "quantity must not be negative"
	}
	in := repository.SaveProductInput{
		Name:       req.Name,
		Price:      domain.MoneyFromDecimal(req.Price),
		Quantity:   req.Quantity,
		CategoryID: req.CategoryID,
	}
	if req.LowStockThreshold != nil {
		in.LowStockThreshold = *req.LowStockThreshold
	} else {
		in.LowStockThreshold = 5
	}
	return in, ""
}

func (h ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, p := range items {
		resp = append(resp, productView(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ProductHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.ListBelowThreshold(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, p := range items {
		resp = append(resp, productView(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productView(*p))
}

func (h ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in, msg := req.toInput()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p, err := h.Repo.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, productView(*p))
}

func (h ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in, msg := req.toInput()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p, err := h.Repo.Update(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productView(*p))
}

func (h ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
