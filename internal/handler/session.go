package handler

import (
	"encoding/json"
	"net/http"

	"barpos-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	Service *service.SessionService
}

func (h SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/day/start", h.startDay)
	r.Post("/day/close", h.closeDay)
	r.Get("/day/active", h.active)
	r.Get("/day/status", h.status)
}

func (h SessionHandler) startDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffID int64 `json:"staffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.StaffID == 0 {
		writeError(w, http.StatusBadRequest, "staffId is required")
		return
	}
	sess, err := h.Service.StartDay(r.Context(), req.StaffID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(*sess))
}

func (h SessionHandler) closeDay(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.CloseDay(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(*sess))
}

func (h SessionHandler) active(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Active(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(*sess))
}

func (h SessionHandler) status(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Active(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{"active": sess != nil}
	if sess != nil {
		resp["session"] = sessionView(*sess)
	}
	writeJSON(w, http.StatusOK, resp)
}
