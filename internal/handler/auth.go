package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"barpos-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Service service.AuthService
}

func (h AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
}

func (h AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerminalKey string `json:"terminalKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := h.Service.Login(req.TerminalKey)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid terminal key")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": res.AccessToken,
		"expiresAt":   res.ExpiresAt,
	})
}
