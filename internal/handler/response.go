package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"barpos-backend/internal/domain"
)

type apiError struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

type apiResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Error   *apiError `json:"error,omitempty"`
}

func writeRawJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if status >= 400 {
		writeRawJSON(w, status, apiResponse{
			Status: "error",
			Data:   payload,
			Error: &apiError{
				Code:   status,
				Status: http.StatusText(status),
			},
		})
		return
	}
	writeRawJSON(w, status, apiResponse{
		Status: "ok",
		Data:   payload,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "error",
		Message: message,
		Error: &apiError{
			Code:   status,
			Status: http.StatusText(status),
		},
	})
}

// writeDomainError maps engine errors to HTTP statuses. Every one of them is
// recoverable: the presentation layer shows the message and lets the user
// retry.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrTableAlreadyOpen),
		errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrSessionAlreadyActive),
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrTablesStillOpen),
		errors.Is(err, domain.ErrEmptyDay),
		errors.Is(err, domain.ErrDuplicateClosing),
		errors.Is(err, domain.ErrNoOrdersFound),
		errors.Is(err, domain.ErrStaffHasOrders):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTableOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
