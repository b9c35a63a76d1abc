package api

import (
	"encoding/json"
	"net/http"
)

// SuccessResponse is the envelope for registration endpoints.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TriggerResponse reports a manual dispatch cycle.
type TriggerResponse struct {
	Success           bool `json:"success"`
	NotificationsSent int  `json:"notifications_sent"`
}

// ErrorResponse is the envelope for all failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
