package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"unitap-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteServiceError maps a ServiceError to its HTTP status, merging any
// echoed identifying fields (card_uid, device_id) into the body. Anything
// else is a store failure and surfaces as a 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var svcErr services.ServiceError
	if errors.As(err, &svcErr) {
		payload := map[string]interface{}{"message": svcErr.Message}
		for key, value := range svcErr.Meta {
			payload[key] = value
		}
		WriteJSON(w, svcErr.Status, payload)
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
