package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/manuscript/pkg/api"
)

// writeError отправляет ошибку в формате api.ErrorResponse
func writeError(w http.ResponseWriter, code, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: code, Message: message})
}
