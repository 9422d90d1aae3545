package api

import "encoding/json"

// Коды ошибок в ErrorResponse.Error
const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeNotFound             = "not_found"
	ErrCodeSessionAlreadyActive = "session_already_active"
	ErrCodeInvalidSyncID        = "invalid_sync_id"
	ErrCodeEntityConflict       = "entity_conflict"
	ErrCodeIDCollision          = "id_collision"
	ErrCodeIDSpaceCorrupted     = "id_space_corrupted"
	ErrCodeEntityIO             = "entity_io"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeInternal             = "internal"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error        string          `json:"error"`                   // код ошибки
	Message      string          `json:"message,omitempty"`       // дополнительное сообщение
	EntityType   string          `json:"entity_type,omitempty"`   // тип сущности при конфликте
	ServerEntity json.RawMessage `json:"server_entity,omitempty"` // серверная версия при конфликте
}
