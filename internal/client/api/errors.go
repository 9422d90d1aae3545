package api

import (
	"errors"
	"fmt"

	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/pkg/api"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrSessionAlreadyActive = errors.New("sync session already active")
	ErrInvalidSyncID        = errors.New("invalid sync id")
	ErrEntityConflict       = errors.New("entity conflict")
	ErrIDCollision          = errors.New("id collision")
	ErrIDSpaceCorrupted     = errors.New("server id space corrupted")
	ErrBadRequest           = errors.New("bad request")
	ErrRateLimited          = errors.New("rate limited")
	ErrEntityIO             = errors.New("server entity i/o error")
)

// codeErrors сопоставляет коды ошибок API и sentinel ошибки клиента
var codeErrors = map[string]error{
	api.ErrCodeUnauthorized:         ErrUnauthorized,
	api.ErrCodeNotFound:             ErrNotFound,
	api.ErrCodeSessionAlreadyActive: ErrSessionAlreadyActive,
	api.ErrCodeInvalidSyncID:        ErrInvalidSyncID,
	api.ErrCodeEntityConflict:       ErrEntityConflict,
	api.ErrCodeIDCollision:          ErrIDCollision,
	api.ErrCodeIDSpaceCorrupted:     ErrIDSpaceCorrupted,
	api.ErrCodeBadRequest:           ErrBadRequest,
	api.ErrCodeRateLimited:          ErrRateLimited,
	api.ErrCodeEntityIO:             ErrEntityIO,
}

// Error ошибка, возвращенная сервером
type Error struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is matches the sentinel error of the API error code.
func (e *Error) Is(target error) bool {
	sentinel, ok := codeErrors[e.Code]
	return ok && sentinel == target
}

// ConflictError конфликт при записи сущности: сервер вернул свою версию
type ConflictError struct {
	Server models.Entity
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entity conflict: %s %d", e.Server.EntityType(), e.Server.EntityID())
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrEntityConflict
}
