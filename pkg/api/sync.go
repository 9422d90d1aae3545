package api

import (
	"encoding/json"
	"time"
)

// SyncIDHeader заголовок с идентификатором сессии синхронизации
const SyncIDHeader = "X-Sync-Id"

// EncodingZstd значение Content-Encoding для сжатых тел запросов
const EncodingZstd = "zstd"

// BeginSyncRequest представляет запрос на начало синхронизации
type BeginSyncRequest struct {
	ClientState map[int]string `json:"client_state"` // id сущности -> хеш содержимого
}

// BeginSyncResponse представляет ответ сервера на начало синхронизации
type BeginSyncResponse struct {
	LastSync       time.Time        `json:"last_sync"`
	UpdateSequence map[string][]int `json:"update_sequence"` // тип -> id для скачивания
	SyncID         string           `json:"sync_id"`
	DeletedIDs     []int            `json:"deleted_ids"`
	LastID         int              `json:"last_id"`
}

// SaveEntityRequest представляет запрос на запись сущности
type SaveEntityRequest struct {
	OriginalHash *string         `json:"original_hash,omitempty"` // последний синхронизированный хеш
	Entity       json.RawMessage `json:"entity"`
	Force        bool            `json:"force"`
}

// SaveEntityResponse представляет ответ на запись сущности
type SaveEntityResponse struct {
	Saved bool `json:"saved"`
}

// EntityResponse представляет сущность, загруженную с сервера
type EntityResponse struct {
	Type   string          `json:"type"`
	Entity json.RawMessage `json:"entity"`
}

// DeleteEntityRequest представляет запрос на удаление сущности.
// Без OriginalHash сущность удаляется без проверки конфликта.
type DeleteEntityRequest struct {
	OriginalHash *string `json:"original_hash,omitempty"` // последний синхронизированный хеш
}

// DeleteEntityResponse представляет ответ на удаление сущности
type DeleteEntityResponse struct {
	Deleted bool `json:"deleted"`
}

// EndSyncRequest представляет запрос на завершение синхронизации
type EndSyncRequest struct {
	LastSync time.Time `json:"last_sync"`
	LastID   int       `json:"last_id"`
}

// ProjectInfo представляет проект пользователя
type ProjectInfo struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        string    `json:"id"`
}

// ListProjectsResponse представляет список проектов пользователя
type ListProjectsResponse struct {
	Projects []ProjectInfo `json:"projects"`
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
