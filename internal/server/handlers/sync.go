package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/manuscript/internal/idalloc"
	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/internal/server/repository"
	"github.com/iudanet/manuscript/internal/server/session"
	"github.com/iudanet/manuscript/internal/server/synchronizer"
	"github.com/iudanet/manuscript/internal/validation"
	"github.com/iudanet/manuscript/pkg/api"
)

// maxEntityBodySize ограничение размера тела запроса с сущностью
const maxEntityBodySize = 8 << 20

// SyncService определяет серверные операции синхронизации проекта
type SyncService interface {
	BeginSync(ctx context.Context, userID, project string, clientState models.ClientEntityState) (*repository.BeginResult, error)
	LoadEntity(ctx context.Context, userID, project, syncID string, t models.EntityType, id int) (models.Entity, error)
	SaveEntity(ctx context.Context, userID, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error)
	DeleteEntity(ctx context.Context, userID, project, syncID string, id int, originalHash *string) (bool, error)
	EndSync(ctx context.Context, userID, project, syncID string, lastSync time.Time, lastID int) error
	CancelSync(ctx context.Context, userID, project, syncID string) error
	ListProjects(ctx context.Context, userID string) ([]*models.ProjectDefinition, error)
}

// SyncHandler handles project synchronization requests
type SyncHandler struct {
	logger  *slog.Logger
	service SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, service SyncService) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		service: service,
	}
}

// requestScope общие параметры запроса к проекту
type requestScope struct {
	userID  string
	project string
	syncID  string
}

// scope извлекает пользователя, проект и sync ID. При ошибке ответ уже отправлен.
func (h *SyncHandler) scope(w http.ResponseWriter, r *http.Request) (requestScope, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		h.sendError(w, api.ErrCodeUnauthorized, "unauthorized", http.StatusUnauthorized)
		return requestScope{}, false
	}

	project := r.PathValue("project")
	if err := validation.ValidateProjectName(project); err != nil {
		h.sendError(w, api.ErrCodeBadRequest, err.Error(), http.StatusBadRequest)
		return requestScope{}, false
	}

	return requestScope{
		userID:  userID,
		project: project,
		syncID:  r.Header.Get(api.SyncIDHeader),
	}, true
}

func (h *SyncHandler) entityID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.sendError(w, api.ErrCodeBadRequest, "invalid entity id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *SyncHandler) entityType(w http.ResponseWriter, r *http.Request) (models.EntityType, bool) {
	t, err := models.ParseEntityType(r.PathValue("type"))
	if err != nil {
		h.sendError(w, api.ErrCodeBadRequest, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return t, true
}

// BeginSync обрабатывает POST /api/v1/projects/{project}/sync/begin
func (h *SyncHandler) BeginSync(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.BeginSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode begin sync request", "error", err)
		h.sendError(w, api.ErrCodeBadRequest, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.BeginSync(r.Context(), sc.userID, sc.project, models.ClientEntityState(req.ClientState))
	if err != nil {
		h.handleError(w, sc, err)
		return
	}

	resp := api.BeginSyncResponse{
		SyncID:         res.SyncID,
		LastSync:       res.LastSync,
		LastID:         res.LastID,
		DeletedIDs:     res.DeletedIDs,
		UpdateSequence: make(map[string][]int, len(res.UpdateSequence)),
	}
	for t, ids := range res.UpdateSequence {
		resp.UpdateSequence[string(t)] = ids
	}

	h.logger.Info("Begin sync", "user_id", sc.userID, "project", sc.project, "client_entities", len(req.ClientState))
	h.sendJSON(w, resp, http.StatusOK)
}

// LoadEntity обрабатывает GET /api/v1/projects/{project}/entities/{type}/{id}
func (h *SyncHandler) LoadEntity(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}

	e, err := h.service.LoadEntity(r.Context(), sc.userID, sc.project, sc.syncID, t, id)
	if err != nil {
		h.handleError(w, sc, err)
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		h.handleError(w, sc, err)
		return
	}

	h.sendJSON(w, api.EntityResponse{Type: string(t), Entity: data}, http.StatusOK)
}

// SaveEntity обрабатывает PUT /api/v1/projects/{project}/entities/{type}/{id}
func (h *SyncHandler) SaveEntity(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	t, ok := h.entityType(w, r)
	if !ok {
		return
	}
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}

	var req api.SaveEntityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEntityBodySize)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode save request", "error", err)
		h.sendError(w, api.ErrCodeBadRequest, "invalid request body", http.StatusBadRequest)
		return
	}

	e, err := models.NewEntity(t)
	if err != nil {
		h.sendError(w, api.ErrCodeBadRequest, err.Error(), http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(req.Entity, e); err != nil {
		h.sendError(w, api.ErrCodeBadRequest, "invalid entity", http.StatusBadRequest)
		return
	}
	if e.EntityID() != id {
		h.sendError(w, api.ErrCodeBadRequest, "entity id does not match path", http.StatusBadRequest)
		return
	}

	saved, err := h.service.SaveEntity(r.Context(), sc.userID, sc.project, sc.syncID, e, req.OriginalHash, req.Force)
	if err != nil {
		h.handleError(w, sc, err)
		return
	}

	h.sendJSON(w, api.SaveEntityResponse{Saved: saved}, http.StatusOK)
}

// DeleteEntity обрабатывает DELETE /api/v1/projects/{project}/entities/{id}
func (h *SyncHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}

	// Тело необязательно
	var req api.DeleteEntityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEntityBodySize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, api.ErrCodeBadRequest, "invalid request body", http.StatusBadRequest)
		return
	}

	deleted, err := h.service.DeleteEntity(r.Context(), sc.userID, sc.project, sc.syncID, id, req.OriginalHash)
	if err != nil {
		h.handleError(w, sc, err)
		return
	}

	h.sendJSON(w, api.DeleteEntityResponse{Deleted: deleted}, http.StatusOK)
}

// EndSync обрабатывает POST /api/v1/projects/{project}/sync/end
func (h *SyncHandler) EndSync(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.EndSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, api.ErrCodeBadRequest, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.EndSync(r.Context(), sc.userID, sc.project, sc.syncID, req.LastSync, req.LastID); err != nil {
		h.handleError(w, sc, err)
		return
	}

	h.logger.Info("End sync", "user_id", sc.userID, "project", sc.project, "last_id", req.LastID)
	w.WriteHeader(http.StatusNoContent)
}

// CancelSync обрабатывает POST /api/v1/projects/{project}/sync/cancel
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelSync(r.Context(), sc.userID, sc.project, sc.syncID); err != nil {
		h.handleError(w, sc, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListProjects обрабатывает GET /api/v1/projects
func (h *SyncHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.sendError(w, api.ErrCodeUnauthorized, "unauthorized", http.StatusUnauthorized)
		return
	}

	projects, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		h.handleError(w, requestScope{userID: userID}, err)
		return
	}

	resp := api.ListProjectsResponse{Projects: make([]api.ProjectInfo, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, api.ProjectInfo{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// handleError переводит ошибку синхронизации в HTTP ответ
func (h *SyncHandler) handleError(w http.ResponseWriter, sc requestScope, err error) {
	if conflict, ok := synchronizer.AsConflict(err); ok {
		// Конфликт - ожидаемая ситуация, не ошибка сервера
		data, mErr := json.Marshal(conflict.Server())
		if mErr != nil {
			h.logger.Error("Failed to encode conflicting entity", "error", mErr)
			h.sendError(w, api.ErrCodeEntityIO, "failed to encode entity", http.StatusInternalServerError)
			return
		}
		h.sendJSON(w, api.ErrorResponse{
			Error:        api.ErrCodeEntityConflict,
			Message:      err.Error(),
			EntityType:   string(conflict.Type()),
			ServerEntity: data,
		}, http.StatusConflict)
		return
	}

	code, status := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Sync request failed", "user_id", sc.userID, "project", sc.project, "error", err)
	}
	h.sendError(w, code, err.Error(), status)
}

// classifyError возвращает код ошибки API и HTTP статус
func classifyError(err error) (string, int) {
	switch {
	case errors.Is(err, session.ErrSessionAlreadyActive):
		return api.ErrCodeSessionAlreadyActive, http.StatusConflict
	case errors.Is(err, session.ErrInvalidSyncID):
		return api.ErrCodeInvalidSyncID, http.StatusGone
	case errors.Is(err, synchronizer.ErrEntityNotFound):
		return api.ErrCodeNotFound, http.StatusNotFound
	case errors.Is(err, synchronizer.ErrIDCollision):
		return api.ErrCodeIDCollision, http.StatusConflict
	case errors.Is(err, idalloc.ErrIDSpaceCorrupted):
		return api.ErrCodeIDSpaceCorrupted, http.StatusInternalServerError
	case errors.Is(err, synchronizer.ErrInvalidEntity), errors.Is(err, repository.ErrUnknownEntityType):
		return api.ErrCodeBadRequest, http.StatusBadRequest
	default:
		return api.ErrCodeEntityIO, http.StatusInternalServerError
	}
}

// sendJSON отправляет JSON ответ
func (h *SyncHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *SyncHandler) sendError(w http.ResponseWriter, code, message string, statusCode int) {
	h.sendJSON(w, api.ErrorResponse{Error: code, Message: message}, statusCode)
}
